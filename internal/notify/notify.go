// Package notify fans committed timetable changes out over Redis pub/sub so
// every service instance can resync its cached view of an owner's timetable.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "timetable:owner:"
	channelSuffix = ":changed"
	// ChannelPattern matches the change channel of every owner.
	ChannelPattern = channelPrefix + "*" + channelSuffix
)

// ChannelForOwner returns the pub/sub channel carrying ownerID's changes.
func ChannelForOwner(ownerID string) string {
	return channelPrefix + ownerID + channelSuffix
}

// Event is the JSON payload published after a committed change.
type Event struct {
	OwnerID string    `json:"owner_id"`
	Reason  string    `json:"reason"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "redis connected", "addr", opt.Addr, "db", opt.DB)
	}
	return rdb, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher implements application.ChangeNotifier on Redis pub/sub.
type Publisher struct {
	client publisher
	origin string
	now    func() time.Time
}

// NewPublisher publishes through client, tagging events with origin so the
// publishing instance can ignore its own echoes.
func NewPublisher(client publisher, origin string, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{client: client, origin: origin, now: now}
}

// NotifyTimetableChanged publishes a change event for ownerID.
func (p *Publisher) NotifyTimetableChanged(ctx context.Context, ownerID, reason string) error {
	payload, err := json.Marshal(Event{OwnerID: ownerID, Reason: reason, Origin: p.origin, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelForOwner(ownerID), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Resyncer reloads an owner's timetable from the store.
type Resyncer interface {
	Resync(ctx context.Context, ownerID string) error
}

// Listener resyncs local timetable views when another instance reports a change.
type Listener struct {
	resyncer Resyncer
	origin   string
	logger   *slog.Logger
}

// NewListener builds a Listener that ignores events carrying origin.
func NewListener(resyncer Resyncer, origin string, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{resyncer: resyncer, origin: origin, logger: logger.With("component", "notify")}
}

// Run subscribes to every owner's change channel and blocks until ctx ends.
func (l *Listener) Run(ctx context.Context, client *redis.Client) error {
	pubsub := client.PSubscribe(ctx, ChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelPattern, err)
	}
	l.logger.InfoContext(ctx, "listening for timetable changes", "pattern", ChannelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.Handle(ctx, msg.Channel, msg.Payload)
		}
	}
}

// Handle processes one published payload. Malformed payloads are logged and dropped.
func (l *Listener) Handle(ctx context.Context, channel, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		l.logger.WarnContext(ctx, "dropping malformed change event", "channel", channel, "error", err)
		return
	}
	if event.OwnerID == "" {
		event.OwnerID = strings.TrimSuffix(strings.TrimPrefix(channel, channelPrefix), channelSuffix)
	}
	if event.Origin != "" && event.Origin == l.origin {
		return
	}
	if err := l.resyncer.Resync(ctx, event.OwnerID); err != nil {
		l.logger.WarnContext(ctx, "resync after remote change failed", "owner_id", event.OwnerID, "reason", event.Reason, "error", err)
		return
	}
	l.logger.DebugContext(ctx, "resynced after remote change", "owner_id", event.OwnerID, "reason", event.Reason)
}
