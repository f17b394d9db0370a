package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type publishedMessage struct {
	channel string
	payload []byte
}

type stubPublisher struct {
	messages []publishedMessage
	err      error
}

func (s *stubPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	payload, _ := message.([]byte)
	s.messages = append(s.messages, publishedMessage{channel: channel, payload: payload})
	return redis.NewIntResult(1, s.err)
}

type stubResyncer struct {
	owners []string
	err    error
}

func (s *stubResyncer) Resync(ctx context.Context, ownerID string) error {
	s.owners = append(s.owners, ownerID)
	return s.err
}

func TestPublisherNotifyTimetableChanged(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	stub := &stubPublisher{}
	publisher := NewPublisher(stub, "instance-a", func() time.Time { return at })

	if err := publisher.NotifyTimetableChanged(context.Background(), "teacher-1", "MoveSession"); err != nil {
		t.Fatalf("NotifyTimetableChanged returned error: %v", err)
	}
	if len(stub.messages) != 1 || stub.messages[0].channel != "timetable:owner:teacher-1:changed" {
		t.Fatalf("unexpected messages %+v", stub.messages)
	}

	var event Event
	if err := json.Unmarshal(stub.messages[0].payload, &event); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	want := Event{OwnerID: "teacher-1", Reason: "MoveSession", Origin: "instance-a", At: at}
	if event != want {
		t.Fatalf("expected %+v, got %+v", want, event)
	}
}

func TestPublisherWrapsRedisErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	publisher := NewPublisher(&stubPublisher{err: cause}, "instance-a", nil)
	if err := publisher.NotifyTimetableChanged(context.Background(), "teacher-1", "DeleteSession"); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped redis error, got %v", err)
	}
}

func TestListenerHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("resyncs owners changed elsewhere", func(t *testing.T) {
		t.Parallel()

		resyncer := &stubResyncer{}
		listener := NewListener(resyncer, "instance-a", nil)
		listener.Handle(ctx, ChannelForOwner("teacher-1"), `{"owner_id":"teacher-1","reason":"ApplyPreset","origin":"instance-b"}`)

		if len(resyncer.owners) != 1 || resyncer.owners[0] != "teacher-1" {
			t.Fatalf("expected resync for teacher-1, got %v", resyncer.owners)
		}
	})

	t.Run("ignores its own events", func(t *testing.T) {
		t.Parallel()

		resyncer := &stubResyncer{}
		listener := NewListener(resyncer, "instance-a", nil)
		listener.Handle(ctx, ChannelForOwner("teacher-1"), `{"owner_id":"teacher-1","origin":"instance-a"}`)

		if len(resyncer.owners) != 0 {
			t.Fatalf("expected no resync, got %v", resyncer.owners)
		}
	})

	t.Run("falls back to the channel owner and drops malformed payloads", func(t *testing.T) {
		t.Parallel()

		resyncer := &stubResyncer{err: errors.New("store down")}
		listener := NewListener(resyncer, "instance-a", nil)
		listener.Handle(ctx, ChannelForOwner("teacher-9"), `{"reason":"CreateSession"}`)
		listener.Handle(ctx, ChannelForOwner("teacher-9"), `not json`)

		if len(resyncer.owners) != 1 || resyncer.owners[0] != "teacher-9" {
			t.Fatalf("expected one resync for teacher-9, got %v", resyncer.owners)
		}
	})
}
