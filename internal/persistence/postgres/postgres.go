// Package postgres stores class sessions and presets in PostgreSQL through a
// pgx connection pool. Clock times live in TIME columns.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/timeclock"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Storage bundles the PostgreSQL repositories over one pool.
type Storage struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	sessions *SessionRepository
	presets  *PresetRepository
}

// Open creates and pings a pool for databaseURL. maxConns <= 0 keeps the pgx default.
func Open(ctx context.Context, databaseURL string, maxConns int32, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.InfoContext(ctx, "postgres connected", "max_conns", poolCfg.MaxConns)
	return &Storage{
		pool:     pool,
		logger:   logger,
		sessions: NewSessionRepository(pool),
		presets:  NewPresetRepository(pool),
	}, nil
}

// Migrate creates the schema when it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	s.logger.InfoContext(ctx, "schema ensured")
	return nil
}

// Sessions returns the class session repository.
func (s *Storage) Sessions() *SessionRepository {
	return s.sessions
}

// Presets returns the preset repository.
func (s *Storage) Presets() *PresetRepository {
	return s.presets
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// mapError translates pgx errors to persistence sentinels, keeping the cause.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == uniqueViolation:
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.HasPrefix(pgErr.Code, "23"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func parseClockPair(start, end string) (int, int, error) {
	startMinute, err := timeclock.ParseClock(start)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: start_time: %w", err)
	}
	endMinute, err := timeclock.ParseClock(end)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: end_time: %w", err)
	}
	return startMinute, endMinute, nil
}
