package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/academy-timetable/internal/persistence/sqlite/migration"
	"github.com/example/academy-timetable/internal/timeclock"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	pool     *ConnectionPool
	logger   *slog.Logger
	sessions *SessionRepository
	presets  *PresetRepository
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:     pool,
		logger:   logger,
		sessions: NewSessionRepository(pool),
		presets:  NewPresetRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFileScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
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

// DB exposes the underlying handle for maintenance queries.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// timestampLayout keeps a fixed fraction width so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func parseClockPair(start, end string) (int, int, error) {
	startMinute, err := timeclock.ParseClock(start)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: start_time: %w", err)
	}
	endMinute, err := timeclock.ParseClock(end)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: end_time: %w", err)
	}
	return startMinute, endMinute, nil
}
