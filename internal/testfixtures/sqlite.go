package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/persistence/sqlite"
	"github.com/example/academy-timetable/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated SQLite database in the test's temp directory.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Sessions persistence.SessionRepository
	Presets  persistence.PresetRepository
}

// NewSQLiteHarness opens and migrates a fresh database file. The storage is
// closed when the test finishes; Close may be called earlier.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(filepath.Join(tb.TempDir(), "timetable.db")), nil)
	if err != nil {
		tb.Fatalf("open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate storage: %v", err)
	}
	return &SQLiteHarness{Storage: storage, Sessions: storage.Sessions(), Presets: storage.Presets()}
}

// Close releases the database early.
func (h *SQLiteHarness) Close() {
	if h != nil && h.Storage != nil {
		_ = h.Storage.Close()
	}
}

// CountRows returns the number of rows in table.
func (h *SQLiteHarness) CountRows(tb testing.TB, table string) int {
	tb.Helper()

	var n int
	if err := h.Storage.DB().QueryRowContext(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}
