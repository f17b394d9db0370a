package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/academy-timetable/internal/persistence"
)

const postgresURLEnv = "TIMETABLE_TEST_POSTGRES_URL"

func openTestStorage(t *testing.T) *Storage {
	t.Helper()

	url := os.Getenv(postgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}

	ctx := context.Background()
	storage, err := Open(ctx, url, 4, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return storage
}

func TestMapError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: persistence.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: persistence.ErrDuplicate},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: persistence.ErrConstraintViolation},
		{name: "check", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23514"}), want: persistence.ErrConstraintViolation},
		{name: "other", err: cause, want: cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if mapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestSessionRepository(t *testing.T) {
	storage := openTestStorage(t)
	repo := storage.Sessions()
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := persistence.ClassSession{
		ID: uuid.NewString(), OwnerID: owner, Name: "Math", Weekday: 1,
		StartMinute: 600, EndMinute: 660, ColorTag: "orange", CreatedAt: now, UpdatedAt: now,
	}
	late := persistence.ClassSession{
		ID: uuid.NewString(), OwnerID: owner, Name: "Late", Weekday: 1,
		StartMinute: 60, EndMinute: 120, ColorTag: "blue", CreatedAt: now, UpdatedAt: now,
	}

	if err := repo.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if err := repo.CreateSession(ctx, first); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.CreateSession(ctx, late); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	listed, err := repo.ListSessions(ctx, owner)
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 sessions, got %+v", listed)
	}
	byID := map[string]persistence.ClassSession{}
	for _, s := range listed {
		byID[s.ID] = s
	}
	if got := byID[late.ID]; got.StartMinute != 60 || got.EndMinute != 120 {
		t.Fatalf("expected early morning clock to round trip, got %+v", got)
	}
	if got := byID[first.ID]; !got.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, got.CreatedAt)
	}

	first.Name = "Algebra"
	first.StartMinute, first.EndMinute = 720, 780
	if err := repo.UpdateSession(ctx, first); err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}
	foreign := first
	foreign.OwnerID = "owner-" + uuid.NewString()
	if err := repo.UpdateSession(ctx, foreign); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	replacement := persistence.ClassSession{
		ID: uuid.NewString(), OwnerID: owner, Name: "Art", Weekday: 3,
		StartMinute: 840, EndMinute: 900, ColorTag: "green", CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.ReplaceOwnerSessions(ctx, owner, []persistence.ClassSession{replacement, replacement}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated id, got %v", err)
	}
	if listed, _ := repo.ListSessions(ctx, owner); len(listed) != 2 {
		t.Fatalf("expected failed replace to roll back, got %+v", listed)
	}
	if err := repo.ReplaceOwnerSessions(ctx, owner, []persistence.ClassSession{replacement}); err != nil {
		t.Fatalf("ReplaceOwnerSessions returned error: %v", err)
	}
	listed, err = repo.ListSessions(ctx, owner)
	if err != nil || len(listed) != 1 || listed[0].ID != replacement.ID {
		t.Fatalf("expected only the replacement, got %+v (%v)", listed, err)
	}

	if err := repo.DeleteSession(ctx, replacement.ID); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if err := repo.DeleteSession(ctx, replacement.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPresetRepository(t *testing.T) {
	storage := openTestStorage(t)
	repo := storage.Presets()
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)
	older := persistence.Preset{
		ID: uuid.NewString(), Name: "Week A", OwnerID: owner, CreatedAt: base, UpdatedAt: base,
		Items: []persistence.PresetItem{
			{Name: "Math", Weekday: 1, StartMinute: 600, EndMinute: 720, ColorTag: "blue"},
			{Name: "Art", Weekday: 2, StartMinute: 840, EndMinute: 900, ColorTag: "orange"},
		},
	}
	newer := persistence.Preset{
		ID: uuid.NewString(), Name: "Week B", OwnerID: owner, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}

	for _, preset := range []persistence.Preset{older, newer} {
		if err := repo.CreatePreset(ctx, preset); err != nil {
			t.Fatalf("CreatePreset returned error: %v", err)
		}
	}
	if err := repo.CreatePreset(ctx, newer); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	listed, err := repo.ListPresets(ctx, persistence.PresetFilter{OwnerID: owner})
	if err != nil {
		t.Fatalf("ListPresets returned error: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != newer.ID || len(listed[1].Items) != 2 {
		t.Fatalf("expected newest first with items, got %+v", listed)
	}
	if item := listed[1].Items[0]; item.PresetID != older.ID || item.StartMinute != 600 || item.EndMinute != 720 {
		t.Fatalf("unexpected item %+v", item)
	}

	stranger := "owner-" + uuid.NewString()
	if got, _ := repo.ListPresets(ctx, persistence.PresetFilter{OwnerID: stranger, IncludePublic: true}); containsPreset(got, older.ID) {
		t.Fatalf("private preset leaked to %s", stranger)
	}
	if err := repo.SetPresetVisibility(ctx, older.ID, true, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("SetPresetVisibility returned error: %v", err)
	}
	if got, _ := repo.ListPresets(ctx, persistence.PresetFilter{OwnerID: stranger, IncludePublic: true}); !containsPreset(got, older.ID) {
		t.Fatalf("expected public preset visible to %s", stranger)
	}

	if err := repo.DeletePreset(ctx, older.ID); err != nil {
		t.Fatalf("DeletePreset returned error: %v", err)
	}
	if err := repo.DeletePreset(ctx, older.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, _ := repo.ListPresets(ctx, persistence.PresetFilter{PresetID: older.ID}); len(got) != 0 {
		t.Fatalf("expected preset to be gone, got %+v", got)
	}
}

func containsPreset(presets []persistence.Preset, id string) bool {
	for _, preset := range presets {
		if preset.ID == id {
			return true
		}
	}
	return false
}
