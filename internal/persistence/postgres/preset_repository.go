package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/timeclock"
)

// PresetRepository implements persistence.PresetRepository on PostgreSQL.
type PresetRepository struct {
	pool *pgxpool.Pool
}

// NewPresetRepository creates a new PostgreSQL preset repository.
func NewPresetRepository(pool *pgxpool.Pool) *PresetRepository {
	return &PresetRepository{pool: pool}
}

// ListPresets returns matching presets newest first, each with its items.
func (r *PresetRepository) ListPresets(ctx context.Context, filter persistence.PresetFilter) ([]persistence.Preset, error) {
	query := `SELECT id, name, owner_id, is_public, created_at, updated_at FROM class_presets`
	var args []any
	switch {
	case filter.PresetID != "":
		query += ` WHERE id = $1`
		args = append(args, filter.PresetID)
	case filter.IncludePublic:
		query += ` WHERE owner_id = $1 OR is_public`
		args = append(args, filter.OwnerID)
	default:
		query += ` WHERE owner_id = $1`
		args = append(args, filter.OwnerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var (
		presets []persistence.Preset
		ids     []string
	)
	index := make(map[string]int)
	for rows.Next() {
		var preset persistence.Preset
		if err := rows.Scan(&preset.ID, &preset.Name, &preset.OwnerID, &preset.IsPublic, &preset.CreatedAt, &preset.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan preset: %w", err)
		}
		index[preset.ID] = len(presets)
		ids = append(ids, preset.ID)
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(presets) == 0 {
		return nil, nil
	}

	if err := r.attachItems(ctx, presets, ids, index); err != nil {
		return nil, err
	}
	return presets, nil
}

func (r *PresetRepository) attachItems(ctx context.Context, presets []persistence.Preset, ids []string, index map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, preset_id, name, weekday, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), color_tag
		FROM class_preset_items
		WHERE preset_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       persistence.PresetItem
			start, end string
		)
		if err := rows.Scan(&item.ID, &item.PresetID, &item.Name, &item.Weekday, &start, &end, &item.ColorTag); err != nil {
			return fmt.Errorf("postgres: scan preset item: %w", err)
		}
		if item.StartMinute, item.EndMinute, err = parseClockPair(start, end); err != nil {
			return err
		}
		i := index[item.PresetID]
		presets[i].Items = append(presets[i].Items, item)
	}
	return mapError(rows.Err())
}

// CreatePreset inserts the preset and its items in one transaction.
func (r *PresetRepository) CreatePreset(ctx context.Context, preset persistence.Preset) error {
	if err := persistence.ValidatePreset(preset); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO class_presets (id, name, owner_id, is_public, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			preset.ID, preset.Name, preset.OwnerID, preset.IsPublic, preset.CreatedAt, preset.UpdatedAt,
		); err != nil {
			return err
		}
		for _, item := range preset.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO class_preset_items (preset_id, name, weekday, start_time, end_time, color_tag)
				VALUES ($1, $2, $3, $4::text::time, $5::text::time, $6)`,
				preset.ID, item.Name, item.Weekday,
				timeclock.FormatClock(item.StartMinute), timeclock.FormatClock(item.EndMinute), item.ColorTag,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err)
}

// SetPresetVisibility updates a preset's public flag.
func (r *PresetRepository) SetPresetVisibility(ctx context.Context, id string, isPublic bool, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE class_presets SET is_public = $1, updated_at = $2 WHERE id = $3`,
		isPublic, updatedAt, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(tag)
}

// DeletePreset removes a preset. Its items go with it through ON DELETE CASCADE.
func (r *PresetRepository) DeletePreset(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM class_presets WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(tag)
}
