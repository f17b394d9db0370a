package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/timeclock"
)

// PresetRepository implements persistence.PresetRepository using SQLite.
type PresetRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewPresetRepository creates a new SQLite preset repository.
func NewPresetRepository(pool *ConnectionPool) *PresetRepository {
	return &PresetRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// ListPresets returns matching presets newest first, each with its items.
func (r *PresetRepository) ListPresets(ctx context.Context, filter persistence.PresetFilter) ([]persistence.Preset, error) {
	query := `SELECT id, name, owner_id, is_public, created_at, updated_at FROM class_presets`
	var args []any
	switch {
	case filter.PresetID != "":
		query += ` WHERE id = ?`
		args = append(args, filter.PresetID)
	case filter.IncludePublic:
		query += ` WHERE owner_id = ? OR is_public = 1`
		args = append(args, filter.OwnerID)
	default:
		query += ` WHERE owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var presets []persistence.Preset
	index := make(map[string]int)
	for rows.Next() {
		var (
			preset               persistence.Preset
			isPublic             int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&preset.ID, &preset.Name, &preset.OwnerID, &isPublic, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan preset: %w", err)
		}
		preset.IsPublic = isPublic == 1
		if preset.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if preset.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		index[preset.ID] = len(presets)
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(presets) == 0 {
		return nil, nil
	}

	if err := r.attachItems(ctx, presets, index); err != nil {
		return nil, err
	}
	return presets, nil
}

func (r *PresetRepository) attachItems(ctx context.Context, presets []persistence.Preset, index map[string]int) error {
	placeholders := make([]string, len(presets))
	args := make([]any, len(presets))
	for i, preset := range presets {
		placeholders[i] = "?"
		args[i] = preset.ID
	}

	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, preset_id, name, weekday, start_time, end_time, color_tag
		FROM class_preset_items
		WHERE preset_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY id`, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       persistence.PresetItem
			start, end string
		)
		if err := rows.Scan(&item.ID, &item.PresetID, &item.Name, &item.Weekday, &start, &end, &item.ColorTag); err != nil {
			return fmt.Errorf("sqlite: scan preset item: %w", err)
		}
		if item.StartMinute, item.EndMinute, err = parseClockPair(start, end); err != nil {
			return err
		}
		i := index[item.PresetID]
		presets[i].Items = append(presets[i].Items, item)
	}
	return r.mapper.MapError(rows.Err())
}

// CreatePreset inserts the preset and its items in one transaction.
func (r *PresetRepository) CreatePreset(ctx context.Context, preset persistence.Preset) error {
	if err := persistence.ValidatePreset(preset); err != nil {
		return err
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO class_presets (id, name, owner_id, is_public, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				preset.ID, preset.Name, preset.OwnerID, boolToInt(preset.IsPublic),
				formatTime(preset.CreatedAt), formatTime(preset.UpdatedAt),
			); err != nil {
				return err
			}
			for _, item := range preset.Items {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO class_preset_items (preset_id, name, weekday, start_time, end_time, color_tag)
					VALUES (?, ?, ?, ?, ?, ?)`,
					preset.ID, item.Name, item.Weekday,
					timeclock.FormatClock(item.StartMinute), timeclock.FormatClock(item.EndMinute), item.ColorTag,
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// SetPresetVisibility updates a preset's public flag.
func (r *PresetRepository) SetPresetVisibility(ctx context.Context, id string, isPublic bool, updatedAt time.Time) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.DB().ExecContext(ctx,
			`UPDATE class_presets SET is_public = ?, updated_at = ? WHERE id = ?`,
			boolToInt(isPublic), formatTime(updatedAt), id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeletePreset removes a preset together with its items.
func (r *PresetRepository) DeletePreset(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM class_preset_items WHERE preset_id = ?`, id); err != nil {
				return err
			}
			result, err := tx.ExecContext(ctx, `DELETE FROM class_presets WHERE id = ?`, id)
			if err != nil {
				return err
			}
			return requireAffected(result)
		})
	})
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
