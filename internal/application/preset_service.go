package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// PresetService snapshots timetables into named presets and forks them back
// into an owner's timetable.
type PresetService struct {
	presets     PresetStore
	timetable   *TimetableService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPresetService wires dependencies for preset operations.
func NewPresetService(presets PresetStore, timetable *TimetableService, idGenerator func() string, now func() time.Time) *PresetService {
	return NewPresetServiceWithLogger(presets, timetable, idGenerator, now, nil)
}

// NewPresetServiceWithLogger constructs a PresetService with a custom logger.
func NewPresetServiceWithLogger(presets PresetStore, timetable *TimetableService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PresetService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PresetService{
		presets:     presets,
		timetable:   timetable,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PresetService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PresetService", operation, attrs...)
}

// ListPresets returns the owner's presets and every public preset, newest first.
func (s *PresetService) ListPresets(ctx context.Context, ownerID string) ([]Preset, error) {
	if s == nil {
		return nil, fmt.Errorf("PresetService is nil")
	}
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if s.presets == nil {
		return nil, fmt.Errorf("preset store not configured")
	}

	presets, err := s.presets.LoadPresets(ctx, PresetScope{OwnerID: ownerID, IncludePublic: true})
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	visible := make([]Preset, 0, len(presets))
	for _, preset := range presets {
		if preset.OwnerID == ownerID || preset.IsPublic {
			visible = append(visible, preset)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		}
		return visible[i].ID < visible[j].ID
	})
	return visible, nil
}

// SaveAsPreset snapshots the owner's current sessions into a new private
// preset. Items are detached copies; overlaps are not validated.
func (s *PresetService) SaveAsPreset(ctx context.Context, params SavePresetParams) (preset Preset, err error) {
	if s == nil {
		err = fmt.Errorf("PresetService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SaveAsPreset", "owner_id", params.OwnerID)
	defer func() {
		logOutcome(ctx, logger, err, "preset saved", "preset_id", preset.ID, "items", len(preset.Items))
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.OwnerID) == "" {
		vErr.add("owner_id", "owner is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.presets == nil || s.timetable == nil {
		err = fmt.Errorf("preset service not configured")
		return
	}

	sessions, err := s.timetable.currentSessions(ctx, params.OwnerID)
	if err != nil {
		return
	}

	createdAt := s.now()
	draft := Preset{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		OwnerID:   params.OwnerID,
		IsPublic:  false,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	draft.Items = make([]PresetItem, 0, len(sessions))
	for _, session := range sessions {
		draft.Items = append(draft.Items, PresetItem{
			PresetID:    draft.ID,
			Name:        session.Name,
			Weekday:     session.Weekday,
			StartMinute: session.StartMinute,
			EndMinute:   session.EndMinute,
			ColorTag:    session.ColorTag,
		})
	}

	preset, err = s.presets.CommitPresetMutation(ctx, PresetMutation{Kind: PresetMutationSave, Preset: draft})
	if err != nil {
		err = &PersistenceError{Op: "SaveAsPreset", OwnerID: params.OwnerID, Err: err}
		return
	}
	return
}

// ApplyPreset replaces the owner's whole timetable with fresh sessions built
// from the preset's items. Applying another owner's public preset forks it:
// the new sessions belong to the applying owner and the source is untouched.
// Overlapping items are inserted anyway and returned as warnings.
func (s *PresetService) ApplyPreset(ctx context.Context, params ApplyPresetParams) (sessions []ClassSession, warnings []ConflictWarning, err error) {
	if s == nil {
		err = fmt.Errorf("PresetService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ApplyPreset", "owner_id", params.OwnerID, "preset_id", params.PresetID)
	defer func() {
		logOutcome(ctx, logger, err, "preset applied", "sessions", len(sessions), "warnings", len(warnings))
	}()

	if err = requireOwner(params.OwnerID); err != nil {
		return
	}
	if s.presets == nil || s.timetable == nil {
		err = fmt.Errorf("preset service not configured")
		return
	}

	preset, err := s.loadPreset(ctx, params.PresetID)
	if err != nil {
		return
	}
	if preset.OwnerID != params.OwnerID && !preset.IsPublic {
		err = ErrNotFound
		return
	}

	createdAt := s.now()
	fresh := make([]ClassSession, 0, len(preset.Items))
	for _, item := range preset.Items {
		fresh = append(fresh, ClassSession{
			ID:          s.idGenerator(),
			OwnerID:     params.OwnerID,
			Name:        item.Name,
			Weekday:     item.Weekday,
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
			ColorTag:    colorOrDefault(item.ColorTag),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	application := PresetApplication{PresetID: preset.ID, OwnerID: params.OwnerID, Sessions: fresh}
	sessions, err = s.timetable.replaceOwnerSessions(ctx, params.OwnerID, "ApplyPreset", fresh, func(ctx context.Context) ([]ClassSession, error) {
		return s.timetable.store.CommitPresetApply(ctx, application)
	})
	if err != nil {
		return
	}

	warnings = overlapWarnings(newSessionSet(sessions))
	if len(warnings) > 0 {
		logger.WarnContext(ctx, "preset applied with overlapping sessions", "overlaps", len(warnings))
	}
	return
}

// TogglePublic flips a preset's visibility. Only the owner may change it.
func (s *PresetService) TogglePublic(ctx context.Context, ref PresetRef) (preset Preset, err error) {
	if s == nil {
		err = fmt.Errorf("PresetService is nil")
		return
	}

	logger := s.loggerWith(ctx, "TogglePublic", "owner_id", ref.OwnerID, "preset_id", ref.PresetID)
	defer func() {
		logOutcome(ctx, logger, err, "preset visibility changed", "is_public", preset.IsPublic)
	}()

	existing, err := s.ownedPreset(ctx, ref)
	if err != nil {
		return
	}

	existing.IsPublic = !existing.IsPublic
	existing.UpdatedAt = s.now()

	preset, err = s.presets.CommitPresetMutation(ctx, PresetMutation{Kind: PresetMutationVisibility, Preset: existing})
	if err != nil {
		err = &PersistenceError{Op: "TogglePublic", OwnerID: ref.OwnerID, Err: err}
		return
	}
	return
}

// DeletePreset removes a preset and its items. Only the owner may delete it;
// sessions previously forked from it are unaffected.
func (s *PresetService) DeletePreset(ctx context.Context, ref PresetRef) (err error) {
	if s == nil {
		return fmt.Errorf("PresetService is nil")
	}

	logger := s.loggerWith(ctx, "DeletePreset", "owner_id", ref.OwnerID, "preset_id", ref.PresetID)
	defer func() {
		logOutcome(ctx, logger, err, "preset deleted")
	}()

	existing, err := s.ownedPreset(ctx, ref)
	if err != nil {
		return
	}

	if _, err = s.presets.CommitPresetMutation(ctx, PresetMutation{Kind: PresetMutationDelete, Preset: existing}); err != nil {
		err = &PersistenceError{Op: "DeletePreset", OwnerID: ref.OwnerID, Err: err}
	}
	return
}

func (s *PresetService) ownedPreset(ctx context.Context, ref PresetRef) (Preset, error) {
	if err := requireOwner(ref.OwnerID); err != nil {
		return Preset{}, err
	}
	if s.presets == nil {
		return Preset{}, fmt.Errorf("preset store not configured")
	}
	preset, err := s.loadPreset(ctx, ref.PresetID)
	if err != nil {
		return Preset{}, err
	}
	if preset.OwnerID != ref.OwnerID {
		return Preset{}, ErrUnauthorized
	}
	return preset, nil
}

func (s *PresetService) loadPreset(ctx context.Context, presetID string) (Preset, error) {
	if strings.TrimSpace(presetID) == "" {
		return Preset{}, ErrNotFound
	}
	presets, err := s.presets.LoadPresets(ctx, PresetScope{PresetID: presetID})
	if err != nil {
		return Preset{}, fmt.Errorf("load preset: %w", err)
	}
	for _, preset := range presets {
		if preset.ID == presetID {
			return preset, nil
		}
	}
	return Preset{}, ErrNotFound
}
