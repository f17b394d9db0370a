package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/academy-timetable/internal/application"
	"github.com/example/academy-timetable/internal/persistence"
)

type sessionStore struct {
	repo persistence.SessionRepository
}

func newSessionStore(repo persistence.SessionRepository) *sessionStore {
	return &sessionStore{repo: repo}
}

func (s *sessionStore) LoadSessions(ctx context.Context, scope application.SessionScope) ([]application.ClassSession, error) {
	models, err := s.repo.ListSessions(ctx, scope.OwnerID)
	if err != nil {
		return nil, storeError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.ClassSession, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func (s *sessionStore) CommitSessionMutation(ctx context.Context, mutation application.SessionMutation) ([]application.ClassSession, error) {
	var err error
	switch mutation.Kind {
	case application.MutationCreate:
		err = s.repo.CreateSession(ctx, toPersistenceSession(mutation.Session))
	case application.MutationUpdate:
		err = s.repo.UpdateSession(ctx, toPersistenceSession(mutation.Session))
	case application.MutationDelete:
		err = s.repo.DeleteSession(ctx, mutation.Session.ID)
	default:
		err = fmt.Errorf("unknown mutation kind %q", mutation.Kind)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return s.LoadSessions(ctx, application.SessionScope{OwnerID: mutation.OwnerID})
}

func (s *sessionStore) CommitPresetApply(ctx context.Context, apply application.PresetApplication) ([]application.ClassSession, error) {
	models := make([]persistence.ClassSession, 0, len(apply.Sessions))
	for _, session := range apply.Sessions {
		models = append(models, toPersistenceSession(session))
	}
	if err := s.repo.ReplaceOwnerSessions(ctx, apply.OwnerID, models); err != nil {
		return nil, storeError(err)
	}
	return s.LoadSessions(ctx, application.SessionScope{OwnerID: apply.OwnerID})
}

type presetStore struct {
	repo persistence.PresetRepository
}

func newPresetStore(repo persistence.PresetRepository) *presetStore {
	return &presetStore{repo: repo}
}

func (p *presetStore) LoadPresets(ctx context.Context, scope application.PresetScope) ([]application.Preset, error) {
	models, err := p.repo.ListPresets(ctx, persistence.PresetFilter{
		OwnerID:       scope.OwnerID,
		IncludePublic: scope.IncludePublic,
		PresetID:      scope.PresetID,
	})
	if err != nil {
		return nil, storeError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	presets := make([]application.Preset, 0, len(models))
	for _, model := range models {
		presets = append(presets, toApplicationPreset(model))
	}
	return presets, nil
}

func (p *presetStore) CommitPresetMutation(ctx context.Context, mutation application.PresetMutation) (application.Preset, error) {
	preset := mutation.Preset
	var err error
	switch mutation.Kind {
	case application.PresetMutationSave:
		err = p.repo.CreatePreset(ctx, toPersistencePreset(preset))
	case application.PresetMutationVisibility:
		err = p.repo.SetPresetVisibility(ctx, preset.ID, preset.IsPublic, preset.UpdatedAt)
	case application.PresetMutationDelete:
		err = p.repo.DeletePreset(ctx, preset.ID)
	default:
		err = fmt.Errorf("unknown preset mutation kind %q", mutation.Kind)
	}
	if err != nil {
		return application.Preset{}, storeError(err)
	}
	if mutation.Kind == application.PresetMutationDelete {
		return preset, nil
	}

	stored, err := p.LoadPresets(ctx, application.PresetScope{PresetID: preset.ID})
	if err != nil {
		return application.Preset{}, err
	}
	if len(stored) == 0 {
		return application.Preset{}, application.ErrNotFound
	}
	return stored[0], nil
}

// storeError marks missing records with application.ErrNotFound and keeps the cause.
func storeError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %w", application.ErrNotFound, err)
	}
	return err
}

func toApplicationSession(model persistence.ClassSession) application.ClassSession {
	return application.ClassSession{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		Name:        model.Name,
		Weekday:     model.Weekday,
		StartMinute: model.StartMinute,
		EndMinute:   model.EndMinute,
		ColorTag:    model.ColorTag,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceSession(session application.ClassSession) persistence.ClassSession {
	return persistence.ClassSession{
		ID:          session.ID,
		OwnerID:     session.OwnerID,
		Name:        session.Name,
		Weekday:     session.Weekday,
		StartMinute: session.StartMinute,
		EndMinute:   session.EndMinute,
		ColorTag:    session.ColorTag,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

func toApplicationPreset(model persistence.Preset) application.Preset {
	preset := application.Preset{
		ID:        model.ID,
		Name:      model.Name,
		OwnerID:   model.OwnerID,
		IsPublic:  model.IsPublic,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	for _, item := range model.Items {
		preset.Items = append(preset.Items, application.PresetItem{
			PresetID:    item.PresetID,
			Name:        item.Name,
			Weekday:     item.Weekday,
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
			ColorTag:    item.ColorTag,
		})
	}
	return preset
}

func toPersistencePreset(preset application.Preset) persistence.Preset {
	model := persistence.Preset{
		ID:        preset.ID,
		Name:      preset.Name,
		OwnerID:   preset.OwnerID,
		IsPublic:  preset.IsPublic,
		CreatedAt: preset.CreatedAt,
		UpdatedAt: preset.UpdatedAt,
	}
	for _, item := range preset.Items {
		model.Items = append(model.Items, persistence.PresetItem{
			PresetID:    preset.ID,
			Name:        item.Name,
			Weekday:     item.Weekday,
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
			ColorTag:    item.ColorTag,
		})
	}
	return model
}
