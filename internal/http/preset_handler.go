package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/academy-timetable/internal/application"
	"github.com/example/academy-timetable/internal/timeclock"
)

type presetService interface {
	ListPresets(ctx context.Context, ownerID string) ([]application.Preset, error)
	SaveAsPreset(ctx context.Context, params application.SavePresetParams) (application.Preset, error)
	ApplyPreset(ctx context.Context, params application.ApplyPresetParams) ([]application.ClassSession, []application.ConflictWarning, error)
	TogglePublic(ctx context.Context, ref application.PresetRef) (application.Preset, error)
	DeletePreset(ctx context.Context, ref application.PresetRef) error
}

// PresetHandler serves the preset endpoints.
type PresetHandler struct {
	service   presetService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

// NewPresetHandler wires a PresetHandler.
func NewPresetHandler(service presetService, logger *slog.Logger) *PresetHandler {
	return &PresetHandler{
		service:   service,
		validator: newRequestValidator(),
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *PresetHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())
	presets, err := h.service.ListPresets(r.Context(), ownerID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]presetDTO, 0, len(presets))
	for _, preset := range presets {
		dtos = append(dtos, toPresetDTO(preset))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPresetsResponse{Presets: dtos})
}

func (h *PresetHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req savePresetRequest
	if err := h.validator.decode(r, &req); err != nil {
		h.responder.writeRequestError(r.Context(), w, err)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())
	preset, err := h.service.SaveAsPreset(r.Context(), application.SavePresetParams{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, presetResponse{Preset: toPresetDTO(preset)})
}

func (h *PresetHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.presetRef(w, r)
	if !ok {
		return
	}

	sessions, warnings, err := h.service.ApplyPreset(r.Context(), application.ApplyPresetParams{
		OwnerID:  ref.OwnerID,
		PresetID: ref.PresetID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if len(warnings) > 0 {
		handlerLogger(r.Context(), h.logger, "PresetHandler", "Apply", "preset_id", ref.PresetID).
			InfoContext(r.Context(), "preset applied with overlaps", "warnings", len(warnings))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{
		Sessions: toSessionDTOs(sessions),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *PresetHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.presetRef(w, r)
	if !ok {
		return
	}

	preset, err := h.service.TogglePublic(r.Context(), ref)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, presetResponse{Preset: toPresetDTO(preset)})
}

func (h *PresetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.presetRef(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePreset(r.Context(), ref); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PresetHandler) presetRef(w http.ResponseWriter, r *http.Request) (application.PresetRef, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.PresetRef{}, false
	}

	presetID, ok := PresetIDFromContext(r.Context())
	if !ok || strings.TrimSpace(presetID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPresetID)
		return application.PresetRef{}, false
	}

	ownerID, _ := OwnerFromContext(r.Context())
	return application.PresetRef{OwnerID: ownerID, PresetID: presetID}, true
}

type savePresetRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type presetResponse struct {
	Preset presetDTO `json:"preset"`
}

type listPresetsResponse struct {
	Presets []presetDTO `json:"presets"`
}

type presetDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	OwnerID   string          `json:"owner_id"`
	IsPublic  bool            `json:"is_public"`
	Items     []presetItemDTO `json:"items"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type presetItemDTO struct {
	Name    string `json:"name"`
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Color   string `json:"color,omitempty"`
}

func toPresetDTO(preset application.Preset) presetDTO {
	items := make([]presetItemDTO, 0, len(preset.Items))
	for _, item := range preset.Items {
		items = append(items, presetItemDTO{
			Name:    item.Name,
			Weekday: item.Weekday,
			Start:   timeclock.FormatClock(item.StartMinute),
			End:     timeclock.FormatClock(item.EndMinute),
			Color:   item.ColorTag,
		})
	}
	return presetDTO{
		ID:        preset.ID,
		Name:      preset.Name,
		OwnerID:   preset.OwnerID,
		IsPublic:  preset.IsPublic,
		Items:     items,
		CreatedAt: formatTimestamp(preset.CreatedAt),
		UpdatedAt: formatTimestamp(preset.UpdatedAt),
	}
}
