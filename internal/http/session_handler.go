package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/academy-timetable/internal/application"
	"github.com/example/academy-timetable/internal/timeclock"
)

type timetableService interface {
	ListSessions(ctx context.Context, ownerID string) ([]application.ClassSession, []application.ConflictWarning, error)
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.ClassSession, error)
	MoveSession(ctx context.Context, params application.MoveSessionParams) (application.ClassSession, error)
	ResizeSession(ctx context.Context, params application.ResizeSessionParams) (application.ClassSession, error)
	DuplicateSession(ctx context.Context, ref application.SessionRef) (application.ClassSession, error)
	DeleteSession(ctx context.Context, ref application.SessionRef) error
	RecolorSession(ctx context.Context, params application.RecolorSessionParams) (application.ClassSession, error)
	NextSession(ctx context.Context, ownerID string) (application.ClassSession, bool, error)
}

// SessionHandler serves the class session endpoints.
type SessionHandler struct {
	service   timetableService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler wires a SessionHandler.
func NewSessionHandler(service timetableService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service:   service,
		validator: newRequestValidator(),
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())
	sessions, warnings, err := h.service.ListSessions(r.Context(), ownerID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{
		Sessions: toSessionDTOs(sessions),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := h.validator.decode(r, &req); err != nil {
		h.responder.writeRequestError(r.Context(), w, err)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())
	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		OwnerID: ownerID,
		Draft:   req.toDraft(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Move(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.sessionRef(w, r)
	if !ok {
		return
	}

	var req moveSessionRequest
	if err := h.validator.decode(r, &req); err != nil {
		h.responder.writeRequestError(r.Context(), w, err)
		return
	}

	session, err := h.service.MoveSession(r.Context(), application.MoveSessionParams{
		OwnerID:     ref.OwnerID,
		SessionID:   ref.SessionID,
		Weekday:     *req.Weekday,
		StartMinute: mustParseClock(req.Start),
	})
	h.renderSession(r.Context(), w, session, err)
}

func (h *SessionHandler) Resize(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.sessionRef(w, r)
	if !ok {
		return
	}

	var req resizeSessionRequest
	if err := h.validator.decode(r, &req); err != nil {
		h.responder.writeRequestError(r.Context(), w, err)
		return
	}

	session, err := h.service.ResizeSession(r.Context(), application.ResizeSessionParams{
		OwnerID:   ref.OwnerID,
		SessionID: ref.SessionID,
		EndMinute: mustParseClock(req.End),
	})
	h.renderSession(r.Context(), w, session, err)
}

func (h *SessionHandler) Recolor(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.sessionRef(w, r)
	if !ok {
		return
	}

	var req recolorSessionRequest
	if err := h.validator.decode(r, &req); err != nil {
		h.responder.writeRequestError(r.Context(), w, err)
		return
	}

	session, err := h.service.RecolorSession(r.Context(), application.RecolorSessionParams{
		OwnerID:   ref.OwnerID,
		SessionID: ref.SessionID,
		ColorTag:  strings.TrimSpace(req.Color),
	})
	h.renderSession(r.Context(), w, session, err)
}

func (h *SessionHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.sessionRef(w, r)
	if !ok {
		return
	}

	session, err := h.service.DuplicateSession(r.Context(), ref)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.sessionRef(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(r.Context(), ref); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())
	session, found, err := h.service.NextSession(r.Context(), ownerID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var payload nextSessionResponse
	if found {
		dto := toSessionDTO(session)
		payload.Session = &dto
	}
	handlerLogger(r.Context(), h.logger, "SessionHandler", "Next").DebugContext(r.Context(), "next session resolved", "found", found)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *SessionHandler) sessionRef(w http.ResponseWriter, r *http.Request) (application.SessionRef, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.SessionRef{}, false
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return application.SessionRef{}, false
	}

	ownerID, _ := OwnerFromContext(r.Context())
	return application.SessionRef{OwnerID: ownerID, SessionID: sessionID}, true
}

func (h *SessionHandler) renderSession(ctx context.Context, w http.ResponseWriter, session application.ClassSession, err error) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

type createSessionRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Weekday *int   `json:"weekday" validate:"required,min=0,max=6"`
	Start   string `json:"start" validate:"required,clock"`
	End     string `json:"end" validate:"required,clock"`
	Color   string `json:"color" validate:"omitempty,max=20"`
}

func (r createSessionRequest) toDraft() application.SessionDraft {
	return application.SessionDraft{
		Name:        strings.TrimSpace(r.Name),
		Weekday:     *r.Weekday,
		StartMinute: mustParseClock(r.Start),
		EndMinute:   mustParseClock(r.End),
		ColorTag:    strings.TrimSpace(r.Color),
	}
}

type moveSessionRequest struct {
	Weekday *int   `json:"weekday" validate:"required,min=0,max=6"`
	Start   string `json:"start" validate:"required,clock"`
}

type resizeSessionRequest struct {
	End string `json:"end" validate:"required,clock"`
}

type recolorSessionRequest struct {
	Color string `json:"color" validate:"required,max=20"`
}

// mustParseClock parses a value already accepted by the clock validation tag.
func mustParseClock(value string) int {
	minute, _ := timeclock.ParseClock(value)
	return minute
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO         `json:"sessions"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type nextSessionResponse struct {
	Session *sessionDTO `json:"session"`
}

type sessionDTO struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Weekday   int    `json:"weekday"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Color     string `json:"color"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type conflictWarningDTO struct {
	OwnerID   string `json:"owner_id"`
	Weekday   int    `json:"weekday"`
	SessionID string `json:"session_id"`
	OtherID   string `json:"other_id"`
}

func toSessionDTO(session application.ClassSession) sessionDTO {
	return sessionDTO{
		ID:        session.ID,
		OwnerID:   session.OwnerID,
		Name:      session.Name,
		Weekday:   session.Weekday,
		Start:     timeclock.FormatClock(session.StartMinute),
		End:       timeclock.FormatClock(session.EndMinute),
		Color:     session.ColorTag,
		CreatedAt: formatTimestamp(session.CreatedAt),
		UpdatedAt: formatTimestamp(session.UpdatedAt),
	}
}

func toSessionDTOs(sessions []application.ClassSession) []sessionDTO {
	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toSessionDTO(session))
	}
	return dtos
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	dtos := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		dtos = append(dtos, conflictWarningDTO{
			OwnerID:   warning.OwnerID,
			Weekday:   warning.Weekday,
			SessionID: warning.SessionID,
			OtherID:   warning.OtherID,
		})
	}
	return dtos
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
