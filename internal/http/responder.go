package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/academy-timetable/internal/application"
)

var (
	errBadRequestBody   = errors.New("無効なリクエスト形式です。")
	errInvalidSessionID = errors.New("無効な授業 ID です。")
	errInvalidPresetID  = errors.New("無効なプリセット ID です。")
	errMissingOwnerID   = errors.New("認証が必要です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeRequestError renders a decode or validation failure.
func (r responder) writeRequestError(ctx context.Context, w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) && reqErr.Fields != nil {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    reqErr.Fields,
		})
		return
	}
	r.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var conflict *application.ConflictError
	var duration *application.InvalidDurationError
	var vErr *application.ValidationError

	switch {
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:     "SESSION_CONFLICT",
			Message:       "同じ曜日の他の授業と時間が重なっています。",
			ConflictsWith: append([]string(nil), conflict.With...),
		})
	case errors.As(err, &duration):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_DURATION",
			Message:   "授業時間が短すぎるか、終了時刻が開始時刻より前です。",
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrPersistence):
		r.loggerFor(ctx).ErrorContext(ctx, "persistence failure", "error", err)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "PERSISTENCE_FAILED",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "保存に失敗しました。最新の時間割を読み込み直しました。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "owner is required":
		return "所有者は必須です。"
	case "name is required":
		return "名前は必須です。"
	case "weekday must be between 0 and 6":
		return "曜日は 0 から 6 の範囲で指定してください。"
	case "start must be a time of day":
		return "開始時刻が不正です。"
	case "end must be a time of day":
		return "終了時刻が不正です。"
	case "color is not in the palette":
		return "指定された色は使用できません。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode     string            `json:"error_code,omitempty"`
	Message       string            `json:"message"`
	Errors        map[string]string `json:"errors,omitempty"`
	ConflictsWith []string          `json:"conflicts_with,omitempty"`
}
