package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/academy-timetable/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// logOutcome records the result of a service operation. Expected rejections
// are informational; only unexpected and persistence failures are errors.
func logOutcome(ctx context.Context, logger *slog.Logger, err error, success string, attrs ...any) {
	if err == nil {
		logger.InfoContext(ctx, success, attrs...)
		return
	}
	kind := ErrorKind(err)
	if IsRejection(err) {
		logger.InfoContext(ctx, "request rejected", "reason", err.Error(), "error_kind", kind)
		return
	}
	logger.ErrorContext(ctx, "operation failed", "error", err, "error_kind", kind)
}

// IsRejection reports whether err is an expected, user-facing outcome that
// leaves state untouched.
func IsRejection(err error) bool {
	switch ErrorKind(err) {
	case "conflict", "invalid_duration", "not_found", "validation", "unauthorized", "proposal_in_progress", "no_proposal":
		return true
	default:
		return false
	}
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProposalInProgress):
		return "proposal_in_progress"
	case errors.Is(err, ErrNoProposal):
		return "no_proposal"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
