package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/academy-timetable/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctxLogger := slog.New(slog.NewTextHandler(&scoped, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, baseLogger, "TimetableService", "CreateSession", "owner_id", "teacher-1").Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay unused, got %q", base.String())
	}
	out := scoped.String()
	for _, want := range []string{"service=TimetableService", "operation=CreateSession", "owner_id=teacher-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "conflict", err: &ConflictError{}, want: "conflict"},
		{name: "invalid duration", err: &InvalidDurationError{}, want: "invalid_duration"},
		{name: "persistence wrapping not found", err: &PersistenceError{Err: ErrNotFound}, want: "persistence"},
		{name: "unauthorized", err: fmt.Errorf("wrap: %w", ErrUnauthorized), want: "unauthorized"},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "proposal in progress", err: ErrProposalInProgress, want: "proposal_in_progress"},
		{name: "no proposal", err: ErrNoProposal, want: "no_proposal"},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"a": "b"}}, want: "validation"},
		{name: "unexpected", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLogOutcomeLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	logOutcome(ctx, logger, nil, "session created")
	logOutcome(ctx, logger, &ConflictError{}, "unused")
	logOutcome(ctx, logger, &PersistenceError{Op: "op", Err: errors.New("down")}, "unused")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "session created") {
		t.Fatalf("unexpected success line %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=INFO") || !strings.Contains(lines[1], "error_kind=conflict") {
		t.Fatalf("unexpected rejection line %q", lines[1])
	}
	if !strings.Contains(lines[2], "level=ERROR") || !strings.Contains(lines[2], "error_kind=persistence") {
		t.Fatalf("unexpected failure line %q", lines[2])
	}
}
