package http

import "context"

type contextKey string

const (
	ownerContextKey     contextKey = "owner_id"
	sessionIDContextKey contextKey = "session_id"
	presetIDContextKey  contextKey = "preset_id"
)

// ContextWithOwner returns a derived context containing the acting owner.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey, ownerID)
}

// OwnerFromContext extracts the acting owner from context if available.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerContextKey).(string)
	return ownerID, ok && ownerID != ""
}

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithPresetID injects the preset identifier resolved from the request path.
func ContextWithPresetID(ctx context.Context, presetID string) context.Context {
	return context.WithValue(ctx, presetIDContextKey, presetID)
}

// PresetIDFromContext extracts a preset identifier previously associated with the context.
func PresetIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(presetIDContextKey).(string)
	return id, ok
}
