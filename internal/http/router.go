package http

import (
	"context"
	"net/http"
)

// RouterConfig lists the handlers and middleware mounted by NewRouter.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Sessions   *SessionHandler
	Presets    *PresetHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the timetable API. Middleware runs in the order given.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("GET /sessions", cfg.Sessions.List)
		mux.HandleFunc("POST /sessions", cfg.Sessions.Create)
		mux.HandleFunc("GET /sessions/next", cfg.Sessions.Next)
		mux.HandleFunc("PATCH /sessions/{id}/move", withPathID(ContextWithSessionID, cfg.Sessions.Move))
		mux.HandleFunc("PATCH /sessions/{id}/resize", withPathID(ContextWithSessionID, cfg.Sessions.Resize))
		mux.HandleFunc("PATCH /sessions/{id}/color", withPathID(ContextWithSessionID, cfg.Sessions.Recolor))
		mux.HandleFunc("POST /sessions/{id}/duplicate", withPathID(ContextWithSessionID, cfg.Sessions.Duplicate))
		mux.HandleFunc("DELETE /sessions/{id}", withPathID(ContextWithSessionID, cfg.Sessions.Delete))
	}

	if cfg.Presets != nil {
		mux.HandleFunc("GET /presets", cfg.Presets.List)
		mux.HandleFunc("POST /presets", cfg.Presets.Save)
		mux.HandleFunc("POST /presets/{id}/apply", withPathID(ContextWithPresetID, cfg.Presets.Apply))
		mux.HandleFunc("POST /presets/{id}/visibility", withPathID(ContextWithPresetID, cfg.Presets.ToggleVisibility))
		mux.HandleFunc("DELETE /presets/{id}", withPathID(ContextWithPresetID, cfg.Presets.Delete))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func withPathID(inject func(context.Context, string) context.Context, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := inject(r.Context(), r.PathValue("id"))
		next(w, r.WithContext(ctx))
	}
}
