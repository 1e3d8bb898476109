package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds what NewRouter mounts besides the REST handler.
type RouterConfig struct {
	// ImagesDir is served under /quiz-images/. Empty disables it.
	ImagesDir string
	// WS is mounted at /ws when set.
	WS *WSHandler
}

// NewRouter builds the service router. REST routes are served at the root and under /api.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h.Routes(r)
	r.Route("/api", h.Routes)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.ImagesDir != "" {
		r.Handle("/quiz-images/*", http.StripPrefix("/quiz-images/", http.FileServer(http.Dir(cfg.ImagesDir))))
	}
	if cfg.WS != nil {
		r.Get("/ws", cfg.WS.ServeWS)
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
