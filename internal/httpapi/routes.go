// Package httpapi exposes the session View and accepts user intents over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rewired-gh/venuescout/internal/config"
	"github.com/rewired-gh/venuescout/internal/session"
)

// Session is the part of *session.Session the API drives.
type Session interface {
	View() session.View
	Dispatch(ctx context.Context, in session.Intent) (session.View, error)
}

// NewRouter builds the API router. metrics may be nil to omit /metrics.
func NewRouter(sess Session, metrics http.Handler) http.Handler {
	h := &handlers{sess: sess}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.healthz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", h.getView)
		r.Get("/markers", h.getMarkers)
		r.Get("/neighborhoods", h.getNeighborhoods)
		r.Get("/focus", h.getFocus)

		r.Post("/refresh", h.intent(func(*http.Request) session.Intent {
			return session.Intent{Kind: session.Refresh}
		}))
		r.Post("/filters/active/toggle", h.intent(func(*http.Request) session.Intent {
			return session.Intent{Kind: session.ToggleActiveOnly}
		}))
		r.Post("/filters/neighborhoods/{name}/toggle", h.intent(func(r *http.Request) session.Intent {
			return session.Intent{Kind: session.ToggleNeighborhood, Arg: chi.URLParam(r, "name")}
		}))
		r.Delete("/filters/neighborhoods", h.intent(func(*http.Request) session.Intent {
			return session.Intent{Kind: session.ClearNeighborhoodFilter}
		}))
		r.Post("/markers/{id}/select", h.intent(func(r *http.Request) session.Intent {
			return session.Intent{Kind: session.SelectMarker, Arg: chi.URLParam(r, "id")}
		}))
		r.Delete("/focus", h.intent(func(*http.Request) session.Intent {
			return session.Intent{Kind: session.DismissDetail}
		}))
	})

	return r
}

// NewServer wraps handler in an http.Server using cfg's address and timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
