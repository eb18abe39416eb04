package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/session"
)

type handlers struct {
	sess Session
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// getView returns the full published snapshot.
func (h *handlers) getView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.View())
}

func (h *handlers) getMarkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.View().Markers)
}

// getNeighborhoods returns every neighborhood across all fetched events,
// regardless of the active filters.
func (h *handlers) getNeighborhoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.View().Neighborhoods)
}

func (h *handlers) getFocus(w http.ResponseWriter, r *http.Request) {
	focus := h.sess.View().Focus
	if focus == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no place is focused"})
		return
	}
	writeJSON(w, http.StatusOK, focus)
}

// intent returns a handler that dispatches the intent built from the request
// and answers 202 with the resulting view.
func (h *handlers) intent(build func(*http.Request) session.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := build(r)
		// chi leaves path parameters escaped when the raw path is used.
		if arg, err := url.PathUnescape(in.Arg); err == nil {
			in.Arg = arg
		}

		view, err := h.sess.Dispatch(r.Context(), in)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, view)
		case errors.Is(err, session.ErrInvalidIntent):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		case errors.Is(err, session.ErrStopped):
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		default:
			logger.Warn("Intent %s failed: %v", in.Kind, err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %v (request %s)", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}
