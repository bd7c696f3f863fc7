package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/obs-scene-scheduler/internal/history"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID, s.logRequests, s.recoverPanics, s.applyCORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, r.Method+" is not supported here")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Get("/status", s.handleStatus)
			r.Get("/history", s.handleHistory)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// statusResponse is the body of GET /api/v1/status.
type statusResponse struct {
	Window           string `json:"window"`
	Scene            string `json:"scene"`
	OBSAddress       string `json:"obs_address"`
	WebSocketClients int    `json:"websocket_clients"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Version          string `json:"version"`
}

// historyResponse is the body of GET /api/v1/history.
type historyResponse struct {
	Switches []history.Entry `json:"switches"`
	Count    int             `json:"count"`
}

// handleStatus reports the remembered window and the scene mapped to it.
// Before the first switch the window is "none" and the scene is empty.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	current := s.status.Current()

	respond(w, http.StatusOK, statusResponse{
		Window:           current.String(),
		Scene:            s.scenes[current],
		OBSAddress:       s.obsAddress,
		WebSocketClients: s.hub.ClientCount(),
		UptimeSeconds:    int64(time.Since(s.started).Seconds()),
		Version:          s.version,
	})
}

// handleHistory lists recorded switches, newest first.
// The optional limit query parameter is capped by the repository.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		fail(w, r, http.StatusNotFound, "switch history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fail(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing switch history failed", "error", err)
		fail(w, r, http.StatusInternalServerError, "failed to list switch history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	respond(w, http.StatusOK, historyResponse{
		Switches: entries,
		Count:    len(entries),
	})
}
