package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealthz)

	// Realtime channel
	r.Get("/ws", h.Hub.ServeWs)

	// Room pairing
	r.Post("/api/create-room", h.handleCreateRoom)
	r.Post("/api/join-room", h.handleJoinRoom)

	// Public voting
	r.Get("/api/poll/{pollID}", h.handleGetPoll)
	r.Get("/api/poll/{pollID}/qr", h.handlePollQR)
	r.Post("/api/vote/{pollID}", h.handleVote)

	return r
}
