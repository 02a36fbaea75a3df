package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{}))

	// Conversation API.
	r.Route("/v1/conversations/{id}", func(r chi.Router) {
		r.Post("/messages", g.handleMessage())
		r.Post("/messages/stream", g.handleMessageStream())
	})

	// Chat WebSocket.
	r.Get("/ws/chat", g.handleWebSocket())

	// Admin endpoints — auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			r.Route("/api", func(r chi.Router) {
				r.Get("/sessions", g.handleListSessions())
				r.Delete("/sessions/{id}", g.handleDeleteSession())
			})
		})
	}

	return r
}
