package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Uptime: time.Since(g.startedAt).Round(time.Second).String(),
		}
		if g.sessions != nil {
			resp.Sessions = g.sessions.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
