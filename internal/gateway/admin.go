// Package gateway provides the HTTP surface for parley: the
// conversation API, the chat websocket, health, metrics, and admin
// endpoints. It binds to loopback by default and follows the module
// system pattern.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/chat"
)

// sessionJSON is a serializable session snapshot.
type sessionJSON struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	LastActivity   string `json:"last_activity"`
	HistoryLen     int    `json:"history_len"`
}

func sessionToJSON(s *chat.Session) sessionJSON {
	return sessionJSON{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
		LastActivity:   s.LastActivity.UTC().Format(time.RFC3339),
		HistoryLen:     len(s.History),
	}
}

// handleListSessions returns all active sessions as JSON.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := []sessionJSON{}
		if g.sessions != nil {
			g.sessions.Range(func(s *chat.Session) bool {
				sessions = append(sessions, sessionToJSON(s))
				return true
			})
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

// handleDeleteSession removes a conversation's session by its
// conversation ID.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing conversation id", http.StatusBadRequest)
			return
		}
		if g.sessions == nil || !g.sessions.Delete(id) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
