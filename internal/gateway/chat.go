package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/security"
)

// messageRequest is the JSON body for POST /v1/conversations/{id}/messages.
type messageRequest struct {
	Content string `json:"content"`
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// handleMessage handles POST /v1/conversations/{id}/messages and
// returns the full assistant reply as JSON.
func (g *Gateway) handleMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "id")
		req, ok := g.decodeMessage(w, r, "message")
		if !ok {
			return
		}

		start := time.Now()
		reply, err := g.engine.Handle(r.Context(), conversationID, req.Content)
		g.metrics.ObserveProviderLatency(time.Since(start))

		if err != nil && !reply.Failed {
			g.rejectMessage(w, "message", err)
			return
		}

		status := http.StatusOK
		outcome := outcomeOK
		if reply.Failed {
			// The failure turn is recorded; surface it with a gateway error
			// status so clients can retry.
			status = http.StatusBadGateway
			outcome = outcomeFailed
		}
		g.metrics.RecordMessage(outcome)
		g.metrics.RecordRequest("message", strconv.Itoa(status))
		writeJSON(w, status, reply)
	}
}

// handleMessageStream handles POST /v1/conversations/{id}/messages/stream
// and emits the reply as Server-Sent Events: one "fragment" event per
// content chunk, then a terminal "done" or "error" event.
func (g *Gateway) handleMessageStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "id")
		req, ok := g.decodeMessage(w, r, "stream")
		if !ok {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		headerSent := false
		emit := func(fragment string) error {
			if !headerSent {
				w.WriteHeader(http.StatusOK)
				headerSent = true
			}
			if err := writeSSE(w, "fragment", messageRequest{Content: fragment}); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		}

		start := time.Now()
		reply, err := g.engine.HandleStream(r.Context(), conversationID, req.Content, emit)
		g.metrics.ObserveProviderLatency(time.Since(start))

		if err != nil && !headerSent {
			// Nothing streamed yet; a plain HTTP error is still possible.
			if !reply.Failed {
				g.rejectMessage(w, "stream", err)
				return
			}
			g.metrics.RecordMessage(outcomeFailed)
			g.metrics.RecordRequest("stream", strconv.Itoa(http.StatusBadGateway))
			writeJSON(w, http.StatusBadGateway, reply)
			return
		}

		if err != nil {
			g.metrics.RecordMessage(outcomeFailed)
			g.metrics.RecordRequest("stream", "200")
			_ = writeSSE(w, "error", errorResponse{Error: chat.FailureMessage})
			flusher.Flush()
			return
		}

		g.metrics.RecordMessage(outcomeOK)
		g.metrics.RecordRequest("stream", "200")
		_ = writeSSE(w, "done", reply)
		flusher.Flush()
	}
}

// decodeMessage parses and bounds the request body. The false return
// means a response was already written.
func (g *Gateway) decodeMessage(w http.ResponseWriter, r *http.Request, route string) (messageRequest, bool) {
	var req messageRequest
	// Cap well above the content limit so oversized messages reach the
	// validator and get the proper error, not a truncated read.
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		g.metrics.RecordRequest(route, strconv.Itoa(http.StatusBadRequest))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return messageRequest{}, false
	}
	return req, true
}

// rejectMessage maps pipeline errors to HTTP status codes.
func (g *Gateway) rejectMessage(w http.ResponseWriter, route string, err error) {
	status := http.StatusBadGateway
	outcome := outcomeFailed
	msg := "upstream failure"

	switch {
	case errors.Is(err, security.ErrEmptyMessage),
		errors.Is(err, security.ErrMessageTooLong),
		errors.Is(err, security.ErrUnsafeContent):
		status = http.StatusBadRequest
		outcome = outcomeRejected
		msg = security.Reason(err)
	case errors.Is(err, chat.ErrMaxSessions):
		status = http.StatusServiceUnavailable
		outcome = outcomeRejected
		msg = "session capacity reached, try again later"
	case errors.Is(err, provider.ErrRateLimit):
		status = http.StatusTooManyRequests
		msg = "rate limited by the model provider"
	case errors.Is(err, provider.ErrContextLength):
		status = http.StatusRequestEntityTooLarge
		msg = "conversation too large for the model context window"
	}

	g.metrics.RecordMessage(outcome)
	g.metrics.RecordRequest(route, strconv.Itoa(status))
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeSSE writes one Server-Sent Event with a JSON payload.
func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
