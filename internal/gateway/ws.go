package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/security"
)

// wsRequest is an inbound chat message over the websocket.
type wsRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// wsFrame is an outbound websocket frame. Type is "fragment", "done",
// or "error".
type wsFrame struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Reply   *chat.Reply `json:"reply,omitempty"`
	Message string      `json:"message,omitempty"`
}

// wsWriteTimeout bounds each outbound frame write.
const wsWriteTimeout = 10 * time.Second

// handleWebSocket handles GET /ws/chat. Each connection carries a
// sequence of request/stream exchanges; fragments stream back as they
// arrive from the provider.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var req wsRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
					return
				}
				g.logger.Debug("websocket read ended", "error", err)
				return
			}
			if req.ConversationID == "" {
				g.writeFrame(ctx, conn, wsFrame{Type: "error", Message: "conversation_id is required"})
				continue
			}

			g.serveExchange(ctx, conn, req)
		}
	}
}

// serveExchange runs one message through the streaming pipeline and
// relays fragments onto the connection.
func (g *Gateway) serveExchange(ctx context.Context, conn *websocket.Conn, req wsRequest) {
	emit := func(fragment string) error {
		return g.writeFrame(ctx, conn, wsFrame{Type: "fragment", Content: fragment})
	}

	start := time.Now()
	reply, err := g.engine.HandleStream(ctx, req.ConversationID, req.Content, emit)
	g.metrics.ObserveProviderLatency(time.Since(start))

	switch {
	case err == nil:
		g.metrics.RecordMessage(outcomeOK)
		g.writeFrame(ctx, conn, wsFrame{Type: "done", Reply: &reply})
	case isValidationError(err):
		g.metrics.RecordMessage(outcomeRejected)
		g.writeFrame(ctx, conn, wsFrame{Type: "error", Message: security.Reason(err)})
	case errors.Is(err, chat.ErrMaxSessions):
		g.metrics.RecordMessage(outcomeRejected)
		g.writeFrame(ctx, conn, wsFrame{Type: "error", Message: "session capacity reached, try again later"})
	default:
		g.metrics.RecordMessage(outcomeFailed)
		g.writeFrame(ctx, conn, wsFrame{Type: "error", Message: chat.FailureMessage})
	}
}

// writeFrame writes one frame with a bounded deadline.
func (g *Gateway) writeFrame(ctx context.Context, conn *websocket.Conn, frame wsFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}

func isValidationError(err error) bool {
	return errors.Is(err, security.ErrEmptyMessage) ||
		errors.Is(err, security.ErrMessageTooLong) ||
		errors.Is(err, security.ErrUnsafeContent)
}
