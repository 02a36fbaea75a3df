// Package turn defines the conversation turn model shared by the chat
// engine, the context window, providers, and persistence.
package turn

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Role identifies the author of a turn.
type Role string

// Role constants for conversation turns.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one utterance in a conversation. Fields are set at creation
// and never reassigned; a streaming assistant reply is accumulated by
// the caller and only becomes a Turn once finalized.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	// Failed marks an assistant turn that was finalized with a generic
	// failure message after a provider error, so the transcript stays
	// consistent and the caller can offer a retry.
	Failed bool `json:"failed,omitempty"`
}

// New creates a Turn with a fresh ID and the given timestamp.
func New(conversationID string, role Role, content string, at time.Time) Turn {
	return Turn{
		ID:             NewID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      at,
	}
}

// NewID produces a 32-character hex string from 16 random bytes.
// crypto/rand failure requires broken OS entropy; the error is folded
// into the ID rather than propagated through every constructor.
func NewID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("err-%v", err)
	}
	return hex.EncodeToString(buf[:])
}
