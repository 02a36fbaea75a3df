// Package memory defines the optional turn persistence contract. The
// chat engine functions identically without a store; persistence is
// write-behind and non-fatal.
package memory

import (
	"context"

	"github.com/parley-chat/parley/pkg/turn"
)

// ServiceName is the AppContext service key under which a persistence
// module registers its TurnStore.
const ServiceName = "memory.turns"

// TurnStore persists conversation turns across process restarts.
// Implementations must be safe for concurrent use.
type TurnStore interface {
	// Save appends a turn to its conversation's persisted history.
	Save(ctx context.Context, t turn.Turn) error

	// LoadHistory returns all persisted turns for a conversation in
	// chronological order. A missing conversation yields an empty slice.
	LoadHistory(ctx context.Context, conversationID string) ([]turn.Turn, error)

	// DeleteConversation removes all persisted turns for a conversation.
	// The bool reports whether anything was removed.
	DeleteConversation(ctx context.Context, conversationID string) (bool, error)
}
