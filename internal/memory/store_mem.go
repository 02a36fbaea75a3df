package memory

import (
	"context"
	"sync"

	"github.com/parley-chat/parley/pkg/turn"
)

// InMemoryTurnStore is a thread-safe, in-memory TurnStore. It exists
// for tests and for running without the sqlite module.
type InMemoryTurnStore struct {
	mu    sync.RWMutex
	turns map[string][]turn.Turn
}

// NewInMemoryTurnStore creates a new empty store.
func NewInMemoryTurnStore() *InMemoryTurnStore {
	return &InMemoryTurnStore{
		turns: make(map[string][]turn.Turn),
	}
}

// Compile-time interface check.
var _ TurnStore = (*InMemoryTurnStore)(nil)

// Save appends a turn to its conversation's persisted history.
func (s *InMemoryTurnStore) Save(_ context.Context, t turn.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[t.ConversationID] = append(s.turns[t.ConversationID], t)
	return nil
}

// LoadHistory returns all persisted turns for a conversation.
func (s *InMemoryTurnStore) LoadHistory(_ context.Context, conversationID string) ([]turn.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.turns[conversationID]
	result := make([]turn.Turn, len(stored))
	copy(result, stored)
	return result, nil
}

// DeleteConversation removes all persisted turns for a conversation.
func (s *InMemoryTurnStore) DeleteConversation(_ context.Context, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[conversationID]; !ok {
		return false, nil
	}
	delete(s.turns, conversationID)
	return true, nil
}
