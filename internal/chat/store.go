package chat

import (
	"sync"
	"time"

	"github.com/parley-chat/parley/pkg/turn"
)

// InMemoryStore is a concurrency-safe, in-memory Store. It uses a map
// with a read-write mutex for O(1) lookups. The `now` function is
// injectable for deterministic testing.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// systemPrompt seeds the pinned system turn of new sessions.
	systemPrompt string

	// maxSessions limits concurrent sessions. Zero means unlimited.
	maxSessions int

	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a ready-to-use in-memory session store.
// An empty systemPrompt falls back to DefaultSystemPrompt.
func NewInMemoryStore(systemPrompt string) *InMemoryStore {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &InMemoryStore{
		sessions:     make(map[string]*Session),
		systemPrompt: systemPrompt,
		now:          time.Now,
	}
}

// SetMaxSessions configures the maximum number of concurrent sessions.
// Zero means unlimited.
func (s *InMemoryStore) SetMaxSessions(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSessions = limit
}

// GetOrCreate returns the existing session for the conversation, or
// creates one seeded with the pinned system turn. When maxSessions > 0
// and the cap is reached, no session is created and (nil, false) is
// returned.
func (s *InMemoryStore) GetOrCreate(conversationID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[conversationID]; ok {
		return sess, false
	}

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, false
	}

	now := s.now()
	sess := &Session{
		ID:             turn.NewID(),
		ConversationID: conversationID,
		CreatedAt:      now,
		LastActivity:   now,
		History: []turn.Turn{
			turn.New(conversationID, turn.RoleSystem, s.systemPrompt, now),
		},
	}
	s.sessions[conversationID] = sess
	return sess, true
}

// Get returns the session for the conversation, or nil if none exists.
func (s *InMemoryStore) Get(conversationID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[conversationID]
}

// Append adds a turn to the session's history and refreshes
// LastActivity to the current time.
func (s *InMemoryStore) Append(conversationID string, t turn.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[conversationID]
	if !ok {
		return ErrNotFound
	}
	sess.History = append(sess.History, t)
	sess.LastActivity = s.now()
	return nil
}

// Delete removes the session for the conversation.
func (s *InMemoryStore) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[conversationID]; !ok {
		return false
	}
	delete(s.sessions, conversationID)
	return true
}

// Len returns the number of active sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Range calls fn for each session. The lock is held for the entire
// iteration — keep fn fast.
func (s *InMemoryStore) Range(fn func(*Session) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if !fn(sess) {
			return
		}
	}
}

// ExpiredIDs returns a snapshot of conversation IDs idle beyond maxIdle.
// The caller re-checks idleness under the conversation's lane lock
// before deleting, since a session may receive a message between the
// snapshot and the eviction.
func (s *InMemoryStore) ExpiredIDs(now time.Time, maxIdle time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, sess := range s.sessions {
		if ShouldEvict(sess.LastActivity, now, maxIdle) {
			ids = append(ids, id)
		}
	}
	return ids
}

// setNow overrides the clock. Only for testing.
func (s *InMemoryStore) setNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
