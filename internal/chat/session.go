package chat

import (
	"time"

	"github.com/parley-chat/parley/pkg/turn"
)

// DefaultIdleTimeout is how long a session may sit idle before the
// reaper evicts it.
const DefaultIdleTimeout = 24 * time.Hour

// DefaultSystemPrompt is the assistant persona instruction seeded as
// the pinned system turn of every new session.
const DefaultSystemPrompt = "You are Parley, a concise and helpful assistant. " +
	"Answer directly, stay on topic, and say so when you do not know something."

// Session is the process-wide mutable record for one conversation.
// History is the authoritative turn sequence in chronological order;
// it is never destructively trimmed — only the copy handed to the
// completion provider is.
type Session struct {
	ID             string
	ConversationID string
	CreatedAt      time.Time
	LastActivity   time.Time
	History        []turn.Turn
}

// Store manages session lifecycle, keyed by conversation identifier.
// Implementations must be safe for concurrent use; callers serialize
// per-conversation mutation through a LaneLock.
type Store interface {
	// GetOrCreate returns the existing session for the conversation or
	// creates one seeded with the pinned system turn. The bool reports
	// whether the session was newly created.
	GetOrCreate(conversationID string) (*Session, bool)

	// Get returns the session for the conversation, or nil if none exists.
	Get(conversationID string) *Session

	// Append adds a turn to the session's history and refreshes
	// LastActivity. Returns ErrNotFound if the session does not exist.
	Append(conversationID string, t turn.Turn) error

	// Delete removes the session. The bool reports whether anything was
	// removed.
	Delete(conversationID string) bool

	// Len returns the number of active sessions.
	Len() int

	// Range calls fn for each session. If fn returns false, iteration stops.
	Range(fn func(*Session) bool)

	// ExpiredIDs returns a point-in-time snapshot of conversation IDs
	// whose sessions are idle beyond maxIdle at now.
	ExpiredIDs(now time.Time, maxIdle time.Duration) []string
}

// ShouldEvict reports whether a session with the given last activity
// is idle beyond maxIdle at now.
func ShouldEvict(lastActivity, now time.Time, maxIdle time.Duration) bool {
	return now.Sub(lastActivity) > maxIdle
}
