// Package chat implements the conversation engine: session lifecycle,
// per-conversation serialization, the message pipeline, and the idle
// session reaper.
package chat

import "errors"

// Sentinel errors for chat operations.
var (
	// ErrNotFound indicates an operation referenced a conversation with
	// no active session. Callers decide whether to create one.
	ErrNotFound = errors.New("chat: session not found")

	// ErrMaxSessions indicates the session cap is reached and no new
	// session was created.
	ErrMaxSessions = errors.New("chat: maximum active sessions reached")
)
