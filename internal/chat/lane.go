package chat

import "sync"

// LaneLock serializes work per conversation: messages and evictions
// for the same conversation identifier run one at a time, while
// different conversations proceed concurrently.
//
// A global mutex protects the lane map and is held only briefly to
// look up or create the per-conversation mutex; each lane's own mutex
// provides the serialization.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane stores per-conversation synchronization metadata. refs counts
// goroutines holding or waiting on the lane; stale marks lanes
// eligible for cleanup once refs drops to zero.
type lane struct {
	mu    sync.Mutex
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[string]*lane),
	}
}

// Acquire gets or creates the per-conversation mutex and locks it.
// The caller must call Release with the same ID when done.
func (l *LaneLock) Acquire(conversationID string) {
	l.mu.Lock()
	ln, ok := l.lanes[conversationID]
	if !ok {
		ln = &lane{}
		l.lanes[conversationID] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	// Lock outside the global mutex so other conversations are not blocked.
	ln.mu.Lock()
}

// Release unlocks the per-conversation mutex for the given ID.
func (l *LaneLock) Release(conversationID string) {
	l.mu.Lock()
	ln, ok := l.lanes[conversationID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 && ln.stale {
		delete(l.lanes, conversationID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Cleanup removes lane entries for conversations that are no longer
// active, preventing unbounded growth of the lane map. activeIDs must
// contain the identifiers of currently live sessions.
func (l *LaneLock) Cleanup(activeIDs map[string]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ln := range l.lanes {
		if _, active := activeIDs[id]; !active {
			ln.stale = true
			if ln.refs == 0 {
				delete(l.lanes, id)
			}
			continue
		}
		ln.stale = false
	}
}
