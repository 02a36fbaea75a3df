package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/parley-chat/parley/internal/memory"
)

// DefaultSweepSchedule runs the reaper at the top of every hour.
const DefaultSweepSchedule = "0 * * * *"

// Reaper evicts sessions idle beyond maxIdle. It implements cron.Job
// and runs as a periodic sweep: a point-in-time snapshot of expired
// conversation IDs, then a per-conversation eviction under the same
// lane lock the message pipeline uses, with a re-check in between. A
// message that lands after the snapshot saves its session.
type Reaper struct {
	log      *slog.Logger
	sessions Store
	lanes    *LaneLock
	turns    memory.TurnStore
	maxIdle  time.Duration
	schedule string
	now      func() time.Time
}

// NewReaper creates a Reaper. turns may be nil; persisted history is
// then left in place on eviction.
func NewReaper(log *slog.Logger, sessions Store, lanes *LaneLock, turns memory.TurnStore, maxIdle time.Duration, schedule string) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	if maxIdle <= 0 {
		maxIdle = DefaultIdleTimeout
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Reaper{
		log:      log,
		sessions: sessions,
		lanes:    lanes,
		turns:    turns,
		maxIdle:  maxIdle,
		schedule: schedule,
		now:      time.Now,
	}
}

// Name implements cron.Job.
func (r *Reaper) Name() string { return "chat.reaper" }

// Schedule implements cron.Job.
func (r *Reaper) Schedule() string { return r.schedule }

// Run implements cron.Job and performs one sweep.
func (r *Reaper) Run(ctx context.Context) error {
	evicted := r.Sweep(ctx)
	if evicted > 0 {
		r.log.Info("idle sessions evicted",
			"count", evicted, "active", r.sessions.Len())
	}
	return nil
}

// Sweep evicts every session idle beyond maxIdle and returns how many
// were removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	now := r.now()
	expired := r.sessionIDs(now)

	evicted := 0
	for _, id := range expired {
		if ctx.Err() != nil {
			break
		}
		if r.evict(ctx, id, now) {
			evicted++
		}
	}

	r.lanes.Cleanup(r.activeIDs())
	return evicted
}

// evict removes one session under its lane lock, re-checking idleness
// first: the session may have seen a message since the snapshot.
func (r *Reaper) evict(ctx context.Context, conversationID string, now time.Time) bool {
	r.lanes.Acquire(conversationID)
	defer r.lanes.Release(conversationID)

	sess := r.sessions.Get(conversationID)
	if sess == nil || !ShouldEvict(sess.LastActivity, now, r.maxIdle) {
		return false
	}
	if !r.sessions.Delete(conversationID) {
		return false
	}

	if r.turns != nil {
		if _, err := r.turns.DeleteConversation(ctx, conversationID); err != nil {
			r.log.Warn("persisted history cleanup failed",
				"conversation_id", conversationID, "error", err)
		}
	}

	r.log.Debug("session evicted",
		"conversation_id", conversationID,
		"idle", now.Sub(sess.LastActivity).Round(time.Second))
	return true
}

func (r *Reaper) sessionIDs(now time.Time) []string {
	return r.sessions.ExpiredIDs(now, r.maxIdle)
}

func (r *Reaper) activeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, r.sessions.Len())
	r.sessions.Range(func(s *Session) bool {
		ids[s.ConversationID] = struct{}{}
		return true
	})
	return ids
}
