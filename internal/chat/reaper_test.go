package chat

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/memory"
	"github.com/parley-chat/parley/pkg/turn"
)

func reaperTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestReaper_SweepEvictsOnlyIdleSessions(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryStore("")
	store.setNow(func() time.Time { return base })
	store.GetOrCreate("stale")
	store.setNow(func() time.Time { return base.Add(20 * time.Hour) })
	store.GetOrCreate("active")

	r := NewReaper(reaperTestLogger(), store, NewLaneLock(), nil, 24*time.Hour, "")
	r.now = func() time.Time { return base.Add(25 * time.Hour) }

	if evicted := r.Sweep(context.Background()); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if store.Get("stale") != nil {
		t.Fatal("stale session survived the sweep")
	}
	if store.Get("active") == nil {
		t.Fatal("active session was evicted")
	}
}

func TestReaper_RecheckSavesRevivedSession(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryStore("")
	store.setNow(func() time.Time { return base })
	store.GetOrCreate("conv-1")

	r := NewReaper(reaperTestLogger(), store, NewLaneLock(), nil, 24*time.Hour, "")
	sweepAt := base.Add(25 * time.Hour)
	r.now = func() time.Time { return sweepAt }

	// The session looks expired in the snapshot, but a message lands
	// before the per-conversation eviction runs.
	ids := store.ExpiredIDs(sweepAt, 24*time.Hour)
	if len(ids) != 1 {
		t.Fatalf("snapshot = %v, want one expired ID", ids)
	}
	store.setNow(func() time.Time { return sweepAt })
	if err := store.Append("conv-1", turn.New("conv-1", turn.RoleUser, "still here", sweepAt)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if evicted := r.Sweep(context.Background()); evicted != 0 {
		t.Fatalf("evicted = %d, want 0 after revival", evicted)
	}
	if store.Get("conv-1") == nil {
		t.Fatal("revived session was evicted")
	}
}

func TestReaper_EvictionRemovesPersistedHistory(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryStore("")
	store.setNow(func() time.Time { return base })
	store.GetOrCreate("conv-1")

	turns := memory.NewInMemoryTurnStore()
	if err := turns.Save(context.Background(), turn.New("conv-1", turn.RoleUser, "hi", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := NewReaper(reaperTestLogger(), store, NewLaneLock(), turns, 24*time.Hour, "")
	r.now = func() time.Time { return base.Add(25 * time.Hour) }

	if evicted := r.Sweep(context.Background()); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	persisted, err := turns.LoadHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("persisted turns after eviction = %d, want 0", len(persisted))
	}
}

func TestReaper_RunReportsNoErrorOnEmptyStore(t *testing.T) {
	t.Parallel()

	r := NewReaper(reaperTestLogger(), NewInMemoryStore(""), NewLaneLock(), nil, 0, "")
	if r.maxIdle != DefaultIdleTimeout {
		t.Fatalf("maxIdle = %v, want default", r.maxIdle)
	}
	if r.Schedule() != DefaultSweepSchedule {
		t.Fatalf("schedule = %q, want default", r.Schedule())
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
