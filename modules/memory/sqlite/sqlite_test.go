package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parley-chat/parley/pkg/turn"
)

func newTestStore(t *testing.T) *turnStore {
	t.Helper()

	cfg := Config{Path: filepath.Join(t.TempDir(), "turns.db")}
	cfg.defaults()

	db, err := open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &turnStore{db: db}
}

func testTurn(convID string, role turn.Role, content string, offset time.Duration) turn.Turn {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	return turn.New(convID, role, content, at)
}

// --- Round trip ---

func TestSaveAndLoadHistory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	in := []turn.Turn{
		testTurn("conv-1", turn.RoleSystem, "be helpful", 0),
		testTurn("conv-1", turn.RoleUser, "hello", time.Second),
		testTurn("conv-1", turn.RoleAssistant, "hi there", 2*time.Second),
	}
	for _, tr := range in {
		if err := s.Save(ctx, tr); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.LoadHistory(ctx, "conv-1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d turns, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i].ID != in[i].ID {
			t.Errorf("turn %d: ID = %q, want %q", i, got[i].ID, in[i].ID)
		}
		if got[i].Role != in[i].Role {
			t.Errorf("turn %d: Role = %q, want %q", i, got[i].Role, in[i].Role)
		}
		if got[i].Content != in[i].Content {
			t.Errorf("turn %d: Content = %q, want %q", i, got[i].Content, in[i].Content)
		}
		if !got[i].CreatedAt.Equal(in[i].CreatedAt) {
			t.Errorf("turn %d: CreatedAt = %v, want %v", i, got[i].CreatedAt, in[i].CreatedAt)
		}
		if got[i].ConversationID != "conv-1" {
			t.Errorf("turn %d: ConversationID = %q", i, got[i].ConversationID)
		}
	}
}

func TestSavePreservesFailedFlag(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	failed := testTurn("conv-1", turn.RoleAssistant, "something went wrong", 0)
	failed.Failed = true
	if err := s.Save(ctx, failed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.LoadHistory(ctx, "conv-1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 1 || !got[0].Failed {
		t.Fatalf("got %+v, want one failed turn", got)
	}
}

func TestLoadHistory_MissingConversation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.LoadHistory(context.Background(), "absent")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d turns, want 0", len(got))
	}
}

// --- Conversation isolation ---

func TestConversationsAreIsolated(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testTurn("a", turn.RoleUser, "for a", 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, testTurn("b", turn.RoleUser, "for b", 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.LoadHistory(ctx, "a")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 1 || got[0].Content != "for a" {
		t.Fatalf("conversation a history = %+v", got)
	}
}

// --- Delete ---

func TestDeleteConversation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testTurn("conv-1", turn.RoleUser, "hello", 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deleted, err := s.DeleteConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteConversation reported nothing deleted")
	}

	got, err := s.LoadHistory(ctx, "conv-1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("history survived delete: %+v", got)
	}

	deleted, err = s.DeleteConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if deleted {
		t.Fatal("second delete reported rows deleted")
	}
}

// --- Persistence across reopen ---

func TestHistorySurvivesReopen(t *testing.T) {
	t.Parallel()

	cfg := Config{Path: filepath.Join(t.TempDir(), "turns.db")}
	cfg.defaults()
	ctx := context.Background()

	db, err := open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := &turnStore{db: db}
	if err := s.Save(ctx, testTurn("conv-1", turn.RoleUser, "persist me", 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	got, err := (&turnStore{db: db}).LoadHistory(ctx, "conv-1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 1 || got[0].Content != "persist me" {
		t.Fatalf("history after reopen = %+v", got)
	}
}

// --- Migration ---

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// open already migrated once; a second pass must be a no-op.
	if err := migrate(s.db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// --- Config ---

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.defaults()
	if !cfg.walEnabled() {
		t.Error("WAL should default to enabled")
	}
	if cfg.BusyTimeout != defaultBusyTimeout {
		t.Errorf("BusyTimeout = %d, want %d", cfg.BusyTimeout, defaultBusyTimeout)
	}

	off := false
	cfg = Config{WAL: &off}
	cfg.defaults()
	if cfg.walEnabled() {
		t.Error("WAL explicitly disabled should stay disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{BusyTimeout: -1}
	if err := cfg.validate(); err == nil {
		t.Error("negative busy_timeout should fail validation")
	}
}
