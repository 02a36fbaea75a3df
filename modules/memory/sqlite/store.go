package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parley-chat/parley/pkg/turn"
)

// turnStore implements memory.TurnStore on top of a SQLite database.
// Turns are keyed by (conversation_id, seq); seq is assigned on insert
// so chronological order survives clock skew.
type turnStore struct {
	db *sql.DB
}

// Save appends a turn to its conversation's persisted history.
func (s *turnStore) Save(ctx context.Context, t turn.Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (conversation_id, seq, turn_id, role, content, failed, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE conversation_id = ?), ?, ?, ?, ?, ?)`,
		t.ConversationID, t.ConversationID, t.ID, string(t.Role), t.Content, boolToInt(t.Failed),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save turn: %w", err)
	}
	return nil
}

// LoadHistory returns all persisted turns for a conversation in insert
// order. A conversation with no rows yields an empty slice, not an error.
func (s *turnStore) LoadHistory(ctx context.Context, conversationID string) ([]turn.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, role, content, failed, created_at
		FROM turns
		WHERE conversation_id = ?
		ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []turn.Turn
	for rows.Next() {
		t, err := scanTurn(rows, conversationID)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: load history: %w", err)
	}

	return turns, nil
}

// DeleteConversation removes all persisted turns for a conversation.
// The bool reports whether any rows were deleted.
func (s *turnStore) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM turns WHERE conversation_id = ?", conversationID)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: delete conversation: %w", err)
	}
	return n > 0, nil
}

func scanTurn(rows *sql.Rows, conversationID string) (turn.Turn, error) {
	var (
		t       turn.Turn
		role    string
		failed  int
		created string
	)
	if err := rows.Scan(&t.ID, &role, &t.Content, &failed, &created); err != nil {
		return turn.Turn{}, fmt.Errorf("sqlite: scan turn: %w", err)
	}

	t.ConversationID = conversationID
	t.Role = turn.Role(role)
	t.Failed = failed != 0

	at, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return turn.Turn{}, fmt.Errorf("sqlite: parse created_at %q: %w", created, err)
	}
	t.CreatedAt = at

	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
