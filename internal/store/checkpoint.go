package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/edpassistant/edpassistant/internal/core"
)

// Load returns the conversation state for threadID, or ok=false when the
// thread has never been saved.
func (db *DB) Load(ctx context.Context, threadID string) (core.ConversationState, bool, error) {
	var state core.ConversationState

	err := db.QueryRowContext(ctx,
		`SELECT remaining_steps FROM threads WHERE thread_id = ?`, threadID,
	).Scan(&state.RemainingSteps)
	if err == sql.ErrNoRows {
		return core.ConversationState{}, false, nil
	}
	if err != nil {
		return core.ConversationState{}, false, fmt.Errorf("store: loading thread %s: %w", threadID, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id, error_tag
		 FROM messages WHERE thread_id = ? ORDER BY position ASC`, threadID)
	if err != nil {
		return core.ConversationState{}, false, fmt.Errorf("store: loading messages for %s: %w", threadID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m core.Message
		var toolCalls, toolCallID, errorTag sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &toolCalls, &toolCallID, &errorTag); err != nil {
			return core.ConversationState{}, false, fmt.Errorf("store: scanning message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return core.ConversationState{}, false, fmt.Errorf("store: decoding tool calls: %w", err)
			}
		}
		if toolCallID.Valid {
			m.ToolCallID = toolCallID.String
		}
		if errorTag.Valid {
			m.ErrorTag = errorTag.String
		}
		state.Messages = append(state.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return core.ConversationState{}, false, err
	}
	return state, true, nil
}

// Save persists the state for threadID. The message sequence is append-only:
// rows already stored keep their positions and only the tail past the stored
// length is inserted. The whole save is one transaction, so a reader never
// observes a half-written step.
func (db *DB) Save(ctx context.Context, threadID string, state core.ConversationState) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save for %s: %w", threadID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO threads (thread_id, remaining_steps) VALUES (?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET remaining_steps = excluded.remaining_steps, updated_at = CURRENT_TIMESTAMP`,
		threadID, state.RemainingSteps)
	if err != nil {
		return fmt.Errorf("store: upserting thread %s: %w", threadID, err)
	}

	var stored int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = ?`, threadID,
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("store: counting messages for %s: %w", threadID, err)
	}
	if stored > len(state.Messages) {
		return fmt.Errorf("store: thread %s has %d stored messages but state has %d; turn sequence is append-only", threadID, stored, len(state.Messages))
	}

	for pos := stored; pos < len(state.Messages); pos++ {
		m := state.Messages[pos]
		toolCalls := ""
		if len(m.ToolCalls) > 0 {
			b, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("store: encoding tool calls: %w", err)
			}
			toolCalls = string(b)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (thread_id, position, role, content, tool_calls, tool_call_id, error_tag)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			threadID, pos, m.Role, m.Content, toolCalls, m.ToolCallID, m.ErrorTag)
		if err != nil {
			return fmt.Errorf("store: inserting message %d for %s: %w", pos, threadID, err)
		}
	}

	return tx.Commit()
}

// Ensure *DB implements the checkpoint boundary.
var _ core.Checkpointer = (*DB)(nil)
