package store

import (
	"context"
	"sync"

	"github.com/edpassistant/edpassistant/internal/core"
)

// MemorySaver is an in-memory checkpointer keyed by thread id. Used in tests
// and for ephemeral runs where nothing should survive the process.
type MemorySaver struct {
	mu     sync.RWMutex
	states map[string]core.ConversationState
}

// NewMemorySaver creates an empty in-memory checkpointer.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{states: make(map[string]core.ConversationState)}
}

// Load returns a copy of the saved state for threadID.
func (m *MemorySaver) Load(_ context.Context, threadID string) (core.ConversationState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[threadID]
	if !ok {
		return core.ConversationState{}, false, nil
	}
	return state.Clone(), true, nil
}

// Save stores a copy of state under threadID, replacing any previous state.
func (m *MemorySaver) Save(_ context.Context, threadID string, state core.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[threadID] = state.Clone()
	return nil
}

var _ core.Checkpointer = (*MemorySaver)(nil)
