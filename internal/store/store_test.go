package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/edpassistant/edpassistant/internal/core"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleState() core.ConversationState {
	return core.ConversationState{
		RemainingSteps: 8,
		Messages: []core.Message{
			{Role: "user", Content: "what is 2+2"},
			{Role: "assistant", ToolCalls: []core.ToolCall{core.NewToolCall("call_1", "calculator", `{"expression":"2+2"}`)}},
			{Role: "tool", Content: "4", ToolCallID: "call_1"},
			{Role: "assistant", Content: "The result of 2+2 is 4"},
		},
	}
}

func TestSQLite_LoadAbsentThread(t *testing.T) {
	db := setupTestDB(t)
	_, ok, err := db.Load(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unsaved thread must load as absent")
	}
}

func TestSQLite_SaveLoadRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	want := sampleState()

	if err := db.Save(ctx, "t1", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("saved thread must load")
	}
	if got.RemainingSteps != want.RemainingSteps {
		t.Errorf("remaining steps: got %d, want %d", got.RemainingSteps, want.RemainingSteps)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("messages: got %d, want %d", len(got.Messages), len(want.Messages))
	}
	asst := got.Messages[1]
	if len(asst.ToolCalls) != 1 || asst.ToolCalls[0].Function.Name != "calculator" {
		t.Errorf("tool calls not round-tripped: %+v", asst)
	}
	if got.Messages[2].ToolCallID != "call_1" {
		t.Errorf("tool call id not round-tripped: %+v", got.Messages[2])
	}
}

func TestSQLite_AppendOnlySaves(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	state := core.ConversationState{
		RemainingSteps: 10,
		Messages:       []core.Message{{Role: "user", Content: "hi"}},
	}
	if err := db.Save(ctx, "t1", state); err != nil {
		t.Fatal(err)
	}

	state.Append(core.Message{Role: "assistant", Content: "hello"})
	state.RemainingSteps = 9
	if err := db.Save(ctx, "t1", state); err != nil {
		t.Fatal(err)
	}

	got, _, err := db.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.RemainingSteps != 9 {
		t.Errorf("remaining steps not updated: %d", got.RemainingSteps)
	}

	// Shrinking the sequence violates append-only and must be rejected.
	state.Messages = state.Messages[:1]
	if err := db.Save(ctx, "t1", state); err == nil {
		t.Error("saving a shorter sequence must fail")
	}
}

func TestSQLite_ThreadIsolation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := core.ConversationState{RemainingSteps: 5, Messages: []core.Message{{Role: "user", Content: "Message in Thread A"}}}
	b := core.ConversationState{RemainingSteps: 7, Messages: []core.Message{{Role: "user", Content: "Message in Thread B"}}}
	if err := db.Save(ctx, "thread_a", a); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(ctx, "thread_b", b); err != nil {
		t.Fatal(err)
	}

	gotA, _, _ := db.Load(ctx, "thread_a")
	if len(gotA.Messages) != 1 || gotA.Messages[0].Content != "Message in Thread A" {
		t.Errorf("thread A isolation failed: %+v", gotA.Messages)
	}
	gotB, _, _ := db.Load(ctx, "thread_b")
	if len(gotB.Messages) != 1 || gotB.Messages[0].Content != "Message in Thread B" {
		t.Errorf("thread B isolation failed: %+v", gotB.Messages)
	}
}

func TestMemorySaver_CopiesState(t *testing.T) {
	m := NewMemorySaver()
	ctx := context.Background()

	state := sampleState()
	if err := m.Save(ctx, "t1", state); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's slice must not affect the stored copy.
	state.Messages[0].Content = "mutated"
	got, ok, _ := m.Load(ctx, "t1")
	if !ok {
		t.Fatal("saved thread must load")
	}
	if got.Messages[0].Content != "what is 2+2" {
		t.Errorf("stored state aliased caller memory: %q", got.Messages[0].Content)
	}

	// And mutating a loaded copy must not affect the store.
	got.Messages[0].Content = "also mutated"
	again, _, _ := m.Load(ctx, "t1")
	if again.Messages[0].Content != "what is 2+2" {
		t.Errorf("loaded state aliased store memory: %q", again.Messages[0].Content)
	}
}

func TestMemorySaver_Absent(t *testing.T) {
	m := NewMemorySaver()
	_, ok, err := m.Load(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("missing thread must report absent")
	}
}
