package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edpassistant/edpassistant/internal/config"
	"github.com/edpassistant/edpassistant/internal/core"
)

// needMoreStepsMessage replaces the model's tool calls when the remaining-step
// budget is nearly exhausted, so the loop terminates instead of dispatching.
const needMoreStepsMessage = "Sorry, need more steps to process this request."

// stepSafetyThreshold: when RemainingSteps drops below this and the model
// still requests tools, the loop force-terminates.
const stepSafetyThreshold = 2

// Route outcomes. RouteTools dispatches tool execution; RouteDone ends the loop.
const (
	RouteTools = "tools"
	RouteDone  = "done"
)

// Loop states. The whole control flow is model -> (tools -> model)* -> done.
type loopState int

const (
	stateModel loopState = iota
	stateTools
	stateDone
)

// Route decides the next transition from the most recent turn. It is pure and
// total: any malformed input (empty sequence, last turn not from the
// assistant) logs and routes to done, failing safe toward termination.
func Route(messages []core.Message) string {
	if len(messages) == 0 {
		log.Printf("[AGENT] Route called on empty turn sequence; routing to done")
		return RouteDone
	}
	last := messages[len(messages)-1]
	if last.Role != "assistant" {
		log.Printf("[AGENT] Route called with last role %q (want assistant); routing to done", last.Role)
		return RouteDone
	}
	if len(last.ToolCalls) > 0 {
		return RouteTools
	}
	return RouteDone
}

// Loop drives one conversation thread through the state machine:
// call the model, execute any requested tools, feed results back, repeat
// until the model stops requesting tools or the step budget runs out.
type Loop struct {
	Config      *config.Config
	Models      *ModelRegistry
	Executor    core.ToolExecutor
	Checkpoints core.Checkpointer

	// now is stubbed in tests; defaults to time.Now.
	now func() time.Time
}

// Run appends the user message to the thread's conversation, runs the loop to
// termination, and returns the final assistant turn's text. State for the
// thread is loaded from and saved to the checkpoint store around every step.
func (l *Loop) Run(ctx context.Context, threadID, userMessage string) (string, error) {
	state, ok, err := l.Checkpoints.Load(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("loading checkpoint for thread %s: %w", threadID, err)
	}
	if !ok {
		state = core.ConversationState{}
	}
	// Each incoming user message gets a fresh round-trip budget.
	state.RemainingSteps = l.Config.MaxSteps
	state.Append(core.Message{Role: "user", Content: userMessage})
	if err := l.save(ctx, threadID, state); err != nil {
		return "", err
	}

	st := stateModel
	for st != stateDone {
		switch st {
		case stateModel:
			// Cooperative cancellation: checked before each model step, not
			// mid-flight.
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			l.callModel(ctx, &state)
			if err := l.save(ctx, threadID, state); err != nil {
				return "", err
			}
			if Route(state.Messages) == RouteTools {
				st = stateTools
			} else {
				st = stateDone
			}
		case stateTools:
			l.runTools(ctx, &state)
			if err := l.save(ctx, threadID, state); err != nil {
				return "", err
			}
			st = stateModel
		}
	}

	last, ok := state.Last()
	if !ok || last.Role != "assistant" {
		return "", fmt.Errorf("thread %s ended without an assistant turn", threadID)
	}
	return last.Content, nil
}

// callModel invokes the chat model with the system instructions prepended to
// the turn sequence and appends exactly one assistant turn. Failures never
// propagate: they are classified into a short user-facing turn carrying an
// error tag.
func (l *Loop) callModel(ctx context.Context, state *core.ConversationState) {
	bound := l.Models.Get(l.Config.Model)

	messages := make([]core.Message, 0, len(state.Messages)+1)
	messages = append(messages, core.Message{Role: "system", Content: SystemInstructions(l.clock()())})
	messages = append(messages, state.Messages...)

	content, toolCalls, err := bound.Client.ChatCompletionWithTools(ctx, messages, bound.Tools)
	state.RemainingSteps--
	if err != nil {
		tag := classifyModelError(err)
		log.Printf("[AGENT] Model invocation failed (tag=%s): %v", tag, err)
		state.Append(core.Message{Role: "assistant", Content: UserErrorMessage(tag), ErrorTag: tag})
		return
	}

	if state.RemainingSteps < stepSafetyThreshold && len(toolCalls) > 0 {
		log.Printf("[AGENT] Step budget nearly exhausted (%d remaining); dropping %d tool calls", state.RemainingSteps, len(toolCalls))
		state.Append(core.Message{Role: "assistant", Content: needMoreStepsMessage})
		return
	}

	state.Append(core.Message{Role: "assistant", Content: content, ToolCalls: toolCalls})
}

// runTools executes every tool call from the last assistant turn and appends
// one tool turn per call, matched by call id and kept in call order. Calls
// run concurrently; a failing tool becomes diagnostic result content, never
// an aborted loop.
func (l *Loop) runTools(ctx context.Context, state *core.ConversationState) {
	last, ok := state.Last()
	if !ok || len(last.ToolCalls) == 0 {
		log.Printf("[AGENT] runTools called with no pending tool calls")
		return
	}

	calls := last.ToolCalls
	results := make([]string, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, tc := range calls {
		i, tc := i, tc
		g.Go(func() error {
			out, err := l.Executor.Execute(gctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				log.Printf("[AGENT] Tool %s (%s) failed: %v", tc.Function.Name, tc.ID, err)
				out = fmt.Sprintf("tool %s failed: %v", tc.Function.Name, err)
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures become result content

	for i, tc := range calls {
		state.Append(core.Message{Role: "tool", Content: results[i], ToolCallID: tc.ID})
	}
}

func (l *Loop) save(ctx context.Context, threadID string, state core.ConversationState) error {
	if err := l.Checkpoints.Save(ctx, threadID, state); err != nil {
		return fmt.Errorf("saving checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

func (l *Loop) clock() func() time.Time {
	if l.now != nil {
		return l.now
	}
	return time.Now
}
