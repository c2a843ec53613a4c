// edp-assistant routes a user message through a hosted chat model with three
// tools (SolveBio expression generator, calculator, web search) and prints
// the final assistant reply. Conversation state is checkpointed in SQLite
// keyed by thread id, so passing the same -thread continues a conversation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/edpassistant/edpassistant/internal/agent"
	"github.com/edpassistant/edpassistant/internal/config"
	"github.com/edpassistant/edpassistant/internal/core"
	"github.com/edpassistant/edpassistant/internal/middleware"
	"github.com/edpassistant/edpassistant/internal/openrouter"
	"github.com/edpassistant/edpassistant/internal/store"
	"github.com/edpassistant/edpassistant/internal/tools"
)

func main() {
	threadID := flag.String("thread", "", "conversation thread id (default: new random id)")
	model := flag.String("model", "", "override model id")
	flag.Parse()

	if err := run(*threadID, *model, strings.Join(flag.Args(), " ")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(threadID, model, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("usage: edp-assistant [-thread id] [-model id] \"message\"")
	}

	cfg := config.New("")
	if model != "" {
		cfg.Model = model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening checkpoint store: %w", err)
	}
	defer db.Close()

	// One limiter for the whole process: the loop's model invocations and the
	// code generator's nested calls count against the same inflight cap.
	inflight := openrouter.NewInflightLimiter(cfg.MaxInflightInference)
	factory := func(m string) core.LLMClient {
		return openrouter.NewClient(cfg.OpenRouterAPIKey, m, inflight, cfg.ModelTimeout)
	}

	toolDefs := tools.Definitions()
	models, err := agent.NewModelRegistry(8, toolDefs, factory)
	if err != nil {
		return err
	}

	// The code generator is itself a model call. It reuses the loop's bound
	// client and gets a longer bound than ordinary tools.
	codegen, err := tools.NewCodeGenerator(models.Get(cfg.Model).Client, 3*cfg.ToolTimeout)
	if err != nil {
		return err
	}

	var executor core.ToolExecutor = &tools.Executor{
		Codegen: codegen,
		Search:  tools.NewDuckDuckGo(),
		Timeout: cfg.ToolTimeout,
	}
	if cfg.ToolOutputMaxRunes > 0 {
		executor = middleware.NewTruncatingExecutor(executor, cfg.ToolOutputMaxRunes)
	}

	loop := &agent.Loop{
		Config:      cfg,
		Models:      models,
		Executor:    executor,
		Checkpoints: db,
	}

	reply, err := loop.Run(ctx, threadID, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	fmt.Fprintf(os.Stderr, "(thread: %s)\n", threadID)
	return nil
}
