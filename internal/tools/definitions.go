package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edpassistant/edpassistant/internal/core"
)

// codeGeneratorDescription is the model-facing description of the
// code_generator tool.
const codeGeneratorDescription = `Enterprise Data Platform (EDP) Code Generation Tool.

Generates production-grade SolveBio expressions from natural language requests while enforcing platform constraints, security policies, and performance best practices.

Input: query (string) - natural language description of a data processing task.
Example: "Calculate LDL cholesterol using Friedewald formula where triglycerides < 400"

Output guarantees:
1. Syntax validation against SolveBio expression rules
2. Null safety via coalesce()/ifnull() patterns
3. Type consistency via as_int(), as_float(), etc.
4. Parameterized dataset references and sanitized string literals`

// Definitions returns the tool schema presented to the model: the closed set
// of capabilities this assistant can dispatch.
func Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Type: "function",
			Function: core.FunctionSpec{
				Name:        "code_generator",
				Description: codeGeneratorDescription,
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]string{"type": "string", "description": "Natural language description of the data processing task"},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: core.FunctionSpec{
				Name:        "calculator",
				Description: "Evaluate a math expression and return the numeric result. Supports arithmetic operators, comparisons, and parentheses.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"expression": map[string]string{"type": "string", "description": "Math expression to evaluate, e.g. \"300 * 200\""},
					},
					"required": []string{"expression"},
				},
			},
		},
		{
			Type: "function",
			Function: core.FunctionSpec{
				Name:        "web_search",
				Description: "Search the web and return up to three results with title, link, and snippet. Use for current information and citations.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]string{"type": "string", "description": "Search query"},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// Executor dispatches tool calls over the known capability set. Dispatch is
// closed: unknown names are an error the loop converts to diagnostic result
// content. Each invocation is bounded by Timeout (the code generator carries
// its own longer bound, since it is itself a model call).
type Executor struct {
	Codegen *CodeGenerator
	Search  *DuckDuckGo
	Timeout time.Duration
}

// Execute runs the named tool with JSON arguments and returns its result.
func (e *Executor) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch name {
	case "calculator":
		var args struct {
			Expression string `json:"expression"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("calculator: bad arguments: %w", err)
		}
		return EvaluateExpression(args.Expression)

	case "code_generator":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("code_generator: bad arguments: %w", err)
		}
		if e.Codegen == nil {
			return "", fmt.Errorf("code_generator: not configured")
		}
		return e.Codegen.Generate(ctx, args.Query)

	case "web_search":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("web_search: bad arguments: %w", err)
		}
		if e.Search == nil {
			return "", fmt.Errorf("web_search: not configured")
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		results, err := e.Search.Search(ctx, args.Query)
		if err != nil {
			return "", fmt.Errorf("web_search: %w", err)
		}
		return FormatSearchResults(results), nil

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}
