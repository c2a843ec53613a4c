package tools

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edpassistant/edpassistant/internal/core"
)

// codegenSystemPrompt instructs the model acting as the expression generator.
const codegenSystemPrompt = `# Role
You are an EDP/SolveBio Expression Specialist. Your task is to convert natural language requests into secure, production-ready SolveBio expressions that follow platform-specific syntax rules.

# Syntax Specification
## Core Principles
1. Immutable single-line expressions (comments allowed)
2. Context variables accessed directly: record.[field_name]
3. All operations must be contained within SolveBio's runtime environment

## Data Handling Rules
- **Null Safety**: Use coalesce() or ifnull() for all nullable fields
  Example: coalesce(record.age, 0)
- **Type Enforcement**: Explicit casting with as_string(), as_int(), etc.
  Example: as_int(record.count) + 5
- **List Operations**: Validate element types before processing
  Example: [as_float(x) for x in record.values if x is not None]

# Security Constraints
1. **Input Sanitization**:
   - Escape special characters in string literals: replace(value, "'", "''")
   - Validate field names against dataset schema
2. **API Safety**:
   - Use parameterized inputs for dataset queries
   - Restrict list operations to <1000 elements
3. **Forbidden Patterns**:
   - No string interpolation in dataset references
   - No direct user input in expressions
   - No external function calls

# Common Patterns Library
## Date/Time Operations
INPUT: "Format transaction_date to MM/DD/YYYY"
OUTPUT: datetime_format(record.transaction_date, "%m/%d/%Y")

## Conditional Logic
INPUT: "Categorize BMI values into underweight (<18.5), normal, overweight (>=25)"
OUTPUT:
case(
    record.bmi,
    {
        (None, 18.5): "Underweight",
        (18.5, 25): "Normal",
        (25, None): "Overweight"
    },
    "Unknown"
)

# Output Requirements
1. **Formatting**:
   - Max 120 characters per line (use line continuation with parentheses)
   - Mandatory comments for complex logic
2. **Validation**:
   - Verify against sample dataset schema
   - Check for type conversion edge cases

# Example Execution
INPUT: "Calculate LDL cholesterol using Friedewald formula"
OUTPUT:
# LDL = Total Cholesterol - HDL - (Triglycerides/5)
coalesce(
    record.total_chol - record.hdl - (record.triglycerides / 5),
    0  # Default if null
)`

// codegenCacheSize bounds the result memoization; entries live until evicted
// or the process exits.
const codegenCacheSize = 100

// CodeGenerator turns natural-language requests into SolveBio expressions by
// prompting the chat model. Results are memoized in a fixed-capacity LRU
// keyed by the whitespace-normalized query.
type CodeGenerator struct {
	Client  core.LLMClient
	Timeout time.Duration

	cache *lru.Cache[string, string]
}

// NewCodeGenerator builds a generator backed by client. Timeout bounds each
// generation request; the zero value defaults to 30 seconds.
func NewCodeGenerator(client core.LLMClient, timeout time.Duration) (*CodeGenerator, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cache, err := lru.New[string, string](codegenCacheSize)
	if err != nil {
		return nil, err
	}
	return &CodeGenerator{Client: client, Timeout: timeout, cache: cache}, nil
}

// Generate returns a SolveBio expression for the given natural-language query.
func (g *CodeGenerator) Generate(ctx context.Context, query string) (string, error) {
	key := normalizeQuery(query)
	if key == "" {
		return "", fmt.Errorf("code_generator: empty query")
	}
	if cached, ok := g.cache.Get(key); ok {
		log.Printf("[TOOLS] code_generator cache hit for %q", key)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	messages := []core.Message{
		{Role: "system", Content: codegenSystemPrompt},
		{Role: "user", Content: key},
	}
	out, err := g.Client.ChatCompletion(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("code_generator: %w", err)
	}
	out = strings.TrimSpace(out)
	g.cache.Add(key, out)
	return out, nil
}

// normalizeQuery collapses whitespace so trivially different phrasings of the
// same request share a cache entry.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
