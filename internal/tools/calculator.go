package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// EvaluateExpression evaluates a math expression and returns the result as a
// plain string the model can hand to the user (e.g. "4", not a float dump).
func EvaluateExpression(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", fmt.Errorf("calculator: empty expression")
	}
	out, err := expr.Eval(expression, nil)
	if err != nil {
		return "", fmt.Errorf("calculator: evaluating %q: %w", expression, err)
	}
	return formatResult(out), nil
}

// formatResult renders numeric results without a trailing ".000000" and
// everything else via %v.
func formatResult(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
