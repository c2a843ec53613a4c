package agent

import (
	"context"
	"errors"
	"strings"
)

// Error tags carried on assistant turns produced from a failed model
// invocation. The tag is metadata; the content is the fixed user-facing text.
const (
	ErrTagModelTimeout     = "MODEL_TIMEOUT"
	ErrTagPermissionDenied = "PERMISSION_DENIED"
	ErrTagDefault          = "DEFAULT"
)

var userErrorMessages = map[string]string{
	ErrTagModelTimeout:     "Apologies, the response took too long. Please try a simpler query.",
	ErrTagPermissionDenied: "Authorization issue detected.",
	ErrTagDefault:          "Unable to process request.",
}

// UserErrorMessage returns the fixed user-facing text for an error tag.
// Unknown tags fall back to the generic message; raw provider detail is
// logged server-side and never shown to the user.
func UserErrorMessage(tag string) string {
	if msg, ok := userErrorMessages[tag]; ok {
		return msg
	}
	return userErrorMessages[ErrTagDefault]
}

// classifyModelError maps a model-invocation failure to an error tag.
// Timeouts (context deadline or provider timeout text) are MODEL_TIMEOUT;
// credential/authorization failures are PERMISSION_DENIED; everything else
// is DEFAULT.
func classifyModelError(err error) string {
	if err == nil {
		return ErrTagDefault
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTagModelTimeout
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded"):
		return ErrTagModelTimeout
	case strings.Contains(s, "http 401") || strings.Contains(s, "http 403") ||
		strings.Contains(s, "unauthorized") || strings.Contains(s, "access denied") ||
		strings.Contains(s, "accessdenied") || strings.Contains(s, "invalid api key"):
		return ErrTagPermissionDenied
	default:
		return ErrTagDefault
	}
}
