package toolruntime

import (
	"context"
	"errors"
	"strings"
)

// FailureClass is one of the four buckets execute()'s failure-context
// builder sorts any tool error into (spec §4.7).
type FailureClass string

const (
	FailureTimeout        FailureClass = "timeout"
	FailureValidationError FailureClass = "validation_error"
	FailureAPIError        FailureClass = "api_error"
	FailureUnknown         FailureClass = "unknown"
)

// FailureContext is the classified error plus a human-friendly
// suggestion the agent can surface or embed in its reply.
type FailureContext struct {
	Class      FailureClass `json:"class"`
	Message    string       `json:"message"`
	Suggestion string       `json:"suggestion"`
}

// classifyFailure builds a FailureContext from a raw tool error.
func classifyFailure(err error, isValidationError bool) FailureContext {
	if err == nil {
		return FailureContext{}
	}

	msg := err.Error()
	switch {
	case isValidationError:
		return FailureContext{
			Class:      FailureValidationError,
			Message:    msg,
			Suggestion: "Double-check the provided arguments match the tool's expected input and retry.",
		}
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(msg), "timed out") || strings.Contains(strings.ToLower(msg), "timeout"):
		return FailureContext{
			Class:      FailureTimeout,
			Message:    msg,
			Suggestion: "The dependency took too long to respond; retrying shortly often resolves this.",
		}
	case strings.Contains(strings.ToLower(msg), "rate limit"),
		strings.Contains(strings.ToLower(msg), "unavailable"),
		strings.Contains(strings.ToLower(msg), "bad gateway"),
		strings.Contains(strings.ToLower(msg), "internal server error"):
		return FailureContext{
			Class:      FailureAPIError,
			Message:    msg,
			Suggestion: "The upstream service reported an error; if this persists, escalate to a human agent.",
		}
	default:
		return FailureContext{
			Class:      FailureUnknown,
			Message:    msg,
			Suggestion: "An unexpected error occurred; escalate if the customer needs an immediate answer.",
		}
	}
}
