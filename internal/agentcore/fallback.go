package agentcore

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// summarizeToolResults formats tool outcomes into a user message the
// refinement LLM call can read (spec §4.8: "a structured summary of
// each tool result").
func summarizeToolResults(results []models.ToolResult) string {
	if len(results) == 0 {
		return "No tool results."
	}
	var sb strings.Builder
	sb.WriteString("Tool results:\n")
	for _, r := range results {
		sb.WriteString("- ")
		sb.WriteString(r.ToolCallID)
		if r.IsError {
			sb.WriteString(": error: ")
			sb.WriteString(r.Content)
		} else {
			sb.WriteString(": ")
			sb.WriteString(r.Content)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildToolResultsFallback deterministically converts successful tool
// results into a user-visible reply when the refinement LLM call fails
// or a fast-path is taken (spec §4.8, §4.12 step 15).
func BuildToolResultsFallback(results []models.ToolResult) string {
	var successes []string
	for _, r := range results {
		if r.IsError {
			continue
		}
		successes = append(successes, formatToolResultLine(r))
	}
	if len(successes) == 0 {
		return "I wasn't able to complete that request — let me get a human to help."
	}
	return strings.Join(successes, " ")
}

func formatToolResultLine(r models.ToolResult) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(r.Content), &data); err != nil || len(data) == 0 {
		if r.Content != "" {
			return r.Content
		}
		return "Done."
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+formatValue(data[k]))
	}
	return strings.Join(parts, ", ") + "."
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
