package facts

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// Definition adapts ExtractTool to the tool runtime's Definition shape so
// it can be registered like any other tenant-facing tool. Fact extraction
// has no external dependency and is cheap, so it carries no Dependency
// name and a generous rate limit.
func (t *ExtractTool) Definition() toolruntime.Definition {
	return toolruntime.Definition{
		Name:               t.Name(),
		Version:            "v1",
		Description:        t.Description(),
		InputSchema:        t.Schema(),
		AuthLevel:          models.AuthNone,
		RateLimitPerMinute: 120,
		AllowedChannels:    []models.Channel{models.ChannelWeb, models.ChannelWhatsApp, models.ChannelBusinessChat},
		Cacheable:          false,
		Retryable:          false,
		Handler:            t.handle,
	}
}

func (t *ExtractTool) handle(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
	result, err := t.Execute(ctx, args)
	if err != nil {
		return models.ToolOutcome{Success: false, Error: err.Error()}, err
	}
	if result.IsError {
		return models.ToolOutcome{Success: false, Error: result.Content}, nil
	}
	return models.ToolOutcome{Success: true, Data: json.RawMessage(result.Content)}, nil
}
