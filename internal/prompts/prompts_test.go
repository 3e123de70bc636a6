package prompts

import (
	"strings"
	"testing"

	"github.com/haasonsaas/resolvr/pkg/models"
)

func TestSystemPrompt_IncludesContractAndChannelNote(t *testing.T) {
	p := New(nil)
	out := p.SystemPrompt(models.ChannelWhatsApp, "")
	if !strings.Contains(out, "user_facing_message") {
		t.Fatalf("expected response contract in prompt, got %q", out)
	}
	if !strings.Contains(out, "WhatsApp") {
		t.Fatalf("expected channel note in prompt, got %q", out)
	}
}

func TestSystemPrompt_AppendsVersionAddendum(t *testing.T) {
	p := New(map[string]string{"v2": "Offer a discount code for delayed orders."})
	out := p.SystemPrompt(models.ChannelWeb, "v2")
	if !strings.Contains(out, "discount code") {
		t.Fatalf("expected v2 addendum in prompt, got %q", out)
	}
}

func TestSystemPrompt_UnknownVersionFallsBack(t *testing.T) {
	p := New(map[string]string{"v2": "addendum"})
	out := p.SystemPrompt(models.ChannelWeb, "v99")
	if strings.Contains(out, "addendum") {
		t.Fatalf("unexpected addendum for unknown version: %q", out)
	}
}
