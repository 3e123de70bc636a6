package customerlink

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/resolvr/internal/convstore"
	"github.com/haasonsaas/resolvr/pkg/models"
)

func TestLinker_LinkNewConversation_ResolvesByPhoneAndMergesMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	customers := NewMemoryStore()
	customers.Seed(CustomerRecord{CustomerID: "cust-1", Phone: "919876543210", Email: "a@example.com", Name: "Asha"})

	convs := convstore.NewMemoryStore()
	priorConv := models.NewConversation("conv-whatsapp-1", "visitor-1", models.ChannelWhatsApp, now.Add(-time.Hour))
	priorConv.CustomerID = "cust-1"
	priorConv.StructuredMemory = models.StructuredMemory{Name: "Asha", Email: "a@example.com", Company: "Acme"}
	if err := convs.Save(ctx, priorConv); err != nil {
		t.Fatalf("Save prior conversation: %v", err)
	}
	if err := customers.LinkConversation(ctx, "cust-1", "conv-whatsapp-1"); err != nil {
		t.Fatalf("LinkConversation: %v", err)
	}

	linker := New(customers, convs, nil)
	newConv := models.NewConversation("conv-web-1", "visitor-2", models.ChannelWeb, now)

	if err := linker.LinkNewConversation(ctx, newConv, UserProfile{Phone: "919876543210"}, now); err != nil {
		t.Fatalf("LinkNewConversation: %v", err)
	}

	if newConv.CustomerID != "cust-1" {
		t.Errorf("CustomerID = %q, want cust-1", newConv.CustomerID)
	}
	if newConv.StructuredMemory.Company != "Acme" {
		t.Errorf("expected merged Company field, got %q", newConv.StructuredMemory.Company)
	}
	if len(newConv.Turns) == 0 || newConv.Turns[0].Role != models.RoleSystem {
		t.Error("expected a system turn documenting continuation")
	}
}

func TestLinker_LinkNewConversation_NoMatchIsNotAnError(t *testing.T) {
	ctx := context.Background()
	linker := New(NewMemoryStore(), convstore.NewMemoryStore(), nil)
	conv := models.NewConversation("conv-1", "visitor-1", models.ChannelWeb, time.Now())

	if err := linker.LinkNewConversation(ctx, conv, UserProfile{Phone: "000"}, time.Now()); err != nil {
		t.Fatalf("expected no error on unresolved customer, got %v", err)
	}
	if conv.CustomerID != "" {
		t.Error("expected CustomerID to remain unset")
	}
}

func TestLinker_LinkNewConversation_DoesNotClobberExistingFields(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	customers := NewMemoryStore()
	customers.Seed(CustomerRecord{CustomerID: "cust-2", Email: "b@example.com"})

	convs := convstore.NewMemoryStore()
	prior := models.NewConversation("conv-prior", "v1", models.ChannelWhatsApp, now.Add(-time.Hour))
	prior.StructuredMemory.Name = "Old Name"
	if err := convs.Save(ctx, prior); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := customers.LinkConversation(ctx, "cust-2", "conv-prior"); err != nil {
		t.Fatalf("LinkConversation: %v", err)
	}

	linker := New(customers, convs, nil)
	newConv := models.NewConversation("conv-new", "v2", models.ChannelWeb, now)
	newConv.StructuredMemory.Name = "Already Known Name"

	if err := linker.LinkNewConversation(ctx, newConv, UserProfile{Email: "b@example.com"}, now); err != nil {
		t.Fatalf("LinkNewConversation: %v", err)
	}
	if newConv.StructuredMemory.Name != "Already Known Name" {
		t.Errorf("Name = %q, want existing value preserved", newConv.StructuredMemory.Name)
	}
}

func TestMergeStructuredMemory_UnionsOrderNumbersWithoutDuplication(t *testing.T) {
	dst := models.StructuredMemory{OrderNumbers: []string{"ORD-1"}}
	src := models.StructuredMemory{OrderNumbers: []string{"ORD-1", "ORD-2"}}
	mergeStructuredMemory(&dst, src)
	if len(dst.OrderNumbers) != 2 {
		t.Errorf("OrderNumbers = %v, want 2 unique entries", dst.OrderNumbers)
	}
}
