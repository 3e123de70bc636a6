// Package customerlink implements the Customer Linker / Context Merger
// (C12): joining conversations across channels by phone/email and
// merging structured memory from the most recent cross-channel
// conversation into a freshly created one.
package customerlink

import (
	"context"
	"log/slog"
	"time"

	"github.com/haasonsaas/resolvr/internal/convstore"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// UserProfile is the inbound message contract's optional identity hints
// (spec §6: "userProfile{name?,email?,phone?}").
type UserProfile struct {
	Name  string
	Email string
	Phone string
}

// CustomerRecord is a resolved customer identity plus the conversation
// ids known to belong to them.
type CustomerRecord struct {
	CustomerID string
	Phone      string
	Email      string
	Name       string
}

// Linker resolves a customer identity for an inbound profile and merges
// their most recent cross-channel conversation's structured memory into
// a newly created record.
type Linker struct {
	customers Store
	conv      convstore.Store
	logger    *slog.Logger
}

// New builds a Linker backed by a customer Store and the Conversation
// Store (C5), so it can load the candidate conversation to merge from.
func New(customers Store, conv convstore.Store, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{customers: customers, conv: conv, logger: logger}
}

// recentConversationLimit bounds how many linked conversation ids are
// fetched per lookup.
const recentConversationLimit = 10

// LinkNewConversation performs orchestrator step 1's omnichannel
// linking for a freshly created conversation: resolve the customer by
// phone/email, fetch their recent linked conversation ids, merge
// structured memory from the most recent one, and record the link.
// A cache miss (no matching customer, or no prior conversations) is not
// an error — the record is simply left unlinked.
func (l *Linker) LinkNewConversation(ctx context.Context, record *models.Conversation, profile UserProfile, now time.Time) error {
	customer, found, err := l.resolveCustomer(ctx, profile)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	record.CustomerID = customer.CustomerID
	if err := l.customers.LinkConversation(ctx, customer.CustomerID, record.ConversationID); err != nil {
		l.logger.Warn("customerlink: failed to record conversation link", "customer_id", customer.CustomerID, "error", err)
	}

	linkedIDs, err := l.customers.RecentConversationIDs(ctx, customer.CustomerID, recentConversationLimit)
	if err != nil {
		l.logger.Warn("customerlink: failed to list recent conversations", "customer_id", customer.CustomerID, "error", err)
		return nil
	}
	record.LinkedConversationIDs = linkedIDs
	if len(linkedIDs) == 0 {
		return nil
	}

	source, ok, err := l.conv.Get(ctx, linkedIDs[0])
	if err != nil || !ok {
		return nil
	}

	mergeStructuredMemory(&record.StructuredMemory, source.StructuredMemory)
	record.AppendTurn(models.Turn{
		Role:      models.RoleSystem,
		Content:   "Continuing from a prior conversation on " + string(source.SourceChannel) + " (" + source.ConversationID + ").",
		Timestamp: now,
	})
	return nil
}

func (l *Linker) resolveCustomer(ctx context.Context, profile UserProfile) (*CustomerRecord, bool, error) {
	if profile.Phone != "" {
		if c, ok, err := l.customers.FindByPhone(ctx, profile.Phone); err != nil {
			return nil, false, err
		} else if ok {
			return c, true, nil
		}
	}
	if profile.Email != "" {
		if c, ok, err := l.customers.FindByEmail(ctx, profile.Email); err != nil {
			return nil, false, err
		} else if ok {
			return c, true, nil
		}
	}
	return nil, false, nil
}

// mergeStructuredMemory fills fields in dst that are empty from src,
// and unions slice/map fields, so a new conversation inherits what's
// known without clobbering anything already populated on dst.
func mergeStructuredMemory(dst *models.StructuredMemory, src models.StructuredMemory) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Company == "" {
		dst.Company = src.Company
	}
	if dst.Intent == "" {
		dst.Intent = src.Intent
	}
	for _, interest := range src.ProductInterest {
		if !containsString(dst.ProductInterest, interest) {
			dst.ProductInterest = append(dst.ProductInterest, interest)
		}
	}
	for _, orderNo := range src.OrderNumbers {
		dst.MergeOrderNumber(orderNo)
	}
	if len(src.OrderDataCache) > 0 {
		if dst.OrderDataCache == nil {
			dst.OrderDataCache = make(map[string]models.CachedOrder, len(src.OrderDataCache))
		}
		for k, v := range src.OrderDataCache {
			if _, exists := dst.OrderDataCache[k]; !exists {
				dst.OrderDataCache[k] = v
			}
		}
	}
	if len(src.CustomFields) > 0 {
		if dst.CustomFields == nil {
			dst.CustomFields = make(map[string]any, len(src.CustomFields))
		}
		for k, v := range src.CustomFields {
			if _, exists := dst.CustomFields[k]; !exists {
				dst.CustomFields[k] = v
			}
		}
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
