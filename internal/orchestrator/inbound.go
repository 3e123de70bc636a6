package orchestrator

import "github.com/haasonsaas/resolvr/pkg/models"

// UserProfile is the inbound contact information a channel adapter may
// already know about the sender (spec §6).
type UserProfile struct {
	Name  string
	Email string
	Phone string
}

// InboundMessage is the inbound message contract spec §6 defines: what
// a channel webhook adapter (out of core scope) hands the Orchestrator
// for one turn.
type InboundMessage struct {
	Channel        models.Channel
	ConversationID string
	VisitorID      string
	TenantID       string
	UserProfile    UserProfile
	Text           string
	ContactID      string
}
