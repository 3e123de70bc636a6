package vocstore

import (
	"context"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// Store is the capability set a VOC record backend implements.
type Store interface {
	Save(ctx context.Context, record models.VOCRecord) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.VOCRecord, error)
}
