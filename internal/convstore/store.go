// Package convstore is the durable Conversation Store (C5): get/save/
// delete for conversation records, with turn trimming on save and a
// 24-hour TTL, backed by either an in-memory map or Redis.
package convstore

import (
	"context"
	"time"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// MaxTurns is the non-system turn retention ceiling applied on every
// save, per spec §4.5.
const MaxTurns = 20

// TTL is how long a saved conversation record lives before expiring.
const TTL = 24 * time.Hour

// Store is the capability set a conversation backend implements.
type Store interface {
	Get(ctx context.Context, id string) (*models.Conversation, bool, error)
	Save(ctx context.Context, conv *models.Conversation) error
	Delete(ctx context.Context, id string) error
}

// trimTurns keeps every system turn plus the last maxNonSystem
// non-system turns, in original order. Direct generalization of
// internal/sessions/compaction.go's compactLastN, generalized from
// *models.Message to models.Turn and with PreserveSystemMessages always
// on (the spec invariant doesn't make it optional).
func trimTurns(turns []models.Turn, maxNonSystem int) []models.Turn {
	nonSystemCount := 0
	for _, t := range turns {
		if t.Role != models.RoleSystem {
			nonSystemCount++
		}
	}
	if nonSystemCount <= maxNonSystem {
		return turns
	}

	toDrop := nonSystemCount - maxNonSystem
	out := make([]models.Turn, 0, len(turns))
	dropped := 0
	for _, t := range turns {
		if t.Role != models.RoleSystem && dropped < toDrop {
			dropped++
			continue
		}
		out = append(out, t)
	}
	return out
}

// prepareForSave applies the trim invariant and refreshes UpdatedAt. It
// mutates a copy, never the caller's record, so callers that hold onto
// their reference don't observe surprise trimming mid-pipeline.
func prepareForSave(conv *models.Conversation, now time.Time) models.Conversation {
	clone := *conv
	clone.Turns = trimTurns(conv.Turns, MaxTurns)
	clone.UpdatedAt = now
	if clone.StructuredMemory.CustomFields != nil {
		cloned := make(map[string]any, len(clone.StructuredMemory.CustomFields))
		for k, v := range clone.StructuredMemory.CustomFields {
			cloned[k] = v
		}
		clone.StructuredMemory.CustomFields = cloned
	}
	return clone
}
