// Package auditchain appends a tamper-evident, hash-linked audit trail.
// Each event's dataHash covers its own fields plus the previous event's
// hash, so altering or deleting any entry breaks every hash computed after
// it — verifiable without trusting the storage layer. Appends are
// fire-and-forget: an audit outage must never block the business
// operation it's recording (spec §4.3), the same stance the teacher's
// audit.Logger takes toward its own buffer-full case.
package auditchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// genesisHash seeds the chain before any event has been appended.
const genesisHash = "genesis"

// store is the persistence contract a Chain delegates to.
type store interface {
	head(ctx context.Context) (string, error)
	setHead(ctx context.Context, hash string) error
	appendEvent(ctx context.Context, e models.AuditEvent) error
	query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error)
	ordered(ctx context.Context, conversationID string) ([]models.AuditEvent, error)
}

// Chain appends audit events onto a SHA-256 hash chain.
type Chain struct {
	store  store
	logger *slog.Logger

	buffer chan appendRequest
	done   chan struct{}
	wg     sync.WaitGroup
}

type appendRequest struct {
	actor          string
	action         string
	category       models.AuditCategory
	conversationID string
	tenantID       string
	details        map[string]any
}

// Config mirrors the teacher's buffered-writer knobs (audit.Config's
// BufferSize/FlushInterval), narrowed to what an append-only chain needs.
type Config struct {
	BufferSize int
}

// DefaultConfig returns sane defaults for the append buffer.
func DefaultConfig() Config {
	return Config{BufferSize: 1000}
}

// New builds a Chain over store and starts its single background append
// worker. A single worker is required, not just convenient: the chain's
// previousHash linkage depends on strictly serialized appends, the same
// way the teacher's writeLoop serializes writes from one goroutine so
// output ordering is never interleaved across producers.
func New(s store, cfg Config, logger *slog.Logger) *Chain {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{
		store:  s,
		logger: logger,
		buffer: make(chan appendRequest, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.drainLoop()
	return c
}

// Close stops accepting new appends and waits for the buffer to drain.
func (c *Chain) Close() {
	close(c.buffer)
	<-c.done
	c.wg.Wait()
}

func (c *Chain) drainLoop() {
	defer c.wg.Done()
	defer close(c.done)
	for req := range c.buffer {
		c.appendNow(context.Background(), req)
	}
}

// Append enqueues an event for the chain. It never blocks the caller past
// a full buffer: when the buffer is full the event is appended inline
// (slower, but never silently dropped), matching the teacher's
// Logger.Log fallback.
func (c *Chain) Append(ctx context.Context, category models.AuditCategory, actor, action, conversationID, tenantID string, details map[string]any) {
	req := appendRequest{
		actor:          actor,
		action:         action,
		category:       category,
		conversationID: conversationID,
		tenantID:       tenantID,
		details:        details,
	}
	select {
	case c.buffer <- req:
	default:
		c.appendNow(ctx, req)
	}
}

func (c *Chain) appendNow(ctx context.Context, req appendRequest) {
	prevHash, err := c.store.head(ctx)
	if err != nil {
		c.logger.Warn("auditchain: failed to read head, using genesis", "error", err)
		prevHash = genesisHash
	}
	if prevHash == "" {
		prevHash = genesisHash
	}

	event := models.AuditEvent{
		EventID:        uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Actor:          req.actor,
		Action:         req.action,
		Category:       req.category,
		ConversationID: req.conversationID,
		TenantID:       req.tenantID,
		Details:        req.details,
		PreviousHash:   prevHash,
	}
	event.DataHash = computeDataHash(event)

	if err := c.store.appendEvent(ctx, event); err != nil {
		c.logger.Warn("auditchain: append failed, event not persisted", "error", err, "action", req.action)
		return
	}
	if err := c.store.setHead(ctx, event.DataHash); err != nil {
		c.logger.Warn("auditchain: failed to advance head", "error", err)
	}
}

// Query returns events matching filter.
func (c *Chain) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	return c.store.query(ctx, filter)
}

// hashInput is the fixed-order field set dataHash covers. Go's
// encoding/json marshals struct fields in declaration order, which is all
// the "canonical JSON" this invariant needs — no generic canonicalizer
// required since the field set is fixed and known up front.
type hashInput struct {
	EventID      string               `json:"eventId"`
	Timestamp    time.Time            `json:"timestamp"`
	Actor        string               `json:"actor"`
	Action       string               `json:"action"`
	Category     models.AuditCategory `json:"category"`
	Details      map[string]any       `json:"details,omitempty"`
	PreviousHash string               `json:"previousHash"`
}

func computeDataHash(e models.AuditEvent) string {
	raw, err := json.Marshal(hashInput{
		EventID:      e.EventID,
		Timestamp:    e.Timestamp,
		Actor:        e.Actor,
		Action:       e.Action,
		Category:     e.Category,
		Details:      e.Details,
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		// Marshal of known-shape, already-validated fields should never
		// fail; fall back to hashing the error itself rather than
		// panicking mid-append.
		raw = []byte(err.Error())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity recomputes the chain and reports the first broken link,
// if any (spec §4.3). When conversationID is empty the full global chain
// is verified, including cross-event previousHash linkage. When
// conversationID is set, verification is scoped to that conversation's
// own events: each event's dataHash is recomputed and checked against its
// stored value (self-consistency), since that conversation's events are
// not necessarily globally adjacent and a broken link to an interleaved,
// unrelated conversation's event would be a false positive.
func (c *Chain) VerifyIntegrity(ctx context.Context, conversationID string) (models.IntegrityReport, error) {
	events, err := c.store.ordered(ctx, conversationID)
	if err != nil {
		return models.IntegrityReport{}, err
	}

	prevHash := genesisHash
	checkLinkage := conversationID == ""
	for _, e := range events {
		recomputed := computeDataHash(e)
		if recomputed != e.DataHash {
			return models.IntegrityReport{Valid: false, BrokenAt: e.EventID}, nil
		}
		if checkLinkage {
			if e.PreviousHash != prevHash {
				return models.IntegrityReport{Valid: false, BrokenAt: e.EventID}, nil
			}
			prevHash = e.DataHash
		}
	}
	return models.IntegrityReport{Valid: true}, nil
}
