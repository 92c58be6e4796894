// Package store persists the audit trail of upstream calls and a TTL'd
// cache of decoded cases. Persistence is best-effort: an investigation never
// fails because its audit write did.
package store

import (
	"context"
	"time"

	"github.com/juristec/caseintel/internal/model"
)

// Audit outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// AuditEntry is one recorded upstream interaction.
type AuditEntry struct {
	ID         string    `json:"id"`
	CaseNumber string    `json:"case_number"`
	Operation  string    `json:"operation"` // fetch-case, fetch-documents, ...
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	RawSize    int       `json:"raw_size"` // response bytes, 0 on failure
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the persistence interface for audit and case caching.
type Store interface {
	// Audit
	RecordAudit(ctx context.Context, entry AuditEntry) error
	RecordAuditBatch(ctx context.Context, entries []AuditEntry) error
	ListAudit(ctx context.Context, caseNumber string, limit int) ([]AuditEntry, error)

	// Case cache
	GetCachedCase(ctx context.Context, caseNumber string) (*model.Case, error)
	SetCachedCase(ctx context.Context, c *model.Case, ttl time.Duration) error
	DeleteExpiredCases(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Nop is the store used when no driver is configured.
type Nop struct{}

func (Nop) RecordAudit(context.Context, AuditEntry) error          { return nil }
func (Nop) RecordAuditBatch(context.Context, []AuditEntry) error   { return nil }
func (Nop) ListAudit(context.Context, string, int) ([]AuditEntry, error) {
	return nil, nil
}
func (Nop) GetCachedCase(context.Context, string) (*model.Case, error) { return nil, nil }
func (Nop) SetCachedCase(context.Context, *model.Case, time.Duration) error {
	return nil
}
func (Nop) DeleteExpiredCases(context.Context) (int, error) { return 0, nil }
func (Nop) Migrate(context.Context) error                   { return nil }
func (Nop) Close() error                                    { return nil }

var _ Store = Nop{}
