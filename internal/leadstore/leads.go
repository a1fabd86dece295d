// Package leadstore persists finalized leads, inbound-message dedup rows,
// and media asset metadata. Every method follows the same defensive-nil
// idiom as the other repositories: a store built over a nil pool returns an error
// instead of panicking, so composition roots can wire stores before the
// pool is ready.
package leadstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errStoreNotConfigured = errors.New("lead store not configured")

// Status is the lifecycle state of a finalized lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusRejected   Status = "rejected"
)

// Lead is a persisted finalized artifact.
type Lead struct {
	TenantID uuid.UUID
	LeadID   string
	ChatID   string
	LeadSeq  int64
	Status   Status
	Payload  json.RawMessage
}

// LeadRepository is the pgx-backed store for the leads table.
type LeadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository builds a LeadRepository over pool.
func NewLeadRepository(pool *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{pool: pool}
}

// SaveLead inserts the finalized lead, assigning lead_seq exactly once from
// the leads_lead_seq_seq sequence. A duplicate (tenant_id, lead_id) — e.g. a
// retried finalization after the session delete failed — is a no-op and
// returns the row's existing lead_seq rather than erroring, since the
// idempotency contract requires at most one Lead row per finalization.
func (r *LeadRepository) SaveLead(ctx context.Context, tenantID uuid.UUID, leadID, chatID string, status Status, payload any) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errStoreNotConfigured
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	var leadSeq int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO leads (tenant_id, lead_id, chat_id, status, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, lead_id) DO UPDATE SET tenant_id = leads.tenant_id
		RETURNING lead_seq`,
		tenantID, leadID, chatID, string(status), payloadBytes,
	).Scan(&leadSeq)
	if err != nil {
		return 0, err
	}
	return leadSeq, nil
}

// GetByID loads one lead, used by the notification handlers.
func (r *LeadRepository) GetByID(ctx context.Context, tenantID uuid.UUID, leadID string) (Lead, error) {
	if r == nil || r.pool == nil {
		return Lead{}, errStoreNotConfigured
	}
	var l Lead
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, lead_id, chat_id, lead_seq, status, payload
		FROM leads WHERE tenant_id = $1 AND lead_id = $2 AND deleted_at IS NULL`,
		tenantID, leadID,
	).Scan(&l.TenantID, &l.LeadID, &l.ChatID, &l.LeadSeq, &status, &l.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	l.Status = Status(status)
	return l, err
}

// ErrLeadNotFound is returned when a lead lookup misses.
var ErrLeadNotFound = errors.New("lead not found")
