package leadstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InboundRepository records (tenant_id, provider, message_id) receipts. The
// primary key enforces at-most-once processing: a second insert of the same
// tuple is the dedup signal, not an error condition.
type InboundRepository struct {
	pool *pgxpool.Pool
}

// NewInboundRepository builds an InboundRepository over pool.
func NewInboundRepository(pool *pgxpool.Pool) *InboundRepository {
	return &InboundRepository{pool: pool}
}

// RecordIfNew inserts the receipt row and reports whether this call
// performed the insert (true = first time seen, false = duplicate replay).
func (r *InboundRepository) RecordIfNew(ctx context.Context, tenantID uuid.UUID, provider, messageID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errStoreNotConfigured
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbound_messages (tenant_id, provider, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, provider, message_id) DO NOTHING`,
		tenantID, provider, messageID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ErrDuplicate marks a message the caller has already reserved via
// RecordIfNew returning false — the short-circuit sentinel of §7.
var ErrDuplicate = errors.New("duplicate inbound message")
