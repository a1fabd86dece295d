package tenants

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errRepoNotConfigured = errors.New("tenant repository not configured")

// Tenant is a row of the tenants table.
type Tenant struct {
	ID       uuid.UUID
	IsActive bool
	Config   json.RawMessage
}

// ChannelBinding is a row of the channel_bindings table: an encrypted
// credential blob scoped to one tenant+provider, keyed for lookup by the
// provider's own account identifier.
type ChannelBinding struct {
	TenantID          uuid.UUID
	Provider          string
	ProviderAccountID string
	EncryptedCreds    []byte
	IsActive          bool
}

// Repository is the pgx-backed store for tenants and channel_bindings.
type Repository struct {
	pool *pgxpool.Pool
}

// New builds a Repository over pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindBindingByAccount resolves the active binding for (provider,
// provider_account_id). The partial unique index on active bindings
// guarantees at most one row.
func (r *Repository) FindBindingByAccount(ctx context.Context, provider, providerAccountID string) (ChannelBinding, error) {
	if r == nil || r.pool == nil {
		return ChannelBinding{}, errRepoNotConfigured
	}
	var b ChannelBinding
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, provider, provider_account_id, encrypted_creds, is_active
		FROM channel_bindings
		WHERE provider = $1 AND provider_account_id = $2 AND is_active`,
		provider, providerAccountID,
	).Scan(&b.TenantID, &b.Provider, &b.ProviderAccountID, &b.EncryptedCreds, &b.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelBinding{}, ErrTenantNotFound
	}
	if err != nil {
		return ChannelBinding{}, err
	}
	return b, nil
}

// GetTenant loads a tenant row by id.
func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if r == nil || r.pool == nil {
		return Tenant{}, errRepoNotConfigured
	}
	var t Tenant
	err := r.pool.QueryRow(ctx,
		`SELECT id, is_active, config FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.IsActive, &t.Config)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrTenantNotFound
	}
	return t, err
}
