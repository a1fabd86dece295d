package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errStoreNotConfigured = errors.New("session store not configured")

// ErrSessionNotFound is returned by Load when no session exists yet for
// (tenant_id, chat_id) — the caller should start one with NewSession.
var ErrSessionNotFound = errors.New("session not found")

// ErrStaleSession is returned by Save when the row's updated_at moved since
// Load, meaning a concurrent turn already advanced this conversation. The
// caller should discard its transition and let the other turn's reply win.
var ErrStaleSession = errors.New("session updated concurrently")

// sessionRow is the scan target for one sessions row; only Data is stored
// as JSON, in the data column.
type sessionRow struct {
	LeadID    string   `json:"lead_id"`
	BotType   string   `json:"bot_type"`
	Step      Step     `json:"step"`
	Data      LeadData `json:"data"`
	Language  string   `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists SessionState rows, one per (tenant_id, chat_id), with
// optimistic-overwrite semantics: Save fails with ErrStaleSession if another
// turn already wrote a newer updated_at, matching the job queue repository's
// own claim-then-verify style of protecting against concurrent processing.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load fetches the current session for (tenantID, chatID), if any.
func (s *Store) Load(ctx context.Context, tenantID uuid.UUID, chatID string) (SessionState, error) {
	if s == nil || s.pool == nil {
		return SessionState{}, errStoreNotConfigured
	}
	var row sessionRow
	var payload []byte
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT lead_id, bot_type, step, data, language, created_at, updated_at
		FROM sessions WHERE tenant_id = $1 AND chat_id = $2`,
		tenantID, chatID,
	).Scan(&row.LeadID, &row.BotType, &row.Step, &payload, &row.Language, &row.CreatedAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionState{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionState{}, err
	}
	if err := json.Unmarshal(payload, &row.Data); err != nil {
		return SessionState{}, err
	}
	return SessionState{
		TenantID:  tenantID,
		ChatID:    chatID,
		LeadID:    row.LeadID,
		BotType:   row.BotType,
		Step:      row.Step,
		Data:      row.Data,
		Language:  row.Language,
		CreatedAt: row.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Insert creates a brand new session row. Callers use this only for the
// first turn of a conversation; every later turn goes through Save.
func (s *Store) Insert(ctx context.Context, state SessionState) error {
	if s == nil || s.pool == nil {
		return errStoreNotConfigured
	}
	payload, err := json.Marshal(state.Data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (tenant_id, chat_id, lead_id, bot_type, step, data, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, chat_id) DO NOTHING`,
		state.TenantID, state.ChatID, state.LeadID, state.BotType, state.Step, payload,
		state.Language, state.CreatedAt, state.UpdatedAt,
	)
	return err
}

// Save writes an advanced state back, guarded by the updated_at value the
// caller originally loaded (observedUpdatedAt). A mismatch means another
// concurrent delivery already advanced the session first.
func (s *Store) Save(ctx context.Context, state SessionState, observedUpdatedAt time.Time) error {
	if s == nil || s.pool == nil {
		return errStoreNotConfigured
	}
	payload, err := json.Marshal(state.Data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET step = $1, data = $2, language = $3, updated_at = $4
		WHERE tenant_id = $5 AND chat_id = $6 AND updated_at = $7`,
		state.Step, payload, state.Language, state.UpdatedAt,
		state.TenantID, state.ChatID, observedUpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleSession
	}
	return nil
}

// Delete removes a session row, called once a conversation reaches StepDone
// and has been finalized into a Lead.
func (s *Store) Delete(ctx context.Context, tenantID uuid.UUID, chatID string) error {
	if s == nil || s.pool == nil {
		return errStoreNotConfigured
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE tenant_id = $1 AND chat_id = $2`, tenantID, chatID)
	return err
}
