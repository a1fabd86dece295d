package leadstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MediaKind classifies a stored asset for content-type-specific handling
// (e.g. images may be re-encoded, video is stored raw).
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// MediaAsset is a row of the media_assets table. Only a UUID key and the
// object storage key are persisted — no public URL is ever stored.
type MediaAsset struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	LeadID      *string
	ChatID      string
	Provider    string
	Kind        MediaKind
	ContentType string
	SizeBytes   int64
	S3Key       string
	ExpiresAt   *time.Time
}

// MediaRepository is the pgx-backed store for media_assets.
type MediaRepository struct {
	pool *pgxpool.Pool
}

// NewMediaRepository builds a MediaRepository over pool.
func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

// Insert records one stored media asset.
func (r *MediaRepository) Insert(ctx context.Context, a MediaAsset) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errStoreNotConfigured
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO media_assets (id, tenant_id, lead_id, chat_id, provider, kind, content_type, size_bytes, s3_key, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.TenantID, a.LeadID, a.ChatID, a.Provider, string(a.Kind), a.ContentType, a.SizeBytes, a.S3Key, a.ExpiresAt,
	)
	return a.ID, err
}

// CleanupExpired deletes rows past expires_at and returns how many were
// removed. Object-storage deletion is the caller's responsibility, invoked
// before the row delete so a crash leaves an orphaned object rather than a
// dangling row pointing at a deleted object.
func (r *MediaRepository) CleanupExpired(ctx context.Context, deleteObject func(ctx context.Context, s3Key string) error) (int, error) {
	if r == nil || r.pool == nil {
		return 0, errStoreNotConfigured
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, s3_key FROM media_assets WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return 0, err
	}

	type expired struct {
		id  uuid.UUID
		key string
	}
	var batch []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.id, &e.key); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, e := range batch {
		if deleteObject != nil {
			if err := deleteObject(ctx, e.key); err != nil {
				continue // leave the row for the next sweep rather than losing the pointer
			}
		}
		if _, err := r.pool.Exec(ctx, `DELETE FROM media_assets WHERE id = $1`, e.id); err != nil {
			continue
		}
		count++
	}
	return count, nil
}
