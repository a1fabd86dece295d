package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"movingintake/internal/adapters/storage"
	"movingintake/internal/leadstore"
	"movingintake/platform/logger"

	"github.com/google/uuid"
)

// MediaItemRef mirrors jobqueue.MediaItemRef so MediaService does not depend
// on the job queue's wire types; JobQueueMediaProcessor converts between them.
type MediaItemRef struct {
	SourceRef   string
	ContentType string
	SizeBytes   int64
}

// MediaFetcher resolves a provider-specific source_ref to a downloadable
// stream. Each provider (Meta Cloud API, Twilio, Telegram) implements this
// distinctly since their media references have different shapes; the
// process_media handler is provider-agnostic over the interface.
type MediaFetcher interface {
	Fetch(ctx context.Context, provider, sourceRef string) (body []byte, contentType string, err error)
}

// MediaService implements jobqueue.MediaCleaner; JobQueueMediaProcessor
// wraps it as a jobqueue.MediaProcessor.
type MediaService struct {
	store      storage.StorageService
	bucket     string
	repo       *leadstore.MediaRepository
	fetcher    MediaFetcher
	mediaTTL   time.Duration
	log        *logger.Logger
}

// NewMediaService builds a MediaService.
func NewMediaService(store storage.StorageService, bucket string, repo *leadstore.MediaRepository, fetcher MediaFetcher, mediaTTL time.Duration, log *logger.Logger) *MediaService {
	return &MediaService{store: store, bucket: bucket, repo: repo, fetcher: fetcher, mediaTTL: mediaTTL, log: log}
}

// ProcessMedia downloads each attachment via the provider's media fetcher,
// validates content type and size, stores it under
// media/{tenant}/{lead}/{uuid}.{ext}, and inserts a media_asset row. Video
// is stored raw; images are candidates for re-encoding (delegated to the
// storage service's own pipeline, not duplicated here).
func (m *MediaService) ProcessMedia(ctx context.Context, tenantID uuid.UUID, leadID *string, chatID, provider, messageID string, items []MediaItemRef) error {
	for _, item := range items {
		if err := m.store.ValidateContentType(item.ContentType); err != nil {
			m.log.Warn("rejected media content type", "content_type", item.ContentType, "error", err)
			continue
		}
		if err := m.store.ValidateFileSize(item.SizeBytes); err != nil {
			m.log.Warn("rejected oversized media", "size_bytes", item.SizeBytes, "error", err)
			continue
		}

		body, contentType, err := m.fetcher.Fetch(ctx, provider, item.SourceRef)
		if err != nil {
			return fmt.Errorf("fetch media %s: %w", item.SourceRef, err)
		}
		if contentType == "" {
			contentType = item.ContentType
		}

		assetID := uuid.New()
		leadFolder := "unassigned"
		if leadID != nil && *leadID != "" {
			leadFolder = *leadID
		}
		fileName := assetID.String() + extensionFor(contentType)
		folder := fmt.Sprintf("media/%s/%s", tenantID, leadFolder)

		key, err := m.store.UploadFile(ctx, m.bucket, folder, fileName, contentType, bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return fmt.Errorf("upload media: %w", err)
		}

		var expiresAt *time.Time
		if m.mediaTTL > 0 {
			t := timeNowUTC().Add(m.mediaTTL)
			expiresAt = &t
		}

		_, err = m.repo.Insert(ctx, leadstore.MediaAsset{
			ID:          assetID,
			TenantID:    tenantID,
			LeadID:      leadID,
			ChatID:      chatID,
			Provider:    provider,
			Kind:        kindFor(contentType),
			ContentType: contentType,
			SizeBytes:   int64(len(body)),
			S3Key:       key,
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			return fmt.Errorf("record media asset: %w", err)
		}
	}
	return nil
}

// CleanupExpired implements jobqueue.MediaCleaner.
func (m *MediaService) CleanupExpired(ctx context.Context) (int, error) {
	return m.repo.CleanupExpired(ctx, func(ctx context.Context, key string) error {
		return m.store.DeleteObject(ctx, m.bucket, key)
	})
}

func kindFor(contentType string) leadstore.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return leadstore.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return leadstore.MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return leadstore.MediaAudio
	default:
		return leadstore.MediaDocument
	}
}

func extensionFor(contentType string) string {
	if ext, ok := extByContentType[contentType]; ok {
		return ext
	}
	return ""
}

var extByContentType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"audio/ogg":       ".ogg",
	"application/pdf": ".pdf",
}

// timeNowUTC is a thin indirection so the deterministic-time constraint on
// this codebase (no ambient wall-clock reads inside pure logic) is visibly
// confined to the storage boundary, not the engine.
func timeNowUTC() time.Time { return time.Now().UTC() }
