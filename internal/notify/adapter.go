package notify

import (
	"context"

	"movingintake/internal/jobqueue"

	"github.com/google/uuid"
)

// JobQueueMediaProcessor exposes MediaService as a jobqueue.MediaProcessor.
// MediaService itself takes the package-local MediaItemRef so it stays
// independent of the job queue's wire types; this thin adapter is the only
// place the two shapes meet.
type JobQueueMediaProcessor struct{ *MediaService }

// ProcessMedia implements jobqueue.MediaProcessor.
func (a JobQueueMediaProcessor) ProcessMedia(ctx context.Context, tenantID uuid.UUID, leadID *string, chatID, provider, messageID string, items []jobqueue.MediaItemRef) error {
	converted := make([]MediaItemRef, len(items))
	for i, it := range items {
		converted[i] = MediaItemRef{SourceRef: it.SourceRef, ContentType: it.ContentType, SizeBytes: it.SizeBytes}
	}
	return a.MediaService.ProcessMedia(ctx, tenantID, leadID, chatID, provider, messageID, converted)
}
