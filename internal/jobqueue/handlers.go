package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Handler executes one claimed job. A handler that observes a duplicate
// idempotency key with a visible side effect must no-op rather than error.
type Handler func(ctx context.Context, job Job) error

// JobType names, matching the role-to-handler map in the spec.
const (
	JobOutboundReply     = "outbound_reply"
	JobProcessMedia      = "process_media"
	JobNotifyOperator    = "notify_operator"
	JobNotifyCrewFallback = "notify_crew_fallback"
)

// RoleHandlerSet returns the job types a worker running the given role is
// permitted to claim and execute. Unknown or out-of-role types are left
// pending and skipped by this worker instance.
func RoleHandlerSet(role string) []string {
	switch role {
	case "core":
		return []string{JobOutboundReply, JobProcessMedia, JobNotifyOperator}
	case "dispatch":
		return []string{JobNotifyCrewFallback}
	case "all":
		return []string{JobOutboundReply, JobProcessMedia, JobNotifyOperator, JobNotifyCrewFallback}
	default:
		return nil
	}
}

// ChannelSender delivers an outbound message via the channel adapter bound
// to a tenant. Implemented by internal/whatsapp.Adapter, which resolves the
// tenant's gateway credentials through internal/tenants.
type ChannelSender interface {
	Send(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []OutboundButton) error
}

// OutboundButton is a provider-agnostic quick-reply button.
type OutboundButton struct {
	Payload string `json:"payload"`
	Label   string `json:"label"`
}

// MediaProcessor downloads, validates, and stores media attachments.
type MediaProcessor interface {
	ProcessMedia(ctx context.Context, tenantID uuid.UUID, leadID *string, chatID, provider, messageID string, items []MediaItemRef) error
}

// MediaItemRef mirrors an inbound media attachment as carried in a job payload.
type MediaItemRef struct {
	SourceRef   string `json:"source_ref"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// OperatorNotifier delivers the finalized lead (or its crew-safe projection)
// to the operator channel.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, tenantID uuid.UUID, leadID string) error
	NotifyCrewFallback(ctx context.Context, tenantID uuid.UUID, leadID string) error
}

// Payload shapes for each job type, matching the wire format enqueued by
// the conversation engine and ingress handler.
type OutboundReplyPayload struct {
	Provider string           `json:"provider"`
	ChatID   string           `json:"chat_id"`
	Text     string           `json:"text"`
	Buttons  []OutboundButton `json:"buttons,omitempty"`
}

type ProcessMediaPayload struct {
	Provider  string         `json:"provider"`
	ChatID    string         `json:"chat_id"`
	LeadID    *string        `json:"lead_id,omitempty"`
	MessageID string         `json:"message_id"`
	Items     []MediaItemRef `json:"media_items"`
}

type NotifyOperatorPayload struct {
	LeadID string `json:"lead_id"`
	// IdempotencyKey, when present, gates the notifier call: a job carrying
	// a key already claimed by a prior attempt no-ops instead of re-sending.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type NotifyCrewFallbackPayload struct {
	LeadID         string `json:"lead_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// IdempotencyStore claims a job-level idempotency key exactly once. Satisfied
// by *Repository; handlers with a visible side effect consult it before
// acting so a retried job (lease recovery, a failed Complete call) never
// repeats that side effect.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error)
}

// Dispatcher wires the job-type-to-handler map used by Worker.
type Dispatcher struct {
	sender      ChannelSender
	media       MediaProcessor
	notifier    OperatorNotifier
	mediaRepo   MediaCleaner
	idempotency IdempotencyStore
}

// MediaCleaner deletes expired media assets; the media_cleanup handler and
// the scheduler's sweep tick both call through this interface.
type MediaCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// NewDispatcher builds the handler map given the concrete adapters.
func NewDispatcher(sender ChannelSender, media MediaProcessor, notifier OperatorNotifier, mediaCleaner MediaCleaner, idempotency IdempotencyStore) *Dispatcher {
	return &Dispatcher{sender: sender, media: media, notifier: notifier, mediaRepo: mediaCleaner, idempotency: idempotency}
}

// claimOnce reports whether the caller should proceed with a visible side
// effect for the given key. A nil store or empty key always proceeds.
func (d *Dispatcher) claimOnce(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	if d.idempotency == nil || key == "" {
		return true, nil
	}
	return d.idempotency.ClaimIdempotencyKey(ctx, tenantID, key)
}

// Handlers returns the job_type -> Handler map for all known job types.
// The Worker filters this map down to the role's allowed set.
func (d *Dispatcher) Handlers() map[string]Handler {
	return map[string]Handler{
		JobOutboundReply:      d.handleOutboundReply,
		JobProcessMedia:       d.handleProcessMedia,
		JobNotifyOperator:     d.handleNotifyOperator,
		JobNotifyCrewFallback: d.handleNotifyCrewFallback,
	}
}

func (d *Dispatcher) handleOutboundReply(ctx context.Context, job Job) error {
	var p OutboundReplyPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal outbound_reply payload: %w", err)
	}
	return d.sender.Send(ctx, job.TenantID, p.Provider, p.ChatID, p.Text, p.Buttons)
}

func (d *Dispatcher) handleProcessMedia(ctx context.Context, job Job) error {
	var p ProcessMediaPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal process_media payload: %w", err)
	}
	// Lead association always comes from the job payload, never the live
	// session, to avoid a race with finalization deleting the session.
	return d.media.ProcessMedia(ctx, job.TenantID, p.LeadID, p.ChatID, p.Provider, p.MessageID, p.Items)
}

func (d *Dispatcher) handleNotifyOperator(ctx context.Context, job Job) error {
	var p NotifyOperatorPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal notify_operator payload: %w", err)
	}
	first, err := d.claimOnce(ctx, job.TenantID, p.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("claim notify_operator idempotency key: %w", err)
	}
	if !first {
		return nil
	}
	return d.notifier.NotifyOperator(ctx, job.TenantID, p.LeadID)
}

func (d *Dispatcher) handleNotifyCrewFallback(ctx context.Context, job Job) error {
	var p NotifyCrewFallbackPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal notify_crew_fallback payload: %w", err)
	}
	first, err := d.claimOnce(ctx, job.TenantID, p.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("claim notify_crew_fallback idempotency key: %w", err)
	}
	if !first {
		return nil
	}
	return d.notifier.NotifyCrewFallback(ctx, job.TenantID, p.LeadID)
}

// MediaCleanup runs the media_cleanup sweep (Worker.MediaCleanup delegates
// here for scheduler.SweepHandler): scan media_assets past expiry, delete
// the object then the row. Idempotent.
func (d *Dispatcher) MediaCleanup(ctx context.Context) error {
	if d.mediaRepo == nil {
		return nil
	}
	_, err := d.mediaRepo.CleanupExpired(ctx)
	return err
}
