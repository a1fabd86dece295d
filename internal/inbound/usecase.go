// Package inbound implements the ingress use case shared by every provider
// webhook: normalize the provider's event, resolve the tenant, deduplicate
// by message id, advance the conversation engine, persist the result, and
// enqueue the side-effecting jobs the transition calls for. None of this is
// provider-specific — that lives one layer up, in the webhook handler that
// turns a provider's wire format into a ProviderEvent.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movingintake/internal/engine"
	"movingintake/internal/jobqueue"
	"movingintake/internal/leadstore"
	"movingintake/internal/pricing"
	"movingintake/internal/tenants"
	"movingintake/platform/logger"

	"github.com/google/uuid"
)

// ProviderEvent is the normalized shape every provider adapter (WhatsApp
// gateway, Meta Cloud API, Telegram) reduces its webhook payload to before
// handing it to UseCase.Handle. Producing this normalization is the provider
// adapter's job, and is out of scope here — see internal/whatsapp for the
// one gateway this repository wires end to end.
type ProviderEvent struct {
	Provider          string
	ProviderAccountID string // the tenant-identifying account/number the message arrived on
	ChatID            string
	MessageID         string
	Event             engine.InputEvent
}

// UseCase is the ingress orchestrator. It holds no HTTP concerns; the gin
// module in this package is a thin adapter over it.
type UseCase struct {
	tenants    *tenants.Service
	inbound    *leadstore.InboundRepository
	sessions   *engine.Store
	leads      *leadstore.LeadRepository
	jobs       *jobqueue.Repository
	catalog    *pricing.Catalog
	cfg        engine.Config
	clock      engine.Clock
	log        *logger.Logger
	sessionTTL time.Duration // sessions untouched longer than this are discarded, not resumed
}

// NewUseCase builds the ingress orchestrator.
func NewUseCase(
	tenantSvc *tenants.Service,
	inbound *leadstore.InboundRepository,
	sessions *engine.Store,
	leads *leadstore.LeadRepository,
	jobs *jobqueue.Repository,
	catalog *pricing.Catalog,
	cfg engine.Config,
	clock engine.Clock,
	log *logger.Logger,
	sessionTTL time.Duration,
) *UseCase {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &UseCase{
		tenants: tenantSvc, inbound: inbound, sessions: sessions, leads: leads,
		jobs: jobs, catalog: catalog, cfg: cfg, clock: clock, log: log,
		sessionTTL: sessionTTL,
	}
}

// Handle runs the full ingress pipeline for one provider event. It returns
// nil for a duplicate replay (already handled, nothing more to do) so
// callers can always ack the webhook.
func (u *UseCase) Handle(ctx context.Context, ev ProviderEvent) error {
	tc, err := u.tenants.Resolve(ctx, ev.Provider, ev.ProviderAccountID)
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}

	if ev.MessageID != "" {
		isNew, err := u.inbound.RecordIfNew(ctx, tc.TenantID, ev.Provider, ev.MessageID)
		if err != nil {
			return fmt.Errorf("record inbound message: %w", err)
		}
		if !isNew {
			u.log.Info("duplicate inbound message, skipping", "provider", ev.Provider, "message_id", ev.MessageID)
			return nil
		}
	}

	state, observedUpdatedAt, isFresh, err := u.loadOrCreateSession(ctx, tc.TenantID, ev.ChatID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	newState, reply, terminal := engine.Advance(u.cfg, u.catalog, state, ev.Event, u.clock)

	if err := u.persistTransition(ctx, state, newState, observedUpdatedAt, isFresh); err != nil {
		return fmt.Errorf("persist session transition: %w", err)
	}

	if _, err := u.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		TenantID: tc.TenantID,
		JobType:  jobqueue.JobOutboundReply,
		Payload: jobqueue.OutboundReplyPayload{
			Provider: ev.Provider,
			ChatID:   ev.ChatID,
			Text:     reply.Text,
			Buttons:  toOutboundButtons(reply.Buttons),
		},
	}); err != nil {
		return fmt.Errorf("enqueue outbound_reply: %w", err)
	}

	if len(ev.Event.Media) > 0 {
		if err := u.enqueueProcessMedia(ctx, tc.TenantID, ev, newState.LeadID); err != nil {
			return fmt.Errorf("enqueue process_media: %w", err)
		}
	}

	if terminal {
		if err := u.finalize(ctx, tc.TenantID, ev.ChatID, newState); err != nil {
			return fmt.Errorf("finalize lead: %w", err)
		}
	}

	return nil
}

func (u *UseCase) loadOrCreateSession(ctx context.Context, tenantID uuid.UUID, chatID string) (engine.SessionState, time.Time, bool, error) {
	state, err := u.sessions.Load(ctx, tenantID, chatID)
	if errors.Is(err, engine.ErrSessionNotFound) {
		fresh := engine.NewSession(tenantID, chatID, "ru", u.clock)
		return fresh, fresh.UpdatedAt, true, nil
	}
	if err != nil {
		return engine.SessionState{}, time.Time{}, false, err
	}
	if u.sessionExpired(state) {
		if err := u.sessions.Delete(ctx, tenantID, chatID); err != nil {
			return engine.SessionState{}, time.Time{}, false, err
		}
		fresh := engine.NewSession(tenantID, chatID, state.Language, u.clock)
		return fresh, fresh.UpdatedAt, true, nil
	}
	return state, state.UpdatedAt, false, nil
}

// sessionExpired reports whether a loaded session sat untouched past the
// TTL and should be discarded rather than resumed. This is distinct from
// the shorter "still there?" hint threshold in engine.Config, which keeps
// a merely-stale session alive.
func (u *UseCase) sessionExpired(state engine.SessionState) bool {
	if u.sessionTTL <= 0 || state.UpdatedAt.IsZero() {
		return false
	}
	return u.clock.Now().Sub(state.UpdatedAt) > u.sessionTTL
}

func (u *UseCase) persistTransition(ctx context.Context, prior, next engine.SessionState, observedUpdatedAt time.Time, isFresh bool) error {
	if isFresh {
		return u.sessions.Insert(ctx, next)
	}
	err := u.sessions.Save(ctx, next, observedUpdatedAt)
	if errors.Is(err, engine.ErrStaleSession) {
		// A concurrent turn for the same chat already advanced this
		// conversation first; this turn's reply and jobs are still enqueued
		// against the state it read, which is an accepted at-least-once
		// trade-off for a chat interface. The conflict is logged, not
		// returned.
		u.log.Warn("stale session write, concurrent turn already advanced", "chat_id", next.ChatID)
		return nil
	}
	return err
}

func (u *UseCase) enqueueProcessMedia(ctx context.Context, tenantID uuid.UUID, ev ProviderEvent, leadID string) error {
	items := make([]jobqueue.MediaItemRef, 0, len(ev.Event.Media))
	for _, m := range ev.Event.Media {
		items = append(items, jobqueue.MediaItemRef{SourceRef: m.SourceRef, ContentType: m.ContentType, SizeBytes: m.SizeBytes})
	}
	var leadRef *string
	if leadID != "" {
		leadRef = &leadID
	}
	_, err := u.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		TenantID: tenantID,
		JobType:  jobqueue.JobProcessMedia,
		Payload: jobqueue.ProcessMediaPayload{
			Provider: ev.Provider, ChatID: ev.ChatID, LeadID: leadRef,
			MessageID: ev.MessageID, Items: items,
		},
	})
	return err
}

func toOutboundButtons(buttons []engine.Button) []jobqueue.OutboundButton {
	out := make([]jobqueue.OutboundButton, len(buttons))
	for i, b := range buttons {
		out[i] = jobqueue.OutboundButton{Payload: b.Payload, Label: b.Label}
	}
	return out
}
