package whatsapp

import (
	"context"
	"fmt"

	"movingintake/internal/jobqueue"
	"movingintake/internal/notify"
	"movingintake/internal/tenants"

	"github.com/google/uuid"
)

// Adapter resolves per-tenant gateway credentials from the tenant registry
// and dispatches through Client. It implements both jobqueue.ChannelSender
// (outbound_reply job handler) and notify.ChatSender (operator/crew
// delivery) — the two call sites differ only in their button type, which is
// converted at the boundary.
type Adapter struct {
	client    *Client
	tenantSvc *tenants.Service
}

// NewAdapter builds an Adapter.
func NewAdapter(client *Client, tenantSvc *tenants.Service) *Adapter {
	return &Adapter{client: client, tenantSvc: tenantSvc}
}

func (a *Adapter) resolveCreds(ctx context.Context, tenantID uuid.UUID, provider string) (GatewayCreds, error) {
	tc, err := a.tenantSvc.Resolve(ctx, provider, tenantID.String())
	if err != nil {
		return GatewayCreds{}, fmt.Errorf("resolve whatsapp binding: %w", err)
	}
	return CredsFromMap(tc.Creds), nil
}

// Send implements jobqueue.ChannelSender.
func (a *Adapter) Send(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []jobqueue.OutboundButton) error {
	creds, err := a.resolveCreds(ctx, tenantID, provider)
	if err != nil {
		return err
	}
	specs := make([]ButtonSpec, len(buttons))
	for i, b := range buttons {
		specs[i] = ButtonSpec{Payload: b.Payload, Label: b.Label}
	}
	return a.client.Send(ctx, creds, chatID, text, specs)
}

// SendNotify implements notify.ChatSender under a distinct method name since
// Go does not allow overloading Send with a different button type on the
// same receiver; composition roots wire this via NotifyChatSender.
func (a *Adapter) SendNotify(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []notify.Button) error {
	creds, err := a.resolveCreds(ctx, tenantID, provider)
	if err != nil {
		return err
	}
	specs := make([]ButtonSpec, len(buttons))
	for i, b := range buttons {
		specs[i] = ButtonSpec{Payload: b.Payload, Label: b.Label}
	}
	return a.client.Send(ctx, creds, chatID, text, specs)
}

// NotifyChatSender exposes Adapter as a notify.ChatSender.
type NotifyChatSender struct{ *Adapter }

// Send implements notify.ChatSender by delegating to SendNotify.
func (n NotifyChatSender) Send(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []notify.Button) error {
	return n.Adapter.SendNotify(ctx, tenantID, provider, chatID, text, buttons)
}
