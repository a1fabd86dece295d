package jobqueue

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

type fakeSender struct {
	calls int
	last  struct {
		provider, chatID, text string
		buttons                []OutboundButton
	}
}

func (f *fakeSender) Send(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []OutboundButton) error {
	f.calls++
	f.last.provider, f.last.chatID, f.last.text, f.last.buttons = provider, chatID, text, buttons
	return nil
}

type fakeNotifier struct {
	operatorCalls, crewCalls int
	lastLeadID               string
}

func (f *fakeNotifier) NotifyOperator(ctx context.Context, tenantID uuid.UUID, leadID string) error {
	f.operatorCalls++
	f.lastLeadID = leadID
	return nil
}

func (f *fakeNotifier) NotifyCrewFallback(ctx context.Context, tenantID uuid.UUID, leadID string) error {
	f.crewCalls++
	f.lastLeadID = leadID
	return nil
}

type fakeMediaProcessor struct {
	calls int
}

func (f *fakeMediaProcessor) ProcessMedia(ctx context.Context, tenantID uuid.UUID, leadID *string, chatID, provider, messageID string, items []MediaItemRef) error {
	f.calls++
	return nil
}

func TestRoleHandlerSet_PartitionsByRole(t *testing.T) {
	core := RoleHandlerSet("core")
	dispatch := RoleHandlerSet("dispatch")
	all := RoleHandlerSet("all")

	if !reflect.DeepEqual(core, []string{JobOutboundReply, JobProcessMedia, JobNotifyOperator}) {
		t.Fatalf("unexpected core handler set: %+v", core)
	}
	if !reflect.DeepEqual(dispatch, []string{JobNotifyCrewFallback}) {
		t.Fatalf("unexpected dispatch handler set: %+v", dispatch)
	}
	for _, jt := range core {
		found := false
		for _, a := range all {
			if a == jt {
				found = true
			}
		}
		if !found {
			t.Fatalf("role 'all' must be a superset of 'core', missing %q", jt)
		}
	}
	if RoleHandlerSet("unknown") != nil {
		t.Fatalf("expected nil handler set for an unrecognized role")
	}
}

type fakeIdempotencyStore struct {
	claimed map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{claimed: map[string]bool{}}
}

func (f *fakeIdempotencyStore) ClaimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func TestDispatcher_HandlersMapCoversEveryJobType(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, &fakeMediaProcessor{}, &fakeNotifier{}, nil, nil)
	handlers := d.Handlers()

	for _, jt := range []string{JobOutboundReply, JobProcessMedia, JobNotifyOperator, JobNotifyCrewFallback} {
		if handlers[jt] == nil {
			t.Fatalf("expected a handler registered for job type %q", jt)
		}
	}
}

func TestDispatcher_HandleOutboundReplyUnmarshalsAndSends(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &fakeMediaProcessor{}, &fakeNotifier{}, nil, nil)

	payload, _ := json.Marshal(OutboundReplyPayload{Provider: "whatsapp", ChatID: "chat-1", Text: "hello"})
	job := Job{TenantID: uuid.New(), Payload: payload}

	if err := d.Handlers()[JobOutboundReply](context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 1 || sender.last.chatID != "chat-1" || sender.last.text != "hello" {
		t.Fatalf("unexpected send call: %+v", sender.last)
	}
}

func TestDispatcher_HandleNotifyOperatorPassesLeadID(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(&fakeSender{}, &fakeMediaProcessor{}, notifier, nil, nil)

	payload, _ := json.Marshal(NotifyOperatorPayload{LeadID: "lead-42"})
	job := Job{TenantID: uuid.New(), Payload: payload}

	if err := d.Handlers()[JobNotifyOperator](context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier.operatorCalls != 1 || notifier.lastLeadID != "lead-42" {
		t.Fatalf("expected exactly one NotifyOperator call with lead-42, got calls=%d leadID=%q", notifier.operatorCalls, notifier.lastLeadID)
	}
}

func TestDispatcher_MediaCleanupNoopsWithoutMediaCleaner(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, &fakeMediaProcessor{}, &fakeNotifier{}, nil, nil)
	if err := d.MediaCleanup(context.Background()); err != nil {
		t.Fatalf("expected MediaCleanup to no-op with a nil MediaCleaner, got %v", err)
	}
}

func TestDispatcher_HandleNotifyCrewFallbackNoopsOnDuplicateKey(t *testing.T) {
	notifier := &fakeNotifier{}
	store := newFakeIdempotencyStore()
	d := NewDispatcher(&fakeSender{}, &fakeMediaProcessor{}, notifier, nil, store)

	payload, _ := json.Marshal(NotifyCrewFallbackPayload{LeadID: "lead-42", IdempotencyKey: "lead-42:crew_fallback_v1"})
	job := Job{TenantID: uuid.New(), Payload: payload}

	if err := d.Handlers()[JobNotifyCrewFallback](context.Background(), job); err != nil {
		t.Fatalf("unexpected error on first delivery: %v", err)
	}
	if notifier.crewCalls != 1 {
		t.Fatalf("expected exactly one crew notification after first claim, got %d", notifier.crewCalls)
	}

	// A retried job — lease recovery, or a failed Complete call — carries the
	// same idempotency key and must not repeat the send.
	if err := d.Handlers()[JobNotifyCrewFallback](context.Background(), job); err != nil {
		t.Fatalf("unexpected error on retried delivery: %v", err)
	}
	if notifier.crewCalls != 1 {
		t.Fatalf("expected retried job with an already-claimed key to no-op, got %d crew calls", notifier.crewCalls)
	}
}
