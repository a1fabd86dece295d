// Package engine implements the deterministic conversation state machine:
// given a SessionState and an InputEvent it returns a new SessionState, an
// outbound Reply, and a terminal flag. The engine performs no I/O — every
// function here is pure over its arguments plus an injected Clock, so the
// ingress handler's critical section around it stays brief.
package engine

import (
	"strings"
	"time"

	"movingintake/internal/pricing"

	"github.com/google/uuid"
)

// Step is one node of the conversation's transition graph.
type Step string

const (
	StepWelcome          Step = "welcome"
	StepConfirmAddresses Step = "confirm_addresses"
	StepCargo            Step = "cargo"
	StepVolume           Step = "volume"
	StepPickupCount      Step = "pickup_count"
	StepAddrFrom         Step = "addr_from"
	StepFloorFrom        Step = "floor_from"
	StepAddrFrom2        Step = "addr_from_2"
	StepFloorFrom2       Step = "floor_from_2"
	StepAddrFrom3        Step = "addr_from_3"
	StepFloorFrom3       Step = "floor_from_3"
	StepAddrTo           Step = "addr_to"
	StepFloorTo          Step = "floor_to"
	StepDate             Step = "date"
	StepSpecificDate     Step = "specific_date"
	StepTimeSlot         Step = "time_slot"
	StepExactTime        Step = "exact_time"
	StepPhotoMenu        Step = "photo_menu"
	StepPhotoWait        Step = "photo_wait"
	StepExtras           Step = "extras"
	StepEstimate         Step = "estimate"
	StepDone             Step = "done"
)

// stepVocabulary is the full set of reachable steps; used to validate
// invariant "s'.step is in the step vocabulary".
var stepVocabulary = map[Step]bool{
	StepWelcome: true, StepConfirmAddresses: true, StepCargo: true, StepVolume: true,
	StepPickupCount: true, StepAddrFrom: true, StepFloorFrom: true,
	StepAddrFrom2: true, StepFloorFrom2: true, StepAddrFrom3: true, StepFloorFrom3: true,
	StepAddrTo: true, StepFloorTo: true, StepDate: true, StepSpecificDate: true,
	StepTimeSlot: true, StepExactTime: true, StepPhotoMenu: true, StepPhotoWait: true,
	StepExtras: true, StepEstimate: true, StepDone: true,
}

// IsValidStep reports whether s is in the step vocabulary.
func IsValidStep(s Step) bool { return stepVocabulary[s] }

// Address is one pickup or destination location as captured by the engine.
type Address struct {
	AddressText string
	FloorNum    int
	HasElevator bool
	// LocalityKey is the canonical locality name resolved from AddressText
	// (or empty when none resolved) — never the raw street text. This is
	// the only address field the crew-fallback projection is allowed to see.
	LocalityKey string
	Geo         *GeoPoint
}

// GeoPoint is a GPS coordinate pair shared by the user.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Estimate mirrors pricing.Estimate in the session's stored shape.
type Estimate = pricing.Estimate

// LeadData is the structured data the conversation accumulates. Per the
// design note on dynamic field bags, only Extensions carries free-form data,
// and only for the small set of typed accessors below — engine code must
// never read an unknown key out of it.
type LeadData struct {
	CargoRaw           string
	Items              []pricing.Item
	VolumeCategory     string // "", small, medium, large, xl
	PickupCount        int
	Pickups            []Address
	Destination        Address
	Date               string // ISO date once resolved
	TimeWindow         string // morning|day|evening|exact
	ExactTime          string
	Extras             []string
	Photos             []string
	Estimate           *Estimate
	RouteClassification *pricing.RouteClassification
	Translations       map[string]map[string]string
	Extensions         map[string]any
}

// Get reads a typed extension value; ok is false when absent.
func (d *LeadData) Get(key string) (any, bool) {
	if d.Extensions == nil {
		return nil, false
	}
	v, ok := d.Extensions[key]
	return v, ok
}

// Set writes an extension value, initializing the map lazily.
func (d *LeadData) Set(key string, value any) {
	if d.Extensions == nil {
		d.Extensions = make(map[string]any)
	}
	d.Extensions[key] = value
}

// SessionState is one conversation's mutable state, one per (tenant_id, chat_id).
type SessionState struct {
	TenantID  uuid.UUID
	ChatID    string
	LeadID    string
	BotType   string
	Step      Step
	Data      LeadData
	Language  string // he|en|ru
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a fresh session at the initial step, generating a
// 12-hex opaque lead id.
func NewSession(tenantID uuid.UUID, chatID, language string, clock Clock) SessionState {
	return SessionState{
		TenantID:  tenantID,
		ChatID:    chatID,
		LeadID:    newLeadID(),
		BotType:   "moving_bot_v1",
		Step:      StepWelcome,
		Language:  language,
		CreatedAt: clock.Now(),
		UpdatedAt: clock.Now(),
	}
}

// newLeadID returns a 12-hex-character opaque id: the dashes UUID.String()
// inserts aren't hex digits, so they're stripped before truncating.
func newLeadID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return hex[:12]
}

// MediaItemInput mirrors one attachment carried by an InputEvent.
type MediaItemInput struct {
	ContentType string
	SizeBytes   int64
	SourceRef   string
}

// InputEvent is exactly one of Text, Button, Location, or Media.
type InputEvent struct {
	Text     *string
	Button   *string
	Location *GeoPoint
	Media    []MediaItemInput
}

// Button is a provider-agnostic quick-reply button in a Reply.
type Button struct {
	Payload string
	Label   string
}

// Reply is the outbound message the engine produces for one transition.
type Reply struct {
	Text    string
	Buttons []Button
}

// Clock is injected so the engine remains a pure function of its arguments.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
