package inbound

import (
	"context"
	"time"

	"movingintake/internal/engine"
	"movingintake/internal/jobqueue"
	"movingintake/internal/leadstore"
	"movingintake/internal/pricing"

	"github.com/google/uuid"
)

// crewFallbackDelay staggers the crew-fallback notification behind the
// operator notification so the operator always sees a lead first, per the
// dispatch ordering guarantee.
const crewFallbackDelay = 2 * time.Second

// leadPayload is the frozen snapshot written to the leads table on
// finalization; internal/notify unmarshals the identical shape.
type leadPayload struct {
	CargoRaw       string                       `json:"cargo_raw"`
	Items          []pricing.Item               `json:"items"`
	VolumeCategory string                       `json:"volume_category"`
	Pickups        []pickupPayload              `json:"pickups"`
	Destination    pickupPayload                `json:"destination"`
	Date           string                       `json:"date"`
	TimeWindow     string                       `json:"time_window"`
	ExactTime      string                       `json:"exact_time"`
	Extras         []string                     `json:"extras"`
	Estimate       pricing.Estimate             `json:"estimate"`
	Route          pricing.RouteClassification  `json:"route_classification"`
	Language       string                       `json:"language"`
}

type pickupPayload struct {
	AddressText string `json:"address_text"`
	FloorNum    int    `json:"floor_num"`
	HasElevator bool   `json:"has_elevator"`
	LocalityKey string `json:"locality_key"`
}

// finalize persists the completed lead, enqueues the operator and
// crew-fallback notification jobs (both idempotency-keyed on lead id so a
// retried finalization never double-sends), and tears down the session.
func (u *UseCase) finalize(ctx context.Context, tenantID uuid.UUID, chatID string, state engine.SessionState) error {
	payload := leadPayloadFrom(state)

	if _, err := u.leads.SaveLead(ctx, tenantID, state.LeadID, chatID, leadstore.StatusNew, payload); err != nil {
		return err
	}

	if _, err := u.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		TenantID:       tenantID,
		JobType:        jobqueue.JobNotifyOperator,
		Payload:        jobqueue.NotifyOperatorPayload{LeadID: state.LeadID},
		IdempotencyKey: state.LeadID + ":notify_operator_v1",
	}); err != nil {
		return err
	}

	if _, err := u.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		TenantID:       tenantID,
		JobType:        jobqueue.JobNotifyCrewFallback,
		Payload:        jobqueue.NotifyCrewFallbackPayload{LeadID: state.LeadID},
		Delay:          crewFallbackDelay,
		IdempotencyKey: state.LeadID + ":crew_fallback_v1",
	}); err != nil {
		return err
	}

	return u.sessions.Delete(ctx, tenantID, chatID)
}

func leadPayloadFrom(state engine.SessionState) leadPayload {
	pickups := make([]pickupPayload, 0, len(state.Data.Pickups))
	for _, p := range state.Data.Pickups {
		pickups = append(pickups, pickupPayload{
			AddressText: p.AddressText, FloorNum: p.FloorNum, HasElevator: p.HasElevator, LocalityKey: p.LocalityKey,
		})
	}
	var route pricing.RouteClassification
	if state.Data.RouteClassification != nil {
		route = *state.Data.RouteClassification
	}
	var estimate pricing.Estimate
	if state.Data.Estimate != nil {
		estimate = *state.Data.Estimate
	}
	return leadPayload{
		CargoRaw:       state.Data.CargoRaw,
		Items:          state.Data.Items,
		VolumeCategory: state.Data.VolumeCategory,
		Pickups:        pickups,
		Destination: pickupPayload{
			AddressText: state.Data.Destination.AddressText,
			FloorNum:    state.Data.Destination.FloorNum,
			HasElevator: state.Data.Destination.HasElevator,
			LocalityKey: state.Data.Destination.LocalityKey,
		},
		Date:       state.Data.Date,
		TimeWindow: state.Data.TimeWindow,
		ExactTime:  state.Data.ExactTime,
		Extras:     state.Data.Extras,
		Estimate:   estimate,
		Route:      route,
		Language:   state.Language,
	}
}
