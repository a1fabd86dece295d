// Package notify formats and delivers the operator and crew-fallback
// notifications on lead finalization, and downloads/stores inbound media.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"movingintake/internal/dispatch"
	"movingintake/internal/leadstore"
	"movingintake/internal/pricing"
	"movingintake/internal/tenants"
	"movingintake/platform/logger"

	"github.com/google/uuid"
)

// leadPayload mirrors the frozen snapshot internal/inbound writes on
// finalization: LeadData plus estimate, route classification and language.
// The lead number is the leads row's lead_seq, not part of the payload.
type leadPayload struct {
	CargoRaw       string                  `json:"cargo_raw"`
	Items          []pricing.Item          `json:"items"`
	VolumeCategory string                  `json:"volume_category"`
	Pickups        []pickupPayload         `json:"pickups"`
	Destination    pickupPayload           `json:"destination"`
	Date           string                  `json:"date"`
	TimeWindow     string                  `json:"time_window"`
	ExactTime      string                  `json:"exact_time"`
	Extras         []string                `json:"extras"`
	Estimate       pricing.Estimate        `json:"estimate"`
	Route          pricing.RouteClassification `json:"route_classification"`
	Language       string                  `json:"language"`
}

type pickupPayload struct {
	AddressText string `json:"address_text"`
	FloorNum    int    `json:"floor_num"`
	HasElevator bool   `json:"has_elevator"`
	LocalityKey string `json:"locality_key"`
}

// ChatSender is the narrow slice of jobqueue.ChannelSender notify needs to
// deliver operator/crew text.
type ChatSender interface {
	Send(ctx context.Context, tenantID uuid.UUID, provider, chatID, text string, buttons []Button) error
}

// Button mirrors jobqueue.OutboundButton so the notify service does not
// depend on the job queue's wire types.
type Button struct {
	Payload string
	Label   string
}

// Service implements jobqueue.OperatorNotifier.
type Service struct {
	leads       *leadstore.LeadRepository
	tenantSvc   *tenants.Service
	catalog     *pricing.Catalog
	sender      ChatSender
	email       EmailSender
	targetLang  string
	crewEnabled bool
	log         *logger.Logger
}

// EmailSender is the operator email fallback channel.
type EmailSender interface {
	SendOperatorLeadEmail(ctx context.Context, toEmail, subject, body string) error
}

// Config bundles the operator-notification settings notify needs. Populated
// from platform/config.OperatorConfig at composition time.
type Config struct {
	TargetLang         string
	DispatchCrewFallback bool
}

// NewService builds a notify.Service.
func NewService(leads *leadstore.LeadRepository, tenantSvc *tenants.Service, catalog *pricing.Catalog, sender ChatSender, email EmailSender, cfg Config, log *logger.Logger) *Service {
	return &Service{
		leads:       leads,
		tenantSvc:   tenantSvc,
		catalog:     catalog,
		sender:      sender,
		email:       email,
		targetLang:  cfg.TargetLang,
		crewEnabled: cfg.DispatchCrewFallback,
		log:         log,
	}
}

// operatorProvider is the pseudo-provider under which a tenant's operator
// delivery config (chat id and/or email) is stored as a channel binding,
// reusing the same encrypted-credential and cache machinery as real
// providers instead of a parallel config path.
const operatorProvider = "operator"

// NotifyOperator loads the finalized lead, formats the full operator message
// (no allowlist redaction — this channel is trusted), and delivers it via
// the tenant's bound operator chat if configured, falling back to email.
func (s *Service) NotifyOperator(ctx context.Context, tenantID uuid.UUID, leadID string) error {
	lead, err := s.leads.GetByID(ctx, tenantID, leadID)
	if err != nil {
		return fmt.Errorf("load lead for operator notify: %w", err)
	}

	var p leadPayload
	if err := json.Unmarshal(lead.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal lead payload: %w", err)
	}

	text := formatOperatorMessage(lead.LeadSeq, p)

	tc, err := s.tenantSvc.Resolve(ctx, operatorProvider, tenantID.String())
	if err != nil {
		return fmt.Errorf("resolve operator channel binding: %w", err)
	}

	if chatID, ok := tc.Creds["operator_chat_id"].(string); ok && chatID != "" {
		return s.sender.Send(ctx, tenantID, operatorProvider, chatID, text, nil)
	}
	if email, ok := tc.Creds["operator_email"].(string); ok && email != "" && s.email != nil {
		return s.email.SendOperatorLeadEmail(ctx, email, fmt.Sprintf("New lead #%d", lead.LeadSeq), text)
	}
	return fmt.Errorf("tenant has no operator delivery target configured")
}

// NotifyCrewFallback renders the PII-free crew view and sends it to the
// tenant's bound crew chat, when the feature is enabled tenant-wide.
func (s *Service) NotifyCrewFallback(ctx context.Context, tenantID uuid.UUID, leadID string) error {
	if !s.crewEnabled {
		return nil
	}

	lead, err := s.leads.GetByID(ctx, tenantID, leadID)
	if err != nil {
		return fmt.Errorf("load lead for crew fallback: %w", err)
	}

	var p leadPayload
	if err := json.Unmarshal(lead.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal lead payload: %w", err)
	}

	tc, err := s.tenantSvc.Resolve(ctx, operatorProvider, tenantID.String())
	if err != nil {
		return nil // no operator binding at all means no crew group either; not an error
	}
	if tc.Config.DispatchCrewFallbackEnabled != nil && !*tc.Config.DispatchCrewFallbackEnabled {
		return nil
	}
	crewChatID, ok := tc.Creds["crew_chat_id"].(string)
	if !ok || crewChatID == "" {
		return nil
	}

	view := dispatch.BuildCrewView(leadSourceFrom(lead.LeadSeq, p, s.targetLang), s.targetLang, s.catalog.ItemLabel)
	text := dispatch.RenderCrewMessage(view, s.targetLang)

	return s.sender.Send(ctx, tenantID, operatorProvider, crewChatID, text, nil)
}

func leadSourceFrom(leadSeq int64, p leadPayload, lang string) dispatch.LeadSource {
	pickups := make([]dispatch.PickupAddress, 0, len(p.Pickups))
	for _, pk := range p.Pickups {
		pickups = append(pickups, dispatch.PickupAddress{
			Locality:    localityDisplay(pk, lang),
			FloorNum:    pk.FloorNum,
			HasElevator: pk.HasElevator,
		})
	}
	return dispatch.LeadSource{
		LeadNumber:     leadSeq,
		Pickups:        pickups,
		Destination:    dispatch.PickupAddress{Locality: localityDisplay(p.Destination, lang), FloorNum: p.Destination.FloorNum, HasElevator: p.Destination.HasElevator},
		Date:           p.Date,
		TimeWindow:     p.TimeWindow,
		ExactTime:      p.ExactTime,
		VolumeCategory: p.VolumeCategory,
		Extras:         p.Extras,
		Items:          p.Items,
		Route:          p.Route,
		Estimate:       p.Estimate,
	}
}

// unresolvedLocality is the crew-facing placeholder for a pickup/destination
// whose address never resolved to a known locality. It must never fall back
// to AddressText: that field carries the raw street text the allowlist in
// dispatch.CrewLeadView is built to exclude.
var unresolvedLocality = map[string]string{
	"ru": "город не определён",
	"en": "city not resolved",
	"he": "עיר לא זוהתה",
}

func localityDisplay(p pickupPayload, lang string) string {
	if p.LocalityKey != "" {
		return p.LocalityKey
	}
	if s, ok := unresolvedLocality[lang]; ok {
		return s
	}
	return unresolvedLocality["ru"]
}

func formatOperatorMessage(leadSeq int64, p leadPayload) string {
	msg := fmt.Sprintf("Lead #%d\nCargo: %s\nVolume: %s\nDate: %s %s\n", leadSeq, p.CargoRaw, p.VolumeCategory, p.Date, p.TimeWindow)
	for i, pk := range p.Pickups {
		msg += fmt.Sprintf("Pickup %d: %s (floor %d, elevator=%v)\n", i+1, pk.AddressText, pk.FloorNum, pk.HasElevator)
	}
	msg += fmt.Sprintf("Destination: %s (floor %d, elevator=%v)\n", p.Destination.AddressText, p.Destination.FloorNum, p.Destination.HasElevator)
	if len(p.Extras) > 0 {
		msg += fmt.Sprintf("Extras: %v\n", p.Extras)
	}
	if !p.Estimate.Suppressed {
		msg += fmt.Sprintf("Estimate: %d-%d %s\n", p.Estimate.Min, p.Estimate.Max, p.Estimate.Currency)
	} else {
		msg += "Estimate: to be confirmed\n"
	}
	return msg
}
