// Package dispatch builds the PII-free crew projection of a finalized lead
// and renders it into a localized, copy-paste-ready text block. It must
// never import the engine or leadstore packages beyond the plain data types
// they expose — the allowlist is enforced at the type level, not by
// convention.
package dispatch

import (
	"fmt"
	"strings"

	"movingintake/internal/pricing"
)

// PickupView is the allowlisted per-pickup shape: locality, floor and
// elevator only, never the raw street address.
type PickupView struct {
	Locality    string
	FloorNum    int
	HasElevator bool
}

// ItemLineView is one recognized-item summary line, already localized.
type ItemLineView struct {
	Label string
	Qty   int
}

// CrewLeadView is the explicit allowlist projection of a finalized lead.
// Every field here is safe to forward to a crew group: no phone, no street
// address, no raw cargo text, no user name, no links, no media.
type CrewLeadView struct {
	LeadNumber        int64
	FromLocalities    []string
	ToLocality        string
	Date              string
	TimeWindow        string
	ExactTime         string
	VolumeCategory    string
	Pickups           []PickupView
	Destination       PickupView
	Extras            []string
	Items             []ItemLineView
	EstimateMin       int
	EstimateMax       int
	Currency          string
	EstimateSuppressed bool
}

// LeadSource is the minimal read model dispatch needs from a finalized lead;
// callers (internal/notify) build it from the stored lead payload, so
// dispatch never imports leadstore's storage concerns.
type LeadSource struct {
	LeadNumber     int64
	Pickups        []PickupAddress
	Destination    PickupAddress
	Date           string
	TimeWindow     string
	ExactTime      string
	VolumeCategory string
	Extras         []string
	Items          []pricing.Item
	Route          pricing.RouteClassification
	Estimate       pricing.Estimate
}

// PickupAddress is the source shape for one address; Locality is whatever
// locality name the route classifier resolved, never the raw street text.
type PickupAddress struct {
	Locality    string
	FloorNum    int
	HasElevator bool
}

// BuildCrewView projects a LeadSource through the allowlist. itemLabel
// resolves a catalog key to its localized label; it never falls back to the
// raw cargo text.
func BuildCrewView(l LeadSource, lang string, itemLabel func(key, lang string) string) CrewLeadView {
	v := CrewLeadView{
		LeadNumber:         l.LeadNumber,
		Date:               l.Date,
		TimeWindow:         l.TimeWindow,
		ExactTime:          l.ExactTime,
		VolumeCategory:     l.VolumeCategory,
		Extras:             append([]string(nil), l.Extras...),
		EstimateMin:        l.Estimate.Min,
		EstimateMax:        l.Estimate.Max,
		Currency:           l.Estimate.Currency,
		EstimateSuppressed: l.Estimate.Suppressed,
	}

	for _, p := range l.Pickups {
		v.Pickups = append(v.Pickups, PickupView{Locality: p.Locality, FloorNum: p.FloorNum, HasElevator: p.HasElevator})
		if p.Locality != "" {
			v.FromLocalities = append(v.FromLocalities, p.Locality)
		}
	}
	v.Destination = PickupView{Locality: l.Destination.Locality, FloorNum: l.Destination.FloorNum, HasElevator: l.Destination.HasElevator}
	v.ToLocality = l.Destination.Locality

	seen := map[string]int{}
	order := []string{}
	for _, it := range l.Items {
		if _, ok := seen[it.Key]; !ok {
			order = append(order, it.Key)
		}
		seen[it.Key] += it.Qty
	}
	for _, key := range order {
		label := itemLabel(key, lang)
		if label == "" {
			label = key
		}
		v.Items = append(v.Items, ItemLineView{Label: label, Qty: seen[key]})
	}

	return v
}

// LeadDisplayNumber formats the crew-facing lead number, falling back to a
// short opaque id when the sequence hasn't been assigned (should not happen
// for finalized leads, but keeps the renderer total).
func LeadDisplayNumber(leadNumber int64, leadID string) string {
	if leadNumber > 0 {
		return fmt.Sprintf("#%d", leadNumber)
	}
	if len(leadID) >= 8 {
		return "#" + leadID[:8]
	}
	return "#?"
}

func joinNonEmpty(parts []string, sep string) string {
	var filtered []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, sep)
}
