package notify

import (
	"strings"
	"testing"

	"movingintake/internal/dispatch"
	"movingintake/internal/pricing"
)

// TestLeadSourceFrom_NeverCarriesRawAddress drives the real projection path
// (leadSourceFrom -> localityDisplay -> dispatch.BuildCrewView ->
// dispatch.RenderCrewMessage) from a finalized lead whose pickup/destination
// addresses are raw free text, the way NotifyCrewFallback actually receives
// them off the leads table. Unlike a test that hands BuildCrewView an
// already-clean Locality string, this one exercises the exact hop where the
// leak in review previously occurred: LocalityKey unresolved, AddressText
// carrying the street.
func TestLeadSourceFrom_NeverCarriesRawAddress(t *testing.T) {
	p := leadPayload{
		Pickups: []pickupPayload{
			{AddressText: "Хайфа, ул. Герцль 10, этаж 3", FloorNum: 3, HasElevator: false, LocalityKey: "Хайфа"},
		},
		Destination: pickupPayload{
			AddressText: "неизвестный переулок 7", FloorNum: 1, HasElevator: true, LocalityKey: "",
		},
		Date:       "2026-01-15",
		TimeWindow: "morning",
		Estimate:   pricing.Estimate{Min: 1000, Max: 1500, Currency: "ILS"},
	}

	src := leadSourceFrom(1, p, "ru")
	view := dispatch.BuildCrewView(src, "ru", func(key, lang string) string { return key })
	rendered := dispatch.RenderCrewMessage(view, "ru")

	if strings.Contains(rendered, "Герцль") || strings.Contains(rendered, "переулок") {
		t.Fatalf("crew message must never contain street text, got: %q", rendered)
	}
	if src.Pickups[0].Locality != "Хайфа" {
		t.Fatalf("expected the resolved locality to pass through, got %q", src.Pickups[0].Locality)
	}
	if src.Destination.Locality == "" || strings.Contains(src.Destination.Locality, "переулок") {
		t.Fatalf("expected an unresolved locality to fall back to a coarse placeholder, got %q", src.Destination.Locality)
	}
}
