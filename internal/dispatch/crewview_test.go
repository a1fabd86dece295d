package dispatch

import (
	"strings"
	"testing"

	"movingintake/internal/pricing"
)

func fakeItemLabel(key, lang string) string {
	labels := map[string]string{"fridge": "Холодильник", "sofa": "Диван"}
	return labels[key]
}

func TestBuildCrewView_NeverCarriesRawAddress(t *testing.T) {
	src := LeadSource{
		LeadNumber: 42,
		Pickups: []PickupAddress{
			{Locality: "Хайфа", FloorNum: 3, HasElevator: false},
		},
		Destination:    PickupAddress{Locality: "Тель-Авив", FloorNum: 1, HasElevator: true},
		Date:           "2026-01-15",
		TimeWindow:     "morning",
		VolumeCategory: "medium",
		Items:          []pricing.Item{{Key: "fridge", Qty: 1}, {Key: "sofa", Qty: 2}},
		Estimate:       pricing.Estimate{Min: 1200, Max: 1800, Currency: "ILS"},
	}

	v := BuildCrewView(src, "ru", fakeItemLabel)

	if v.LeadNumber != 42 {
		t.Fatalf("expected lead number to round-trip, got %d", v.LeadNumber)
	}
	if len(v.FromLocalities) != 1 || v.FromLocalities[0] != "Хайфа" {
		t.Fatalf("expected the allowlisted locality only, got %+v", v.FromLocalities)
	}
	if v.ToLocality != "Тель-Авив" {
		t.Fatalf("expected destination locality, got %q", v.ToLocality)
	}
	// The struct simply has no field capable of carrying a street address —
	// this assertion documents the invariant at the render boundary instead.
	// The upstream leak point (leadPayload -> LeadSource, where a raw address
	// could end up in Locality) is covered by
	// notify.TestLeadSourceFrom_NeverCarriesRawAddress, since that
	// projection is built by unexported functions in package notify.
	rendered := RenderCrewMessage(v, "ru")
	if strings.Contains(rendered, "ул.") {
		t.Fatalf("rendered crew message must never contain a street address fragment: %q", rendered)
	}
}

func TestBuildCrewView_AggregatesDuplicateItemsInFirstSeenOrder(t *testing.T) {
	src := LeadSource{
		Items: []pricing.Item{
			{Key: "sofa", Qty: 1},
			{Key: "fridge", Qty: 1},
			{Key: "sofa", Qty: 2},
		},
	}
	v := BuildCrewView(src, "ru", fakeItemLabel)
	if len(v.Items) != 2 {
		t.Fatalf("expected 2 aggregated item lines, got %+v", v.Items)
	}
	if v.Items[0].Label != "Диван" || v.Items[0].Qty != 3 {
		t.Fatalf("expected sofa first (first-seen order) aggregated to qty 3, got %+v", v.Items[0])
	}
	if v.Items[1].Label != "Холодильник" || v.Items[1].Qty != 1 {
		t.Fatalf("expected fridge second at qty 1, got %+v", v.Items[1])
	}
}

func TestRenderCrewMessage_MultiPickupLineOrder(t *testing.T) {
	v := CrewLeadView{
		LeadNumber: 7,
		Pickups: []PickupView{
			{Locality: "Хайфа", FloorNum: 2, HasElevator: true},
			{Locality: "Акко", FloorNum: 5, HasElevator: false},
		},
		Destination:        PickupView{Locality: "Тель-Авив", FloorNum: 1, HasElevator: true},
		EstimateSuppressed: true,
	}
	msg := RenderCrewMessage(v, "ru")
	firstIdx := strings.Index(msg, "Точка 1")
	secondIdx := strings.Index(msg, "Точка 2")
	if firstIdx < 0 || secondIdx < 0 || firstIdx > secondIdx {
		t.Fatalf("expected pickup lines in declared order, got:\n%s", msg)
	}
	if !strings.Contains(msg, "уточняется") {
		t.Fatalf("expected the estimate line to show the to-be-confirmed placeholder when suppressed, got:\n%s", msg)
	}
}

func TestLeadDisplayNumber_FallsBackToShortLeadID(t *testing.T) {
	if got := LeadDisplayNumber(0, "abcdef123456"); got != "#abcdef12" {
		t.Fatalf("expected #abcdef12 fallback, got %q", got)
	}
	if got := LeadDisplayNumber(5, "abcdef123456"); got != "#5" {
		t.Fatalf("expected sequence number to take precedence, got %q", got)
	}
}
