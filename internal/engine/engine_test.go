package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"movingintake/internal/pricing"

	"github.com/google/uuid"
)

const testCatalogJSON = `{
  "items": [
    {"key": "fridge", "price_min": 200, "price_max": 400, "heavy": true, "volume_value": 3, "labels": {"ru": "Холодильник"}},
    {"key": "sofa", "price_min": 150, "price_max": 300, "volume_value": 2, "labels": {"ru": "Диван"}},
    {"key": "wardrobe", "price_min": 180, "price_max": 350, "volume_value": 2.5, "labels": {"ru": "Шкаф"}}
  ],
  "aliases": [
    {"alias": "холодильник", "key": "fridge"},
    {"alias": "диван", "key": "sofa"},
    {"alias": "шкаф", "key": "wardrobe"},
    {"alias": "дверный шкаф", "key": "wardrobe"}
  ],
  "room_descriptors": {"однокомнатная": "small", "трёхкомнатная": "large"},
  "volume": {
    "base": {"small": 500, "medium": 1000, "large": 1800, "xl": 2600},
    "thresholds": {"small": 0, "medium": 4, "large": 8, "xl": 14},
    "heavy_item_override_count": 3
  },
  "route": {
    "fees": {"same_city": 0, "same_metro": 200, "inter_region_short": 500},
    "minimums": {"same_city": 600, "same_metro": 900},
    "per_floor_rate": 80,
    "localities": {
      "haifa": {"canonical_name": "Хайфа", "lat": 32.7940, "lng": 34.9896, "aliases": ["хайфа"]},
      "telaviv": {"canonical_name": "Тель-Авив", "lat": 32.0853, "lng": 34.7818, "aliases": ["тель-авив"]}
    },
    "same_metro_km": 30,
    "short_region_km": 120,
    "long_region_km": 300
  },
  "complexity_guards": {
    "complex_multiplier": 1.18,
    "risk_buffer": 1.08,
    "complex_min_floor": 7800,
    "extras_fee": {"assembly": 300, "packing": 400, "movers": 600}
  },
  "currency": "ILS"
}`

func testCatalog(t *testing.T) *pricing.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte(testCatalogJSON), 0o600); err != nil {
		t.Fatalf("write test catalog: %v", err)
	}
	cat, err := pricing.LoadCatalog(path)
	if err != nil {
		t.Fatalf("load test catalog: %v", err)
	}
	return cat
}

// fixedClock always returns the same instant, so date-boundary tests are
// independent of wall-clock time.
type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newState(lang string) SessionState {
	return SessionState{
		TenantID: uuid.New(),
		ChatID:   "chat-1",
		BotType:  "moving_bot_v1",
		Step:     StepWelcome,
		Language: lang,
	}
}

func text(s string) InputEvent { return InputEvent{Text: &s} }

func TestStep_HappyPathSinglePickup(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")

	state, _, _ = Advance(cfg, cat, state, text("Здравствуйте"), clock)
	if state.Step != StepCargo {
		t.Fatalf("expected the greeting to move welcome to cargo, got %s", state.Step)
	}

	state, _, terminal := Advance(cfg, cat, state, text("Диван, холодильник"), clock)
	if terminal {
		t.Fatalf("should not terminate at cargo")
	}
	if state.Step != StepPickupCount {
		t.Fatalf("expected pickup_count after cargo yields a volume category, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("1"), clock)
	if state.Step != StepAddrFrom {
		t.Fatalf("expected addr_from, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("Хайфа, ул. Герцль 10"), clock)
	if state.Step != StepFloorFrom {
		t.Fatalf("expected floor_from, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("3 без лифта"), clock)
	if state.Step != StepAddrTo {
		t.Fatalf("expected addr_to after the sole pickup's floor is set, got %s", state.Step)
	}
	if len(state.Data.Pickups) != 1 || state.Data.Pickups[0].FloorNum != 3 || state.Data.Pickups[0].HasElevator {
		t.Fatalf("unexpected pickup data: %+v", state.Data.Pickups)
	}

	state, _, _ = Advance(cfg, cat, state, text("Тель-Авив, ул. Дизенгоф 50"), clock)
	if state.Step != StepFloorTo {
		t.Fatalf("expected floor_to, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("1 с лифтом"), clock)
	if state.Step != StepDate {
		t.Fatalf("expected date, got %s", state.Step)
	}
	if state.Data.RouteClassification == nil {
		t.Fatalf("expected route classification to be computed once both addresses are known")
	}

	state, _, _ = Advance(cfg, cat, state, text("2026-01-15"), clock)
	if state.Step != StepTimeSlot {
		t.Fatalf("expected time_slot, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("утро"), clock)
	if state.Step != StepPhotoMenu {
		t.Fatalf("expected photo_menu, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("нет"), clock)
	if state.Step != StepExtras {
		t.Fatalf("expected extras, got %s", state.Step)
	}

	state, _, _ = Advance(cfg, cat, state, text("нет"), clock)
	if state.Step != StepEstimate {
		t.Fatalf("expected estimate, got %s", state.Step)
	}
	if state.Data.Estimate == nil {
		t.Fatalf("expected an estimate to be computed on entering StepEstimate")
	}

	state, reply, terminal := Advance(cfg, cat, state, text("да"), clock)
	if !terminal {
		t.Fatalf("expected the flow to terminate after confirming the estimate")
	}
	if state.Step != StepDone {
		t.Fatalf("expected done, got %s", state.Step)
	}
	if reply.Text == "" {
		t.Fatalf("expected a non-empty closing reply")
	}
}

func TestStep_AttributeSuffixDoesNotMultiplyQuantity(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepCargo
	state, _, _ = Advance(cfg, cat, state, text("Холодильник 200кг, 5 дверный шкаф"), clock)

	if len(state.Data.Items) != 2 {
		t.Fatalf("expected 2 extracted items, got %+v", state.Data.Items)
	}
	for _, it := range state.Data.Items {
		if it.Qty != 1 {
			t.Fatalf("expected every item at qty 1 (200 and 5 are attribute suffixes, not counts), got %+v", it)
		}
	}
}

func TestStep_ResetIntentClearsDataAndGoesToWelcome(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state, _, _ = Advance(cfg, cat, state, text("Диван"), clock)
	state, _, _ = Advance(cfg, cat, state, text("1"), clock)

	state, _, terminal := Advance(cfg, cat, state, text("сброс"), clock)
	if terminal {
		t.Fatalf("reset must not be a terminal transition")
	}
	if state.Step != StepWelcome {
		t.Fatalf("expected reset to return the session to welcome, got %s", state.Step)
	}
	if state.Data.CargoRaw != "" || len(state.Data.Items) != 0 || state.Data.PickupCount != 0 {
		t.Fatalf("expected reset to clear accumulated lead data, got %+v", state.Data)
	}
	if state.Language != "ru" {
		t.Fatalf("reset must preserve the detected language, got %q", state.Language)
	}
}

func TestStep_DateBoundary(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	today := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: today}

	cases := []struct {
		name       string
		date       string
		wantStep   Step
		wantReject bool
	}{
		{"today accepted", "2026-01-10", StepTimeSlot, false},
		{"yesterday too soon", "2026-01-09", StepDate, true},
		{"today plus 180 accepted", "2026-07-09", StepTimeSlot, false},
		{"today plus 181 too far", "2026-07-10", StepDate, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newState("ru")
			state.Step = StepDate
			state, _, _ = Advance(cfg, cat, state, text(tc.date), clock)
			if state.Step != tc.wantStep {
				t.Fatalf("%s: expected step %s, got %s", tc.name, tc.wantStep, state.Step)
			}
		})
	}
}

func TestStep_LanguagePersistsAcrossButtonTurns(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("he")
	state.Step = StepVolume
	state, _, _ = Advance(cfg, cat, state, InputEvent{Button: strPtr("large")}, clock)
	if state.Language != "he" {
		t.Fatalf("a button-only turn must never change the session language, got %q", state.Language)
	}
}

func strPtr(s string) *string { return &s }

func TestStep_DateThisWeekResolvesToPlusThreeDays(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	today := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: today}

	state := newState("ru")
	state.Step = StepDate
	state, _, _ = Advance(cfg, cat, state, InputEvent{Button: strPtr("this_week")}, clock)
	if state.Step != StepTimeSlot {
		t.Fatalf("expected this_week to resolve straight to time_slot, got %s", state.Step)
	}
	if state.Data.Date != "2026-01-13" {
		t.Fatalf("expected this_week to resolve to today+3, got %s", state.Data.Date)
	}
}

func TestStep_DateSpecificAdvancesToSpecificDateStep(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepDate
	state, _, _ = Advance(cfg, cat, state, InputEvent{Button: strPtr("specific")}, clock)
	if state.Step != StepSpecificDate {
		t.Fatalf("expected specific to advance to specific_date, got %s", state.Step)
	}
	if state.Data.Date != "" {
		t.Fatalf("specific must not itself resolve a date, got %q", state.Data.Date)
	}

	state, _, _ = Advance(cfg, cat, state, text("2026-02-01"), clock)
	if state.Step != StepTimeSlot {
		t.Fatalf("expected the specific_date step to accept an ISO date and advance, got %s", state.Step)
	}
	if state.Data.Date != "2026-02-01" {
		t.Fatalf("expected the specific date to be recorded, got %s", state.Data.Date)
	}
}

func TestStep_DateNaturalLanguage(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	today := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) // a Saturday

	cases := []struct {
		name string
		text string
		want string
		now  time.Time
	}{
		{"day after tomorrow (ru)", "послезавтра", "2026-01-12", today},
		{"weekday same day means next week", "суббота", "2026-01-17", today},
		{"weekday later this week", "monday", "2026-01-12", today},
		{"next weekday prefix", "next monday", "2026-01-19", today},
		{"day then month (ru)", "5 марта", "2026-03-05", today},
		{"month then day (en)", "march 5th", "2026-03-05", today},
		// Late December, so the rolled-over date stays inside the 180-day window.
		{"day month already passed rolls to next year", "1 января", "2027-01-01", time.Date(2026, 12, 19, 12, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newState("ru")
			state.Step = StepDate
			clock := fixedClock{t: tc.now}
			state, _, _ = Advance(cfg, cat, state, text(tc.text), clock)
			if state.Data.Date != tc.want {
				t.Fatalf("%s: expected date %s, got %s (step %s)", tc.name, tc.want, state.Data.Date, state.Step)
			}
		})
	}
}

func TestStep_AddrFromAcceptsGPSLocation(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepAddrFrom
	state, _, _ = Advance(cfg, cat, state, InputEvent{Location: &GeoPoint{Lat: 32.7940, Lng: 34.9896}}, clock)

	if state.Step != StepFloorFrom {
		t.Fatalf("expected a GPS pin to advance to floor_from just like a text address, got %s", state.Step)
	}
	if len(state.Data.Pickups) != 1 || state.Data.Pickups[0].Geo == nil {
		t.Fatalf("expected the shared coordinates to be stored on the pickup, got %+v", state.Data.Pickups)
	}
	if state.Data.Pickups[0].AddressText != "32.79400, 34.98960 (near Хайфа)" {
		t.Fatalf("expected the nearby locality to be resolved into the display text, got %q", state.Data.Pickups[0].AddressText)
	}
}

func TestStep_AddrFromGPSFarFromAnyLocalityOmitsNearClause(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepAddrFrom
	state, _, _ = Advance(cfg, cat, state, InputEvent{Location: &GeoPoint{Lat: 0, Lng: 0}}, clock)

	if len(state.Data.Pickups) != 1 {
		t.Fatalf("expected a pickup to be recorded, got %+v", state.Data.Pickups)
	}
	if state.Data.Pickups[0].AddressText != "0.00000, 0.00000" {
		t.Fatalf("expected a bare coordinate string when no locality is nearby, got %q", state.Data.Pickups[0].AddressText)
	}
}

func TestStep_AddrFromTextResolvesLocalityKeyNeverRawText(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepAddrFrom
	state, _, _ = Advance(cfg, cat, state, text("Хайфа, ул. Герцль 10, этаж 3"), clock)

	if len(state.Data.Pickups) != 1 {
		t.Fatalf("expected a pickup to be recorded, got %+v", state.Data.Pickups)
	}
	got := state.Data.Pickups[0].LocalityKey
	if got != "Хайфа" {
		t.Fatalf("expected LocalityKey to resolve to the canonical locality name, got %q", got)
	}
	if strings.Contains(got, "Герцль") {
		t.Fatalf("LocalityKey must never carry the raw street text, got %q", got)
	}
}

func TestStep_AddrFromTextWithUnknownLocalityLeavesLocalityKeyEmpty(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	state := newState("ru")
	state.Step = StepAddrFrom
	state, _, _ = Advance(cfg, cat, state, text("неизвестный переулок 7"), clock)

	if len(state.Data.Pickups) != 1 {
		t.Fatalf("expected a pickup to be recorded, got %+v", state.Data.Pickups)
	}
	if state.Data.Pickups[0].LocalityKey != "" {
		t.Fatalf("expected an unresolvable address to leave LocalityKey empty rather than guess, got %q", state.Data.Pickups[0].LocalityKey)
	}
}

func TestStep_StaleSessionGetsOneTimeResumeHint(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180, StaleHintAfter: time.Hour}
	lastSeen := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	state := newState("ru")
	state.Step = StepCargo
	state.UpdatedAt = lastSeen

	clock := fixedClock{t: lastSeen.Add(2 * time.Hour)}
	next, reply, _ := Advance(cfg, cat, state, text("Диван"), clock)
	if reply.Text == "" {
		t.Fatalf("expected a non-empty reply")
	}
	if !strings.Contains(reply.Text, hint("stale_resume_hint", "ru")) {
		t.Fatalf("expected the stale-resume hint to prefix the reply, got %q", reply.Text)
	}

	// The very next turn happens right away, so it must not repeat the hint.
	next, reply, _ = Advance(cfg, cat, next, text("2"), clock)
	if strings.Contains(reply.Text, hint("stale_resume_hint", "ru")) {
		t.Fatalf("expected the hint to be one-time only, got %q", reply.Text)
	}
	_ = next
}

func TestStep_StaleSessionAtWelcomeGetsNoHint(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180, StaleHintAfter: time.Hour}
	lastSeen := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	state := newState("ru")
	state.UpdatedAt = lastSeen

	clock := fixedClock{t: lastSeen.Add(2 * time.Hour)}
	_, reply, _ := Advance(cfg, cat, state, text("Диван"), clock)
	if strings.Contains(reply.Text, hint("stale_resume_hint", "ru")) {
		t.Fatalf("a session that never left welcome must not show the resume hint, got %q", reply.Text)
	}
}
