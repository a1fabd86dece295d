package engine

import "testing"

func TestDetectPrefill_ExtractsRecognizedFields(t *testing.T) {
	p, ok := DetectPrefill("LEADFORM|from=Tel Aviv, Dizengoff 10|to=Haifa|cargo=Диван")
	if !ok {
		t.Fatalf("expected a recognized prefill payload")
	}
	if p.FromAddress != "Tel Aviv, Dizengoff 10" || p.ToAddress != "Haifa" || p.CargoRaw != "Диван" {
		t.Fatalf("unexpected prefill fields: %+v", p)
	}
}

func TestDetectPrefill_UnmarkedTextIsNotAPrefill(t *testing.T) {
	if _, ok := DetectPrefill("Диван, холодильник"); ok {
		t.Fatalf("plain cargo text must never be treated as a prefill payload")
	}
}

func TestDetectPrefill_MarkerWithNoRecognizedFieldsIsNotAPrefill(t *testing.T) {
	if _, ok := DetectPrefill("LEADFORM|unknown=abc"); ok {
		t.Fatalf("a payload with zero recognized fields must fall through to ordinary free text")
	}
}

func TestStep_WelcomeWithPrefillSkipsToConfirmAddresses(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{MaxDateDays: 180}
	clock := fixedClock{}

	state := newState("ru")
	state, _, terminal := Advance(cfg, cat, state, text("LEADFORM|from=Хайфа|to=Тель-Авив|cargo=Диван"), clock)
	if terminal {
		t.Fatalf("prefill application must not terminate the conversation")
	}
	if state.Step != StepConfirmAddresses {
		t.Fatalf("expected confirm_addresses after a landing prefill, got %s", state.Step)
	}
	if len(state.Data.Pickups) != 1 || state.Data.Pickups[0].AddressText != "Хайфа" {
		t.Fatalf("expected the prefilled pickup address to be seeded, got %+v", state.Data.Pickups)
	}
	if state.Data.Destination.AddressText != "Тель-Авив" {
		t.Fatalf("expected the prefilled destination to be seeded, got %+v", state.Data.Destination)
	}
	if len(state.Data.Items) != 1 || state.Data.Items[0].Key != "sofa" {
		t.Fatalf("expected the prefilled cargo text to be extracted into items, got %+v", state.Data.Items)
	}
}
