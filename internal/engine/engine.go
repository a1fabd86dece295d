package engine

import (
	"fmt"
	"time"

	"movingintake/internal/pricing"
)

// Config holds the small set of tunables the pure engine needs; everything
// else (tenant-level feature toggles, crew fallback) is decided by the
// orchestrator around the engine, not by the engine itself.
type Config struct {
	MaxDateDays    int           // acceptance window upper bound, e.g. 180
	StaleHintAfter time.Duration // inactivity before a resumed session gets a "still there?" hint
}

// Advance advances state by exactly one InputEvent and returns the new
// state, the reply to send back, and whether the transition reached
// StepDone. It never mutates its arguments; state is returned by value
// throughout.
func Advance(cfg Config, catalog *pricing.Catalog, state SessionState, event InputEvent, clock Clock) (SessionState, Reply, bool) {
	now := clock.Now()
	wasStale := isStaleSession(state, now, cfg.StaleHintAfter) && state.Step != StepWelcome

	next, reply, terminal := advanceStep(cfg, catalog, state, event, now)

	if wasStale && reply.Text != "" {
		reply.Text = hint("stale_resume_hint", next.Language) + "\n\n" + reply.Text
	}
	return next, reply, terminal
}

// isStaleSession reports whether a session sat untouched past the
// configured hint threshold. A zero threshold disables the hint, and a
// session with no prior activity (a session that was just created) is
// never considered stale.
func isStaleSession(state SessionState, now time.Time, after time.Duration) bool {
	if after <= 0 || state.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(state.UpdatedAt) > after
}

// fixedInstant adapts an already-resolved instant to the Clock interface so
// step handlers keep reading the time through sc.Clock without re-querying
// the real clock mid-transition.
type fixedInstant struct{ at time.Time }

func (f fixedInstant) Now() time.Time { return f.at }

func advanceStep(cfg Config, catalog *pricing.Catalog, state SessionState, event InputEvent, now time.Time) (SessionState, Reply, bool) {
	next := state
	next.UpdatedAt = now

	if event.Text != nil {
		next.Language = ApplyLanguageDetection(state.Language, *event.Text)
	}

	if isResetIntent(next.Language, event) && state.Step != StepWelcome {
		next.Data = LeadData{}
		next.Step = StepWelcome
		return finish(next, StepWelcome, "welcome_prompt")
	}

	sc := stepContext{Catalog: catalog, Cfg: cfg, Lang: next.Language, Clock: fixedInstant{now}}
	result := handleStep(sc, state.Step, state.Data, event)
	next.Data = result.Data
	next.Step = result.Next

	if !result.Advance {
		return finish(next, result.Next, result.HintKey)
	}

	if result.Next == StepEstimate {
		next.Data.Estimate = computeEstimate(catalog, next.Data)
	}

	if result.Next == StepDone {
		return next, Reply{Text: hint("done_message", next.Language)}, true
	}

	return finish(next, result.Next, promptKeyFor(result.Next))
}

func isResetIntent(lang string, event InputEvent) bool {
	text := valueOf(event)
	return text != "" && DetectIntent(lang, text) == IntentReset
}

func computeEstimate(catalog *pricing.Catalog, data LeadData) *pricing.Estimate {
	pickups := make([]pricing.PickupInput, 0, len(data.Pickups))
	for _, p := range data.Pickups {
		pickups = append(pickups, pricing.PickupInput{FloorNum: p.FloorNum, HasElevator: p.HasElevator})
	}
	route := pricing.RouteClassification{}
	if data.RouteClassification != nil {
		route = *data.RouteClassification
	}
	est := catalog.Estimate(pricing.EstimateInput{
		Items:          data.Items,
		VolumeCategory: data.VolumeCategory,
		Route:          route,
		Pickups:        pickups,
		Destination:    pricing.PickupInput{FloorNum: data.Destination.FloorNum, HasElevator: data.Destination.HasElevator},
		Extras:         data.Extras,
		CargoRawLen:    len(data.CargoRaw),
	})
	return &est
}

// finish builds the Reply for a re-prompt or forward transition, attaching
// the estimate-confirmation buttons when entering StepEstimate.
func finish(state SessionState, step Step, hintKey string) (SessionState, Reply, bool) {
	text := hint(hintKey, state.Language)
	reply := Reply{Text: text}
	if step == StepEstimate && state.Data.Estimate != nil {
		reply.Text = estimateSummary(state) + "\n\n" + text
	}
	reply.Buttons = buttonsFor(step, state.Language)
	return state, reply, false
}

func estimateSummary(state SessionState) string {
	est := state.Data.Estimate
	if est.Suppressed {
		return hint("estimate_suppressed", state.Language)
	}
	return formatRange(est.Min, est.Max, est.Currency)
}

func formatRange(min, max int, currency string) string {
	return fmt.Sprintf("%d–%d %s", min, max, currency)
}

func promptKeyFor(step Step) string {
	switch step {
	case StepConfirmAddresses:
		return "confirm_addresses_prompt"
	case StepCargo:
		return "cargo_prompt"
	case StepVolume:
		return "volume_prompt"
	case StepPickupCount:
		return "pickup_count_prompt"
	case StepAddrFrom, StepAddrFrom2, StepAddrFrom3:
		return "addr_from_prompt"
	case StepFloorFrom, StepFloorFrom2, StepFloorFrom3:
		return "floor_from_prompt"
	case StepAddrTo:
		return "addr_to_prompt"
	case StepFloorTo:
		return "floor_to_prompt"
	case StepDate:
		return "date_prompt"
	case StepSpecificDate:
		return "specific_date_prompt"
	case StepTimeSlot:
		return "time_slot_prompt"
	case StepExactTime:
		return "exact_time_prompt"
	case StepPhotoMenu:
		return "photo_menu_prompt"
	case StepPhotoWait:
		return "photo_wait_prompt"
	case StepExtras:
		return "extras_prompt"
	case StepEstimate:
		return "estimate_confirm_prompt"
	default:
		return "cargo_prompt"
	}
}

func buttonsFor(step Step, lang string) []Button {
	switch step {
	case StepVolume:
		return []Button{{Payload: "small", Label: labelFor("small", lang)}, {Payload: "medium", Label: labelFor("medium", lang)}, {Payload: "large", Label: labelFor("large", lang)}, {Payload: "xl", Label: labelFor("xl", lang)}}
	case StepPickupCount:
		return []Button{{Payload: "1", Label: "1"}, {Payload: "2", Label: "2"}, {Payload: "3", Label: "3"}}
	case StepTimeSlot:
		return []Button{{Payload: "morning", Label: labelFor("morning", lang)}, {Payload: "day", Label: labelFor("day", lang)}, {Payload: "evening", Label: labelFor("evening", lang)}, {Payload: "exact", Label: labelFor("exact", lang)}}
	case StepPhotoMenu, StepConfirmAddresses:
		return []Button{{Payload: "yes", Label: labelFor("yes", lang)}, {Payload: "no", Label: labelFor("no", lang)}}
	case StepDate:
		return []Button{{Payload: "tomorrow", Label: labelFor("tomorrow", lang)}, {Payload: "this_week", Label: labelFor("this_week", lang)}, {Payload: "specific", Label: labelFor("specific", lang)}}
	case StepEstimate:
		return []Button{{Payload: "yes", Label: labelFor("yes", lang)}, {Payload: "reset", Label: labelFor("reset", lang)}}
	default:
		return nil
	}
}

var buttonLabels = map[string]map[string]string{
	"small":     {"ru": "Маленькая", "en": "Small", "he": "קטן"},
	"medium":    {"ru": "Средняя", "en": "Medium", "he": "בינוני"},
	"large":     {"ru": "Большая", "en": "Large", "he": "גדול"},
	"xl":        {"ru": "Очень большая", "en": "Extra-large", "he": "ענק"},
	"morning":   {"ru": "Утро", "en": "Morning", "he": "בוקר"},
	"day":       {"ru": "День", "en": "Day", "he": "צהריים"},
	"evening":   {"ru": "Вечер", "en": "Evening", "he": "ערב"},
	"exact":     {"ru": "Точное время", "en": "Exact time", "he": "שעה מדויקת"},
	"tomorrow":  {"ru": "Завтра", "en": "Tomorrow", "he": "מחר"},
	"this_week": {"ru": "На этой неделе", "en": "This week", "he": "השבוע"},
	"specific":  {"ru": "Другая дата", "en": "Another date", "he": "תאריך אחר"},
	"yes":       {"ru": "Да", "en": "Yes", "he": "כן"},
	"no":        {"ru": "Нет", "en": "No", "he": "לא"},
	"reset":     {"ru": "Сброс", "en": "Reset", "he": "איפוס"},
}

func labelFor(key, lang string) string {
	if table, ok := buttonLabels[key]; ok {
		if s, ok := table[lang]; ok {
			return s
		}
		return table["ru"]
	}
	return key
}
