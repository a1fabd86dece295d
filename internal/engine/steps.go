package engine

import (
	"fmt"
	"strings"
	"time"

	"movingintake/internal/pricing"
)

// stepContext bundles everything a step handler needs beyond the mutable
// LeadData it receives by value from the caller.
type stepContext struct {
	Catalog *pricing.Catalog
	Cfg     Config
	Lang    string
	Clock   Clock
}

// stepResult is what a step handler returns: either an updated Data plus the
// next step to enter (Advance == true), or a re-prompt on the same step
// (Advance == false) with HintKey set for the reply text.
type stepResult struct {
	Data    LeadData
	Next    Step
	Advance bool
	HintKey string
}

// reject builds a same-step reprompt result.
func reject(data LeadData, current Step, hintKey string) stepResult {
	return stepResult{Data: data, Next: current, Advance: false, HintKey: hintKey}
}

func advance(data LeadData, next Step) stepResult {
	return stepResult{Data: data, Next: next, Advance: true}
}

// handleStep dispatches one InputEvent against the current step. It assumes
// universal intents (reset) have already been handled by the caller.
func handleStep(sc stepContext, step Step, data LeadData, event InputEvent) stepResult {
	switch step {
	case StepWelcome:
		return handleWelcome(sc, data, event)
	case StepConfirmAddresses:
		return handleConfirmAddresses(sc, data, event)
	case StepCargo:
		return handleCargo(sc, data, event)
	case StepVolume:
		return handleVolume(sc, data, event)
	case StepPickupCount:
		return handlePickupCount(sc, data, event)
	case StepAddrFrom:
		return handleAddr(sc, data, event, StepFloorFrom)
	case StepFloorFrom:
		return handleFloorFrom(sc, data, event, 0)
	case StepAddrFrom2:
		return handleAddr2(sc, data, event, StepFloorFrom2)
	case StepFloorFrom2:
		return handleFloorFrom(sc, data, event, 1)
	case StepAddrFrom3:
		return handleAddr3(sc, data, event, StepFloorFrom3)
	case StepFloorFrom3:
		return handleFloorFrom(sc, data, event, 2)
	case StepAddrTo:
		return handleAddrTo(sc, data, event)
	case StepFloorTo:
		return handleFloorTo(sc, data, event)
	case StepDate:
		return handleDate(sc, data, event)
	case StepSpecificDate:
		return handleSpecificDate(sc, data, event)
	case StepTimeSlot:
		return handleTimeSlot(sc, data, event)
	case StepExactTime:
		return handleExactTime(sc, data, event)
	case StepPhotoMenu:
		return handlePhotoMenu(sc, data, event)
	case StepPhotoWait:
		return handlePhotoWait(sc, data, event)
	case StepExtras:
		return handleExtras(sc, data, event)
	case StepEstimate:
		return handleEstimate(sc, data, event)
	default:
		return reject(data, step, "cargo_prompt")
	}
}

func handleWelcome(sc stepContext, data LeadData, event InputEvent) stepResult {
	if event.Text != nil {
		if prefill, ok := DetectPrefill(*event.Text); ok {
			data = ApplyPrefill(sc.Catalog, data, prefill)
			return advance(data, StepConfirmAddresses)
		}
	}
	return advance(data, StepCargo)
}

func handleConfirmAddresses(sc stepContext, data LeadData, event InputEvent) stepResult {
	if event.Button == nil && event.Text == nil {
		return reject(data, StepConfirmAddresses, "confirm_addresses_prompt")
	}
	text := valueOf(event)
	switch DetectIntent(sc.Lang, text) {
	case IntentYes:
		if data.CargoRaw != "" {
			return advance(data, nextAfterCargo(data))
		}
		return advance(data, StepCargo)
	case IntentNo:
		data.Pickups = nil
		data.Destination = Address{}
		data.CargoRaw = ""
		data.Items = nil
		data.VolumeCategory = ""
		return advance(data, StepCargo)
	default:
		return reject(data, StepConfirmAddresses, "confirm_addresses_prompt")
	}
}

// nextAfterCargo picks pickup_count or volume depending on whether the
// volume category was already inferred from the cargo description.
func nextAfterCargo(data LeadData) Step {
	if data.VolumeCategory != "" {
		return StepPickupCount
	}
	return StepVolume
}

func valueOf(event InputEvent) string {
	if event.Text != nil {
		return *event.Text
	}
	if event.Button != nil {
		return *event.Button
	}
	return ""
}

func handleCargo(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	if strings.TrimSpace(text) == "" {
		return reject(data, StepCargo, "cargo_prompt")
	}
	data.CargoRaw = text
	data.Items = sc.Catalog.ExtractItems(text)
	data.VolumeCategory = sc.Catalog.InferVolume(text, data.Items)
	return advance(data, nextAfterCargo(data))
}

func handleVolume(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	volume, ok := parseVolumeCategory(text)
	if !ok {
		return reject(data, StepVolume, "volume_invalid")
	}
	data.VolumeCategory = volume
	return advance(data, StepPickupCount)
}

func handlePickupCount(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	count, ok := parsePickupCount(text)
	if !ok {
		return reject(data, StepPickupCount, "pickup_count_invalid")
	}
	data.PickupCount = count
	data.Pickups = make([]Address, 0, count)
	return advance(data, StepAddrFrom)
}

// addressFromEvent resolves an address step's input, preferring a shared GPS
// pin over free text when the provider delivered both a location and a
// caption in the same event.
func addressFromEvent(catalog *pricing.Catalog, event InputEvent) (Address, bool) {
	if event.Location != nil {
		return addressFromGeo(catalog, *event.Location), true
	}
	text := valueOf(event)
	if strings.TrimSpace(text) == "" {
		return Address{}, false
	}
	return addressFromText(catalog, text), true
}

// addressFromGeo builds an Address from a shared GPS pin, resolving a
// nearby locality name from the pricing table when one is close enough to
// be a meaningful landmark.
func addressFromGeo(catalog *pricing.Catalog, geo GeoPoint) Address {
	addr := addressFromText(catalog, formatGeoAddress(catalog, geo))
	addr.Geo = &geo
	return addr
}

func formatGeoAddress(catalog *pricing.Catalog, geo GeoPoint) string {
	coords := fmt.Sprintf("%.5f, %.5f", geo.Lat, geo.Lng)
	if catalog == nil {
		return coords
	}
	name, distanceKM, ok := catalog.NearestLocality(geo.Lat, geo.Lng)
	if !ok || distanceKM > catalog.Route.ShortRegionKM {
		return coords
	}
	return fmt.Sprintf("%s (near %s)", coords, name)
}

func handleAddr(sc stepContext, data LeadData, event InputEvent, next Step) stepResult {
	addr, ok := addressFromEvent(sc.Catalog, event)
	if !ok {
		return reject(data, StepAddrFrom, "addr_from_prompt")
	}
	data.Pickups = append(data.Pickups, addr)
	return advance(data, next)
}

func handleAddr2(sc stepContext, data LeadData, event InputEvent, next Step) stepResult {
	addr, ok := addressFromEvent(sc.Catalog, event)
	if !ok {
		return reject(data, StepAddrFrom2, "addr_from_prompt")
	}
	data.Pickups = append(data.Pickups, addr)
	return advance(data, next)
}

func handleAddr3(sc stepContext, data LeadData, event InputEvent, next Step) stepResult {
	addr, ok := addressFromEvent(sc.Catalog, event)
	if !ok {
		return reject(data, StepAddrFrom3, "addr_from_prompt")
	}
	data.Pickups = append(data.Pickups, addr)
	return advance(data, next)
}

// handleFloorFrom fills in the floor/elevator for pickup index idx and
// selects the next step: another pickup, or the destination address once
// every declared pickup has a floor recorded.
func handleFloorFrom(sc stepContext, data LeadData, event InputEvent, idx int) stepResult {
	text := valueOf(event)
	floorNum, elevator, ok := parseFloor(text)
	if !ok || idx >= len(data.Pickups) {
		return reject(data, floorStepFor(idx), "floor_invalid")
	}
	data.Pickups[idx].FloorNum = floorNum
	data.Pickups[idx].HasElevator = elevator

	switch {
	case idx+1 < data.PickupCount && idx+1 == 1:
		return advance(data, StepAddrFrom2)
	case idx+1 < data.PickupCount && idx+1 == 2:
		return advance(data, StepAddrFrom3)
	default:
		return advance(data, StepAddrTo)
	}
}

func floorStepFor(idx int) Step {
	switch idx {
	case 0:
		return StepFloorFrom
	case 1:
		return StepFloorFrom2
	default:
		return StepFloorFrom3
	}
}

func handleAddrTo(sc stepContext, data LeadData, event InputEvent) stepResult {
	addr, ok := addressFromEvent(sc.Catalog, event)
	if !ok {
		return reject(data, StepAddrTo, "addr_to_prompt")
	}
	data.Destination = addr
	return advance(data, StepFloorTo)
}

func handleFloorTo(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	floorNum, elevator, ok := parseFloor(text)
	if !ok {
		return reject(data, StepFloorTo, "floor_invalid")
	}
	data.Destination.FloorNum = floorNum
	data.Destination.HasElevator = elevator

	fromNames := make([]string, 0, len(data.Pickups))
	for _, p := range data.Pickups {
		fromNames = append(fromNames, p.AddressText)
	}
	route := sc.Catalog.ClassifyRoute(strings.Join(fromNames, "; "), data.Destination.AddressText)
	data.RouteClassification = &route
	return advance(data, StepDate)
}

func handleDate(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := strings.ToLower(strings.TrimSpace(valueOf(event)))
	switch text {
	case "specific":
		return advance(data, StepSpecificDate)
	case "this_week":
		now := sc.Clock.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		data.Date = today.AddDate(0, 0, thisWeekOffsetDays).Format("2006-01-02")
		return advance(data, StepTimeSlot)
	}

	iso, tooSoon, tooFar, ok := parseDate(text, sc.Clock.Now(), sc.Cfg.MaxDateDays)
	switch {
	case !ok:
		return reject(data, StepDate, "date_prompt")
	case tooSoon:
		return reject(data, StepDate, "date_too_soon")
	case tooFar:
		return reject(data, StepDate, "date_too_far")
	default:
		data.Date = iso
		return advance(data, StepTimeSlot)
	}
}

func handleSpecificDate(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	iso, tooSoon, tooFar, ok := parseDate(text, sc.Clock.Now(), sc.Cfg.MaxDateDays)
	switch {
	case !ok:
		return reject(data, StepSpecificDate, "date_invalid")
	case tooSoon:
		return reject(data, StepSpecificDate, "date_too_soon")
	case tooFar:
		return reject(data, StepSpecificDate, "date_too_far")
	default:
		data.Date = iso
		return advance(data, StepTimeSlot)
	}
}

func handleTimeSlot(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	window, ok := parseTimeWindow(text)
	if !ok {
		return reject(data, StepTimeSlot, "time_slot_invalid")
	}
	data.TimeWindow = window
	if window == "exact" {
		return advance(data, StepExactTime)
	}
	return advance(data, StepPhotoMenu)
}

func handleExactTime(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	exact, ok := parseExactTime(text)
	if !ok {
		return reject(data, StepExactTime, "exact_time_invalid")
	}
	data.ExactTime = exact
	return advance(data, StepPhotoMenu)
}

func handlePhotoMenu(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	switch DetectIntent(sc.Lang, text) {
	case IntentYes:
		return advance(data, StepPhotoWait)
	case IntentNo:
		return advance(data, StepExtras)
	default:
		return reject(data, StepPhotoMenu, "photo_menu_prompt")
	}
}

func handlePhotoWait(sc stepContext, data LeadData, event InputEvent) stepResult {
	if len(event.Media) > 0 {
		for _, m := range event.Media {
			data.Photos = append(data.Photos, m.SourceRef)
		}
		return reject(data, StepPhotoWait, "photo_wait_prompt")
	}
	text := valueOf(event)
	if DetectIntent(sc.Lang, text) == IntentDonePhotos {
		return advance(data, StepExtras)
	}
	return reject(data, StepPhotoWait, "photo_wait_prompt")
}

func handleExtras(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	data.Extras = parseExtras(text)
	return advance(data, StepEstimate)
}

func handleEstimate(sc stepContext, data LeadData, event InputEvent) stepResult {
	text := valueOf(event)
	switch DetectIntent(sc.Lang, text) {
	case IntentYes:
		return advance(data, StepDone)
	default:
		return reject(data, StepEstimate, "estimate_confirm_prompt")
	}
}
