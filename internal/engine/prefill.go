package engine

import (
	"strings"

	"movingintake/internal/pricing"
)

// prefillMarker is the sentinel prefix a landing-page producer prepends to
// the very first inbound message when the visitor has already filled in a
// quote form on the site before opening the chat. The exact grammar of this
// payload is owned by the external producer, so this parser is deliberately
// forgiving: any recognized "key=value" pair is applied, unrecognized ones
// are ignored, and a payload with zero recognized fields is treated as
// ordinary free text rather than a prefill.
const prefillMarker = "LEADFORM|"

// PrefillData is the subset of a landing-page quote form the engine can
// seed a session with.
type PrefillData struct {
	FromAddress string
	ToAddress   string
	CargoRaw    string
}

// DetectPrefill reports whether text carries a landing-prefill payload and,
// if so, extracts it. Fields are pipe-delimited "key=value" pairs following
// the marker, e.g. "LEADFORM|from=Tel Aviv, Dizengoff 10|to=Haifa|cargo=fridge, sofa".
func DetectPrefill(text string) (PrefillData, bool) {
	if !strings.HasPrefix(text, prefillMarker) {
		return PrefillData{}, false
	}
	body := strings.TrimPrefix(text, prefillMarker)
	fields := strings.Split(body, "|")

	var data PrefillData
	found := false
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "from":
			data.FromAddress = value
			found = true
		case "to":
			data.ToAddress = value
			found = true
		case "cargo":
			data.CargoRaw = value
			found = true
		}
	}
	return data, found
}

// ApplyPrefill seeds LeadData from a detected prefill payload. Items are
// still extracted from the prefilled cargo text (the catalog lookup itself
// is cheap and consistent). Once the user confirms via confirm_addresses,
// the cargo description is not asked again; the addresses are, because the
// pickup_count step resets the prefilled pickups and addr_to overwrites
// the destination.
func ApplyPrefill(catalog *pricing.Catalog, data LeadData, p PrefillData) LeadData {
	if p.FromAddress != "" {
		data.Pickups = []Address{addressFromText(catalog, p.FromAddress)}
		data.PickupCount = 1
	}
	if p.ToAddress != "" {
		data.Destination = addressFromText(catalog, p.ToAddress)
	}
	if p.CargoRaw != "" {
		data.CargoRaw = p.CargoRaw
		data.Items = catalog.ExtractItems(p.CargoRaw)
		if volume := catalog.InferVolume(p.CargoRaw, data.Items); volume != "" {
			data.VolumeCategory = volume
		}
	}
	return data
}
