package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// labels is the language-indexed label map driving crew message rendering.
// Every string a crew member sees comes from here or from the pricing
// catalog's item_labels table — never from user free text.
var labels = map[string]map[string]string{
	"ru": {
		"header":       "Заявка",
		"route":        "Маршрут",
		"date":         "Дата",
		"time_window":  "Время",
		"volume":       "Объем",
		"pickup":       "Точка %d",
		"delivery":     "Доставка",
		"elevator":     "лифт",
		"no_elevator":  "без лифта",
		"floor":        "этаж %d",
		"extras":       "Доп. услуги",
		"items":        "Вещи",
		"estimate":     "Оценка",
		"to_confirm":   "уточняется",
		"morning":      "утро",
		"day":          "день",
		"evening":      "вечер",
		"movers":       "грузчики",
		"assembly":     "сборка/разборка",
		"packing":      "упаковка",
	},
	"en": {
		"header":       "Lead",
		"route":        "Route",
		"date":         "Date",
		"time_window":  "Time",
		"volume":       "Volume",
		"pickup":       "Pickup %d",
		"delivery":     "Delivery",
		"elevator":     "elevator",
		"no_elevator":  "no elevator",
		"floor":        "floor %d",
		"extras":       "Extras",
		"items":        "Items",
		"estimate":     "Estimate",
		"to_confirm":   "to be confirmed",
		"morning":      "morning",
		"day":          "day",
		"evening":      "evening",
		"movers":       "movers",
		"assembly":     "assembly",
		"packing":      "packing",
	},
	"he": {
		"header":       "ליד",
		"route":        "מסלול",
		"date":         "תאריך",
		"time_window":  "שעה",
		"volume":       "נפח",
		"pickup":       "איסוף %d",
		"delivery":     "מסירה",
		"elevator":     "מעלית",
		"no_elevator":  "אין מעלית",
		"floor":        "קומה %d",
		"extras":       "שירותים נוספים",
		"items":        "פריטים",
		"estimate":     "הערכה",
		"to_confirm":   "בבדיקה",
		"morning":      "בוקר",
		"day":          "צהריים",
		"evening":      "ערב",
		"movers":       "סבלים",
		"assembly":     "פירוק/הרכבה",
		"packing":      "אריזה",
	},
}

func labelsFor(lang string) map[string]string {
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels["ru"]
}

// RenderCrewMessage renders v into the crew's copy-paste text block. Multi-pickup
// leads render as ordered "Pickup k: floor N (elevator|no elevator)" lines.
func RenderCrewMessage(v CrewLeadView, lang string) string {
	L := labelsFor(lang)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", L["header"], LeadDisplayNumber(v.LeadNumber, ""))

	route := joinNonEmpty(v.FromLocalities, " / ") + " -> " + v.ToLocality
	fmt.Fprintf(&b, "%s: %s\n", L["route"], route)

	if v.Date != "" {
		fmt.Fprintf(&b, "%s: %s\n", L["date"], v.Date)
	}
	if v.TimeWindow != "" {
		tw := L[v.TimeWindow]
		if tw == "" {
			tw = v.TimeWindow
		}
		if v.ExactTime != "" {
			tw = tw + " (" + v.ExactTime + ")"
		}
		fmt.Fprintf(&b, "%s: %s\n", L["time_window"], tw)
	}
	if v.VolumeCategory != "" {
		fmt.Fprintf(&b, "%s: %s\n", L["volume"], v.VolumeCategory)
	}

	for i, p := range v.Pickups {
		fmt.Fprintf(&b, fmt.Sprintf(L["pickup"], i+1)+": "+L["floor"]+" (%s)\n", p.FloorNum, elevatorLabel(L, p.HasElevator))
	}
	fmt.Fprintf(&b, "%s: "+L["floor"]+" (%s)\n", L["delivery"], v.Destination.FloorNum, elevatorLabel(L, v.Destination.HasElevator))

	if len(v.Extras) > 0 {
		var names []string
		for _, e := range v.Extras {
			if n, ok := L[e]; ok {
				names = append(names, n)
			} else {
				names = append(names, e)
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", L["extras"], strings.Join(names, ", "))
	}

	if len(v.Items) > 0 {
		var lines []string
		for _, it := range v.Items {
			if it.Qty > 1 {
				lines = append(lines, it.Label+" x"+strconv.Itoa(it.Qty))
			} else {
				lines = append(lines, it.Label)
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", L["items"], strings.Join(lines, ", "))
	}

	if !v.EstimateSuppressed && (v.EstimateMin > 0 || v.EstimateMax > 0) {
		fmt.Fprintf(&b, "%s: %d-%d %s\n", L["estimate"], v.EstimateMin, v.EstimateMax, v.Currency)
	} else {
		fmt.Fprintf(&b, "%s: %s\n", L["estimate"], L["to_confirm"])
	}

	return strings.TrimRight(b.String(), "\n")
}

func elevatorLabel(L map[string]string, hasElevator bool) string {
	if hasElevator {
		return L["elevator"]
	}
	return L["no_elevator"]
}
