package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"movingintake/internal/pricing"
)

var (
	floorExpr    = regexp.MustCompile(`-?\d{1,2}`)
	noElevatorRe = regexp.MustCompile(`(?i)без\s*лифт|no\s*elevator|нет\s*лифт|ללא\s*מעלית|בלי\s*מעלית`)
	hasElevatorRe = regexp.MustCompile(`(?i)с\s*лифт|есть\s*лифт|with\s*elevator|has\s*elevator|יש\s*מעלית|עם\s*מעלית`)
	timeExpr     = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	extrasSplit  = regexp.MustCompile(`[,;\n]+|\s+and\s+`)
)

// parseFloor extracts a floor number and elevator flag from free text such
// as "3 без лифта" or "1 с лифтом"; text without a digit does not parse.
// Floor 0/1 (ground level)
// with no elevator mention defaults to HasElevator=true since low floors
// never trigger the floor surcharge or complexity guard either way.
func parseFloor(text string) (floorNum int, hasElevator bool, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false, false
	}
	match := floorExpr.FindString(trimmed)
	if match == "" {
		return 0, false, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false, false
	}
	elevator := true
	switch {
	case noElevatorRe.MatchString(trimmed):
		elevator = false
	case hasElevatorRe.MatchString(trimmed):
		elevator = true
	case n >= 2:
		// Ambiguous mid-rise floor with no elevator statement either way:
		// treat as no elevator, the conservative (higher-price) assumption.
		elevator = false
	}
	return n, elevator, true
}

var volumeAliases = map[string]string{
	"маленькая": "small", "небольшая": "small", "small": "small", "קטן": "small",
	"средняя": "medium", "medium": "medium", "בינוני": "medium",
	"большая": "large", "large": "large", "גדול": "large",
	"очень большая": "xl", "огромная": "xl", "extra-large": "xl", "extra large": "xl", "xl": "xl", "ענק": "xl",
}

func parseVolumeCategory(text string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	if v, ok := volumeAliases[key]; ok {
		return v, true
	}
	return "", false
}

var timeWindowAliases = map[string]string{
	"утро": "morning", "morning": "morning", "בוקר": "morning",
	"день": "day", "day": "day", "afternoon": "day", "צהריים": "day",
	"вечер": "evening", "evening": "evening", "ערב": "evening",
	"точное время": "exact", "exact": "exact", "exact time": "exact", "שעה מדויקת": "exact",
}

func parseTimeWindow(text string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	if v, ok := timeWindowAliases[key]; ok {
		return v, true
	}
	return "", false
}

func parseExactTime(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !timeExpr.MatchString(trimmed) {
		return "", false
	}
	return trimmed, true
}

// relativeDayWords maps exact relative-day keywords, longest first is not
// needed here since every entry matches the whole trimmed string.
var relativeDayWords = map[string]int{
	"сегодня": 0, "today": 0, "היום": 0,
	"завтра": 1, "tomorrow": 1, "מחר": 1,
	"послезавтра": 2, "day after tomorrow": 2, "מחרתיים": 2,
}

// thisWeekOffsetDays mirrors the original bot's "in the next 2-3 days"
// resolution for the this_week choice token: a fixed offset rather than a
// specific weekday, since the operator confirms the exact day by phone.
const thisWeekOffsetDays = 3

// weekdayName is one localized weekday token, keyed 0=Monday..6=Sunday.
type weekdayName struct {
	name    string
	weekday int
}

var weekdayNames = []weekdayName{
	{"понедельник", 0}, {"пн", 0}, {"вторник", 1}, {"вт", 1}, {"среда", 2}, {"ср", 2},
	{"четверг", 3}, {"чт", 3}, {"пятница", 4}, {"пт", 4}, {"суббота", 5}, {"сб", 5},
	{"воскресенье", 6}, {"вс", 6},
	{"среду", 2}, {"пятницу", 4}, {"субботу", 5},
	{"monday", 0}, {"mon", 0}, {"tuesday", 1}, {"tue", 1}, {"wednesday", 2}, {"wed", 2},
	{"thursday", 3}, {"thu", 3}, {"friday", 4}, {"fri", 4}, {"saturday", 5}, {"sat", 5},
	{"sunday", 6}, {"sun", 6},
	{"שני", 0}, {"יום שני", 0}, {"שלישי", 1}, {"יום שלישי", 1}, {"רביעי", 2}, {"יום רביעי", 2},
	{"חמישי", 3}, {"יום חמישי", 3}, {"שישי", 4}, {"יום שישי", 4}, {"שבת", 5},
	{"ראשון", 6}, {"יום ראשון", 6},
}

var nextPrefixRe = regexp.MustCompile(`(?i)^(следующ(?:ий|ую|ее)|next|שבוע הבא)\s+`)
var weekdayPrepRe = regexp.MustCompile(`(?i)^(в|on|ב)\s+`)

// monthName is one localized month token, keyed 1=January..12=December.
type monthName struct {
	name  string
	month time.Month
}

var monthNames = []monthName{
	{"январь", 1}, {"января", 1}, {"янв", 1}, {"февраль", 2}, {"февраля", 2}, {"фев", 2},
	{"март", 3}, {"марта", 3}, {"апрель", 4}, {"апреля", 4}, {"апр", 4},
	{"май", 5}, {"мая", 5}, {"июнь", 6}, {"июня", 6}, {"июль", 7}, {"июля", 7},
	{"август", 8}, {"августа", 8}, {"авг", 8}, {"сентябрь", 9}, {"сентября", 9}, {"сен", 9},
	{"октябрь", 10}, {"октября", 10}, {"окт", 10}, {"ноябрь", 11}, {"ноября", 11}, {"ноя", 11},
	{"декабрь", 12}, {"декабря", 12}, {"дек", 12},
	{"january", 1}, {"jan", 1}, {"february", 2}, {"feb", 2}, {"march", 3}, {"mar", 3},
	{"april", 4}, {"apr", 4}, {"may", 5}, {"june", 6}, {"jun", 6}, {"july", 7}, {"jul", 7},
	{"august", 8}, {"aug", 8}, {"september", 9}, {"sep", 9}, {"october", 10}, {"oct", 10},
	{"november", 11}, {"nov", 11}, {"december", 12}, {"dec", 12},
	{"ינואר", 1}, {"פברואר", 2}, {"מרץ", 3}, {"אפריל", 4}, {"מאי", 5}, {"יוני", 6},
	{"יולי", 7}, {"אוגוסט", 8}, {"ספטמבר", 9}, {"אוקטובר", 10}, {"נובמבר", 11}, {"דצמבר", 12},
}

var dayThenMonthRe = regexp.MustCompile(`^(\d{1,2})[\s.]+([a-zа-яא-ת]+)$`)
var monthThenDayRe = regexp.MustCompile(`^([a-zа-яא-ת]+)[\s.]+(\d{1,2})(?:st|nd|rd|th)?$`)

// parseDate resolves free text into an ISO date, classifying it against the
// [today, today+maxDays] acceptance window. relativeTo is the session
// clock's current instant, truncated to a calendar day for comparison.
// Beyond the exact relative keywords and strict ISO format, it also
// understands weekday names ("next friday", "в пятницу") and day+month names
// ("5 марта", "march 5th") in Russian, English, and Hebrew.
func parseDate(text string, relativeTo time.Time, maxDays int) (iso string, tooSoon, tooFar, ok bool) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	today := time.Date(relativeTo.Year(), relativeTo.Month(), relativeTo.Day(), 0, 0, 0, 0, time.UTC)

	target, ok := resolveNaturalDate(trimmed, today)
	if !ok {
		return "", false, false, false
	}

	diffDays := int(target.Sub(today).Hours() / 24)
	if diffDays < 0 {
		return target.Format("2006-01-02"), true, false, true
	}
	if diffDays > maxDays {
		return target.Format("2006-01-02"), false, true, true
	}
	return target.Format("2006-01-02"), false, false, true
}

func resolveNaturalDate(trimmed string, today time.Time) (time.Time, bool) {
	if trimmed == "" {
		return time.Time{}, false
	}
	if offset, ok := relativeDayWords[trimmed]; ok {
		return today.AddDate(0, 0, offset), true
	}
	if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if target, ok := resolveWeekdayName(trimmed, today); ok {
		return target, true
	}
	if target, ok := resolveDayMonthName(trimmed, today); ok {
		return target, true
	}
	return time.Time{}, false
}

// resolveWeekdayName matches an optional "next"/preposition prefix followed
// by a localized weekday name, then applies the next-occurrence rule: the
// same weekday as today always means next week, never today.
func resolveWeekdayName(trimmed string, today time.Time) (time.Time, bool) {
	isNext := false
	rest := trimmed
	if nextPrefixRe.MatchString(rest) {
		isNext = true
		rest = nextPrefixRe.ReplaceAllString(rest, "")
	} else if weekdayPrepRe.MatchString(rest) {
		rest = weekdayPrepRe.ReplaceAllString(rest, "")
	}
	rest = strings.TrimSpace(rest)

	weekday, found := -1, false
	for _, w := range weekdayNames {
		if w.name == rest {
			weekday, found = w.weekday, true
			break
		}
	}
	if !found {
		return time.Time{}, false
	}

	todayWeekday := int(today.Weekday()+6) % 7 // Monday=0..Sunday=6
	daysAhead := (weekday - todayWeekday + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	if isNext {
		daysAhead += 7
	}
	return today.AddDate(0, 0, daysAhead), true
}

// resolveDayMonthName matches "5 march" or "march 5th" style phrases in any
// of the three languages, rolling over to next year when the resulting date
// has already passed.
func resolveDayMonthName(trimmed string, today time.Time) (time.Time, bool) {
	var dayStr, monthToken string
	if m := dayThenMonthRe.FindStringSubmatch(trimmed); m != nil {
		dayStr, monthToken = m[1], m[2]
	} else if m := monthThenDayRe.FindStringSubmatch(trimmed); m != nil {
		monthToken, dayStr = m[1], m[2]
	} else {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthByName(monthToken)
	if !ok {
		return time.Time{}, false
	}
	return resolveDayMonth(day, month, today)
}

func monthByName(token string) (time.Month, bool) {
	for _, m := range monthNames {
		if m.name == token {
			return m.month, true
		}
	}
	return 0, false
}

// resolveDayMonth builds a calendar date from a day+month pair with no
// explicit year, rolling forward to next year when this year's occurrence
// has already passed. Returns ok=false when the day/month combination is
// invalid in the current year (e.g. February 31, or February 29 outside a
// leap year), or in next year when rolling over.
func resolveDayMonth(day int, month time.Month, today time.Time) (time.Time, bool) {
	candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if candidate.Month() != month || candidate.Day() != day {
		return time.Time{}, false
	}
	if !candidate.After(today) {
		candidate = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month || candidate.Day() != day {
			return time.Time{}, false
		}
	}
	return candidate, true
}

var extrasAliases = map[string]string{
	"грузчики": "movers", "movers": "movers", "סבלים": "movers",
	"сборка": "assembly", "разборка": "assembly", "assembly": "assembly", "הרכבה": "assembly", "פירוק": "assembly",
	"упаковка": "packing", "packing": "packing", "אריזה": "packing",
}

var noExtrasWords = map[string]bool{
	"нет": true, "no": true, "לא": true, "none": true,
}

// parseExtras splits free text on common delimiters and matches each
// fragment against the known extras vocabulary; unrecognized fragments are
// dropped silently rather than rejecting the whole turn, since extras are
// advisory (they only affect pricing, never block progression).
func parseExtras(text string) []string {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" || noExtrasWords[trimmed] {
		return nil
	}
	fragments := extrasSplit.Split(trimmed, -1)
	seen := map[string]bool{}
	var out []string
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if key, ok := extrasAliases[f]; ok && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func parsePickupCount(text string) (int, bool) {
	trimmed := strings.TrimSpace(text)
	switch trimmed {
	case "1":
		return 1, true
	case "2":
		return 2, true
	case "3":
		return 3, true
	}
	return 0, false
}

// addressFromText resolves free text into an Address, populating LocalityKey
// with the canonical locality name embedded in it (never the raw text
// itself), so anything downstream that must not carry a street address —
// the crew fallback projection in particular — has a PII-safe field to read.
func addressFromText(catalog *pricing.Catalog, text string) Address {
	trimmed := strings.TrimSpace(text)
	addr := Address{AddressText: trimmed}
	if catalog == nil {
		return addr
	}
	if key, ok := catalog.LocalityKey(trimmed); ok {
		addr.LocalityKey = catalog.Route.Localities[key].CanonicalName
	}
	return addr
}
