package engine

import "strings"

// Intent is one of the universal intents recognized ahead of step-specific
// validation.
type Intent string

const (
	IntentNone       Intent = ""
	IntentReset      Intent = "reset"
	IntentDonePhotos Intent = "done_photos"
	IntentYes        Intent = "yes"
	IntentNo         Intent = "no"
)

// intentTable maps each language to its recognized phrase -> intent lookup.
// Matching is case-insensitive and exact after trimming, mirroring a button
// payload comparison; free text that merely contains one of these words in a
// longer sentence does not match, to avoid seizing "yes" out of unrelated
// prose.
var intentTable = map[string]map[string]Intent{
	"ru": {
		"сброс": IntentReset, "заново": IntentReset, "reset": IntentReset,
		"готово": IntentDonePhotos, "хватит": IntentDonePhotos, "done": IntentDonePhotos,
		"да": IntentYes, "yes": IntentYes, "ага": IntentYes,
		"нет": IntentNo, "no": IntentNo,
	},
	"en": {
		"reset": IntentReset, "start over": IntentReset,
		"done": IntentDonePhotos, "finished": IntentDonePhotos,
		"yes": IntentYes, "yep": IntentYes, "y": IntentYes,
		"no": IntentNo, "n": IntentNo,
	},
	"he": {
		"איפוס": IntentReset, "מחדש": IntentReset, "reset": IntentReset,
		"סיימתי": IntentDonePhotos, "done": IntentDonePhotos,
		"כן": IntentYes, "yes": IntentYes,
		"לא": IntentNo, "no": IntentNo,
	},
}

// DetectIntent normalizes text against the given language's intent table.
// Button payloads should be passed through the same function since several
// button labels double as universal intents (e.g. a "Reset" button).
func DetectIntent(language, text string) Intent {
	table, ok := intentTable[language]
	if !ok {
		table = intentTable["ru"]
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	if intent, ok := table[normalized]; ok {
		return intent
	}
	return IntentNone
}
