package engine

import "unicode"

// DetectLanguage runs script-based detection over text: any Hebrew-block
// rune selects "he", any Cyrillic-block rune selects "ru", otherwise "en".
// Hebrew is checked first since a mixed Hebrew/Latin string (e.g. a Hebrew
// sentence with an embedded English brand name) should still resolve to
// Hebrew.
func DetectLanguage(text string) string {
	hasCyrillic := false
	for _, r := range text {
		if unicode.Is(unicode.Hebrew, r) {
			return "he"
		}
		if unicode.Is(unicode.Cyrillic, r) {
			hasCyrillic = true
		}
	}
	if hasCyrillic {
		return "ru"
	}
	return "en"
}

// ApplyLanguageDetection switches the session's language when free text
// yields a detectable script. Button-only turns must never call this — the
// step invariant "language persists across button turns" is enforced by the
// caller only invoking this on Text events.
func ApplyLanguageDetection(current, text string) string {
	if text == "" {
		return current
	}
	detected := DetectLanguage(text)
	// Text with no distinguishing script (pure digits/punctuation) detects
	// as "en" by default; only switch away from a non-en language when the
	// text actually contains a distinguishing letter.
	if detected == "en" && !hasLetters(text) {
		return current
	}
	return detected
}

func hasLetters(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
