package shared

import "strings"

var languageCodes = map[string]string{
	"english":    "en",
	"hindi":      "hi",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"arabic":     "ar",
	"portuguese": "pt",
	"bengali":    "bn",
	"tamil":      "ta",
	"telugu":     "te",
	"korean":     "ko",
	"japanese":   "ja",
	"chinese":    "zh",
	"mandarin":   "zh",
	"marathi":    "mr",
}

// LanguageCode maps a display language name to a two-letter code.
//
// Unknown names fall back to their first two letters; blank input yields "en".
func LanguageCode(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "en"
	}
	if code, ok := languageCodes[key]; ok {
		return code
	}
	if r := []rune(key); len(r) >= 2 {
		return string(r[:2])
	}
	return "en"
}

// PreferredLanguage returns the code for the first listed language, or "en".
func PreferredLanguage(languages []string) string {
	if len(languages) == 0 {
		return "en"
	}
	return LanguageCode(languages[0])
}
