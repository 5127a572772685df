package phone

import "strings"

// Normalize reduces a phone number to digits only, so formats like "+1",
// "001", spaces, and dashes all map to the same directory key.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Best-effort mapping from country calling code to a default language for
// the user base. Many countries are multilingual; this is a pragmatic
// default, not definitive.
var codeToLang = map[string]string{
	// English (NANP + common English-speaking countries)
	"1": "en", "44": "en", "61": "en", "64": "en", "65": "en",
	"353": "en", "27": "en", "234": "en", "91": "en",

	// Spanish
	"34": "es", "52": "es", "57": "es", "51": "es", "54": "es",
	"56": "es", "58": "es", "593": "es", "595": "es", "598": "es",
	"507": "es", "506": "es", "505": "es", "504": "es", "503": "es",
	"502": "es", "53": "es",

	// French
	"33": "fr", "32": "fr", "241": "fr", "225": "fr", "221": "fr",
	"213": "fr", "216": "fr", "212": "fr", "590": "fr", "596": "fr",
	"594": "fr", "262": "fr",

	// German
	"49": "de", "43": "de", "41": "de",

	// Italian
	"39": "it", "379": "it",

	// Portuguese
	"351": "pt", "55": "pt", "238": "pt", "239": "pt", "244": "pt",
	"245": "pt", "258": "pt",
}

// Language guesses a default reply language from the phone's country calling
// code. Calling codes are 1-3 digits; the longest match wins. Falls back to
// English.
func Language(phoneNumber string) string {
	digits := Normalize(phoneNumber)
	for _, n := range []int{3, 2, 1} {
		if len(digits) < n {
			continue
		}
		if lang, ok := codeToLang[digits[:n]]; ok {
			return lang
		}
	}
	return "en"
}
