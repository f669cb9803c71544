package translate

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// codes are the language codes the translation backend accepts.
var codes = []string{
	"af", "sq", "am", "ar", "hy", "az", "eu", "be", "bn", "bs", "bg", "ca", "ceb", "ny",
	"zh-cn", "zh-tw", "co", "hr", "cs", "da", "nl", "en", "eo", "et", "tl", "fi", "fr",
	"fy", "gl", "ka", "de", "el", "gu", "ht", "ha", "haw", "iw", "he", "hi", "hmn", "hu",
	"is", "ig", "id", "ga", "it", "ja", "jw", "kn", "kk", "km", "ko", "ku", "ky", "lo",
	"la", "lv", "lt", "lb", "mk", "mg", "ms", "ml", "mt", "mi", "mr", "mn", "my", "ne",
	"no", "or", "ps", "fa", "pl", "pt", "pa", "ro", "ru", "sm", "gd", "sr", "st", "sn",
	"sd", "si", "sk", "sl", "so", "es", "su", "sw", "sv", "tg", "ta", "te", "th", "tr",
	"uk", "ur", "ug", "uz", "vi", "cy", "xh", "yi", "yo", "zu",
}

// nameOverrides holds the names the backend uses where they differ from the
// CLDR English display names.
var nameOverrides = map[string]string{
	"zh-cn": "chinese (simplified)",
	"zh-tw": "chinese (traditional)",
	"ny":    "chichewa",
	"tl":    "filipino",
	"fy":    "frisian",
	"jw":    "javanese",
	"iw":    "hebrew",
	"ku":    "kurdish (kurmanji)",
	"my":    "myanmar (burmese)",
	"or":    "odia",
	"gd":    "scots gaelic",
	"st":    "sesotho",
	"ug":    "uyghur",
	"hmn":   "hmong",
	"haw":   "hawaiian",
	"ceb":   "cebuano",
	"ht":    "haitian creole",
}

// Language is a supported language.
type Language struct {
	Code string
	Name string
}

var (
	titler    = cases.Title(language.English)
	languages = buildLanguages()
	byCode    = func() map[string]Language {
		m := make(map[string]Language, len(languages))
		for _, l := range languages {
			m[l.Code] = l
		}
		return m
	}()
)

func buildLanguages() []Language {
	namer := display.English.Languages()
	out := make([]Language, 0, len(codes))
	for _, c := range codes {
		name, ok := nameOverrides[c]
		if !ok {
			if tag, err := language.Parse(c); err == nil {
				name = namer.Name(tag)
			}
		}
		if name == "" {
			name = c
		}
		out = append(out, Language{Code: c, Name: titler.String(name)})
	}
	return out
}

// Languages returns every supported language in backend order.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// Lookup finds a language by code, case-insensitively.
func Lookup(code string) (Language, bool) {
	l, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return l, ok
}

// Name returns the display name for code, or code itself when unknown.
func Name(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return code
}

// Codes returns the supported codes sorted alphabetically.
func Codes() []string {
	out := append([]string(nil), codes...)
	sort.Strings(out)
	return out
}
