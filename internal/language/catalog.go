package language

import "sort"

// Direction is the writing direction of a language.
type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// Info describes one supported language for API output.
type Info struct {
	Code                    string    `json:"code"`
	Name                    string    `json:"name"`
	Direction               Direction `json:"direction"`
	SupportsTransliteration bool      `json:"supports_transliteration"`
}

var catalog = map[string]Info{
	"ar": {Name: "Arabic", Direction: DirectionRTL, SupportsTransliteration: true},
	"de": {Name: "German", Direction: DirectionLTR},
	"en": {Name: "English", Direction: DirectionLTR},
	"es": {Name: "Spanish", Direction: DirectionLTR},
	"fa": {Name: "Persian", Direction: DirectionRTL, SupportsTransliteration: true},
	"fr": {Name: "French", Direction: DirectionLTR},
	"he": {Name: "Hebrew", Direction: DirectionRTL, SupportsTransliteration: true},
	"hi": {Name: "Hindi", Direction: DirectionLTR, SupportsTransliteration: true},
	"id": {Name: "Indonesian", Direction: DirectionLTR},
	"it": {Name: "Italian", Direction: DirectionLTR},
	"ja": {Name: "Japanese", Direction: DirectionLTR, SupportsTransliteration: true},
	"ko": {Name: "Korean", Direction: DirectionLTR, SupportsTransliteration: true},
	"nl": {Name: "Dutch", Direction: DirectionLTR},
	"pl": {Name: "Polish", Direction: DirectionLTR},
	"pt": {Name: "Portuguese", Direction: DirectionLTR},
	"ru": {Name: "Russian", Direction: DirectionLTR, SupportsTransliteration: true},
	"th": {Name: "Thai", Direction: DirectionLTR, SupportsTransliteration: true},
	"tr": {Name: "Turkish", Direction: DirectionLTR},
	"uk": {Name: "Ukrainian", Direction: DirectionLTR, SupportsTransliteration: true},
	"ur": {Name: "Urdu", Direction: DirectionRTL, SupportsTransliteration: true},
	"vi": {Name: "Vietnamese", Direction: DirectionLTR},
	"zh": {Name: "Chinese", Direction: DirectionLTR, SupportsTransliteration: true},
}

// Catalog returns the supported languages ordered by code.
func Catalog() []Info {
	items := make([]Info, 0, len(catalog))
	for code, info := range catalog {
		info.Code = code
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Code < items[j].Code
	})
	return items
}

// Lookup returns catalog info for a (possibly unnormalized) language tag.
func Lookup(raw string) (Info, bool) {
	code := NormalizeCode(raw)
	info, ok := catalog[code]
	if !ok {
		return Info{}, false
	}
	info.Code = code
	return info, true
}

// SupportedCodes returns the sorted ISO 639-1 codes of the catalog.
func SupportedCodes() []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
