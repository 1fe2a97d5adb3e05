package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the ISO 639-1 code of the most likely language, or
// an empty string when the sample is too short to classify reliably.
func DetectISO6391(text string) string {
	code, _ := DetectWithConfidence(text)
	return code
}

// DetectWithConfidence returns the most likely ISO 639-1 code together with
// the detector's confidence in [0,1]. Short or letterless samples yield an
// empty code with zero confidence.
func DetectWithConfidence(text string) (string, float64) {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return "", 0
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return "", 0
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return "", 0
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return "", 0
	}

	confidence := getDetector().ComputeLanguageConfidence(sample, language)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return code, confidence
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
