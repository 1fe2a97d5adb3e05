package langdetect

import "testing"

func TestDetectWithConfidence(t *testing.T) {
	t.Parallel()

	code, confidence := DetectWithConfidence("The quick brown fox jumps over the lazy dog")
	if code != "en" {
		t.Fatalf("expected en, got %q", code)
	}
	if confidence <= 0 || confidence > 1 {
		t.Fatalf("confidence out of range: %f", confidence)
	}
}

func TestDetectRejectsShortSamples(t *testing.T) {
	t.Parallel()

	for _, sample := range []string{"", "   ", "ok", "12345", "!!!"} {
		if code, confidence := DetectWithConfidence(sample); code != "" || confidence != 0 {
			t.Fatalf("expected %q to be unclassifiable, got (%q, %f)", sample, code, confidence)
		}
	}
}

func TestDetectISO6391(t *testing.T) {
	t.Parallel()

	if code := DetectISO6391("El zorro marrón salta rápidamente sobre el perro perezoso"); code != "es" {
		t.Fatalf("expected es, got %q", code)
	}
}
