package provider

import (
	"context"
	"errors"
	"testing"
)

func TestOnDeviceEchoesSameLanguagePairs(t *testing.T) {
	t.Parallel()

	p := NewOnDeviceProvider()
	results, err := p.TranslateBatch(context.Background(), []Unit{
		{Text: "unchanged", SourceLang: "en", TargetLang: "en"},
	}, Options{})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if results[0].Text != "unchanged" {
		t.Fatalf("expected input echoed, got %q", results[0].Text)
	}
}

func TestOnDeviceRejectsCrossLanguagePairs(t *testing.T) {
	t.Parallel()

	p := NewOnDeviceProvider()
	_, err := p.TranslateBatch(context.Background(), []Unit{
		{Text: "Hello", SourceLang: "en", TargetLang: "es"},
	}, Options{})

	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != KindPermanent {
		t.Fatalf("expected permanent rejection, got %v", err)
	}
}
