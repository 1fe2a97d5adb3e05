package provider

import (
	"context"
	"errors"
	"testing"
)

type namedProvider struct {
	name string
}

func (p *namedProvider) TranslateBatch(_ context.Context, units []Unit, _ Options) ([]Result, error) {
	results := make([]Result, len(units))
	for i := range units {
		results[i] = Result{Text: units[i].Text, ProviderName: p.name}
	}
	return results, nil
}

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) SupportedLanguages() []string { return []string{"en"} }

func TestChainFollowsConfiguredOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("cloud, selfhosted ,ondevice")
	for _, name := range []string{"ondevice", "selfhosted", "cloud"} {
		if err := registry.Register(&namedProvider{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	chain := registry.Chain()
	if len(chain) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(chain))
	}
	got := []string{chain[0].Name(), chain[1].Name(), chain[2].Name()}
	want := []string{"cloud", "selfhosted", "ondevice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected chain order: %v", got)
		}
	}
}

func TestChainSkipsUnregisteredNames(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("cloud,selfhosted")
	if err := registry.Register(&namedProvider{name: "selfhosted"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	chain := registry.Chain()
	if len(chain) != 1 || chain[0].Name() != "selfhosted" {
		t.Fatalf("expected chain to skip the missing cloud provider, got %v", chain)
	}
}

func TestProviderEmptyNameResolvesPrimary(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("selfhosted,ondevice")
	if err := registry.Register(&namedProvider{name: "selfhosted"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	p, err := registry.Provider("")
	if err != nil {
		t.Fatalf("resolve primary: %v", err)
	}
	if p.Name() != "selfhosted" {
		t.Fatalf("expected primary selfhosted, got %q", p.Name())
	}

	if _, err := registry.Provider("cloud"); err == nil {
		t.Fatalf("expected unknown provider name to fail")
	}
}

func TestIsTransientClassification(t *testing.T) {
	t.Parallel()

	if !IsTransient(Transient(errors.New("timeout"))) {
		t.Fatalf("expected transient error to be retryable")
	}
	if IsTransient(Permanent(errors.New("bad pair"))) {
		t.Fatalf("expected permanent error not to be retryable")
	}
	if !IsTransient(errors.New("bare transport failure")) {
		t.Fatalf("expected unclassified errors to stay retryable")
	}
}
