package provider

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultOrder is used when PROVIDER_ORDER is unset.
const DefaultOrder = "selfhosted,ondevice"

// Registry stores translation providers and resolves the configured
// dispatch order: the first provider is primary, the rest are fallbacks.
type Registry struct {
	providers map[string]Provider
	order     []string
}

func NewRegistry(order string) *Registry {
	names := splitOrder(order)
	if len(names) == 0 {
		names = splitOrder(DefaultOrder)
	}
	return &Registry{
		providers: make(map[string]Provider),
		order:     names,
	}
}

// Register adds one provider.
func (r *Registry) Register(p Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if p == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(p.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = p
	return nil
}

// Provider resolves a provider by name. Empty names use the primary.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil || len(r.providers) == 0 {
		return nil, fmt.Errorf("no translation providers are registered")
	}

	resolved := normalizeProviderName(name)
	if resolved == "" {
		resolved = r.order[0]
	}
	if p, ok := r.providers[resolved]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("translation provider %q is not registered (available: %s)", resolved, strings.Join(r.ProviderNames(), ", "))
}

// Chain returns the registered providers in dispatch order. Names in the
// configured order with no registered provider are skipped.
func (r *Registry) Chain() []Provider {
	if r == nil {
		return nil
	}
	chain := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		if p, ok := r.providers[name]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitOrder(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := normalizeProviderName(part)
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
