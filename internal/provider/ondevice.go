package provider

import (
	"context"
	"fmt"
	"time"

	"horse.fit/babel/internal/language"
)

// OnDeviceProvider is the embedded last-resort engine. It handles
// same-language pairs without leaving the process (echoing the input) and
// rejects real translation work with a permanent error so the coordinator
// never retries it. It exists so a gateway with no reachable backend still
// answers detection-only and pass-through traffic.
type OnDeviceProvider struct{}

func NewOnDeviceProvider() *OnDeviceProvider {
	return &OnDeviceProvider{}
}

func (p *OnDeviceProvider) Name() string {
	return "ondevice"
}

func (p *OnDeviceProvider) SupportedLanguages() []string {
	return language.SupportedCodes()
}

func (p *OnDeviceProvider) TranslateBatch(ctx context.Context, units []Unit, opts Options) ([]Result, error) {
	_ = opts

	results := make([]Result, 0, len(units))
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sourceLang, detected := resolveSource(unit)
		started := time.Now()

		if sourceLang == "" || language.NormalizeCode(sourceLang) != language.NormalizeCode(unit.TargetLang) {
			return nil, Permanent(fmt.Errorf("on-device engine cannot translate %q to %q", unit.SourceLang, unit.TargetLang))
		}

		results = append(results, Result{
			Text:           unit.Text,
			DetectedSource: detected,
			ProviderName:   p.Name(),
			LatencyMs:      time.Since(started).Milliseconds(),
		})
	}
	return results, nil
}
