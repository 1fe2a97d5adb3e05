package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"horse.fit/babel/internal/language"
)

// CloudProvider translates through the OpenAI chat completions API.
type CloudProvider struct {
	client *openai.Client
	model  string
}

func NewCloudProvider(apiKey, model string) (*CloudProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the cloud provider")
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	return &CloudProvider{
		client: openai.NewClient(strings.TrimSpace(apiKey)),
		model:  strings.TrimSpace(model),
	}, nil
}

func (p *CloudProvider) Name() string {
	return "cloud"
}

func (p *CloudProvider) SupportedLanguages() []string {
	return language.SupportedCodes()
}

func (p *CloudProvider) TranslateBatch(ctx context.Context, units []Unit, opts Options) ([]Result, error) {
	if p == nil || p.client == nil {
		return nil, Permanent(fmt.Errorf("cloud provider is not initialized"))
	}

	results := make([]Result, 0, len(units))
	for _, unit := range units {
		result, err := p.translateUnit(ctx, unit, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *CloudProvider) translateUnit(ctx context.Context, unit Unit, opts Options) (Result, error) {
	sourceLang, detected := resolveSource(unit)
	target, ok := language.Lookup(unit.TargetLang)
	if !ok {
		return Result{}, Permanent(fmt.Errorf("unsupported target language %q", unit.TargetLang))
	}

	started := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildCloudInstruction(unit, opts, sourceLang, target.Name),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: unit.Text,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return Result{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, Transient(fmt.Errorf("completion returned no choices"))
	}

	translated := resp.Choices[0].Message.Content
	if strings.TrimSpace(translated) == "" {
		return Result{}, Transient(fmt.Errorf("completion was empty"))
	}

	return Result{
		Text:           translated,
		DetectedSource: detected,
		ProviderName:   p.Name(),
		LatencyMs:      time.Since(started).Milliseconds(),
	}, nil
}

func buildCloudInstruction(unit Unit, opts Options, sourceLang, targetName string) string {
	var b strings.Builder
	if sourceLang != "" {
		if src, ok := language.Lookup(sourceLang); ok {
			fmt.Fprintf(&b, "Translate the following %s text into %s.", src.Name, targetName)
		} else {
			fmt.Fprintf(&b, "Translate the following text into %s.", targetName)
		}
	} else {
		fmt.Fprintf(&b, "Translate the following text into %s.", targetName)
	}
	b.WriteString(" Output only the translation, no explanation.")
	if unit.Format == FormatHTML {
		b.WriteString(" Preserve all HTML tags and attributes exactly.")
	}
	if opts.PreserveEntities {
		b.WriteString(" Keep names, numbers, dates and placeholders unchanged.")
	}
	if opts.Formality != "" {
		fmt.Fprintf(&b, " Use a %s register.", opts.Formality)
	}
	return b.String()
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode >= 500:
			return Transient(err)
		case apiErr.HTTPStatusCode == 429:
			// Quota exhaustion is an account-level condition, not a blip.
			return Permanent(err)
		default:
			return Permanent(err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return Transient(err)
		}
		return Permanent(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return Transient(err)
	}
	return Transient(err)
}
