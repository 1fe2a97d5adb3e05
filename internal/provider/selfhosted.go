package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horse.fit/babel/internal/language"
)

const (
	// DefaultSelfHostedEndpoint points to a local OpenAI-compatible
	// translation endpoint.
	DefaultSelfHostedEndpoint = "http://127.0.0.1:8845/v1"
	// DefaultSelfHostedModel is the default HY-MT model name.
	DefaultSelfHostedModel = "tencent/HY-MT1.5-7B"
)

// SelfHostedProvider translates by calling an OpenAI-compatible chat
// completions endpoint, typically a machine-translation model served nearby.
type SelfHostedProvider struct {
	endpointURL string
	model       string
	client      *http.Client
}

func NewSelfHostedProvider(endpoint, model string) *SelfHostedProvider {
	normalizedEndpoint := normalizeEndpoint(endpoint)
	trimmedModel := strings.TrimSpace(model)
	if trimmedModel == "" {
		trimmedModel = DefaultSelfHostedModel
	}
	return &SelfHostedProvider{
		endpointURL: chatCompletionsURL(normalizedEndpoint),
		model:       trimmedModel,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *SelfHostedProvider) Name() string {
	return "selfhosted"
}

func (p *SelfHostedProvider) SupportedLanguages() []string {
	return language.SupportedCodes()
}

func (p *SelfHostedProvider) TranslateBatch(ctx context.Context, units []Unit, opts Options) ([]Result, error) {
	if p == nil || p.client == nil {
		return nil, Permanent(fmt.Errorf("selfhosted provider is not initialized"))
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

func (p *SelfHostedProvider) translateUnit(ctx context.Context, unit Unit, opts Options) (Result, error) {
	if unit.Text == "" {
		return Result{}, Permanent(fmt.Errorf("text is required"))
	}

	targetLang := language.NormalizeCode(unit.TargetLang)
	if targetLang == "" {
		return Result{}, Permanent(fmt.Errorf("target language %q is not valid", unit.TargetLang))
	}
	sourceLang, detected := resolveSource(unit)

	prompt := buildHYMTPrompt(unit.Text, sourceLang, targetLang)
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: 0.7,
		TopP:        0.6,
	})
	if err != nil {
		return Result{}, Permanent(fmt.Errorf("marshal translation request: %w", err))
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, Permanent(fmt.Errorf("build translation request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, Transient(fmt.Errorf("read translation response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, classifyStatus(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, Transient(fmt.Errorf("decode translation response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return Result{}, Transient(fmt.Errorf("translation response missing choices"))
	}

	translated := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if translated == "" {
		return Result{}, Transient(fmt.Errorf("translation response was empty"))
	}

	return Result{
		Text:           translated,
		DetectedSource: detected,
		ProviderName:   p.Name(),
		LatencyMs:      time.Since(started).Milliseconds(),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func buildHYMTPrompt(text, sourceLang, targetLang string) string {
	target := targetLanguageLabel(targetLang)
	if isChineseLanguage(sourceLang) || isChineseLanguage(targetLang) {
		// HY-MT zh<=>xx template.
		return fmt.Sprintf("将以下文本翻译为%s，注意只需要输出翻译后的结果，不要额外解释：\n\n%s", target.chinese, text)
	}
	// HY-MT xx<=>xx template.
	return fmt.Sprintf("Translate the following segment into %s, without additional explanation.\n\n%s", target.english, text)
}

type languageLabel struct {
	english string
	chinese string
}

var hymtLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", chinese: "阿拉伯语"},
	"de": {english: "German", chinese: "德语"},
	"en": {english: "English", chinese: "英语"},
	"es": {english: "Spanish", chinese: "西班牙语"},
	"fr": {english: "French", chinese: "法语"},
	"id": {english: "Indonesian", chinese: "印度尼西亚语"},
	"it": {english: "Italian", chinese: "意大利语"},
	"ja": {english: "Japanese", chinese: "日语"},
	"ko": {english: "Korean", chinese: "韩语"},
	"pl": {english: "Polish", chinese: "波兰语"},
	"pt": {english: "Portuguese", chinese: "葡萄牙语"},
	"ru": {english: "Russian", chinese: "俄语"},
	"th": {english: "Thai", chinese: "泰语"},
	"tr": {english: "Turkish", chinese: "土耳其语"},
	"vi": {english: "Vietnamese", chinese: "越南语"},
	"zh": {english: "Chinese", chinese: "中文"},
}

func targetLanguageLabel(lang string) languageLabel {
	normalized := language.NormalizeCode(lang)
	if labels, ok := hymtLanguageLabels[normalized]; ok {
		return labels
	}
	fallback := strings.TrimSpace(lang)
	if fallback == "" {
		fallback = "English"
	}
	return languageLabel{english: fallback, chinese: fallback}
}

func isChineseLanguage(lang string) bool {
	return language.NormalizeCode(lang) == "zh"
}

func classifyStatus(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var errPayload chatErrorResponse
	if unmarshalErr := json.Unmarshal(body, &errPayload); unmarshalErr == nil {
		if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
			message = msg
		}
	}

	err := fmt.Errorf("translation endpoint status %d: %s", statusCode, message)
	if statusCode >= 500 || statusCode == http.StatusTooManyRequests {
		return Transient(err)
	}
	return Permanent(err)
}

// Dial failures, timeouts and connection resets are all worth retrying;
// context cancellation propagates as-is so the coordinator can stop early.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Transient(fmt.Errorf("send translation request: %w", err))
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultSelfHostedEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultSelfHostedEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}

func chatCompletionsURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultSelfHostedEndpoint + "/chat/completions"
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/chat/completions"
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/v1/chat/completions"
	}

	return parsed.String()
}
