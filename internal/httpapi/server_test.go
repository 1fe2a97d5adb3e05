package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/auth"
	"horse.fit/babel/internal/batch"
	"horse.fit/babel/internal/credstore"
	"horse.fit/babel/internal/provider"
	"horse.fit/babel/internal/ratelimit"
	"horse.fit/babel/internal/tmcache"
)

const testAPIKey = "bb_test_key"

type fixedProvider struct {
	mu           sync.Mutex
	calls        int
	translations map[string]string
}

func (p *fixedProvider) TranslateBatch(_ context.Context, units []provider.Unit, _ provider.Options) ([]provider.Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	results := make([]provider.Result, len(units))
	for i, unit := range units {
		text, ok := p.translations[unit.Text]
		if !ok {
			return nil, provider.Permanent(&unknownTextError{text: unit.Text})
		}
		results[i] = provider.Result{Text: text, ProviderName: "fixed", DetectedSource: "en"}
	}
	return results, nil
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) SupportedLanguages() []string { return []string{"en", "es"} }

func (p *fixedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type unknownTextError struct {
	text string
}

func (e *unknownTextError) Error() string { return "no translation for " + e.text }

type serverFixture struct {
	server   *Server
	provider *fixedProvider
	limiter  *ratelimit.Limiter
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store := credstore.NewStatic([]string{testAPIKey})
	authn := auth.New(store, "", time.Second, nil)
	limiter := ratelimit.New(time.Minute, 1000)
	cache := tmcache.New(100, time.Minute)

	fixed := &fixedProvider{translations: map[string]string{
		"Hello": "¡Hola!",
		"World": "Mundo",
	}}
	registry := provider.NewRegistry("fixed")
	if err := registry.Register(fixed); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	coordinator := batch.NewCoordinator(cache, registry, zerolog.Nop(), batch.Options{
		MaxUnitsPerCall: 16,
		MaxRetries:      1,
		RetryBaseDelay:  time.Millisecond,
	})

	srv := NewServer(zerolog.Nop(), authn, limiter, coordinator, cache, registry, nil, Options{
		RequestTimeout: 5 * time.Second,
	})

	return &serverFixture{server: srv, provider: fixed, limiter: limiter}
}

func (f *serverFixture) do(t *testing.T, method, path, body, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()

	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func dataMap(t *testing.T, resp jsendResponse) map[string]any {
	t.Helper()

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", resp.Data)
	}
	return data
}

func TestTranslateHappyPath(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello","World"],"target":"es","source":"en"}`, testAPIKey)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSend(t, rec)
	if resp.Status != "success" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}

	translations, ok := dataMap(t, resp)["translations"].([]any)
	if !ok || len(translations) != 2 {
		t.Fatalf("expected 2 translations, got %v", resp.Data)
	}
	first, _ := translations[0].(map[string]any)
	if first["text"] != "¡Hola!" {
		t.Fatalf("unexpected first translation: %v", first)
	}
	second, _ := translations[1].(map[string]any)
	if second["text"] != "Mundo" {
		t.Fatalf("unexpected second translation: %v", second)
	}
}

func TestTranslateSecondCallServedFromCache(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	body := `{"texts":["Hello"],"target":"es","source":"en"}`

	if rec := fixture.do(t, http.MethodPost, "/api/v1/translate", body, testAPIKey); rec.Code != http.StatusOK {
		t.Fatalf("first call failed: %d %s", rec.Code, rec.Body.String())
	}
	callsAfterFirst := fixture.provider.callCount()

	rec := fixture.do(t, http.MethodPost, "/api/v1/translate", body, testAPIKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("second call failed: %d %s", rec.Code, rec.Body.String())
	}
	if fixture.provider.callCount() != callsAfterFirst {
		t.Fatalf("expected cached repeat to skip the provider")
	}
}

func TestTranslateWithoutCredentialIs401(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello"],"target":"es"}`, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeJSend(t, rec); resp.Status != "fail" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
}

func TestTranslateWithUnknownCredentialIs403(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello"],"target":"es"}`, "bb_wrong_key")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTranslateValidationFailureIs400(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":[],"target":"es"}`, testAPIKey)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSend(t, rec)
	if _, ok := dataMap(t, resp)["validation_errors"]; !ok {
		t.Fatalf("expected validation_errors in response, got %v", resp.Data)
	}
}

func TestTranslateInvalidTargetIs400(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello"],"target":"zzz"}`, testAPIKey)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTranslatePartialFailureIs502WithIndices(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)

	// Prime the cache so the first unit succeeds while the second fails.
	if rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello"],"target":"es","source":"en"}`, testAPIKey); rec.Code != http.StatusOK {
		t.Fatalf("priming call failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := fixture.do(t, http.MethodPost, "/api/v1/translate",
		`{"texts":["Hello","No such text"],"target":"es","source":"en"}`, testAPIKey)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSend(t, rec)
	data := dataMap(t, resp)

	translations, ok := data["translations"].([]any)
	if !ok || len(translations) != 1 {
		t.Fatalf("expected the cached unit among translations, got %v", data)
	}
	failures, ok := data["failures"].([]any)
	if !ok || len(failures) != 1 {
		t.Fatalf("expected one failure, got %v", data)
	}
	failure, _ := failures[0].(map[string]any)
	if idx, hasIndex := failure["index"]; !hasIndex || idx != float64(1) {
		t.Fatalf("expected failure at index 1, got %v", failure)
	}
}

func TestRateLimitRejectionCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	limited := newServerFixtureWithLimit(t, 2)
	body := `{"text":"The quick brown fox jumps over the lazy dog"}`

	for i := 0; i < 2; i++ {
		if rec := limited.do(t, http.MethodPost, "/api/v1/detect", body, testAPIKey); rec.Code != http.StatusOK {
			t.Fatalf("admit %d failed: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := limited.do(t, http.MethodPost, "/api/v1/detect", body, testAPIKey)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	resp := decodeJSend(t, rec)
	if _, ok := dataMap(t, resp)["retry_after_ms"]; !ok {
		t.Fatalf("expected retry_after_ms in body, got %v", resp.Data)
	}
}

func newServerFixtureWithLimit(t *testing.T, maxRequests int) *serverFixture {
	t.Helper()

	fixture := newServerFixture(t)
	fixture.limiter = ratelimit.New(time.Minute, maxRequests)
	fixture.server.limiter = fixture.limiter
	return fixture
}

func TestDetectEndpoint(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/detect",
		`{"text":"The quick brown fox jumps over the lazy dog"}`, testAPIKey)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, decodeJSend(t, rec))
	if data["language"] != "en" {
		t.Fatalf("expected en, got %v", data["language"])
	}
	confidence, ok := data["confidence"].(float64)
	if !ok || confidence <= 0 || confidence > 1 {
		t.Fatalf("unexpected confidence: %v", data["confidence"])
	}
}

func TestDetectRequiresText(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/detect", `{"text":"  "}`, testAPIKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodGet, "/api/v1/languages", "", testAPIKey)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := dataMap(t, decodeJSend(t, rec))
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected a non-empty language catalog, got %v", data)
	}
	first, _ := items[0].(map[string]any)
	for _, field := range []string{"code", "name", "direction"} {
		if _, exists := first[field]; !exists {
			t.Fatalf("expected catalog entries to carry %q, got %v", field, first)
		}
	}
}

func TestHealthEndpointIsOpen(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodGet, "/api/v1/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", rec.Code)
	}
	data := dataMap(t, decodeJSend(t, rec))
	if data["service"] != "babel" {
		t.Fatalf("unexpected service field: %v", data["service"])
	}
}

func TestSpeechEndpointsWithoutEngineAre501(t *testing.T) {
	t.Parallel()

	fixture := newServerFixture(t)
	rec := fixture.do(t, http.MethodPost, "/api/v1/speech/synthesis",
		`{"text":"Hello"}`, testAPIKey)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestBearerTokenParsing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		token  string
		found  bool
	}{
		{"Bearer bb_key", "bb_key", true},
		{"bearer bb_key", "bb_key", true},
		{"Bearer   ", "", false},
		{"Basic dXNlcg==", "", false},
		{"", "", false},
		{"bb_key", "", false},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		token, found := bearerToken(req)
		if token != tc.token || found != tc.found {
			t.Fatalf("header %q: got (%q, %t), want (%q, %t)", tc.header, token, found, tc.token, tc.found)
		}
	}
}
