package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Credential store. When DATABASE_URL is unset the gateway falls back
	// to the static API_KEYS list.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"BABEL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"BABEL_DB_MAX_CONNS" default:"8"`
	APIKeys     string `envconfig:"API_KEYS" default:""`

	// Bcrypt hash of an always-valid admin key, minted by `babel keygen`.
	AdminKeyBcryptHash string `envconfig:"ADMIN_KEY_BCRYPT_HASH" default:""`
	AuthTimeoutMs      int    `envconfig:"AUTH_TIMEOUT_MS" default:"2000"`

	CacheTTLSeconds int `envconfig:"CACHE_TTL_SECONDS" default:"600"`
	CacheMaxEntries int `envconfig:"CACHE_MAX_ENTRIES" default:"10000"`

	RateLimitWindowMs    int `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000"`
	RateLimitMaxRequests int `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"120"`

	ProviderOrder            string `envconfig:"PROVIDER_ORDER" default:"selfhosted,ondevice"`
	ProviderMaxRetries       int    `envconfig:"PROVIDER_MAX_RETRIES" default:"3"`
	ProviderRetryBaseDelayMs int    `envconfig:"PROVIDER_RETRY_BASE_DELAY_MS" default:"200"`
	ProviderMaxUnitsPerCall  int    `envconfig:"PROVIDER_MAX_UNITS_PER_CALL" default:"16"`
	RequestTimeoutMs         int    `envconfig:"REQUEST_TIMEOUT_MS" default:"30000"`

	// Cloud provider (OpenAI-backed translation, speech).
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	TTSModel     string `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice     string `envconfig:"TTS_VOICE" default:"alloy"`
	STTModel     string `envconfig:"STT_MODEL" default:"whisper-1"`

	// Self-hosted provider (OpenAI-compatible chat completions endpoint).
	TranslationEndpoint string `envconfig:"TRANSLATION_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	TranslationModel    string `envconfig:"TRANSLATION_MODEL" default:"tencent/HY-MT1.5-7B"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("BABEL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("BABEL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("BABEL_DB_MIN_CONNS (%d) cannot exceed BABEL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.AuthTimeoutMs < 1 {
		return fmt.Errorf("AUTH_TIMEOUT_MS must be >= 1")
	}
	if c.CacheTTLSeconds < 1 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be >= 1")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be >= 1")
	}
	if c.RateLimitWindowMs < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be >= 1")
	}
	if c.RateLimitMaxRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be >= 1")
	}
	if strings.TrimSpace(c.ProviderOrder) == "" {
		return fmt.Errorf("PROVIDER_ORDER is required")
	}
	if c.ProviderMaxRetries < 1 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must be >= 1")
	}
	if c.ProviderRetryBaseDelayMs < 1 {
		return fmt.Errorf("PROVIDER_RETRY_BASE_DELAY_MS must be >= 1")
	}
	if c.ProviderMaxUnitsPerCall < 1 {
		return fmt.Errorf("PROVIDER_MAX_UNITS_PER_CALL must be >= 1")
	}
	if c.RequestTimeoutMs < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be >= 1")
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

func (c *Config) ProviderRetryBaseDelay() time.Duration {
	return time.Duration(c.ProviderRetryBaseDelayMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutMs) * time.Millisecond
}

// APIKeyList splits the static API_KEYS value into trimmed, de-duplicated keys.
func (c *Config) APIKeyList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.APIKeys)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
