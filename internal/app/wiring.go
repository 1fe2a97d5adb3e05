package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/auth"
	"horse.fit/babel/internal/batch"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/credstore"
	"horse.fit/babel/internal/db"
	"horse.fit/babel/internal/provider"
	"horse.fit/babel/internal/ratelimit"
	"horse.fit/babel/internal/speech"
	"horse.fit/babel/internal/tmcache"
)

// services holds the wired collaborators of one gateway process.
type services struct {
	pool         *db.Pool // nil when no database is configured
	store        credstore.Store
	authn        *auth.Authenticator
	limiter      *ratelimit.Limiter
	cache        *tmcache.Cache
	registry     *provider.Registry
	coordinator  *batch.Coordinator
	speechEngine speech.Engine // nil when no engine is configured
}

func buildServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	var (
		pool  *db.Pool
		store credstore.Store
	)
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var err error
		pool, err = db.NewPool(dbCtx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect credential store: %w", err)
		}
		store = credstore.NewPostgres(pool)
	} else {
		staticStore := credstore.NewStatic(cfg.APIKeyList())
		if staticStore.Len() == 0 && cfg.AdminKeyBcryptHash == "" {
			logger.Warn().Msg("no API keys configured, every request will be rejected")
		}
		store = staticStore
	}

	audit := func(event auth.AuditEvent) {
		logger.Info().
			Bool("allowed", event.Allowed).
			Str("subject", event.Subject).
			Str("key_hash", event.KeyHash).
			Str("reason", event.Reason).
			Msg("auth decision")
	}
	authn := auth.New(store, cfg.AdminKeyBcryptHash, cfg.AuthTimeout(), audit)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		if pool != nil {
			_ = pool.Close()
		}
		return nil, err
	}

	cache := tmcache.New(cfg.CacheMaxEntries, cfg.CacheTTL())
	limiter := ratelimit.New(cfg.RateLimitWindow(), cfg.RateLimitMaxRequests)
	coordinator := batch.NewCoordinator(cache, registry, logger, batch.Options{
		MaxUnitsPerCall: cfg.ProviderMaxUnitsPerCall,
		MaxRetries:      cfg.ProviderMaxRetries,
		RetryBaseDelay:  cfg.ProviderRetryBaseDelay(),
	})

	var speechEngine speech.Engine
	if cfg.OpenAIAPIKey != "" {
		engine, err := speech.NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.TTSModel, cfg.TTSVoice, cfg.STTModel)
		if err != nil {
			if pool != nil {
				_ = pool.Close()
			}
			return nil, fmt.Errorf("configure speech engine: %w", err)
		}
		speechEngine = engine
	}

	return &services{
		pool:         pool,
		store:        store,
		authn:        authn,
		limiter:      limiter,
		cache:        cache,
		registry:     registry,
		coordinator:  coordinator,
		speechEngine: speechEngine,
	}, nil
}

func buildRegistry(cfg *config.Config, logger zerolog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry(cfg.ProviderOrder)

	if cfg.OpenAIAPIKey != "" {
		cloud, err := provider.NewCloudProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("configure cloud provider: %w", err)
		}
		if err := registry.Register(provider.WithBreaker(cloud)); err != nil {
			return nil, err
		}
	} else {
		logger.Debug().Msg("OPENAI_API_KEY unset, cloud provider disabled")
	}

	selfhosted := provider.NewSelfHostedProvider(cfg.TranslationEndpoint, cfg.TranslationModel)
	if err := registry.Register(provider.WithBreaker(selfhosted)); err != nil {
		return nil, err
	}
	if err := registry.Register(provider.NewOnDeviceProvider()); err != nil {
		return nil, err
	}

	if len(registry.Chain()) == 0 {
		return nil, fmt.Errorf("PROVIDER_ORDER %q matches no registered provider", cfg.ProviderOrder)
	}
	return registry, nil
}

func (s *services) close() {
	if s == nil {
		return
	}
	if s.pool != nil {
		_ = s.pool.Close()
	}
}
