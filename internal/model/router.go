package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/libradesk/internal/config"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/logger"
	"github.com/harunnryd/libradesk/internal/model/contract"
	anthropicProvider "github.com/harunnryd/libradesk/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/libradesk/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/libradesk/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// Register adds or replaces the provider serving a model name.
func (r *DefaultModelRouter) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	log := logger.From(ctx)
	if model == "" {
		model = r.cfg.Default
	}

	log.Debug("Routing completion request", "model", model)

	provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, log, model, provider, req)
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.providers) == 0 {
		return deskErrors.Upstream("no model providers registered")
	}

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return deskErrors.Upstream(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return deskErrors.Internal("no providers initialized")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (Provider, error) {
	select {
	case <-ctx.Done():
		return nil, deskErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return provider, nil
	}

	slog.Warn("Model not found", "model", model)
	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Using fallback model", "model", model, "fallback", r.cfg.Fallback)
			return fallbackProvider, nil
		}
	}

	return nil, deskErrors.NotFound(fmt.Sprintf("model %s", model))
}

// executeWithFallback executes a request, switching to the fallback model once
// the primary fails.
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, log *slog.Logger, model string, provider Provider, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, deskErrors.WrapWithCategory(ctx.Err(), "request execution cancelled", deskErrors.ErrUpstream)
		default:
		}

		attemptReq := req
		attemptReq.Model = currentModel
		resp, err := currentProvider.Generate(ctx, attemptReq)
		if err == nil {
			log.Info("Completion finished", "model", currentModel, "attempt", attempt+1)
			return resp, nil
		}

		log.Error("Provider request failed", "model", currentModel, "attempt", attempt+1, "error", err)

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return nil, deskErrors.WrapWithCategory(err, "provider request failed", deskErrors.ErrUpstream)
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return nil, deskErrors.WrapWithCategory(err, "provider request failed, no fallback", deskErrors.ErrUpstream)
		}

		log.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, deskErrors.Upstream("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry
func createProvider(entry config.ModelRegistry) (Provider, error) {
	timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, deskErrors.InvalidInput(fmt.Sprintf("invalid request_timeout for model %s: %v", entry.Name, err))
	}

	adapter := &ProviderAdapter{
		name:         entry.Name,
		providerType: entry.Provider,
		timeout:      timeout,
	}

	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}
		if entry.APIKey == "" {
			return nil, deskErrors.InvalidInput("API key required for OpenAI provider")
		}
		adapter.provider = openaiProvider.New(entry.APIKey, baseURL)

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}
		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}
		adapter.provider = openaiProvider.New(apiKey, baseURL)

	case "anthropic":
		if entry.APIKey == "" {
			return nil, deskErrors.InvalidInput("API key required for Anthropic provider")
		}
		adapter.provider = anthropicProvider.New(entry.APIKey, entry.BaseURL)

	case "gemini":
		if entry.APIKey == "" {
			return nil, deskErrors.InvalidInput("API key required for Gemini provider")
		}
		provider, err := geminiProvider.New(entry.APIKey)
		if err != nil {
			return nil, deskErrors.WrapWithCategory(err, "failed to create Gemini provider", deskErrors.ErrInternal)
		}
		adapter.provider = provider

	default:
		return nil, deskErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}

	return adapter, nil
}
