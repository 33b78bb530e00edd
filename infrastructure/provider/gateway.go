// Package provider resolves provider and model identifiers to model
// handles backed by vendor SDKs.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/agentstep/domain/config"
	"github.com/felixgeelhaar/agentstep/domain/model"
)

// Provider identifiers.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Scripted  = "scripted"
)

// Factory builds a model handle for modelID.
type Factory func(ctx context.Context, modelID string) (model.Model, error)

// Gateway is a registry of provider factories. It implements model.Gateway.
type Gateway struct {
	mu              sync.RWMutex
	factories       map[string]Factory
	defaultProvider string
	defaultModel    string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithDefault sets the provider and model used for empty identifiers.
func WithDefault(providerID, modelID string) GatewayOption {
	return func(g *Gateway) {
		g.defaultProvider = providerID
		g.defaultModel = modelID
	}
}

// WithFactory registers a provider factory.
func WithFactory(providerID string, f Factory) GatewayOption {
	return func(g *Gateway) {
		g.factories[providerID] = f
	}
}

// NewGateway creates a gateway. The scripted provider is always available.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		factories: map[string]Factory{Scripted: scriptedFactory},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGatewayFromConfig registers every vendor with credentials in cfg and
// uses cfg.ID and cfg.Model as the defaults.
func NewGatewayFromConfig(cfg config.ProviderConfig) *Gateway {
	g := NewGateway(WithDefault(cfg.ID, cfg.Model))

	if cred, ok := cfg.Credentials[OpenAI]; ok {
		g.Register(OpenAI, func(_ context.Context, modelID string) (model.Model, error) {
			return NewOpenAIModel(OpenAIConfig{
				APIKey:    cred.APIKey,
				BaseURL:   cred.BaseURL,
				Model:     modelID,
				MaxTokens: cfg.MaxTokens,
			})
		})
	}
	if cred, ok := cfg.Credentials[Anthropic]; ok {
		g.Register(Anthropic, func(_ context.Context, modelID string) (model.Model, error) {
			return NewAnthropicModel(AnthropicConfig{
				APIKey:    cred.APIKey,
				BaseURL:   cred.BaseURL,
				Model:     modelID,
				MaxTokens: cfg.MaxTokens,
			})
		})
	}
	if cred, ok := cfg.Credentials[Gemini]; ok {
		g.Register(Gemini, func(ctx context.Context, modelID string) (model.Model, error) {
			return NewGeminiModel(ctx, GeminiConfig{
				APIKey:    cred.APIKey,
				BaseURL:   cred.BaseURL,
				Model:     modelID,
				MaxTokens: cfg.MaxTokens,
			})
		})
	}
	return g
}

// Register adds or replaces a provider factory.
func (g *Gateway) Register(providerID string, f Factory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.factories[providerID] = f
}

// Providers returns the registered provider ids, sorted.
func (g *Gateway) Providers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.factories))
	for id := range g.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the model handle for providerID and modelID. An empty
// providerID selects the default provider; an empty modelID selects the
// default model of the default provider.
func (g *Gateway) Resolve(ctx context.Context, providerID, modelID string) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	if providerID == "" {
		providerID = g.defaultProvider
	}
	if modelID == "" && providerID == g.defaultProvider {
		modelID = g.defaultModel
	}
	factory, ok := g.factories[providerID]
	g.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrProviderUnavailable, providerID)
	}
	if modelID == "" {
		return nil, fmt.Errorf("%w: no model selected for provider %q", model.ErrModelUnavailable, providerID)
	}
	return factory(ctx, modelID)
}

var _ model.Gateway = (*Gateway)(nil)
