package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ProviderID identifies a text provider.
type ProviderID string

const (
	Gemini ProviderID = "gemini"
	OpenAI ProviderID = "openai"
	Claude ProviderID = "claude"
	NVIDIA ProviderID = "nvidia"
	Meta   ProviderID = "meta"
	Ollama ProviderID = "ollama"
	Dummy  ProviderID = "dummy"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing API key")
)

// ProviderConfig is the connection record for one provider. It is read-only after load.
type ProviderConfig struct {
	ID      ProviderID
	APIKey  string
	Model   string
	BaseURL string
	// Temperature is nil when the provider default should be used.
	Temperature *float32
	// MaxTokens of zero means provider default.
	MaxTokens int
}

// Constructor builds an Invoker from its configuration.
type Constructor func(ctx context.Context, cfg ProviderConfig) (Invoker, error)

var constructors = map[ProviderID]Constructor{
	Gemini: func(ctx context.Context, cfg ProviderConfig) (Invoker, error) { return NewGeminiLLM(ctx, cfg) },
	OpenAI: func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewOpenAILLM(cfg) },
	NVIDIA: func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewOpenAILLM(cfg) },
	Meta:   func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewOpenAILLM(cfg) },
	Claude: func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewAnthropicLLM(cfg) },
	Ollama: func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewOllamaLLM(cfg) },
	Dummy:  func(_ context.Context, cfg ProviderConfig) (Invoker, error) { return NewDummyLLM(cfg.Model), nil },
}

// NewInvoker returns the concrete Invoker for cfg.ID.
func NewInvoker(ctx context.Context, cfg ProviderConfig) (Invoker, error) {
	build, ok := constructors[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.ID)
	}
	return build(ctx, cfg)
}

// Registry maps provider IDs to invokers.
type Registry struct {
	mu       sync.RWMutex
	invokers map[ProviderID]Invoker
}

func NewRegistry() *Registry {
	return &Registry{invokers: make(map[ProviderID]Invoker)}
}

// Register adds inv under id. Registering the same id twice is an error.
func (r *Registry) Register(id ProviderID, inv Invoker) error {
	if inv == nil {
		return fmt.Errorf("register %s: nil invoker", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.invokers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.invokers[id] = inv
	return nil
}

// Lookup returns the invoker registered under id.
func (r *Registry) Lookup(id ProviderID) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invokers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return inv, nil
}

// IDs lists registered providers in lexical order.
func (r *Registry) IDs() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ProviderID, 0, len(r.invokers))
	for id := range r.invokers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close releases invokers that hold connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, inv := range r.invokers {
		if c, ok := inv.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}
