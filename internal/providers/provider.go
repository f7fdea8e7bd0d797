// Package providers implements C4: the provider registry and the capability
// interface every adapter (qwenmt, googlenmt, googlellm, deepl) implements.
// Grounded on the top-level providers/registry.go for the registry shape
// (Register/Get/List) and on internal/router/engine.go's Sender/
// ClassifiedError idiom (an interface defined in the consuming package) for
// the capability interface itself.
package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// Quota is the optional remaining-capacity report a provider may expose.
// Nil fields mean "not reported"; for an unreported dimension the selector
// compares only the local throttle headroom when a throttle is wired
// (selector.WithThrottle), and otherwise treats it as sufficient. When
// GetQuota reports nothing (returns false), the selector keeps the current
// provider without consulting local headroom.
type Quota struct {
	RemainingRequests *int64
	RemainingTokens   *int64
}

// Provider is the capability set every adapter exposes, per spec.md §4.4.
type Provider interface {
	Name() string
	ApproxTokens(text string) int
	TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error)
	TranslateStream(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error)
	GetQuota(ctx context.Context) (Quota, bool)
	Snapshot() core.ProviderSnapshot
}

// Registry is read-mostly: registration happens at init time and during
// provider duplication only, per spec.md §5's shared-resource policy.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider under its own Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// RegisterCopy registers the same adapter under an additional name, for
// cases like deepl-pro/deepl-free sharing one adapter family under
// distinct quota/cost identities.
func (r *Registry) RegisterCopy(original, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[original]
	if !ok {
		return fmt.Errorf("provider not found: %s", original)
	}
	r.providers[newName] = p
	return nil
}
