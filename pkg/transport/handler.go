package transport

import (
	"context"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/compare"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
)

// Comparer runs a request against both providers at once.
type Comparer interface {
	CompareChat(ctx context.Context, prompt string) (*compare.Result, error)
	CompareEmbedding(ctx context.Context, text string) (*compare.Result, error)
}

// ProviderSet resolves providers by name.
type ProviderSet map[string]provider.Provider

// NewProviderSet indexes providers by their Name.
func NewProviderSet(providers ...provider.Provider) ProviderSet {
	set := make(ProviderSet, len(providers))
	for _, p := range providers {
		set[p.Name()] = p
	}
	return set
}

// Lookup returns the provider registered under name.
func (s ProviderSet) Lookup(name string) (provider.Provider, bool) {
	p, ok := s[name]
	return p, ok
}

// Close closes every provider and returns the first error.
func (s ProviderSet) Close() error {
	var first error
	for _, p := range s {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
