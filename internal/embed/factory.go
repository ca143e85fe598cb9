package embed

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/corpusrag/internal/config"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI embeddings API or a compatible server.
	ProviderOpenAI ProviderType = "openai"
	// ProviderStatic uses the offline hashing embedder.
	ProviderStatic ProviderType = "static"
)

// ParseProvider converts a provider name, case-insensitively.
func ParseProvider(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderStatic:
		return ProviderStatic, nil
	default:
		return "", cerrors.ValidationError(fmt.Sprintf("unknown embedding provider %q (use openai or static)", s), nil)
	}
}

// FactoryOption adjusts NewFromConfig.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	cache bool
}

// WithQueryCache wraps the embedder in a CachedEmbedder sized by
// embeddings.cache_size. Used by query paths, not by index builds.
func WithQueryCache() FactoryOption {
	return func(o *factoryOptions) { o.cache = true }
}

// NewFromConfig builds the embedder described by cfg. The API key is read
// from the environment variable cfg names.
func NewFromConfig(cfg *config.Config, opts ...FactoryOption) (Embedder, error) {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	provider, err := ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return nil, err
	}

	var e Embedder
	switch provider {
	case ProviderStatic:
		e = NewStaticEmbedder(cfg.Embeddings.Dimensions)
	case ProviderOpenAI:
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		oc := DefaultOpenAIConfig(cfg.APIKey(), cfg.Embeddings.Model)
		oc.BaseURL = cfg.Embeddings.BaseURL
		oc.Timeout = cfg.EmbedTimeout()
		oc.RequestsPerSecond = cfg.Embeddings.RequestsPerSecond
		e, err = NewOpenAIEmbedder(oc)
		if err != nil {
			return nil, err
		}
	}

	if o.cache && cfg.Embeddings.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.Embeddings.CacheSize)
	}
	return e, nil
}

// ModelFor returns the model name an embedder built from cfg reports, and
// so the name its vectors are recorded under.
func ModelFor(cfg *config.Config) string {
	if p, err := ParseProvider(cfg.Embeddings.Provider); err == nil && p == ProviderStatic {
		return StaticModelName
	}
	return cfg.Embeddings.Model
}
