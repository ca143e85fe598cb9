package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/store"
)

// CheckConfig validates the loaded configuration.
func (c *Checker) CheckConfig(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}
	if err := cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("provider %s, model %s", cfg.Embeddings.Provider, embed.ModelFor(cfg))
	return result
}

// CheckCredentials verifies the provider API key is set.
func (c *Checker) CheckCredentials(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "credentials",
		Required: true,
	}
	if err := cfg.RequireCredentials(); err != nil {
		result.Status = StatusFail
		if ce, ok := cerrors.As(err); ok {
			result.Message = ce.Message
			result.Details = ce.Suggestion
		} else {
			result.Message = err.Error()
		}
		return result
	}

	result.Status = StatusPass
	if strings.EqualFold(cfg.Embeddings.Provider, "openai") {
		result.Message = fmt.Sprintf("%s is set", cfg.Embeddings.APIKeyEnv)
	} else {
		result.Message = fmt.Sprintf("%s provider needs no credentials", cfg.Embeddings.Provider)
	}
	return result
}

// CheckSources reports missing source paths and counts the text files the
// rest contain. Finding no text files at all fails the check.
func (c *Checker) CheckSources(ctx context.Context, sources []string) CheckResult {
	result := CheckResult{
		Name:     "sources",
		Required: true,
	}
	if len(sources) == 0 {
		result.Status = StatusFail
		result.Message = "no source directories configured"
		return result
	}

	d, err := c.scanner.Discover(ctx, sources)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("scan failed: %v", err)
		return result
	}

	switch {
	case len(d.Files) == 0:
		result.Status = StatusFail
		result.Message = "no .txt files found"
	case len(d.Missing) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d text files; skipping missing directories: %s",
			len(d.Files), strings.Join(d.Missing, ", "))
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d text files in %d sources", len(d.Files), len(sources))
	}
	if len(d.Missing) > 0 {
		result.Details = "missing: " + strings.Join(d.Missing, ", ")
	}
	return result
}

// CheckIndex reports whether an index exists and whether it was built with
// the configured model. Neither condition blocks indexing.
func (c *Checker) CheckIndex(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "index",
		Required: false,
	}

	if _, err := os.Stat(cfg.Index.Path); errors.Is(err, fs.ErrNotExist) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("no index at %s; run 'corpusrag index'", cfg.Index.Path)
		return result
	}

	m, err := store.ReadManifest(cfg.Index.ManifestPath)
	if err != nil {
		result.Status = StatusWarn
		result.Message = "index present but manifest unreadable"
		result.Details = err.Error()
		return result
	}

	if query := embed.ModelFor(cfg); m.Model != query {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("index built with %s, queries use %s; rebuild before searching",
			m.Model, query)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d chunks from %d sources (%s)", m.TotalChunks, len(m.Sources), m.Model)
	return result
}
