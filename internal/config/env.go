package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// LoadDotEnv loads dir/.env into the process environment. Variables already
// set are left untouched. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// APIKey returns the provider API key from the configured variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Embeddings.APIKeyEnv))
}

// RequireCredentials returns a fatal configuration error when the provider
// needs an API key and none is set. The static provider needs none.
func (c *Config) RequireCredentials() error {
	if !strings.EqualFold(c.Embeddings.Provider, "openai") {
		return nil
	}
	if c.APIKey() != "" {
		return nil
	}
	return cerrors.New(cerrors.ErrCodeMissingCredentials,
		fmt.Sprintf("%s is not set. Export it before running this command.", c.Embeddings.APIKeyEnv), nil).
		WithSuggestion(fmt.Sprintf("export %s=... or add it to a .env file", c.Embeddings.APIKeyEnv))
}
