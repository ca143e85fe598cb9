// Package config loads corpusrag configuration.
//
// Precedence, lowest to highest:
//  1. Built-in defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/corpusrag/config.yaml)
//  3. Project config (.corpusrag.yaml or .corpusrag.yml in the working dir)
//  4. Environment variables (CORPUSRAG_*)
//
// CLI flags are applied by the commands on top of the loaded value, followed
// by another Validate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// Default values mirror the corpus layout the index was designed around.
const (
	DefaultModel        = "text-embedding-3-large"
	DefaultChunkSize    = 280
	DefaultChunkOverlap = 60
	DefaultBatchSize    = 20
	DefaultIndexPath    = "data/corpus_index.jsonl"
	DefaultManifestPath = "data/corpus_manifest.json"
	DefaultAPIKeyEnv    = "OPENAI_API_KEY"
	DefaultTopK         = 3

	// MaxBatchSize is the provider's limit on inputs per embeddings request.
	MaxBatchSize = 2048
)

// DefaultSources are scanned when no source is configured.
var DefaultSources = []string{
	"data/vonnegut_corpus",
	"data/raw",
	"data/excerpts",
}

// Config is the complete corpusrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Sources    []string         `yaml:"sources" json:"sources"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// IndexConfig locates the on-disk index and manifest.
type IndexConfig struct {
	Path         string `yaml:"path" json:"path"`
	ManifestPath string `yaml:"manifest_path" json:"manifest_path"`
	// ReadWorkers bounds concurrent source file reads (0 = 4).
	ReadWorkers int `yaml:"read_workers" json:"read_workers"`
}

// ChunkingConfig configures word-window chunking.
type ChunkingConfig struct {
	SizeWords    int `yaml:"size_words" json:"size_words"`
	OverlapWords int `yaml:"overlap_words" json:"overlap_words"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "openai" or "static".
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`

	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// BaseURL points at an OpenAI-compatible endpoint. Empty uses api.openai.com.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// RequestsPerSecond throttles provider calls (0 = unlimited).
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	// Timeout bounds each provider request (Go duration string).
	Timeout string `yaml:"timeout" json:"timeout"`

	// CacheSize is the number of query embeddings kept in memory (0 = off).
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Dimensions is used by the static provider only.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`
	// ANNThreshold enables approximate candidate selection for indexes with at
	// least this many chunks (0 = always exact).
	ANNThreshold int `yaml:"ann_threshold" json:"ann_threshold"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport     string `yaml:"transport" json:"transport"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Sources: append([]string(nil), DefaultSources...),
		Index: IndexConfig{
			Path:         DefaultIndexPath,
			ManifestPath: DefaultManifestPath,
			ReadWorkers:  4,
		},
		Chunking: ChunkingConfig{
			SizeWords:    DefaultChunkSize,
			OverlapWords: DefaultChunkOverlap,
		},
		Embeddings: EmbeddingsConfig{
			Provider:          "openai",
			Model:             DefaultModel,
			BatchSize:         DefaultBatchSize,
			APIKeyEnv:         DefaultAPIKeyEnv,
			RequestsPerSecond: 5,
			Timeout:           "60s",
			CacheSize:         256,
			Dimensions:        256,
		},
		Search: SearchConfig{
			TopK: DefaultTopK,
		},
		Server: ServerConfig{
			Transport:     "stdio",
			LogLevel:      "info",
			WatchDebounce: "500ms",
		},
	}
}

// GetUserConfigPath returns the user config path, honouring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "corpusrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "corpusrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "corpusrag", "config.yaml")
}

// Load builds the effective configuration for dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads .corpusrag.yaml, falling back to .corpusrag.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".corpusrag.yaml", ".corpusrag.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cerrors.New(cerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read config file %s", path), err)
	}

	// Decoding onto a copy keeps keys absent from the file at their current
	// values, including explicit zeroes such as overlap_words: 0.
	next := *c
	next.Sources = append([]string(nil), c.Sources...)
	if err := yaml.Unmarshal(data, &next); err != nil {
		return cerrors.ConfigError(fmt.Sprintf("cannot parse config file %s", path), err).
			WithSuggestion("Check the YAML syntax and field types")
	}

	*c = next
	return nil
}

// applyEnvOverrides applies CORPUSRAG_* variables. Unparseable numbers are
// ignored so a typo in the environment never masks a valid file value.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORPUSRAG_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CORPUSRAG_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CORPUSRAG_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v, ok := envInt("CORPUSRAG_BATCH_SIZE"); ok {
		c.Embeddings.BatchSize = v
	}
	if v, ok := envInt("CORPUSRAG_CHUNK_SIZE"); ok {
		c.Chunking.SizeWords = v
	}
	if v, ok := envInt("CORPUSRAG_CHUNK_OVERLAP"); ok {
		c.Chunking.OverlapWords = v
	}
	if v := os.Getenv("CORPUSRAG_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("CORPUSRAG_MANIFEST_PATH"); v != "" {
		c.Index.ManifestPath = v
	}
	if v := os.Getenv("CORPUSRAG_SOURCES"); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		if len(sources) > 0 {
			c.Sources = sources
		}
	}
	if v, ok := envInt("CORPUSRAG_TOP_K"); ok {
		c.Search.TopK = v
	}
	if v := os.Getenv("CORPUSRAG_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return cerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Chunking.SizeWords < 1 {
		return invalid("chunking.size_words must be at least 1, got %d", c.Chunking.SizeWords)
	}
	if c.Chunking.OverlapWords < 0 {
		return invalid("chunking.overlap_words must be non-negative, got %d", c.Chunking.OverlapWords)
	}
	if c.Embeddings.BatchSize < 1 || c.Embeddings.BatchSize > MaxBatchSize {
		return invalid("embeddings.batch_size must be between 1 and %d, got %d", MaxBatchSize, c.Embeddings.BatchSize)
	}
	switch strings.ToLower(c.Embeddings.Provider) {
	case "openai", "static":
	default:
		return invalid("embeddings.provider must be 'openai' or 'static', got %q", c.Embeddings.Provider)
	}
	if strings.TrimSpace(c.Embeddings.Model) == "" {
		return invalid("embeddings.model must not be empty")
	}
	if c.Embeddings.RequestsPerSecond < 0 {
		return invalid("embeddings.requests_per_second must be non-negative, got %g", c.Embeddings.RequestsPerSecond)
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}
	if _, err := time.ParseDuration(c.Embeddings.Timeout); err != nil {
		return invalid("embeddings.timeout is not a duration: %q", c.Embeddings.Timeout)
	}
	if c.Index.Path == "" || c.Index.ManifestPath == "" {
		return invalid("index.path and index.manifest_path must be set")
	}
	if c.Index.ReadWorkers < 0 {
		return invalid("index.read_workers must be non-negative, got %d", c.Index.ReadWorkers)
	}
	if c.Search.TopK < 1 {
		return invalid("search.top_k must be at least 1, got %d", c.Search.TopK)
	}
	if c.Search.ANNThreshold < 0 {
		return invalid("search.ann_threshold must be non-negative, got %d", c.Search.ANNThreshold)
	}
	if !strings.EqualFold(c.Server.Transport, "stdio") {
		return invalid("server.transport must be 'stdio', got %q", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}
	if _, err := time.ParseDuration(c.Server.WatchDebounce); err != nil {
		return invalid("server.watch_debounce is not a duration: %q", c.Server.WatchDebounce)
	}
	return nil
}

// EmbedTimeout returns the parsed provider timeout.
func (c *Config) EmbedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embeddings.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// WatchDebounce returns the parsed watcher debounce window.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Server.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
