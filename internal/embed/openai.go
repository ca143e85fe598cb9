package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// knownDimensions lists vector sizes of OpenAI embedding models.
var knownDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey string
	Model  string

	// BaseURL targets an OpenAI-compatible server. Empty uses the default.
	BaseURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RequestsPerSecond throttles calls; 0 disables throttling.
	RequestsPerSecond float64

	Retry cerrors.RetryConfig

	// Breaker pauses calls after repeated outages that outlast Retry.
	Breaker cerrors.BreakerConfig
}

// DefaultOpenAIConfig returns defaults for model with the given key.
func DefaultOpenAIConfig(apiKey, model string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:            apiKey,
		Model:             model,
		Timeout:           60 * time.Second,
		RequestsPerSecond: 5,
		Retry:             cerrors.DefaultRetryConfig(),
		Breaker:           cerrors.DefaultBreakerConfig(),
	}
}

// OpenAIEmbedder calls the OpenAI embeddings API through go-openai.
// Transient failures (timeouts, 429, 5xx) are retried with backoff; all
// other failures are returned immediately. When retries keep running out,
// a circuit breaker rejects calls for a cooldown instead of waiting out
// the backoff on every query.
type OpenAIEmbedder struct {
	client  *openai.Client
	cfg     OpenAIConfig
	limiter *rate.Limiter
	breaker *cerrors.CircuitBreaker
	dims    atomic.Int64
	closed  atomic.Bool
}

// NewOpenAIEmbedder creates an embedder. It performs no network call.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, cerrors.New(cerrors.ErrCodeMissingCredentials, "OpenAI API key is empty", nil)
	}
	if cfg.Model == "" {
		return nil, cerrors.ValidationError("embedding model name is empty", nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	e := &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		breaker: cerrors.NewCircuitBreaker("embedding provider "+cfg.Model, cfg.Breaker),
	}
	e.dims.Store(int64(knownDimensions[cfg.Model]))
	return e, nil
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. The response is reordered by the
// index the API reports, so output i always belongs to input i.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.closed.Load() {
		return nil, fmt.Errorf("openai embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	return cerrors.CircuitExecute(e.breaker, func() ([][]float32, error) {
		return e.embedWithRetry(ctx, texts)
	})
}

func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	attempt := 0
	return cerrors.RetryWithResult(ctx, e.cfg.Retry, func() ([][]float32, error) {
		attempt++
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.cfg.Model),
		})
		if err != nil {
			mapped := classifyOpenAIError(err)
			slog.Debug("embedding_attempt_failed",
				slog.String("model", e.cfg.Model),
				slog.Int("attempt", attempt),
				slog.Int("inputs", len(texts)),
				slog.Bool("retryable", cerrors.IsRetryable(mapped)),
				slog.String("error", err.Error()))
			return nil, mapped
		}

		vecs, err := e.collect(resp, len(texts))
		if err != nil {
			return nil, err
		}

		slog.Debug("embedding_batch_done",
			slog.String("model", e.cfg.Model),
			slog.Int("attempt", attempt),
			slog.Int("inputs", len(texts)),
			slog.Int("prompt_tokens", resp.Usage.PromptTokens),
			slog.Duration("duration", time.Since(start)))
		return vecs, nil
	})
}

func (e *OpenAIEmbedder) collect(resp openai.EmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("provider returned %d embeddings for %d inputs", len(resp.Data), want), nil)
	}

	data := append([]openai.Embedding(nil), resp.Data...)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, want)
	for i, d := range data {
		if d.Index != i {
			return nil, cerrors.New(cerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("provider response is missing index %d", i), nil)
		}
		out[i] = d.Embedding
	}

	if len(out[0]) > 0 {
		e.dims.Store(int64(len(out[0])))
	}
	return out, nil
}

// classifyOpenAIError maps client errors onto retryable or terminal codes.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return cerrors.New(cerrors.ErrCodeNetworkTimeout, "embedding request timed out", err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return cerrors.New(cerrors.ErrCodeRateLimited, "embedding provider rate limit reached", err)
	case status >= 500:
		return cerrors.New(cerrors.ErrCodeProviderUnavailable,
			fmt.Sprintf("embedding provider returned HTTP %d", status), err)
	case status == http.StatusUnauthorized:
		return cerrors.New(cerrors.ErrCodeMissingCredentials, "embedding provider rejected the API key", err).
			WithSuggestion("Check the API key environment variable")
	case status != 0:
		return cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding provider returned HTTP %d", status), err)
	default:
		// No HTTP status: connection refused, DNS and similar transport failures.
		return cerrors.New(cerrors.ErrCodeProviderUnavailable, "embedding provider unreachable", err)
	}
}

// Dimensions returns the model's vector size, or 0 for unknown models that
// have not been called yet.
func (e *OpenAIEmbedder) Dimensions() int { return int(e.dims.Load()) }

// ModelName returns the configured model.
func (e *OpenAIEmbedder) ModelName() string { return e.cfg.Model }

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.closed.Store(true)
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
