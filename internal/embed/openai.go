package embed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultBatchSize is the number of texts sent per embeddings request.
const DefaultBatchSize = 32

// OpenAIConfig configures the OpenAI-compatible embedding client.
type OpenAIConfig struct {
	BaseURL   string        // e.g. http://localhost:8080/v1
	APIKey    string        // may be empty for local servers
	Model     string        // embedding model identifier
	BatchSize int           // texts per request; DefaultBatchSize when <= 0
	Timeout   time.Duration // per request; no client timeout when zero
}

// OpenAIEmbedder implements Embedder against an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	batchSize int
}

// NewOpenAIEmbedder creates a new embedding client.
func NewOpenAIEmbedder(config OpenAIConfig) (*OpenAIEmbedder, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     config.Model,
		batchSize: batchSize,
	}, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed requests embeddings batch by batch and returns them in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	vectors := make([]Vector, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedBatch sends a single embeddings request.
func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	slog.Debug("Requesting embeddings", "model", e.model, "texts", len(texts))

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbedding, len(resp.Data), len(texts))
	}

	// the server may return items out of order; Index is authoritative
	vectors := make([]Vector, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || vectors[item.Index] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrEmbedding, item.Index)
		}
		vectors[item.Index] = Vector(item.Embedding)
	}

	return vectors, nil
}
