package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TEIConfig configures the contextual token embedding client.
type TEIConfig struct {
	URL       string        // base URL of a text-embeddings-inference server
	BatchSize int           // texts per request; DefaultBatchSize when <= 0
	Timeout   time.Duration // per request; no client timeout when zero

	// KeepSpecialTokens keeps the leading [CLS] and trailing [SEP] states, which are
	// dropped by default as in BERTScore.
	KeepSpecialTokens bool
}

// TEIEmbedder implements TokenEmbedder against the /embed_all endpoint, which returns the
// final hidden state of every token.
type TEIEmbedder struct {
	endpoint     string
	batchSize    int
	keepSpecials bool
	client       *http.Client
}

type embedAllRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// NewTEIEmbedder creates a token embedding client.
func NewTEIEmbedder(config TEIConfig) (*TEIEmbedder, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("token embedding server URL is required")
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &TEIEmbedder{
		endpoint:     strings.TrimRight(config.URL, "/") + "/embed_all",
		batchSize:    batchSize,
		keepSpecials: config.KeepSpecialTokens,
		client:       &http.Client{Timeout: config.Timeout},
	}, nil
}

// EmbedTokens requests token states batch by batch and returns them in input order.
func (e *TEIEmbedder) EmbedTokens(ctx context.Context, texts []string) ([][]Vector, error) {
	out := make([][]Vector, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	return out, nil
}

func (e *TEIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]Vector, error) {
	slog.Debug("Requesting token embeddings", "texts", len(texts))

	body, err := json.Marshal(embedAllRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrEmbedding, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d: %s", ErrEmbedding, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var states [][]Vector
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrEmbedding, err)
	}
	if len(states) != len(texts) {
		return nil, fmt.Errorf("%w: got %d token sequences for %d texts", ErrEmbedding, len(states), len(texts))
	}

	if !e.keepSpecials {
		for i, tokens := range states {
			if len(tokens) > 2 {
				states[i] = tokens[1 : len(tokens)-1]
			}
		}
	}
	return states, nil
}
