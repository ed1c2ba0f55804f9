package classify

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

// DefaultMaxInputTokens is the input budget of BERT-family encoders.
const DefaultMaxInputTokens = 512

// Truncator shortens a premise/hypothesis pair to a token budget.
type Truncator interface {
	TruncatePair(first, second string, maxTokens int) (string, string)
}

// HTTPConfig configures the entailment inference client.
type HTTPConfig struct {
	URL            string        // base URL of a text-embeddings-inference style server
	Labels         []string      // label order; index 0 is "not accurate". DefaultLabels when empty
	MaxInputTokens int           // pair budget; DefaultMaxInputTokens when <= 0
	Truncator      Truncator     // optional; pairs are sent as-is when nil
	Timeout        time.Duration // per request; no client timeout when zero
}

// HTTPClassifier calls a sequence-classification server's /predict endpoint with
// premise/hypothesis pairs and applies softmax to the returned logits.
type HTTPClassifier struct {
	endpoint  string
	labels    []string
	maxTokens int
	truncator Truncator
	client    *http.Client
}

// predictRequest is the /predict body; a batch of one text pair
type predictRequest struct {
	Inputs    [][2]string `json:"inputs"`
	RawScores bool        `json:"raw_scores"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPClassifier creates a new entailment client.
func NewHTTPClassifier(config HTTPConfig) (*HTTPClassifier, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("entailment URL is required")
	}

	labels := config.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("entailment needs at least two labels, got %d", len(labels))
	}

	maxTokens := config.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}

	return &HTTPClassifier{
		endpoint:  strings.TrimRight(config.URL, "/") + "/predict",
		labels:    labels,
		maxTokens: maxTokens,
		truncator: config.Truncator,
		client:    &http.Client{Timeout: config.Timeout},
	}, nil
}

// Labels returns the configured label order.
func (c *HTTPClassifier) Labels() []string {
	return c.labels
}

// Classify sends one premise/hypothesis pair and returns its verdict.
func (c *HTTPClassifier) Classify(ctx context.Context, premise, hypothesis string) (Verdict, error) {
	if c.truncator != nil {
		premise, hypothesis = c.truncator.TruncatePair(premise, hypothesis, c.maxTokens)
	}

	body, err := json.Marshal(predictRequest{
		Inputs:    [][2]string{{premise, hypothesis}},
		RawScores: true,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: failed to read response: %v", ErrInference, err)
	}

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge || resp.StatusCode == http.StatusUnprocessableEntity:
		return Verdict{}, fmt.Errorf("%w: server returned %d: %s", ErrTokenization, resp.StatusCode, strings.TrimSpace(string(raw)))
	case resp.StatusCode != http.StatusOK:
		return Verdict{}, fmt.Errorf("%w: server returned %d: %s", ErrInference, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return Verdict{}, err
	}

	logits, err := c.order(scores)
	if err != nil {
		return Verdict{}, err
	}

	verdict := NewVerdict(logits, c.labels)
	slog.Debug("Entailment classified", "label", verdict.LabelName, "probabilities", verdict.Probabilities)
	return verdict, nil
}

// decodeScores accepts both the batched ([[...]]) and single ([...]) response shapes.
func decodeScores(raw []byte) ([]labelScore, error) {
	var batched [][]labelScore
	if err := json.Unmarshal(raw, &batched); err == nil {
		if len(batched) != 1 {
			return nil, fmt.Errorf("%w: expected 1 prediction, got %d", ErrInference, len(batched))
		}
		return batched[0], nil
	}

	var single []labelScore
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrInference, err)
	}
	return single, nil
}

// order arranges scores by the configured label order.
func (c *HTTPClassifier) order(scores []labelScore) ([]float64, error) {
	byLabel := make(map[string]float64, len(scores))
	for _, s := range scores {
		byLabel[strings.ToUpper(s.Label)] = s.Score
	}

	logits := make([]float64, len(c.labels))
	for i, label := range c.labels {
		score, ok := byLabel[strings.ToUpper(label)]
		if !ok {
			return nil, fmt.Errorf("%w: response has no score for label %q", ErrInference, label)
		}
		logits[i] = score
	}
	return logits, nil
}
