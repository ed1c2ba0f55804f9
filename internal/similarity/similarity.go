// Package similarity scores a candidate sentence against every sentence of a reference pool.
//
// Two families of scorer implement the same Scorer interface:
//   - lexical scorers (TF-IDF cosine, or BM25) compare important words only
//   - the semantic scorer compares token embeddings with greedy precision/recall/F1 matching
//
// Scores are comparable by ordering within one scorer; absolute scales differ between scorers.
package similarity

import (
	"context"
	"sync"

	"github.com/chriscorrea/halluscan/internal/filter"
	"gonum.org/v1/gonum/floats"
)

// Scorer computes one similarity score per reference sentence.
type Scorer interface {
	// Name identifies the scorer in logs and reports.
	Name() string

	// Scores returns a slice aligned 1:1 with references.
	Scores(ctx context.Context, references []string, candidate string) ([]float64, error)
}

// Argmax returns the index and value of the first maximum score.
// Returns -1 and 0 for an empty slice.
func Argmax(scores []float64) (int, float64) {
	if len(scores) == 0 {
		return -1, 0
	}
	idx := floats.MaxIdx(scores)
	return idx, scores[idx]
}

// filteredCache memoizes important-word filtering, which is deterministic per sentence and
// otherwise repeated for every reference sentence on every candidate.
type filteredCache struct {
	filter *filter.Filter
	mu     sync.Mutex
	memo   map[string]string
}

func newFilteredCache(f *filter.Filter) *filteredCache {
	return &filteredCache{filter: f, memo: make(map[string]string)}
}

func (c *filteredCache) important(sentence string) (string, error) {
	c.mu.Lock()
	words, ok := c.memo[sentence]
	c.mu.Unlock()
	if ok {
		return words, nil
	}

	words, err := c.filter.Important(sentence)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.memo[sentence] = words
	c.mu.Unlock()
	return words, nil
}

func (c *filteredCache) importantAll(sentences []string) ([]string, error) {
	out := make([]string, len(sentences))
	for i, sentence := range sentences {
		words, err := c.important(sentence)
		if err != nil {
			return nil, err
		}
		out[i] = words
	}
	return out, nil
}
