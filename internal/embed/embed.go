// Package embed provides the embedding service contracts used by semantic scoring, clients
// for them, and an in-memory caching layer.
//
// Two kinds of embedding are used:
//   - contextual token embeddings (TokenEmbedder): one hidden state per token of a sentence,
//     computed with the whole sentence as context. TEIEmbedder reads them from a
//     text-embeddings-inference server's /embed_all endpoint.
//   - pooled sentence embeddings (Embedder): one vector per text. OpenAIEmbedder reads them
//     from any server speaking the OpenAI embeddings wire format.
package embed

import (
	"context"
	"errors"
	"math"
)

// ErrEmbedding indicates the embedding service failed or returned malformed output.
var ErrEmbedding = errors.New("embedding service error")

// Vector is a dense embedding vector.
type Vector []float32

// Embedder turns texts into vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([]Vector, error)
}

// TokenEmbedder turns texts into contextual token vectors.
type TokenEmbedder interface {
	// EmbedTokens returns, per input text and in input order, one vector per token. A
	// token's vector depends on the text it appears in.
	EmbedTokens(ctx context.Context, texts []string) ([][]Vector, error)
}

// Similarity computes cosine similarity between two vectors.
// Returns a value between -1 and 1; mismatched or zero vectors score 0.
func (v Vector) Similarity(other Vector) float64 {
	if len(v) != len(other) || len(v) == 0 {
		return 0
	}

	var dot, normV, normO float64
	for i := range v {
		a, b := float64(v[i]), float64(other[i])
		dot += a * b
		normV += a * a
		normO += b * b
	}

	if normV == 0 || normO == 0 {
		return 0
	}

	return dot / (math.Sqrt(normV) * math.Sqrt(normO))
}
