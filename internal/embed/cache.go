package embed

import (
	"context"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"
)

// memo holds embeddings of one kind for the lifetime of a run, keyed by namespace and text.
type memo[T any] struct {
	namespace string
	cache     *gocache.Cache
}

func newMemo[T any](namespace string) *memo[T] {
	return &memo[T]{namespace: namespace, cache: gocache.New(gocache.NoExpiration, 0)}
}

// resolve returns cached values where available and fetches the distinct misses in one call.
func (m *memo[T]) resolve(ctx context.Context, texts []string, fetch func(context.Context, []string) ([]T, error)) ([]T, error) {
	values := make([]T, len(texts))

	// collect distinct misses, remembering every position that needs each one
	var missing []string
	positions := make(map[string][]int)
	for i, text := range texts {
		if val, found := m.cache.Get(m.key(text)); found {
			values[i] = val.(T)
			continue
		}
		if _, seen := positions[text]; !seen {
			missing = append(missing, text)
		}
		positions[text] = append(positions[text], i)
	}

	slog.Debug("Embedding cache lookup", "namespace", m.namespace, "requested", len(texts), "misses", len(missing))

	if len(missing) == 0 {
		return values, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbedding, len(fetched), len(missing))
	}

	for i, text := range missing {
		m.cache.Set(m.key(text), fetched[i], gocache.NoExpiration)
		for _, pos := range positions[text] {
			values[pos] = fetched[i]
		}
	}

	return values, nil
}

func (m *memo[T]) key(text string) string {
	return m.namespace + "\x00" + text
}

// CachedEmbedder memoizes another Embedder's vectors for the lifetime of a run.
// Each distinct text is sent to the wrapped embedder at most once.
type CachedEmbedder struct {
	inner Embedder
	memo  *memo[Vector]
}

// NewCachedEmbedder wraps inner with an in-memory cache. The namespace (typically the model
// identifier) keeps vectors of different models apart.
func NewCachedEmbedder(inner Embedder, namespace string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, memo: newMemo[Vector](namespace)}
}

// Embed returns cached vectors where available and fetches the rest in one call.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	return c.memo.resolve(ctx, texts, c.inner.Embed)
}

// Len returns the number of cached texts.
func (c *CachedEmbedder) Len() int {
	return c.memo.cache.ItemCount()
}

// CachedTokenEmbedder memoizes another TokenEmbedder's token states per sentence. Reference
// sentences are embedded once per run, however many candidate sentences they are scored
// against.
type CachedTokenEmbedder struct {
	inner TokenEmbedder
	memo  *memo[[]Vector]
}

// NewCachedTokenEmbedder wraps inner with an in-memory cache keyed by namespace and text.
func NewCachedTokenEmbedder(inner TokenEmbedder, namespace string) *CachedTokenEmbedder {
	return &CachedTokenEmbedder{inner: inner, memo: newMemo[[]Vector](namespace)}
}

// EmbedTokens returns cached token states where available and fetches the rest in one call.
func (c *CachedTokenEmbedder) EmbedTokens(ctx context.Context, texts []string) ([][]Vector, error) {
	return c.memo.resolve(ctx, texts, c.inner.EmbedTokens)
}

// Len returns the number of cached texts.
func (c *CachedTokenEmbedder) Len() int {
	return c.memo.cache.ItemCount()
}
