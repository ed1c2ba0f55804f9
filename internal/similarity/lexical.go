package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/chriscorrea/bm25md"
	"github.com/chriscorrea/halluscan/internal/filter"
	"github.com/chriscorrea/halluscan/internal/tfidf"
)

// TFIDFScorer scores references by TF-IDF cosine similarity over important words.
// The vectorizer is refit on every call over the filtered references plus the candidate.
type TFIDFScorer struct {
	words *filteredCache
}

// NewTFIDFScorer creates a lexical scorer using the given important-word filter.
func NewTFIDFScorer(f *filter.Filter) *TFIDFScorer {
	return &TFIDFScorer{words: newFilteredCache(f)}
}

// Name returns the scorer name.
func (s *TFIDFScorer) Name() string {
	return "tfidf"
}

// Scores returns cosine similarities in [0,1]; references sharing no important words
// with the candidate score 0.
func (s *TFIDFScorer) Scores(ctx context.Context, references []string, candidate string) ([]float64, error) {
	documents, err := s.words.importantAll(append(append([]string{}, references...), candidate))
	if err != nil {
		return nil, fmt.Errorf("failed to filter sentences: %w", err)
	}

	vectors := tfidf.Fit(documents).Vectors()
	candidateVector := vectors[len(references)]

	scores := make([]float64, len(references))
	for i := range references {
		scores[i] = tfidf.Cosine(candidateVector, vectors[i])
	}

	slog.Debug("Lexical scores computed", "scorer", s.Name(), "references", len(references))
	return scores, nil
}

// BM25Scorer ranks references with field-weighted BM25 over important words. Each score is
// divided by the candidate's score against itself, so a reference repeating the candidate's
// important words scores 1 and one sharing none scores 0.
type BM25Scorer struct {
	words *filteredCache
}

// NewBM25Scorer creates a BM25 lexical scorer using the given important-word filter.
func NewBM25Scorer(f *filter.Filter) *BM25Scorer {
	return &BM25Scorer{words: newFilteredCache(f)}
}

// Name returns the scorer name.
func (s *BM25Scorer) Name() string {
	return "bm25"
}

// Scores returns self-normalized BM25 scores in [0,1].
//
// The candidate joins the corpus (as it joins the TF-IDF fit), and the corpus is padded with
// empty documents to three times its size. bm25md clamps ln((N-df+0.5)/(df+0.5)) at zero, so
// without padding a term found in half of a small pool would carry no weight at all; with
// it every term present has a positive, df-decreasing IDF.
func (s *BM25Scorer) Scores(ctx context.Context, references []string, candidate string) ([]float64, error) {
	filteredRefs, err := s.words.importantAll(references)
	if err != nil {
		return nil, fmt.Errorf("failed to filter references: %w", err)
	}
	query, err := s.words.important(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to filter candidate: %w", err)
	}

	corpus := bm25md.NewCorpus()
	parser := bm25md.NewMarkdownFieldParser()
	for _, doc := range append(append([]string{}, filteredRefs...), query) {
		corpus.AddDocument(bm25md.Document{Fields: parser.ParseDocument(doc), Original: doc})
	}
	for range 2 * (len(filteredRefs) + 1) {
		corpus.AddDocument(bm25md.Document{Fields: map[bm25md.Field]string{}})
	}

	scores := make([]float64, len(references))
	self := corpus.Score(query, len(filteredRefs))
	if self <= 0 {
		slog.Debug("Lexical scores computed", "scorer", s.Name(), "references", len(references), "selfScore", self)
		return scores, nil
	}

	for i := range filteredRefs {
		scores[i] = math.Min(corpus.Score(query, i)/self, 1)
	}

	slog.Debug("Lexical scores computed", "scorer", s.Name(), "references", len(references), "selfScore", self)
	return scores, nil
}
