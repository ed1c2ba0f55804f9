package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chriscorrea/halluscan/internal/embed"
)

// F1Score holds the greedy-matching components for one candidate/reference pair.
type F1Score struct {
	Precision float64
	Recall    float64
	F1        float64
}

// SemanticScorer compares contextual token embeddings of the candidate and each reference,
// the way BERTScore does.
//
// Every sentence is embedded whole, so a token's vector reflects its surrounding words. For
// every pair, each candidate token is matched to its most similar reference token
// (precision) and each reference token to its most similar candidate token (recall); the
// harmonic mean of the two is the pair's score, in [-1,1].
type SemanticScorer struct {
	embedder embed.TokenEmbedder
}

// NewSemanticScorer creates a semantic scorer over the given token embedder.
// Wrap the embedder with embed.NewCachedTokenEmbedder so reference sentences are embedded
// once per run.
func NewSemanticScorer(embedder embed.TokenEmbedder) *SemanticScorer {
	return &SemanticScorer{embedder: embedder}
}

// Name returns the scorer name.
func (s *SemanticScorer) Name() string {
	return "bertscore"
}

// Scores returns the F1 component for the candidate against every reference.
func (s *SemanticScorer) Scores(ctx context.Context, references []string, candidate string) ([]float64, error) {
	pairs, err := s.ScorePairs(ctx, references, candidate)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(pairs))
	for i, p := range pairs {
		scores[i] = p.F1
	}
	return scores, nil
}

// ScorePairs returns precision, recall and F1 for the candidate against every reference.
func (s *SemanticScorer) ScorePairs(ctx context.Context, references []string, candidate string) ([]F1Score, error) {
	sentences, index := distinct(append([]string{candidate}, references...))

	states, err := s.embedder.EmbedTokens(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}
	if len(states) != len(sentences) {
		return nil, fmt.Errorf("%w: got %d token sequences for %d sentences", embed.ErrEmbedding, len(states), len(sentences))
	}

	candidateStates := states[index[candidate]]
	scores := make([]F1Score, len(references))
	for i, ref := range references {
		scores[i] = greedyMatch(candidateStates, states[index[ref]])
	}

	slog.Debug("Semantic scores computed", "scorer", s.Name(), "references", len(references), "candidateTokens", len(candidateStates), "sentences", len(sentences))
	return scores, nil
}

// SentenceScorer compares one pooled embedding per sentence by cosine similarity.
// It is coarser than SemanticScorer and suits hosted embedding APIs that do not expose
// token states.
type SentenceScorer struct {
	embedder embed.Embedder
}

// NewSentenceScorer creates a sentence-level semantic scorer.
func NewSentenceScorer(embedder embed.Embedder) *SentenceScorer {
	return &SentenceScorer{embedder: embedder}
}

// Name returns the scorer name.
func (s *SentenceScorer) Name() string {
	return "embedding"
}

// Scores returns the cosine similarity of the candidate to every reference.
func (s *SentenceScorer) Scores(ctx context.Context, references []string, candidate string) ([]float64, error) {
	sentences, index := distinct(append([]string{candidate}, references...))

	vectors, err := s.embedder.Embed(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}
	if len(vectors) != len(sentences) {
		return nil, fmt.Errorf("%w: got %d vectors for %d sentences", embed.ErrEmbedding, len(vectors), len(sentences))
	}

	query := vectors[index[candidate]]
	scores := make([]float64, len(references))
	for i, ref := range references {
		scores[i] = query.Similarity(vectors[index[ref]])
	}

	slog.Debug("Semantic scores computed", "scorer", s.Name(), "references", len(references))
	return scores, nil
}

// distinct returns texts without duplicates, in first-seen order, and each text's position.
func distinct(texts []string) ([]string, map[string]int) {
	index := make(map[string]int, len(texts))
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		if _, ok := index[text]; !ok {
			index[text] = len(out)
			out = append(out, text)
		}
	}
	return out, index
}

// greedyMatch computes precision, recall and F1 between two token vector sequences.
// An empty side yields a zero score.
func greedyMatch(candidate, reference []embed.Vector) F1Score {
	if len(candidate) == 0 || len(reference) == 0 {
		return F1Score{}
	}

	sim := make([][]float64, len(candidate))
	for i, c := range candidate {
		sim[i] = make([]float64, len(reference))
		for j, r := range reference {
			sim[i][j] = c.Similarity(r)
		}
	}

	var precision float64
	for i := range candidate {
		best := sim[i][0]
		for j := 1; j < len(reference); j++ {
			best = max(best, sim[i][j])
		}
		precision += best
	}
	precision /= float64(len(candidate))

	var recall float64
	for j := range reference {
		best := sim[0][j]
		for i := 1; i < len(candidate); i++ {
			best = max(best, sim[i][j])
		}
		recall += best
	}
	recall /= float64(len(reference))

	score := F1Score{Precision: precision, Recall: recall}
	if precision+recall != 0 {
		score.F1 = 2 * precision * recall / (precision + recall)
	}
	return score
}
