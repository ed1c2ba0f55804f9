package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chriscorrea/halluscan/internal/reference"
	"github.com/chriscorrea/halluscan/internal/similarity"
	"gonum.org/v1/gonum/stat"
)

// Match is the reference sentence one scorer selected for a candidate sentence.
type Match struct {
	Reference string             `json:"reference" yaml:"reference"`
	Position  reference.Position `json:"position" yaml:"position"`
	Index     int                `json:"index" yaml:"index"` // index into the reference pool
	Score     float64            `json:"score" yaml:"score"`
}

// MatchResult pairs a candidate sentence with its lexical and semantic best matches.
type MatchResult struct {
	Candidate string `json:"candidate" yaml:"candidate"`
	Lexical   Match  `json:"lexical" yaml:"lexical"`
	Semantic  Match  `json:"semantic" yaml:"semantic"`
}

// Selection is the outcome of best-match selection over all candidate sentences.
type Selection struct {
	Matches      []MatchResult
	MeanLexical  float64
	MeanSemantic float64
	PoolSize     int
}

// Select finds, for each candidate sentence independently, the reference sentence with the
// highest lexical score and the one with the highest semantic score. Ties go to the first
// reference in pool order.
func (d *Detector) Select(ctx context.Context, pool *reference.Pool, candidates []string) (*Selection, error) {
	if pool.Len() == 0 {
		return nil, ErrEmptyReferencePool
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidate
	}

	references := pool.Texts()
	selection := &Selection{
		Matches:  make([]MatchResult, 0, len(candidates)),
		PoolSize: pool.Len(),
	}
	lexicalScores := make([]float64, 0, len(candidates))
	semanticScores := make([]float64, 0, len(candidates))

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lexical, err := bestMatch(ctx, d.deps.Lexical, pool, references, candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate sentence %d: %w", i+1, err)
		}
		semantic, err := bestMatch(ctx, d.deps.Semantic, pool, references, candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate sentence %d: %w", i+1, err)
		}

		selection.Matches = append(selection.Matches, MatchResult{
			Candidate: candidate,
			Lexical:   lexical,
			Semantic:  semantic,
		})
		lexicalScores = append(lexicalScores, lexical.Score)
		semanticScores = append(semanticScores, semantic.Score)

		slog.Debug("Best matches selected", "candidate", i+1, "lexicalIndex", lexical.Index, "lexicalScore", lexical.Score,
			"semanticIndex", semantic.Index, "semanticScore", semantic.Score)
		d.report("scoring", i+1, len(candidates))
	}

	selection.MeanLexical = stat.Mean(lexicalScores, nil)
	selection.MeanSemantic = stat.Mean(semanticScores, nil)

	slog.Debug("Selection complete", "candidates", len(candidates), "references", pool.Len(),
		"meanLexical", selection.MeanLexical, "meanSemantic", selection.MeanSemantic)
	return selection, nil
}

// bestMatch scores the candidate against every reference and picks the stable argmax.
func bestMatch(ctx context.Context, scorer similarity.Scorer, pool *reference.Pool, references []string, candidate string) (Match, error) {
	scores, err := scorer.Scores(ctx, references, candidate)
	if err != nil {
		return Match{}, fmt.Errorf("%s scoring failed: %w", scorer.Name(), err)
	}
	if len(scores) != len(references) {
		return Match{}, fmt.Errorf("%s scorer returned %d scores for %d references", scorer.Name(), len(scores), len(references))
	}

	idx, score := similarity.Argmax(scores)
	sentence := pool.At(idx)
	return Match{
		Reference: sentence.Text,
		Position:  sentence.Position,
		Index:     idx,
		Score:     score,
	}, nil
}
