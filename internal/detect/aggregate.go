package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chriscorrea/halluscan/internal/classify"
)

// Verdict is the final decision for one scoring method.
type Verdict int

const (
	Hallucinated Verdict = iota
	NotHallucinated
)

// String returns the verdict in plain words.
func (v Verdict) String() string {
	if v == NotHallucinated {
		return "not hallucinated"
	}
	return "hallucinated"
}

// MarshalText encodes the verdict for JSON and YAML reports.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Decide returns Hallucinated when any pair was not accurate or the mean score is below
// threshold.
func Decide(anyContradiction bool, mean, threshold float64) Verdict {
	if anyContradiction || mean < threshold {
		return Hallucinated
	}
	return NotHallucinated
}

// Outcome is one scorer's best match together with its entailment verdict.
type Outcome struct {
	Match      `yaml:",inline"`
	Entailment classify.Verdict `json:"entailment" yaml:"entailment"`
}

// SentenceResult is the per-candidate-sentence detail of a run.
type SentenceResult struct {
	Candidate string  `json:"candidate" yaml:"candidate"`
	Lexical   Outcome `json:"lexical" yaml:"lexical"`
	Semantic  Outcome `json:"semantic" yaml:"semantic"`
}

// RunResult is the terminal output of one detection run.
type RunResult struct {
	Sentences                []SentenceResult `json:"sentences" yaml:"sentences"`
	MeanLexical              float64          `json:"mean_lexical_score" yaml:"mean_lexical_score"`
	MeanSemantic             float64          `json:"mean_semantic_score" yaml:"mean_semantic_score"`
	AnyLexicalContradiction  bool             `json:"any_lexical_contradiction" yaml:"any_lexical_contradiction"`
	AnySemanticContradiction bool             `json:"any_semantic_contradiction" yaml:"any_semantic_contradiction"`
	LexicalVerdict           Verdict          `json:"lexical_verdict" yaml:"lexical_verdict"`
	SemanticVerdict          Verdict          `json:"semantic_verdict" yaml:"semantic_verdict"`
	Thresholds               Thresholds       `json:"thresholds" yaml:"thresholds"`
	ReferenceSentences       int              `json:"reference_sentences" yaml:"reference_sentences"`
}

// Unmatched returns the result of a run with nothing to match against: no sentences,
// zero means, and both methods hallucinated.
func Unmatched(thresholds Thresholds) *RunResult {
	return &RunResult{
		Sentences:       []SentenceResult{},
		LexicalVerdict:  Hallucinated,
		SemanticVerdict: Hallucinated,
		Thresholds:      thresholds,
	}
}

// Aggregate classifies both selected pairs of every candidate sentence and derives the
// two verdicts. A classifier failure aborts the run.
func (d *Detector) Aggregate(ctx context.Context, selection *Selection) (*RunResult, error) {
	result := &RunResult{
		Sentences:          make([]SentenceResult, 0, len(selection.Matches)),
		MeanLexical:        selection.MeanLexical,
		MeanSemantic:       selection.MeanSemantic,
		Thresholds:         d.thresholds,
		ReferenceSentences: selection.PoolSize,
	}

	for i, m := range selection.Matches {
		lexical, err := d.deps.Classifier.Classify(ctx, m.Lexical.Reference, m.Candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate sentence %d lexical pair: %w", i+1, err)
		}
		semantic, err := d.deps.Classifier.Classify(ctx, m.Semantic.Reference, m.Candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate sentence %d semantic pair: %w", i+1, err)
		}

		if !lexical.Supported() {
			result.AnyLexicalContradiction = true
		}
		if !semantic.Supported() {
			result.AnySemanticContradiction = true
		}

		result.Sentences = append(result.Sentences, SentenceResult{
			Candidate: m.Candidate,
			Lexical:   Outcome{Match: m.Lexical, Entailment: lexical},
			Semantic:  Outcome{Match: m.Semantic, Entailment: semantic},
		})
		d.report("classifying", i+1, len(selection.Matches))
	}

	result.LexicalVerdict = Decide(result.AnyLexicalContradiction, result.MeanLexical, d.thresholds.Lexical)
	result.SemanticVerdict = Decide(result.AnySemanticContradiction, result.MeanSemantic, d.thresholds.Semantic)

	slog.Debug("Verdicts decided", "lexical", result.LexicalVerdict, "semantic", result.SemanticVerdict,
		"anyLexicalContradiction", result.AnyLexicalContradiction, "anySemanticContradiction", result.AnySemanticContradiction)
	return result, nil
}
