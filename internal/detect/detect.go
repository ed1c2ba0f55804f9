// Package detect aligns every candidate sentence with its closest reference sentences and
// turns the alignment into hallucination verdicts.
//
// Detection runs in two stages:
//   - Select: for each candidate sentence, the lexical and the semantic scorer each pick
//     their best-matching reference sentence (stable argmax over the whole pool), and the
//     best scores are averaged across candidates
//   - Aggregate: every selected pair is classified for entailment; a method's verdict is
//     HALLUCINATED when any of its pairs is not accurate or its mean score is below threshold
//
// The two methods produce independent verdicts; they are never combined.
package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/chriscorrea/halluscan/internal/classify"
	"github.com/chriscorrea/halluscan/internal/reference"
	"github.com/chriscorrea/halluscan/internal/similarity"
)

var (
	// ErrEmptyReferencePool indicates there are no reference sentences to match against.
	ErrEmptyReferencePool = errors.New("reference pool is empty")

	// ErrEmptyCandidate indicates the candidate text has no sentences.
	ErrEmptyCandidate = errors.New("candidate text has no sentences")
)

// Empirical default thresholds on the mean best-match scores.
const (
	DefaultLexicalThreshold  = 0.3977833266396976
	DefaultSemanticThreshold = 0.6154868602752686
)

// Thresholds holds the per-method mean score thresholds.
type Thresholds struct {
	Lexical  float64 `json:"lexical" yaml:"lexical"`
	Semantic float64 `json:"semantic" yaml:"semantic"`
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Lexical: DefaultLexicalThreshold, Semantic: DefaultSemanticThreshold}
}

// Deps holds the models a Detector runs on.
type Deps struct {
	Lexical    similarity.Scorer
	Semantic   similarity.Scorer
	Classifier classify.Classifier
}

// Progress is called after each candidate sentence of a stage completes.
type Progress func(stage string, done, total int)

// Detector runs hallucination detection for one configuration.
type Detector struct {
	deps       Deps
	thresholds Thresholds
	progress   Progress
}

// New creates a Detector. All dependencies are required.
func New(deps Deps, thresholds Thresholds) (*Detector, error) {
	if deps.Lexical == nil || deps.Semantic == nil {
		return nil, fmt.Errorf("lexical and semantic scorers are required")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("entailment classifier is required")
	}

	return &Detector{deps: deps, thresholds: thresholds}, nil
}

// OnProgress registers a progress callback.
func (d *Detector) OnProgress(p Progress) {
	d.progress = p
}

// Thresholds returns the configured thresholds.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Run selects best matches for every candidate sentence and aggregates them into verdicts.
// The reference pool and candidate list must be non-empty.
func (d *Detector) Run(ctx context.Context, pool *reference.Pool, candidates []string) (*RunResult, error) {
	selection, err := d.Select(ctx, pool, candidates)
	if err != nil {
		return nil, err
	}

	return d.Aggregate(ctx, selection)
}

func (d *Detector) report(stage string, done, total int) {
	if d.progress != nil {
		d.progress(stage, done, total)
	}
}
