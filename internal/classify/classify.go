// Package classify decides whether a reference sentence (the premise) supports a candidate
// sentence (the hypothesis).
//
// A Classifier returns a probability distribution over an ordered label set together with
// the most probable label. Label index 0 means the hypothesis is not accurate given the
// premise; every other label counts as accurate. With the MNLI label order used by
// default, a neutral pair therefore counts as accurate.
package classify

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInference indicates the entailment model failed or returned malformed output.
	ErrInference = errors.New("entailment inference failed")

	// ErrTokenization indicates the entailment model rejected its input.
	ErrTokenization = errors.New("entailment input could not be tokenized")
)

// DefaultLabels is the label order of MNLI checkpoints such as roberta-large-mnli.
var DefaultLabels = []string{"CONTRADICTION", "NEUTRAL", "ENTAILMENT"}

// NotSupported is the label index meaning "not accurate".
const NotSupported = 0

// Verdict is the outcome of classifying one premise/hypothesis pair.
type Verdict struct {
	Label         int       `json:"label" yaml:"label"`
	LabelName     string    `json:"label_name,omitempty" yaml:"label_name,omitempty"`
	Probabilities []float64 `json:"probabilities" yaml:"probabilities"`
}

// Supported reports whether the premise supports the hypothesis.
func (v Verdict) Supported() bool {
	return v.Label != NotSupported
}

// Classifier is an entailment model.
type Classifier interface {
	// Classify returns the verdict for hypothesis given premise.
	// Failures are returned, never retried.
	Classify(ctx context.Context, premise, hypothesis string) (Verdict, error)
}

// NewVerdict builds a verdict from raw logits ordered like labels.
// labels may be nil, in which case LabelName is left empty.
func NewVerdict(logits []float64, labels []string) Verdict {
	probs := Softmax(logits)
	if len(probs) == 0 {
		return Verdict{}
	}

	label := floats.MaxIdx(probs)
	v := Verdict{Label: label, Probabilities: probs}
	if label < len(labels) {
		v.LabelName = labels[label]
	}
	return v
}

// Softmax converts logits to probabilities that sum to 1.
// Returns nil for empty input.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	// shift by the max for numerical stability
	maxLogit := floats.Max(logits)

	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}
