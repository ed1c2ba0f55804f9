package detect_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chriscorrea/halluscan/internal/classify"
	"github.com/chriscorrea/halluscan/internal/detect"
	"github.com/chriscorrea/halluscan/internal/embed"
	"github.com/chriscorrea/halluscan/internal/filter"
	"github.com/chriscorrea/halluscan/internal/nlp"
	"github.com/chriscorrea/halluscan/internal/reference"
	"github.com/chriscorrea/halluscan/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fixedScorer returns canned scores per candidate sentence.
type fixedScorer struct {
	name   string
	scores map[string][]float64
	err    error
	calls  int
}

func (f *fixedScorer) Name() string { return f.name }

func (f *fixedScorer) Scores(_ context.Context, references []string, candidate string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	scores, ok := f.scores[candidate]
	if !ok {
		return make([]float64, len(references)), nil
	}
	return scores, nil
}

// echoClassifier supports a pair only when premise and hypothesis are identical.
type echoClassifier struct {
	pairs [][2]string
	err   error
}

func (e *echoClassifier) Classify(_ context.Context, premise, hypothesis string) (classify.Verdict, error) {
	e.pairs = append(e.pairs, [2]string{premise, hypothesis})
	if e.err != nil {
		return classify.Verdict{}, e.err
	}
	if premise == hypothesis {
		return classify.NewVerdict([]float64{-3, 0, 4}, classify.DefaultLabels), nil
	}
	return classify.NewVerdict([]float64{4, 0, -3}, classify.DefaultLabels), nil
}

// wordAnnotator tags every word as a noun after trimming punctuation.
type wordAnnotator struct{}

func (wordAnnotator) Annotate(sentence string) ([]nlp.Token, error) {
	var tokens []nlp.Token
	for _, word := range strings.Fields(sentence) {
		tokens = append(tokens, nlp.Token{Text: strings.Trim(word, ".,"), Tag: "NN", POS: nlp.Noun})
	}
	return tokens, nil
}

// hashEmbedder maps every word of a sentence to a fixed one-hot axis chosen by its bytes.
type hashEmbedder struct{}

func (hashEmbedder) EmbedTokens(_ context.Context, texts []string) ([][]embed.Vector, error) {
	out := make([][]embed.Vector, len(texts))
	for i, text := range texts {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			var h uint32 = 2166136261
			for _, b := range []byte(word) {
				h = (h ^ uint32(b)) * 16777619
			}
			v := make(embed.Vector, 1024)
			v[h%1024] = 1
			out[i] = append(out[i], v)
		}
	}
	return out, nil
}

func universityPool() *reference.Pool {
	return reference.NewPool([]reference.Sentence{
		{Text: "The university was founded in 1921.", Position: reference.Position{Page: 1, FragmentIndex: 0}},
		{Text: "It has five faculties.", Position: reference.Position{Page: 1, FragmentIndex: 1}},
	})
}

func newDetector(t *testing.T, deps detect.Deps) *detect.Detector {
	t.Helper()
	d, err := detect.New(deps, detect.DefaultThresholds())
	require.NoError(t, err)
	return d
}

func realScorers() (similarity.Scorer, similarity.Scorer) {
	lexical := similarity.NewTFIDFScorer(filter.New(wordAnnotator{}, false))
	semantic := similarity.NewSemanticScorer(embed.NewCachedTokenEmbedder(hashEmbedder{}, "test"))
	return lexical, semantic
}

func TestRun_FaithfulCandidate(t *testing.T) {
	lexical, semantic := realScorers()
	classifier := &echoClassifier{}
	d := newDetector(t, detect.Deps{Lexical: lexical, Semantic: semantic, Classifier: classifier})

	candidate := "The university was founded in 1921."
	result, err := d.Run(context.Background(), universityPool(), []string{candidate})
	require.NoError(t, err)
	require.Len(t, result.Sentences, 1)

	s := result.Sentences[0]
	assert.Equal(t, 0, s.Lexical.Index)
	assert.Equal(t, 0, s.Semantic.Index)
	assert.Equal(t, reference.Position{Page: 1, FragmentIndex: 0}, s.Lexical.Position)
	assert.InDelta(t, 1.0, s.Lexical.Score, 1e-9)
	assert.InDelta(t, 1.0, s.Semantic.Score, 1e-6)
	assert.True(t, s.Lexical.Entailment.Supported())
	assert.True(t, s.Semantic.Entailment.Supported())

	assert.Greater(t, result.MeanLexical, detect.DefaultLexicalThreshold)
	assert.Greater(t, result.MeanSemantic, detect.DefaultSemanticThreshold)
	assert.LessOrEqual(t, result.MeanLexical, 1.0)
	assert.LessOrEqual(t, result.MeanSemantic, 1.0)
	assert.Equal(t, detect.NotHallucinated, result.LexicalVerdict)
	assert.Equal(t, detect.NotHallucinated, result.SemanticVerdict)
	assert.Equal(t, 2, result.ReferenceSentences)

	assert.Equal(t, [][2]string{
		{"The university was founded in 1921.", candidate},
		{"The university was founded in 1921.", candidate},
	}, classifier.pairs, "premise is the reference sentence, hypothesis the candidate")
}

func TestRun_HallucinatedCandidate(t *testing.T) {
	lexical, semantic := realScorers()
	d := newDetector(t, detect.Deps{Lexical: lexical, Semantic: semantic, Classifier: &echoClassifier{}})

	result, err := d.Run(context.Background(), universityPool(),
		[]string{"The university was founded on Mars in the year 3021."})
	require.NoError(t, err)

	s := result.Sentences[0]
	assert.Less(t, s.Lexical.Score, 1.0)
	assert.Less(t, s.Semantic.Score, 1.0)
	assert.False(t, s.Lexical.Entailment.Supported())

	assert.True(t, result.AnyLexicalContradiction)
	assert.True(t, result.AnySemanticContradiction)
	assert.Equal(t, detect.Hallucinated, result.LexicalVerdict)
	assert.Equal(t, detect.Hallucinated, result.SemanticVerdict)
}

func TestSelect_MeansAndTies(t *testing.T) {
	lexical := &fixedScorer{name: "lexical", scores: map[string][]float64{
		"a": {0.2, 0.8},
		"b": {0.5, 0.5},
	}}
	semantic := &fixedScorer{name: "semantic", scores: map[string][]float64{
		"a": {0.9, 0.1},
		"b": {0.3, 0.7},
	}}
	d := newDetector(t, detect.Deps{Lexical: lexical, Semantic: semantic, Classifier: &echoClassifier{}})

	selection, err := d.Select(context.Background(), universityPool(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, selection.Matches, 2)

	assert.Equal(t, 1, selection.Matches[0].Lexical.Index)
	assert.Equal(t, 0, selection.Matches[0].Semantic.Index)
	assert.Equal(t, 0, selection.Matches[1].Lexical.Index, "exact tie selects the first reference")
	assert.Equal(t, 1, selection.Matches[1].Semantic.Index)
	assert.Equal(t, "It has five faculties.", selection.Matches[0].Lexical.Reference)

	assert.InDelta(t, (0.8+0.5)/2, selection.MeanLexical, 1e-12)
	assert.InDelta(t, (0.9+0.7)/2, selection.MeanSemantic, 1e-12)

	again, err := d.Select(context.Background(), universityPool(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, selection.Matches, again.Matches, "selection is deterministic")
}

func TestRun_Preconditions(t *testing.T) {
	lexical := &fixedScorer{name: "lexical"}
	semantic := &fixedScorer{name: "semantic"}
	d := newDetector(t, detect.Deps{Lexical: lexical, Semantic: semantic, Classifier: &echoClassifier{}})

	_, err := d.Run(context.Background(), reference.NewPool(nil), []string{"claim"})
	assert.ErrorIs(t, err, detect.ErrEmptyReferencePool)

	_, err = d.Run(context.Background(), nil, []string{"claim"})
	assert.ErrorIs(t, err, detect.ErrEmptyReferencePool)

	_, err = d.Run(context.Background(), universityPool(), nil)
	assert.ErrorIs(t, err, detect.ErrEmptyCandidate)

	assert.Zero(t, lexical.calls+semantic.calls, "preconditions are checked before scoring")
}

func TestRun_Errors(t *testing.T) {
	scoreErr := errors.New("scorer offline")

	tests := []struct {
		name    string
		deps    detect.Deps
		wantErr error
	}{
		{
			name: "lexical scorer",
			deps: detect.Deps{
				Lexical:    &fixedScorer{name: "lexical", err: scoreErr},
				Semantic:   &fixedScorer{name: "semantic"},
				Classifier: &echoClassifier{},
			},
			wantErr: scoreErr,
		},
		{
			name: "semantic scorer",
			deps: detect.Deps{
				Lexical:    &fixedScorer{name: "lexical"},
				Semantic:   &fixedScorer{name: "semantic", err: embed.ErrEmbedding},
				Classifier: &echoClassifier{},
			},
			wantErr: embed.ErrEmbedding,
		},
		{
			name: "classifier",
			deps: detect.Deps{
				Lexical:    &fixedScorer{name: "lexical"},
				Semantic:   &fixedScorer{name: "semantic"},
				Classifier: &echoClassifier{err: classify.ErrInference},
			},
			wantErr: classify.ErrInference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDetector(t, tt.deps)
			_, err := d.Run(context.Background(), universityPool(), []string{"claim"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_ScoreCountMismatch(t *testing.T) {
	lexical := &fixedScorer{name: "lexical", scores: map[string][]float64{"claim": {1}}}
	d := newDetector(t, detect.Deps{Lexical: lexical, Semantic: &fixedScorer{name: "semantic"}, Classifier: &echoClassifier{}})

	_, err := d.Run(context.Background(), universityPool(), []string{"claim"})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	d := newDetector(t, detect.Deps{
		Lexical:    &fixedScorer{name: "lexical"},
		Semantic:   &fixedScorer{name: "semantic"},
		Classifier: &echoClassifier{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, universityPool(), []string{"claim"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name             string
		anyContradiction bool
		mean             float64
		threshold        float64
		want             detect.Verdict
	}{
		{"above threshold, no contradiction", false, 0.9, 0.5, detect.NotHallucinated},
		{"equal to threshold", false, 0.5, 0.5, detect.NotHallucinated},
		{"below threshold", false, 0.49, 0.5, detect.Hallucinated},
		{"contradiction overrides high score", true, 1.0, 0.5, detect.Hallucinated},
		{"contradiction and low score", true, 0.1, 0.5, detect.Hallucinated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detect.Decide(tt.anyContradiction, tt.mean, tt.threshold))
		})
	}
}

func TestProgress(t *testing.T) {
	d := newDetector(t, detect.Deps{
		Lexical:    &fixedScorer{name: "lexical"},
		Semantic:   &fixedScorer{name: "semantic"},
		Classifier: &echoClassifier{},
	})

	var events []string
	d.OnProgress(func(stage string, done, total int) {
		events = append(events, fmt.Sprintf("%s:%d/%d", stage, done, total))
	})

	_, err := d.Run(context.Background(), universityPool(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"scoring:1/2", "scoring:2/2", "classifying:1/2", "classifying:2/2"}, events)
}

func TestNew_Validation(t *testing.T) {
	_, err := detect.New(detect.Deps{}, detect.DefaultThresholds())
	assert.Error(t, err)

	_, err = detect.New(detect.Deps{Lexical: &fixedScorer{}, Semantic: &fixedScorer{}}, detect.DefaultThresholds())
	assert.Error(t, err)
}

func TestUnmatched(t *testing.T) {
	result := detect.Unmatched(detect.DefaultThresholds())
	assert.Equal(t, detect.Hallucinated, result.LexicalVerdict)
	assert.Equal(t, detect.Hallucinated, result.SemanticVerdict)
	assert.Zero(t, result.MeanLexical)
	assert.Zero(t, result.MeanSemantic)
	assert.Empty(t, result.Sentences)
}

func TestVerdictEncoding(t *testing.T) {
	assert.Equal(t, "hallucinated", detect.Hallucinated.String())
	assert.Equal(t, "not hallucinated", detect.NotHallucinated.String())

	result := detect.Unmatched(detect.DefaultThresholds())
	result.SemanticVerdict = detect.NotHallucinated

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lexical_verdict":"hallucinated"`)
	assert.Contains(t, string(raw), `"semantic_verdict":"not hallucinated"`)

	out, err := yaml.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(out), "lexical_verdict: hallucinated")
	assert.Contains(t, string(out), "semantic_verdict: not hallucinated")
}
