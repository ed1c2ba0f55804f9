package classify_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chriscorrea/halluscan/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	tests := []struct {
		name   string
		logits []float64
		want   []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{3}, []float64{1}},
		{"equal", []float64{1, 1}, []float64{0.5, 0.5}},
		{"large logits stay finite", []float64{1000, 1000}, []float64{0.5, 0.5}},
		{"two class", []float64{0, 0.6931471805599453}, []float64{1.0 / 3.0, 2.0 / 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.Softmax(tt.logits)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestNewVerdict(t *testing.T) {
	tests := []struct {
		name          string
		logits        []float64
		wantLabel     int
		wantName      string
		wantSupported bool
	}{
		{"contradiction", []float64{4, 1, -2}, 0, "CONTRADICTION", false},
		{"neutral counts as accurate", []float64{0, 3, 1}, 1, "NEUTRAL", true},
		{"entailment", []float64{-3, 0, 5}, 2, "ENTAILMENT", true},
		{"tie takes first", []float64{2, 2, 0}, 0, "CONTRADICTION", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := classify.NewVerdict(tt.logits, classify.DefaultLabels)
			assert.Equal(t, tt.wantLabel, v.Label)
			assert.Equal(t, tt.wantName, v.LabelName)
			assert.Equal(t, tt.wantSupported, v.Supported())

			var sum float64
			for _, p := range v.Probabilities {
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}

	assert.Equal(t, classify.Verdict{}, classify.NewVerdict(nil, nil))
}

// predictServer answers /predict with the given body and records the last request.
func predictServer(t *testing.T, status int, body string, last *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("Expected path /predict, got %s", r.URL.Path)
		}
		if last != nil {
			if err := json.NewDecoder(r.Body).Decode(last); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestHTTPClassifier_Classify(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLabel int
	}{
		{
			name:      "batched response in server order",
			body:      `[[{"label":"ENTAILMENT","score":3.2},{"label":"NEUTRAL","score":0.1},{"label":"CONTRADICTION","score":-2.5}]]`,
			wantLabel: 2,
		},
		{
			name:      "single response with lowercase labels",
			body:      `[{"label":"contradiction","score":2.0},{"label":"neutral","score":0.5},{"label":"entailment","score":-1.0}]`,
			wantLabel: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last map[string]any
			server := predictServer(t, http.StatusOK, tt.body, &last)
			defer server.Close()

			c, err := classify.NewHTTPClassifier(classify.HTTPConfig{URL: server.URL + "/"})
			require.NoError(t, err)

			v, err := c.Classify(context.Background(), "The library opened in 1990.", "The library opened in 1991.")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, v.Label)
			assert.Len(t, v.Probabilities, 3)

			assert.Equal(t, true, last["raw_scores"])
			assert.Equal(t, []any{[]any{"The library opened in 1990.", "The library opened in 1991."}}, last["inputs"])
		})
	}
}

func TestHTTPClassifier_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"model crashed"}`, classify.ErrInference},
		{"input too long", http.StatusRequestEntityTooLarge, `{"error":"input too long"}`, classify.ErrTokenization},
		{"validation", http.StatusUnprocessableEntity, `{"error":"bad input"}`, classify.ErrTokenization},
		{"malformed", http.StatusOK, `not json`, classify.ErrInference},
		{"missing label", http.StatusOK, `[[{"label":"ENTAILMENT","score":1}]]`, classify.ErrInference},
		{"wrong batch size", http.StatusOK, `[]`, classify.ErrInference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := predictServer(t, tt.status, tt.body, nil)
			defer server.Close()

			c, err := classify.NewHTTPClassifier(classify.HTTPConfig{URL: server.URL})
			require.NoError(t, err)

			_, err = c.Classify(context.Background(), "premise", "hypothesis")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// halvingTruncator records its budget and keeps the first half of each text.
type halvingTruncator struct {
	budget int
}

func (h *halvingTruncator) TruncatePair(first, second string, maxTokens int) (string, string) {
	h.budget = maxTokens
	return first[:len(first)/2], second[:len(second)/2]
}

func TestHTTPClassifier_Truncates(t *testing.T) {
	var last map[string]any
	server := predictServer(t, http.StatusOK, `[[{"label":"CONTRADICTION","score":0},{"label":"ENTAILMENT","score":1}]]`, &last)
	defer server.Close()

	truncator := &halvingTruncator{}
	c, err := classify.NewHTTPClassifier(classify.HTTPConfig{
		URL:            server.URL,
		Labels:         []string{"CONTRADICTION", "ENTAILMENT"},
		MaxInputTokens: 64,
		Truncator:      truncator,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CONTRADICTION", "ENTAILMENT"}, c.Labels())

	v, err := c.Classify(context.Background(), "abcdef", "wxyz")
	require.NoError(t, err)
	assert.True(t, v.Supported())
	assert.Equal(t, 64, truncator.budget)
	assert.Equal(t, []any{[]any{"abc", "wx"}}, last["inputs"])
}

func TestNewHTTPClassifier_Validation(t *testing.T) {
	_, err := classify.NewHTTPClassifier(classify.HTTPConfig{})
	assert.Error(t, err)

	_, err = classify.NewHTTPClassifier(classify.HTTPConfig{URL: "http://localhost", Labels: []string{"ONLY"}})
	assert.Error(t, err)

	c, err := classify.NewHTTPClassifier(classify.HTTPConfig{URL: "http://localhost"})
	require.NoError(t, err)
	assert.Equal(t, classify.DefaultLabels, c.Labels())
}
