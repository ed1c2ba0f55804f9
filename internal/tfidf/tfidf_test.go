package tfidf

import (
	"math"
	"reflect"
	"testing"
)

const epsilon = 1e-9

func TestFit(t *testing.T) {
	tests := []struct {
		name      string
		documents []string
		wantDocs  int
		wantVocab int
	}{
		{
			name:      "empty corpus",
			documents: []string{},
			wantDocs:  0,
			wantVocab: 0,
		},
		{
			name:      "single document",
			documents: []string{"hello world"},
			wantDocs:  1,
			wantVocab: 2,
		},
		{
			name:      "multiple documents",
			documents: []string{"hello world", "goodbye world", "hello goodbye"},
			wantDocs:  3,
			wantVocab: 3,
		},
		{
			name:      "all documents empty",
			documents: []string{"", ""},
			wantDocs:  2,
			wantVocab: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := Fit(tt.documents)
			if model.Len() != tt.wantDocs {
				t.Errorf("Fit() document count = %d, want %d", model.Len(), tt.wantDocs)
			}
			if len(model.Vocabulary) != tt.wantVocab {
				t.Errorf("Fit() vocabulary size = %d, want %d", len(model.Vocabulary), tt.wantVocab)
			}
		})
	}
}

func TestFitSmoothedIDF(t *testing.T) {
	model := Fit([]string{"hello world", "hello"})

	if model.Vocabulary["hello"] != 0 || model.Vocabulary["world"] != 1 {
		t.Fatalf("unexpected vocabulary ordering: %v", model.Vocabulary)
	}

	// hello appears in both docs: ln(3/3)+1
	if math.Abs(model.IDF[0]-1.0) > epsilon {
		t.Errorf("IDF(hello) = %f, want 1.0", model.IDF[0])
	}
	// world appears in one doc: ln(3/2)+1
	if want := math.Log(1.5) + 1; math.Abs(model.IDF[1]-want) > epsilon {
		t.Errorf("IDF(world) = %f, want %f", model.IDF[1], want)
	}

	// second document only has "hello", so its normalized vector is the unit vector
	if v := model.Vector(1); math.Abs(v[0]-1.0) > epsilon || v[1] != 0 {
		t.Errorf("Vector(1) = %v, want [1 0]", v)
	}
}

func TestCosine(t *testing.T) {
	model := Fit([]string{
		"university founded 1921",
		"five faculties",
		"university founded 1921",
		"",
		"university faculties",
	})

	tests := []struct {
		name    string
		a, b    int
		want    float64
		compare string // "eq", "between"
	}{
		{name: "identical documents", a: 0, b: 2, want: 1.0, compare: "eq"},
		{name: "no shared terms", a: 0, b: 1, want: 0.0, compare: "eq"},
		{name: "empty document", a: 0, b: 3, want: 0.0, compare: "eq"},
		{name: "partial overlap", a: 0, b: 4, compare: "between"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := Cosine(model.Vector(tt.a), model.Vector(tt.b))
			switch tt.compare {
			case "eq":
				if math.Abs(sim-tt.want) > epsilon {
					t.Errorf("Cosine() = %f, want %f", sim, tt.want)
				}
			case "between":
				if sim <= 0 || sim >= 1 {
					t.Errorf("Cosine() = %f, want strictly between 0 and 1", sim)
				}
			}
		})
	}
}

func TestCosineBounds(t *testing.T) {
	// self-similarity of a normalized vector can round to 1.0000000000000002 unclamped
	docs := []string{
		"university founded 1921",
		"five faculties",
		"university founded 1921",
		"faculties university library campus engineering",
	}
	model := Fit(docs)
	vectors := model.Vectors()

	for i := range vectors {
		for j := range vectors {
			sim := Cosine(vectors[i], vectors[j])
			if sim < 0 || sim > 1 {
				t.Errorf("Cosine(%d, %d) = %v, want within [0, 1]", i, j, sim)
			}
		}
		if sim := Cosine(vectors[i], vectors[i]); sim != 1 {
			t.Errorf("Cosine(%d, %d) = %v, want exactly 1", i, i, sim)
		}
	}

	if sim := Cosine([]float64{3, 4}, []float64{-3, -4}); sim != -1 {
		t.Errorf("Cosine of opposite vectors = %v, want -1", sim)
	}
}

func TestCosineMismatchedLengths(t *testing.T) {
	if sim := Cosine([]float64{1, 0}, []float64{1}); sim != 0 {
		t.Errorf("Cosine() with mismatched lengths = %f, want 0", sim)
	}
	if sim := Cosine(nil, nil); sim != 0 {
		t.Errorf("Cosine(nil, nil) = %f, want 0", sim)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty string",
			text: "",
			want: []string{},
		},
		{
			name: "simple words",
			text: "hello world",
			want: []string{"hello", "world"},
		},
		{
			name: "words with punctuation",
			text: "hello, world!",
			want: []string{"hello", "world"},
		},
		{
			name: "mixed case",
			text: "Hello World",
			want: []string{"hello", "world"},
		},
		{
			name: "single characters dropped",
			text: "a b cd 7 42",
			want: []string{"cd", "42"},
		},
		{
			name: "unicode letters",
			text: "café naïve",
			want: []string{"café", "naïve"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCalculateTermFrequency(t *testing.T) {
	tf := calculateTermFrequency([]string{"dog", "cat", "dog"})
	if tf["dog"] != 2 || tf["cat"] != 1 {
		t.Errorf("calculateTermFrequency() = %v, want dog=2 cat=1", tf)
	}
	if len(calculateTermFrequency(nil)) != 0 {
		t.Error("calculateTermFrequency(nil) should be empty")
	}
}
