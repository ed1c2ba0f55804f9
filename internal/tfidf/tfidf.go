// Package tfidf provides a TF-IDF (Term Frequency-Inverse Document Frequency) vectorizer
// fitted jointly over a small set of documents.
//
// The vectorizer follows the classic smoothed formulation:
//   - Term Frequency (TF): raw count of a term in a document
//   - Inverse Document Frequency (IDF): ln((1 + n) / (1 + df)) + 1
//   - every document vector is L2-normalized, so cosine similarity is a dot product
//
// Usage Example:
//
//	model := tfidf.Fit([]string{"brown fox", "lazy dog", "brown dog"})
//	sim := tfidf.Cosine(model.Vector(0), model.Vector(2))
//
// Vocabulary is local to one fitted model; nothing is persisted between fits.
package tfidf

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// tokenRegex matches runs of two or more word characters
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Model holds a fitted vocabulary and the TF-IDF vectors of the documents it was fitted on.
type Model struct {
	Vocabulary map[string]int // term -> column index, columns in sorted term order
	IDF        []float64      // smoothed IDF per column
	vectors    [][]float64    // L2-normalized document vectors
}

// Fit builds the vocabulary over all documents and computes their normalized vectors.
//
// Parameters:
//   - documents: texts to vectorize; order is preserved in the resulting vectors
//
// Returns:
//   - *Model: fitted model; a document with no vocabulary terms gets a zero vector
func Fit(documents []string) *Model {
	tokenized := make([][]string, len(documents))
	docFrequencies := make(map[string]int)

	for docIdx, doc := range documents {
		tokens := tokenize(doc)
		tokenized[docIdx] = tokens

		// track document frequency for each unique term
		uniqueTerms := make(map[string]bool)
		for _, token := range tokens {
			uniqueTerms[token] = true
		}
		for term := range uniqueTerms {
			docFrequencies[term]++
		}
	}

	terms := make([]string, 0, len(docFrequencies))
	for term := range docFrequencies {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	model := &Model{
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
		vectors:    make([][]float64, len(documents)),
	}

	totalDocs := float64(len(documents))
	for col, term := range terms {
		model.Vocabulary[term] = col
		model.IDF[col] = math.Log((1+totalDocs)/(1+float64(docFrequencies[term]))) + 1
	}

	for docIdx, tokens := range tokenized {
		vector := make([]float64, len(terms))
		for term, count := range calculateTermFrequency(tokens) {
			col := model.Vocabulary[term]
			vector[col] = count * model.IDF[col]
		}

		if norm := floats.Norm(vector, 2); norm > 0 {
			floats.Scale(1/norm, vector)
		}
		model.vectors[docIdx] = vector
	}

	slog.Debug("TF-IDF model fitted", "documents", len(documents), "vocabulary", len(terms))
	return model
}

// Len returns the number of fitted documents.
func (m *Model) Len() int {
	return len(m.vectors)
}

// Vector returns the normalized vector of document i.
func (m *Model) Vector(i int) []float64 {
	return m.vectors[i]
}

// Vectors returns all document vectors in input order.
func (m *Model) Vectors() [][]float64 {
	return m.vectors
}

// Cosine returns the cosine similarity of two equal-length vectors, clamped to [-1,1] so
// rounding never pushes identical vectors past 1. Fitted vectors are non-negative, so
// their similarity lies in [0,1]. Zero vectors have similarity 0 with everything.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return math.Max(-1, math.Min(1, floats.Dot(a, b)/(normA*normB)))
}

// tokenize breaks text into lowercase tokens of at least two word characters.
func tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	return tokenRegex.FindAllString(strings.ToLower(text), -1)
}

// calculateTermFrequency counts occurrences of each term.
func calculateTermFrequency(tokens []string) map[string]float64 {
	termCounts := make(map[string]float64)
	for _, token := range tokens {
		termCounts[token]++
	}
	return termCounts
}
