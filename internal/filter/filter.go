// Package filter reduces a sentence to its semantically load-bearing words.
//
// A token is kept when it is not a stopword and it either belongs to a named entity or is
// tagged as a noun, verb, proper noun, or number. Everything else (function words,
// adjectives, punctuation) is dropped, so that lexical similarity reflects content overlap
// rather than shared grammar.
package filter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chriscorrea/halluscan/internal/nlp"
	"github.com/kljensen/snowball"
)

// importantPOS holds the coarse categories that carry content.
var importantPOS = map[string]struct{}{
	nlp.Noun:       {},
	nlp.Verb:       {},
	nlp.ProperNoun: {},
	nlp.Number:     {},
}

// Filter extracts important words from sentences.
type Filter struct {
	annotator nlp.Annotator
	stem      bool
}

// New creates a Filter over the given annotator. When stem is true, every kept word
// is reduced to its English snowball stem.
func New(annotator nlp.Annotator, stem bool) *Filter {
	return &Filter{
		annotator: annotator,
		stem:      stem,
	}
}

// Important returns the space-joined, lowercased important words of sentence in their
// original order.
func (f *Filter) Important(sentence string) (string, error) {
	tokens, err := f.annotator.Annotate(sentence)
	if err != nil {
		return "", fmt.Errorf("failed to annotate sentence: %w", err)
	}

	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		word := strings.ToLower(tok.Text)
		if !keep(word, tok) {
			continue
		}

		if f.stem {
			stemmed, err := snowball.Stem(word, "english", true)
			if err == nil && stemmed != "" {
				word = stemmed
			}
		}
		words = append(words, word)
	}

	slog.Debug("Important words filtered", "tokens", len(tokens), "kept", len(words))
	return strings.Join(words, " "), nil
}

func keep(word string, tok nlp.Token) bool {
	if IsStopword(word) {
		return false
	}
	if tok.InEntity() {
		return true
	}
	_, ok := importantPOS[tok.POS]
	return ok
}
