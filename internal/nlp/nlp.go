// Package nlp defines the linguistic pipeline contract used by halluscan and provides an
// implementation backed by prose.
//
// The pipeline answers two questions about text: where its sentences begin and end, and
// what each token of a sentence is (its part of speech and whether it belongs to a named
// entity). Part-of-speech tags are reported both as the fine-grained Penn Treebank tag and
// as a coarse universal category.
package nlp

import (
	"errors"
	"strings"
)

// ErrAnnotation indicates the linguistic pipeline could not process its input.
var ErrAnnotation = errors.New("linguistic annotation failed")

// Coarse part-of-speech categories (universal dependencies tag set).
const (
	Noun        = "NOUN"
	ProperNoun  = "PROPN"
	Verb        = "VERB"
	Auxiliary   = "AUX"
	Number      = "NUM"
	Adjective   = "ADJ"
	Adverb      = "ADV"
	Pronoun     = "PRON"
	Determiner  = "DET"
	Adposition  = "ADP"
	Conjunction = "CCONJ"
	Particle    = "PART"
	Punctuation = "PUNCT"
	Symbol      = "SYM"
	Other       = "X"
)

// Token is one annotated token of a sentence.
type Token struct {
	Text   string // surface form
	Tag    string // Penn Treebank tag
	POS    string // coarse category derived from Tag
	Entity string // entity label, empty when the token is outside any named entity
}

// InEntity reports whether the token is part of a named entity.
func (t Token) InEntity() bool {
	return t.Entity != ""
}

// SentenceSplitter splits text into grammatical sentences.
type SentenceSplitter interface {
	Sentences(text string) ([]string, error)
}

// Annotator tags the tokens of a sentence.
type Annotator interface {
	Annotate(sentence string) ([]Token, error)
}

// Pipeline is the full linguistic pipeline.
type Pipeline interface {
	SentenceSplitter
	Annotator
}

// CoarsePOS maps a Penn Treebank tag to its coarse universal category.
func CoarsePOS(tag string) string {
	switch {
	case tag == "NN" || tag == "NNS":
		return Noun
	case tag == "NNP" || tag == "NNPS":
		return ProperNoun
	case tag == "MD":
		return Auxiliary
	case strings.HasPrefix(tag, "VB"):
		return Verb
	case tag == "CD":
		return Number
	case strings.HasPrefix(tag, "JJ"):
		return Adjective
	case strings.HasPrefix(tag, "RB") || tag == "WRB":
		return Adverb
	case tag == "PRP" || tag == "PRP$" || tag == "WP" || tag == "WP$" || tag == "EX":
		return Pronoun
	case tag == "DT" || tag == "PDT" || tag == "WDT":
		return Determiner
	case tag == "IN":
		return Adposition
	case tag == "CC":
		return Conjunction
	case tag == "TO" || tag == "RP" || tag == "POS":
		return Particle
	case tag == "$" || tag == "#" || tag == "SYM":
		return Symbol
	case isPunctuationTag(tag):
		return Punctuation
	default:
		return Other
	}
}

func isPunctuationTag(tag string) bool {
	switch tag {
	case ".", ",", ":", "(", ")", "``", "''", "-LRB-", "-RRB-", "HYPH", "NFP":
		return true
	}
	return false
}
