package counter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CharCounter counts Unicode characters (runes), whitespace included.
type CharCounter struct{}

// NewCharCounter creates a CharCounter.
func NewCharCounter() Counter {
	return CharCounter{}
}

func (CharCounter) Count(text string) int {
	return utf8.RuneCountInString(text)
}

func (CharCounter) Name() string {
	return Characters.String()
}

// WordCounter counts runs of letters and digits. Free-standing punctuation such as
// bullets, dashes, and leader dots left over from PDF extraction is not a word.
type WordCounter struct{}

// NewWordCounter creates a WordCounter.
func NewWordCounter() Counter {
	return WordCounter{}
}

func (WordCounter) Count(text string) int {
	return len(strings.FieldsFunc(text, isWordSeparator))
}

func (WordCounter) Name() string {
	return Words.String()
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
