package nlp

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProsePipeline implements Pipeline with prose's punkt segmenter, averaged-perceptron
// tagger, and entity extractor. English only.
type ProsePipeline struct{}

// NewProsePipeline creates a prose-backed pipeline.
func NewProsePipeline() *ProsePipeline {
	return &ProsePipeline{}
}

// Sentences splits text into sentences using punkt segmentation.
func (p *ProsePipeline) Sentences(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("%w: segmenting text: %v", ErrAnnotation, err)
	}

	var sentences []string
	for _, s := range doc.Sentences() {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	slog.Debug("Sentences segmented", "textLength", len(text), "sentences", len(sentences))
	return sentences, nil
}

// Annotate tokenizes, tags, and runs entity extraction over a single sentence.
func (p *ProsePipeline) Annotate(sentence string) ([]Token, error) {
	if strings.TrimSpace(sentence) == "" {
		return []Token{}, nil
	}

	doc, err := prose.NewDocument(sentence, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("%w: annotating sentence: %v", ErrAnnotation, err)
	}

	proseTokens := doc.Tokens()
	tokens := make([]Token, len(proseTokens))
	for i, tok := range proseTokens {
		tokens[i] = Token{
			Text: tok.Text,
			Tag:  tok.Tag,
			POS:  CoarsePOS(tok.Tag),
		}
	}

	entities := doc.Entities()
	spans := make([]entitySpan, len(entities))
	for i, ent := range entities {
		spans[i] = entitySpan{words: strings.Fields(ent.Text), label: ent.Label}
	}
	markEntities(tokens, spans)

	return tokens, nil
}

// entitySpan is a named entity expressed as its token sequence.
type entitySpan struct {
	words []string
	label string
}

// markEntities labels the tokens covered by each entity span. Spans are matched left to
// right in order of appearance, so repeated words outside an entity stay unlabeled.
func markEntities(tokens []Token, spans []entitySpan) {
	cursor := 0
	for _, span := range spans {
		if len(span.words) == 0 {
			continue
		}

		for start := cursor; start+len(span.words) <= len(tokens); start++ {
			if !matchesAt(tokens, start, span.words) {
				continue
			}
			for i := range span.words {
				tokens[start+i].Entity = span.label
			}
			cursor = start + len(span.words)
			break
		}
	}
}

func matchesAt(tokens []Token, start int, words []string) bool {
	for i, word := range words {
		if tokens[start+i].Text != word {
			return false
		}
	}
	return true
}
