// Package reference builds the reference sentence pool: every sentence of the source
// document together with the page and row fragment it came from.
package reference

import (
	"fmt"
	"log/slog"

	"github.com/chriscorrea/halluscan/internal/nlp"
)

// Position locates a sentence in the source document.
type Position struct {
	Page          int `json:"page" yaml:"page"`                     // 1-based page number
	FragmentIndex int `json:"fragment_index" yaml:"fragment_index"` // 0-based row index within the page
}

// String returns a human-readable form of the position.
func (p Position) String() string {
	return fmt.Sprintf("Page %d, Sentence Index %d", p.Page, p.FragmentIndex)
}

// Sentence is one reference sentence with its provenance.
type Sentence struct {
	Text     string   `json:"text" yaml:"text"`
	Position Position `json:"position" yaml:"position"`
}

// PageRows holds the row fragments extracted from one page.
type PageRows struct {
	Page int
	Rows []string
}

// Pool is the ordered set of reference sentences for one detection run.
type Pool struct {
	sentences []Sentence
}

// Build splits every row fragment of every page into sentences and indexes each
// sentence with its originating page and row.
func Build(pages []PageRows, splitter nlp.SentenceSplitter) (*Pool, error) {
	pool := &Pool{}

	for _, page := range pages {
		if page.Page < 1 {
			return nil, fmt.Errorf("invalid page number %d", page.Page)
		}

		for rowIndex, row := range page.Rows {
			sentences, err := splitter.Sentences(row)
			if err != nil {
				return nil, fmt.Errorf("failed to split page %d row %d: %w", page.Page, rowIndex, err)
			}

			for _, text := range sentences {
				pool.sentences = append(pool.sentences, Sentence{
					Text:     text,
					Position: Position{Page: page.Page, FragmentIndex: rowIndex},
				})
			}
		}
	}

	slog.Debug("Reference pool built", "pages", len(pages), "sentences", len(pool.sentences))
	return pool, nil
}

// NewPool creates a pool from already-indexed sentences.
func NewPool(sentences []Sentence) *Pool {
	copied := make([]Sentence, len(sentences))
	copy(copied, sentences)
	return &Pool{sentences: copied}
}

// Len returns the number of sentences in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.sentences)
}

// At returns the sentence at index i.
func (p *Pool) At(i int) Sentence {
	return p.sentences[i]
}

// Texts returns the sentence texts in pool order.
func (p *Pool) Texts() []string {
	if p == nil {
		return nil
	}
	texts := make([]string, len(p.sentences))
	for i, s := range p.sentences {
		texts[i] = s.Text
	}
	return texts
}

// Positions returns the sentence positions in pool order, index-aligned with Texts.
func (p *Pool) Positions() []Position {
	if p == nil {
		return nil
	}
	positions := make([]Position, len(p.sentences))
	for i, s := range p.sentences {
		positions[i] = s.Position
	}
	return positions
}

// SplitCandidate splits normalized candidate text into its ordered sentences.
// Candidate text carries no page provenance.
func SplitCandidate(text string, splitter nlp.SentenceSplitter) ([]string, error) {
	sentences, err := splitter.Sentences(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split candidate text: %w", err)
	}

	slog.Debug("Candidate pool built", "sentences", len(sentences))
	return sentences, nil
}
