// Package app contains the halluscan run logic, separated from CLI concerns.
//
// A run reads the reference document into pages, turns the pages into an indexed pool of
// reference sentences, splits the candidate text into sentences, and hands both to the
// detector. Rendering the result is a separate step (see Render).
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/chriscorrea/halluscan/internal/chunk"
	"github.com/chriscorrea/halluscan/internal/counter"
	"github.com/chriscorrea/halluscan/internal/detect"
	"github.com/chriscorrea/halluscan/internal/extract"
	"github.com/chriscorrea/halluscan/internal/fetch"
	"github.com/chriscorrea/halluscan/internal/nlp"
	"github.com/chriscorrea/halluscan/internal/normalize"
	"github.com/chriscorrea/halluscan/internal/reference"
	"github.com/chriscorrea/halluscan/internal/spinner"
)

// OutputFormat defines the report format
type OutputFormat int

const (
	// console report (default)
	Text OutputFormat = iota
	JSON
	YAML
)

// String returns the string representation of the format
func (f OutputFormat) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseOutputFormat maps a format name to an OutputFormat.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return Text, fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

// Config holds the options of one run.
type Config struct {
	Document     string // path, URL, or "-" for stdin
	Candidate    string // text to check
	Selector     string // CSS selector for HTML documents
	IncludeAll   bool   // skip readability filtering for HTML documents
	OutputFormat OutputFormat
	Quiet        bool // suppress warnings and progress
	Debug        bool
}

// Deps holds the collaborators a run needs.
type Deps struct {
	Splitter nlp.SentenceSplitter
	Detector *detect.Detector
	Stderr   io.Writer // warnings and progress; os.Stderr when nil
}

// Run executes one detection run.
//
// Processing Pipeline:
// 1. read the document into pages (a read failure is a warning and yields no pages)
// 2. normalize each page, extract its rows, and index the row sentences into the pool
// 3. normalize and split the candidate text
// 4. select best matches and classify them
//
// An empty reference pool produces a result with both methods hallucinated.
func Run(ctx context.Context, cfg Config, deps Deps) (*detect.RunResult, error) {
	if deps.Splitter == nil || deps.Detector == nil {
		return nil, fmt.Errorf("sentence splitter and detector are required")
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	candidates, err := CandidateSentences(cfg.Candidate, deps.Splitter)
	if err != nil {
		return nil, err
	}

	pages, err := LoadPages(ctx, cfg)
	if err != nil {
		slog.Warn("Document read failed", "document", cfg.Document, "error", err)
		if !cfg.Quiet {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		pages = nil
	}
	logDocumentStats(pages)

	pool, err := BuildPool(pages, deps.Splitter)
	if err != nil {
		return nil, err
	}

	slog.Debug("Run prepared", "pages", len(pages), "referenceSentences", pool.Len(), "candidateSentences", len(candidates))

	if !cfg.Quiet && spinner.IsTerminal(stderr) {
		sp := spinner.New(ctx, stderr, "scoring candidate sentences")
		deps.Detector.OnProgress(sp.Progress)
		sp.Start()
		defer sp.Stop()
	}

	result, err := deps.Detector.Run(ctx, pool, candidates)
	if errors.Is(err, detect.ErrEmptyReferencePool) {
		if !cfg.Quiet {
			fmt.Fprintf(stderr, "Warning: no reference sentences found in %q\n", cfg.Document)
		}
		return detect.Unmatched(deps.Detector.Thresholds()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	return result, nil
}

// LoadPages fetches the document and extracts its pages. Every failure wraps
// extract.ErrDocumentRead.
func LoadPages(ctx context.Context, cfg Config) ([]extract.Page, error) {
	data, err := fetch.ReadAll(ctx, cfg.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extract.ErrDocumentRead, err)
	}

	var baseURL *url.URL
	if fetch.IsURL(cfg.Document) {
		baseURL, _ = url.Parse(cfg.Document) // nil on error is fine
	}

	return extract.Pages(data, cfg.Document, extract.Options{
		Selector:   cfg.Selector,
		IncludeAll: cfg.IncludeAll,
		BaseURL:    baseURL,
	})
}

// BuildPool normalizes every page, extracts its rows, and indexes the row sentences.
func BuildPool(pages []extract.Page, splitter nlp.SentenceSplitter) (*reference.Pool, error) {
	pageRows := make([]reference.PageRows, 0, len(pages))
	for _, page := range pages {
		rows := chunk.ExtractRows(normalize.Normalize(page.Text))
		if len(rows) == 0 {
			continue
		}
		pageRows = append(pageRows, reference.PageRows{Page: page.Number, Rows: rows})
	}

	pool, err := reference.Build(pageRows, splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference pool: %w", err)
	}
	return pool, nil
}

// CandidateSentences normalizes and splits the candidate text.
func CandidateSentences(text string, splitter nlp.SentenceSplitter) ([]string, error) {
	normalized := normalize.Normalize(text)
	if normalized == "" {
		return nil, detect.ErrEmptyCandidate
	}

	sentences, err := reference.SplitCandidate(normalized, splitter)
	if err != nil {
		return nil, err
	}

	kept := sentences[:0]
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, detect.ErrEmptyCandidate
	}
	return kept, nil
}

// logDocumentStats reports document size in every counting unit.
func logDocumentStats(pages []extract.Page) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	var text strings.Builder
	for _, page := range pages {
		text.WriteString(page.Text)
		text.WriteString("\n")
	}

	attrs := []any{"pages", len(pages)}
	for _, method := range counter.Methods() {
		c, err := counter.NewCounter(method)
		if err != nil {
			slog.Debug("Counter unavailable", "method", method, "error", err)
			continue
		}
		attrs = append(attrs, method.String(), c.Count(text.String()))
	}
	slog.Debug("Document statistics", attrs...)
}
