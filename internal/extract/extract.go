// Package extract turns a source document into numbered pages of text.
//
// Three formats are understood:
//   - PDF: one page per PDF page, via ledongthuc/pdf; pages without extractable text are skipped
//   - HTML: the readable main content (or a CSS selection) as plain text, one sentence break
//     per block element, as one page
//   - plain text: pages separated by form feed characters
//
// Page numbers are 1-based and always refer to the page's position in the source, so a
// skipped page leaves a gap rather than renumbering the pages after it.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrDocumentRead indicates the document is missing, unreadable, or corrupt.
var ErrDocumentRead = errors.New("document could not be read")

// Page is the text of one document page.
type Page struct {
	Number int
	Text   string
}

// Format identifies how a document is parsed.
type Format int

const (
	FormatText Format = iota
	FormatPDF
	FormatHTML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatHTML:
		return "html"
	default:
		return "text"
	}
}

// Options controls HTML extraction.
type Options struct {
	Selector   string   // CSS selector; overrides main content extraction
	IncludeAll bool     // convert the whole HTML document without readability filtering
	BaseURL    *url.URL // resolves relative links during readability extraction; may be nil
}

var pdfMagic = []byte("%PDF-")

// DetectFormat chooses a format from the document's leading bytes, falling back to
// the name's extension.
func DetectFormat(name string, data []byte) Format {
	if bytes.HasPrefix(data, pdfMagic) {
		return FormatPDF
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".txt", ".text", ".md":
		return FormatText
	}

	if strings.HasPrefix(http.DetectContentType(data), "text/html") {
		return FormatHTML
	}
	return FormatText
}

// Pages extracts the text pages of a document. name is used only for format detection
// and messages. Every failure is reported as ErrDocumentRead.
func Pages(data []byte, name string, opts Options) ([]Page, error) {
	format := DetectFormat(name, data)
	slog.Debug("Extracting document", "name", name, "format", format, "bytes", len(data))

	var (
		pages []Page
		err   error
	)
	switch format {
	case FormatPDF:
		pages, err = pdfPages(data)
	case FormatHTML:
		pages, err = htmlPages(data, opts)
	default:
		pages = textPages(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentRead, name, err)
	}

	slog.Debug("Document extracted", "name", name, "pages", len(pages))
	return pages, nil
}

// textPages splits plain text on form feeds, dropping blank pages.
func textPages(text string) []Page {
	var pages []Page
	for i, part := range strings.Split(text, "\f") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages
}
