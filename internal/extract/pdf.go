package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPages reads the plain text of every PDF page. Pages that are missing, fail to
// decode, or carry no text are skipped; a document that cannot be opened is an error.
func pdfPages(data []byte) (pages []Page, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	skipped := 0
	for i := 1; i <= total; i++ {
		text, ok := pageText(reader, i)
		if !ok {
			skipped++
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	slog.Debug("PDF pages read", "total", total, "skipped", skipped)
	return pages, nil
}

// pageText extracts one page, reporting false when the page yields no text.
func pageText(reader *pdf.Reader, number int) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("PDF page panicked", "page", number, "error", r)
			text, ok = "", false
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", false
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		slog.Debug("PDF page text extraction failed", "page", number, "error", err)
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
