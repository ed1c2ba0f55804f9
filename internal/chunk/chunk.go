// Package chunk splits normalized page text into row-like fragments.
//
// Text extracted from documents mixes running prose with tables whose columns are
// separated by runs of spaces. The row extractor approximates row and sentence boundaries
// by splitting on the literal ". " delimiter, then flattens each segment's columns into
// a single plain fragment:
//  1. Split the page on ". " (period followed by a space)
//  2. Split every segment on runs of two or more whitespace characters (column separators)
//  3. Rejoin the columns with single spaces and trim
//  4. Drop empty fragments
//
// Usage Example:
//
//	rows := chunk.ExtractRows(normalizedPage)
//	// "Name  Age. Alice  30" -> ["Name Age", "Alice 30"]
package chunk

import (
	"log/slog"
	"regexp"
	"strings"
)

// rowDelimiter approximates a row or sentence boundary in extracted text.
const rowDelimiter = ". "

// columnSeparator matches the whitespace gaps that separate table columns.
var columnSeparator = regexp.MustCompile(`\s{2,}`)

// ExtractRows splits a page of normalized text into ordered row fragments.
// Source order is preserved and empty fragments are dropped.
func ExtractRows(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	segments := strings.Split(text, rowDelimiter)
	rows := make([]string, 0, len(segments))

	for _, segment := range segments {
		if row := joinColumns(segment); row != "" {
			rows = append(rows, row)
		}
	}

	slog.Debug("Rows extracted", "segments", len(segments), "rows", len(rows))
	return rows
}

// joinColumns collapses column separators in a single segment into single spaces.
func joinColumns(segment string) string {
	columns := columnSeparator.Split(segment, -1)

	kept := columns[:0]
	for _, column := range columns {
		if column = strings.TrimSpace(column); column != "" {
			kept = append(kept, column)
		}
	}

	return strings.Join(kept, " ")
}
