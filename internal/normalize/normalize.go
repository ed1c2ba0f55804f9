// Package normalize cleans raw extracted page text so that sentence splitting downstream
// is not fooled by layout artifacts.
//
// Cleaning is expressed as an ordered table of (pattern, replacement) rules. The table is
// applied top to bottom, and the whole pass repeats until the text stops changing, so
// normalizing already-normalized text is a no-op.
//
// Usage Example:
//
//	clean := normalize.Normalize(pageText)
package normalize

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// maxPasses bounds the fixpoint loop; real text settles in one or two passes.
const maxPasses = 5

// Rule is a single rewrite step of the normalizer.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply rewrites every match of the rule's pattern in text.
func (r Rule) Apply(text string) string {
	return r.Pattern.ReplaceAllString(text, r.Replacement)
}

var (
	rules     []Rule
	rulesOnce sync.Once
)

// Rules returns the ordered rule table, compiling it on first use.
// Callers must not modify the returned slice.
func Rules() []Rule {
	rulesOnce.Do(func() {
		rules = []Rule{
			// layout repair
			{Name: "hyphenation", Pattern: regexp.MustCompile(`-\n`), Replacement: ""},
			{Name: "line-join", Pattern: regexp.MustCompile(`\n([\p{L}\p{N}_])`), Replacement: " ${1}"},
			{Name: "leader-dots", Pattern: regexp.MustCompile(`\.{2,}`), Replacement: ""},
			{Name: "whitespace", Pattern: regexp.MustCompile(`[\s\p{Zs}]{2,}`), Replacement: " "},

			// periods that do not end a sentence
			{Name: "titles", Pattern: regexp.MustCompile(`(Mr|Mrs|Miss|Ms|Dr)\.`), Replacement: "${1}"},
			{Name: "initials", Pattern: regexp.MustCompile(`\b([A-Z])\.`), Replacement: "${1}"},
			{Name: "bullets", Pattern: regexp.MustCompile(`•`), Replacement: ""},
			{Name: "enumerators", Pattern: regexp.MustCompile(`(\d)\.`), Replacement: "${1}"},
			{Name: "extension", Pattern: regexp.MustCompile(`(?i)\b(ext)\.(\s|$)`), Replacement: "${1}${2}"},
			{Name: "closing-paren", Pattern: regexp.MustCompile(`\)\.`), Replacement: ")"},
			{Name: "bsc", Pattern: regexp.MustCompile(`\b[Bb][Ss][Cc]\.`), Replacement: "BSC"},
			{Name: "msc", Pattern: regexp.MustCompile(`\b[Mm][Ss][Cc]\.`), Replacement: "MSC"},
			{Name: "domain", Pattern: regexp.MustCompile(`uom\.lk`), Replacement: "uomlk"},
			{Name: "am", Pattern: regexp.MustCompile(`\b([Aa])\.[Mm]\.`), Replacement: "${1}m"},
			{Name: "pm", Pattern: regexp.MustCompile(`\b([Pp])\.[Mm]\.`), Replacement: "${1}m"},
			{Name: "compound", Pattern: regexp.MustCompile(`mora\.ls`), Replacement: "morals"},
			{Name: "number-abbrev", Pattern: regexp.MustCompile(`\b[Nn]o\.`), Replacement: "no"},
		}
	})
	return rules
}

// Normalize applies the rule table to text until it reaches a fixpoint and trims the result.
// Only punctuation and whitespace are removed; alphanumeric content is never altered.
func Normalize(text string) string {
	table := Rules()

	current := text
	for pass := 0; pass < maxPasses; pass++ {
		next := current
		for _, rule := range table {
			next = rule.Apply(next)
		}
		next = strings.TrimSpace(next)

		if next == current {
			break
		}
		current = next
	}

	slog.Debug("Text normalized", "inputLength", len(text), "outputLength", len(current))
	return current
}
