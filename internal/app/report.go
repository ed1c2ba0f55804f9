package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chriscorrea/halluscan/internal/classify"
	"github.com/chriscorrea/halluscan/internal/detect"
	"gopkg.in/yaml.v3"
)

// Render writes the result in the requested format.
func Render(w io.Writer, result *detect.RunResult, format OutputFormat) error {
	switch format {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	case YAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return encoder.Close()
	case Text:
		return renderText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %v", format)
	}
}

// renderText writes the console report: one block per candidate sentence, then the
// means and the two verdict lines. Accuracy labels are red on color terminals.
func renderText(w io.Writer, result *detect.RunResult) error {
	accuracy := lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.Color("9"))

	var b strings.Builder
	for i, s := range result.Sentences {
		fmt.Fprintf(&b, "Candidate Sentence %d: %s\n\n", i+1, s.Candidate)
		writeOutcome(&b, "Lexical Similarity", s.Lexical, accuracy)
		b.WriteString("\n")
		writeOutcome(&b, "Semantic Similarity", s.Semantic, accuracy)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Mean Lexical Similarity Score: %s\n\n", formatScore(result.MeanLexical))
	fmt.Fprintf(&b, "Mean Semantic Similarity Score: %s\n\n", formatScore(result.MeanSemantic))
	fmt.Fprintf(&b, "The candidate text is %s.\n", verdictPhrase(result.LexicalVerdict, "lexically"))
	fmt.Fprintf(&b, "The candidate text is %s.\n", verdictPhrase(result.SemanticVerdict, "semantically"))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeOutcome(b *strings.Builder, method string, o detect.Outcome, accuracy lipgloss.Style) {
	fmt.Fprintf(b, "  Most Similar Sentence (%s): %s\n", method, o.Reference)
	fmt.Fprintf(b, "  Position in Document (%s): %s\n", method, o.Position)
	fmt.Fprintf(b, "  Accuracy (%s): %s with probabilities %s\n",
		method, accuracy.Render(accuracyLabel(o.Entailment)), formatProbabilities(o.Entailment.Probabilities))
}

func accuracyLabel(v classify.Verdict) string {
	if v.Supported() {
		return "Accurate"
	}
	return "Not Accurate"
}

func verdictPhrase(v detect.Verdict, adverb string) string {
	if v == detect.NotHallucinated {
		return "not " + adverb + " hallucinated"
	}
	return adverb + " hallucinated"
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func formatProbabilities(probs []float64) string {
	parts := make([]string, len(probs))
	for i, p := range probs {
		parts[i] = strconv.FormatFloat(p, 'f', 4, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
