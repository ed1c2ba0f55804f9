package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// htmlPages converts an HTML document into a single page.
func htmlPages(data []byte, opts Options) ([]Page, error) {
	text, err := ToText(bytes.NewReader(data), opts.Selector, opts.IncludeAll, opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// ToText extracts the readable content of an HTML document as plain text with all markup
// dropped. Every block element ends in a sentence break so neighbouring blocks are never read
// as one sentence.
//
// Parameters:
//   - content: HTML source
//   - selector: optional CSS selector; when set, only matching elements are converted
//   - includeAll: convert the whole document without readability filtering
//   - baseURL: optional URL for readability extraction (can be nil)
func ToText(content io.Reader, selector string, includeAll bool, baseURL *url.URL) (string, error) {
	if selector != "" {
		return extractWithSelector(content, selector)
	}
	if includeAll {
		return convertAllHTML(content)
	}
	return extractMainContent(content, baseURL)
}

// extractMainContent uses go-readability to find the main article
func extractMainContent(content io.Reader, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(content, baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}

	return convertToText(article.Content)
}

// extractWithSelector converts only the elements matching selector
func extractWithSelector(content io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements found matching selector: %s", selector)
	}

	var parts []string
	selection.Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			return
		}
		// keep the element's own tag so headings and lists survive conversion
		tag := goquery.NodeName(s)
		parts = append(parts, fmt.Sprintf("<%s>%s</%s>", tag, inner, tag))
	})

	if len(parts) == 0 {
		return "", fmt.Errorf("failed to extract HTML from selection")
	}

	return convertToText(strings.Join(parts, "\n"))
}

// convertAllHTML converts the whole document
func convertAllHTML(content io.Reader) (string, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read HTML content: %w", err)
	}
	return convertToText(string(raw))
}

// blockTags close a sentence when they end.
var blockTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "div", "li", "dt", "dd", "blockquote", "pre",
	"td", "th", "caption", "figcaption", "section", "article", "header", "footer", "address",
}

// inlineTags contribute their text only.
var inlineTags = []string{
	"a", "strong", "b", "em", "i", "u", "s", "del", "ins", "code", "span", "mark",
	"small", "sup", "sub", "abbr", "cite", "q", "kbd", "samp", "var", "time", "label",
}

// blankLinesRegex matches runs of blank lines
var blankLinesRegex = regexp.MustCompile(`\n{3,}`)

// convertToText renders HTML as plain text through a converter whose rules replace the
// Markdown output of every tag with its bare content. Blocks stay separated by blank lines,
// which the normalizer later folds into single spaces.
func convertToText(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	converter.Remove("script", "style", "noscript", "svg")
	converter.Use(md.Plugin(func(c *md.Converter) []md.Rule {
		return []md.Rule{
			{Filter: blockTags, Replacement: endSentence},
			{Filter: inlineTags, Replacement: bareContent},
			{Filter: []string{"ul", "ol", "dl", "table", "thead", "tbody", "tfoot", "tr"}, Replacement: blockContent},
			{Filter: []string{"br"}, Replacement: literal("\n")},
			{Filter: []string{"hr"}, Replacement: literal("\n\n")},
			{Filter: []string{"img", "iframe", "video", "audio"}, Replacement: literal("")},
		}
	}))

	text, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to text: %w", err)
	}

	return blankLinesRegex.ReplaceAllString(strings.TrimSpace(text), "\n\n"), nil
}

func bareContent(content string, _ *goquery.Selection, _ *md.Options) *string {
	return &content
}

func blockContent(content string, _ *goquery.Selection, _ *md.Options) *string {
	text := strings.TrimSpace(content)
	if text != "" {
		text = "\n\n" + text + "\n\n"
	}
	return &text
}

// endSentence terminates a block's text with a period unless it already ends a sentence.
func endSentence(content string, _ *goquery.Selection, _ *md.Options) *string {
	text := strings.TrimSpace(content)
	if text == "" {
		return &text
	}

	last, _ := utf8.DecodeLastRuneInString(strings.TrimRight(text, `"')]”’»`))
	switch last {
	case '.', '!', '?', '…':
	case ':', ';', ',':
		text = strings.TrimRight(text, ":;,") + "."
	default:
		text += "."
	}

	text = "\n\n" + text + "\n\n"
	return &text
}

func literal(s string) func(string, *goquery.Selection, *md.Options) *string {
	return func(string, *goquery.Selection, *md.Options) *string {
		return &s
	}
}
