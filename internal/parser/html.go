package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLParser converts HTML-only replies to plain text for analysis
type HTMLParser struct {
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
	invisibleRegex  *regexp.Regexp
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		whitespaceRegex: regexp.MustCompile(`(?:[^\S\n]|\x{00A0})+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
		// zero-width spaces, soft hyphens, BOM
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{2060}-\x{2064}]+`),
	}
}

// Parse converts HTML to plain text, one block element per line
func (p *HTMLParser) Parse(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, meta, link").Remove()
	// quoted history, our own request included
	doc.Find("blockquote, .gmail_quote, .moz-cite-prefix, #divRplyFwdMsg").Remove()

	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := p.invisibleRegex.ReplaceAllString(doc.Text(), "")
	text = p.whitespaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	cleanLines := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	text = p.newlineRegex.ReplaceAllString(strings.Join(cleanLines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}

// PlainBody returns the text body without "> " quoted lines, falling back to
// the converted HTML body when the message has no usable text/plain part.
func (p *HTMLParser) PlainBody(text, html string) string {
	if text = strings.TrimSpace(text); text != "" {
		if own := stripQuoted(text); own != "" {
			return own
		}
		return text
	}
	parsed, err := p.Parse(html)
	if err != nil {
		return ""
	}
	return parsed
}

func stripQuoted(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
