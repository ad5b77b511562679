// Package normalize turns raw feed markup into plain text suitable for
// scoring and categorization.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Text strips markup tags, decodes HTML entities, removes control
// characters and collapses whitespace. It never fails on malformed markup:
// when the parser cannot cope, tags are stripped with a best-effort
// pattern instead. Normalizing already-plain text returns it unchanged
// apart from whitespace collapse.
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	// Control characters go first: the HTML parser would otherwise replace
	// some of them with substitution runes instead of dropping them.
	text := extractText(stripControl(raw))

	// Collapse all whitespace runs into single spaces.
	return strings.Join(strings.Fields(text), " ")
}

func extractText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// Best-effort fallback: strip anything tag-shaped, decode entities.
		return html.UnescapeString(tagPattern.ReplaceAllString(raw, " "))
	}
	return doc.Text()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
