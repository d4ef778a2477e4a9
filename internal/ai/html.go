package ai

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText flattens a product description's HTML into plain text for
// prompts and keyword scoring. On parse failure the raw input is returned.
func HTMLToText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	text := doc.Text()
	return strings.Join(strings.Fields(text), " ")
}
