// Package extract holds the pure content helpers the retrievers call:
// HTML-to-text cleanup, recipient-line cleaning, URL validation and PDF
// text extraction.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are elements removed before text extraction.
const noiseSelectors = "script, style, noscript, svg, iframe, nav, header, footer"

var (
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText strips an HTML page down to readable text. Block elements
// become paragraph breaks so the splitter can work on paragraph
// boundaries. A parse failure returns the input unchanged; the caller
// logs and proceeds.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find(noiseSelectors).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var blocks []string
	root.Find("p, div, h1, h2, h3, h4, h5, h6, li, td, blockquote, pre").Each(
		func(_ int, s *goquery.Selection) {
			// Skip containers whose text is covered by nested blocks.
			if s.Children().Is("p, div, li, table") {
				return
			}
			if text := strings.TrimSpace(s.Text()); text != "" {
				blocks = append(blocks, text)
			}
		})

	text := strings.Join(blocks, "\n\n")
	if text == "" {
		text = strings.TrimSpace(root.Text())
	}

	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// HTMLTitle returns the page title, or the empty string.
func HTMLTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
