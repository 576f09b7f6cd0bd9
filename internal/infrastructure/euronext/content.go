package euronext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PressMonitor/internal/domain"
	"PressMonitor/internal/ports"
)

const (
	contentSelector   = "div.row.mb-5"
	contentIndex      = 2
	fallbackSelector  = ".container-fluid"
	secondaryFallback = "main"
)

// PageExtractor locates the primary content block on a detail page using the
// site's fixed structure: the third "row mb-5" container holds the release
// body. When fewer containers exist it falls back to the broader page-content
// container, then to the full body.
type PageExtractor struct{}

var _ ports.ContentExtractor = (*PageExtractor)(nil)

// NewPageExtractor returns the position-based extractor.
func NewPageExtractor() *PageExtractor {
	return &PageExtractor{}
}

// ExtractContent returns the cleaned content block in plain-text and minimal
// HTML renditions.
func (e *PageExtractor) ExtractContent(doc *goquery.Document) domain.ReleaseContent {
	rows := doc.Find(contentSelector)
	if rows.Length() > contentIndex {
		return cleanSelection(rows.Eq(contentIndex))
	}

	if fallback := doc.Find(fallbackSelector).First(); fallback.Length() > 0 {
		return cleanSelection(fallback)
	}
	if main := doc.Find(secondaryFallback).First(); main.Length() > 0 {
		return cleanSelection(main)
	}
	return cleanSelection(doc.Find("body"))
}

// cleanSelection strips script/style elements and empty structural elements,
// collapses whitespace, and retains a minimal HTML subset alongside the fully
// stripped text.
func cleanSelection(sel *goquery.Selection) domain.ReleaseContent {
	clone := sel.Clone()
	clone.Find("script, style").Remove()
	clone.Find("p, div").Each(func(i int, el *goquery.Selection) {
		if strings.TrimSpace(el.Text()) == "" && el.Children().Length() == 0 {
			el.Remove()
		}
	})

	text := collapseWhitespace(clone.Text())

	html, err := clone.Html()
	if err != nil {
		html = ""
	}
	html = strings.TrimSpace(html)

	return domain.ReleaseContent{Text: text, HTML: html}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
