// Package source provides collectors that turn a provider's category pages
// into raw text fragments, one per activity row.
package source

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"activitytracker-engine/internal/domain"
)

var blockTags = map[string]bool{
	"br": true, "div": true, "p": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "dd": true, "dt": true,
}

// URLFor substitutes the path-escaped category for {category}.
func URLFor(template, category string) string {
	return strings.ReplaceAll(template, "{category}", url.PathEscape(category))
}

// SplitRows parses an HTML page and returns one fragment per element
// matching rowSelector. Block boundaries inside a row become line breaks.
// The row's first link is appended, resolved against base, so the
// registration URL survives text extraction.
func SplitRows(r io.Reader, rowSelector string, base *url.URL, label string) ([]domain.RawFragment, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []domain.RawFragment
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		var b strings.Builder
		writeText(&b, row)
		text := strings.TrimSpace(b.String())

		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			if abs := resolve(base, href); abs != "" && !strings.Contains(text, abs) {
				text += "\n" + abs
			}
		}
		if text == "" {
			return
		}
		out = append(out, domain.RawFragment{SectionLabel: label, Text: text})
	})
	return out, nil
}

func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, n *goquery.Selection) {
		name := goquery.NodeName(n)
		switch name {
		case "#text":
			b.WriteString(n.Text())
		case "script", "style", "#comment":
		default:
			block := blockTags[name]
			if block {
				b.WriteByte('\n')
			}
			writeText(b, n)
			if block {
				b.WriteByte('\n')
			}
		}
	})
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return ""
	}
	return u.String()
}
