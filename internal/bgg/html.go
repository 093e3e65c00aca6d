package bgg

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// cleanDescription turns a catalog description into plain text. The
// catalog double-escapes entities ("&amp;mdash;", "&amp;#10;"), so the
// XML decoder leaves one escaping level behind; a few entries also carry
// literal markup. Newlines are kept, they are real paragraph breaks.
func cleanDescription(s string) string {
	if s == "" {
		return ""
	}

	s = html.UnescapeString(s)
	if strings.ContainsRune(s, '<') {
		s = stripTags(s)
	}

	return strings.TrimSpace(collapseSpaces(s))
}

// stripTags removes markup, keeping the text content of every node.
func stripTags(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return tagRegex.ReplaceAllString(s, " ")
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String()
}

var (
	tagRegex    = regexp.MustCompile(`<[^>]*>`)
	spacesRegex = regexp.MustCompile(`[ \t]{2,}`)
)

// collapseSpaces squeezes runs of spaces and tabs without touching
// newlines.
func collapseSpaces(s string) string {
	return spacesRegex.ReplaceAllString(s, " ")
}
