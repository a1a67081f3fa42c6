package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockElements end a run of text; their content is separated by a space.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// CleanDescription reduces an HTML course description to plain text with
// collapsed whitespace. Input without markup comes back unchanged apart from
// whitespace and entities.
func CleanDescription(description string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return collapseSpace(description)
	}
	doc.Find("script, style").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return collapseSpace(b.String())
}

// CleanTitle unescapes HTML entities in a course title.
func CleanTitle(title string) string {
	return collapseSpace(html.UnescapeString(title))
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteByte(' ')
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
