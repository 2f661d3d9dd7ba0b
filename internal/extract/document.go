// Package extract turns a rendered search results page into job records.
//
// The extraction rules are written against Node, a minimal read-only view of
// a parsed document, so they can run over fixture HTML in tests as easily as
// over the live page.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is an element in a parsed document.
type Node interface {
	// First returns the first descendant matching selector.
	First(selector string) (Node, bool)
	// All returns every descendant matching selector in document order.
	All(selector string) []Node
	Attr(name string) (string, bool)
	// Text returns the element text with runs of whitespace collapsed.
	Text() string
	// InnerText returns the element text as a browser renders it: one line
	// per <br> or block boundary, whitespace collapsed within each line.
	InnerText() string
}

// Parse builds a Node over an HTML document.
func Parse(html string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return selection{doc.Selection}, nil
}

type selection struct {
	s *goquery.Selection
}

func (n selection) First(selector string) (Node, bool) {
	found := n.s.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selection{found}, true
}

func (n selection) All(selector string) []Node {
	found := n.s.Find(selector)
	out := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, selection{s})
	})
	return out
}

func (n selection) Attr(name string) (string, bool) {
	return n.s.Attr(name)
}

func (n selection) Text() string {
	return collapseSpace(n.s.Text())
}

func (n selection) InnerText() string {
	var b strings.Builder
	for _, node := range n.s.Nodes {
		renderInnerText(&b, node)
	}
	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapseSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

func renderInnerText(b *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.ElementNode:
		switch node.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style", "template", "noscript":
			return
		}
	}
	block := node.Type == html.ElementNode && blockElements[node.Data]
	if block {
		b.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderInnerText(b, child)
	}
	if block {
		b.WriteByte('\n')
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
