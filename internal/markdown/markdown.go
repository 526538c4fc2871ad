// Package markdown imports Markdown as page content
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/parser/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	// soft line breaks become <br>, so every source line is one text line
	goldmark.WithRendererOptions(ghtml.WithHardWraps()),
)

// Convert renders Markdown to HTML. Paragraphs holding only an image are
// replaced by the image so they import as image blocks.
func Convert(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	nodes, err := html.ParseFragment(buf.String())
	if err != nil {
		return "", fmt.Errorf("parsing converted markdown: %w", err)
	}
	for i, n := range nodes {
		if img := soleImage(n); img != nil {
			html.Detach(img)
			nodes[i] = img
		}
	}
	return html.RenderString(nodes), nil
}

func soleImage(p *html.Node) *html.Node {
	if !html.IsElement(p, "p") {
		return nil
	}
	var img *html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xhtml.TextNode && strings.TrimSpace(c.Data) == "":
		case html.IsElement(c, "img") && img == nil:
			img = c
		default:
			return nil
		}
	}
	return img
}

// Import converts Markdown into a normalized document
func Import(source []byte, newID func() string) (*doc.Document, error) {
	markup, err := Convert(source)
	if err != nil {
		return nil, err
	}
	return doc.Decode(markup, newID)
}
