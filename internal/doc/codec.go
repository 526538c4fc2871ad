package doc

import (
	"fmt"
	"strconv"

	"github.com/gm6nx/blockedit/internal/parser/html"
	xhtml "golang.org/x/net/html"
)

// Point is a position in editor viewport pixels
type Point struct {
	X, Y float64
}

// RenderMode selects the markup flavor produced by Encode
type RenderMode int

const (
	// RenderPersist is the stored form: no computed positions
	RenderPersist RenderMode = iota
	// RenderEdit adds absolute positions for tight images
	RenderEdit
	// RenderView is read-only: no editing affordances, widgets as previews
	RenderView
)

// EncodeOptions configures Encode
type EncodeOptions struct {
	Mode RenderMode
	// Positions holds the rendered top-left of tight images by block ID,
	// used by RenderEdit and RenderView
	Positions map[string]Point
	// Sources, when set, supplies widget source that replaces the
	// document's, for edits not yet written back
	Sources func(id string) (string, bool)
}

// Decode parses page markup into a normalized document. Parsing is lenient;
// the only error source is the underlying tokenizer's reader.
func Decode(markup string, newID func() string) (*Document, error) {
	d := New()
	if newID != nil {
		d.NewID = newID
	}
	nodes, err := html.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("parse page content: %w", err)
	}
	d.Blocks = NewNormalizer(d.GenerateID).Blocks(nodes, false)
	d.Reindex()
	return d, nil
}

// HTML returns the persisted markup of the document
func (d *Document) HTML() string {
	return Encode(d, EncodeOptions{})
}

// Encode serializes the document
func Encode(d *Document, opts EncodeOptions) string {
	return html.RenderString(EncodeBlocks(d.Blocks, opts))
}

// EncodeBlocks renders blocks into fresh nodes; the model is not shared with
// the result
func EncodeBlocks(blocks []Block, opts EncodeOptions) []*html.Node {
	out := make([]*html.Node, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, encodeBlock(b, opts))
	}
	return out
}

func encodeBlock(b Block, opts EncodeOptions) *html.Node {
	switch v := b.(type) {
	case *TextLine:
		return encodeLine(v, opts)
	case *Image:
		return encodeImage(v, opts)
	case *Group:
		return encodeGroup(v, opts)
	case *Cell:
		return encodeCell(v, opts)
	case *Widget:
		return encodeWidget(v, opts)
	}
	return html.NewText("")
}

func encodeLine(t *TextLine, opts EncodeOptions) *html.Node {
	tag := t.Tag
	if tag == "" {
		tag = "p"
	}
	el := html.NewElement(tag, idAttr(t.BlockID))
	el.Attr = append(el.Attr, t.Attr...)
	if len(t.Inline) == 0 {
		html.AppendChild(el, html.NewElement("br"))
	}
	for _, n := range html.CloneAll(t.Inline) {
		html.AppendChild(el, n)
	}
	if opts.Mode == RenderView {
		stripAffordances(el)
	}
	return el
}

func encodeImage(i *Image, opts EncodeOptions) *html.Node {
	el := html.NewElement("div", xhtml.Attribute{Key: "class", Val: ClassImageBlock}, idAttr(i.BlockID))
	if opts.Mode != RenderView {
		html.SetAttr(el, "draggable", "true")
	}
	if i.Tight() {
		anchor := i.Anchor
		if anchor == "" {
			anchor = RootID
		}
		html.SetAttr(el, AttrMode, "tight")
		html.SetAttr(el, AttrAnchor, anchor)
		html.SetAttr(el, AttrOffsetX, formatNumber(i.OffsetX))
		html.SetAttr(el, AttrOffsetY, formatNumber(i.OffsetY))
		if pos, ok := opts.Positions[i.BlockID]; ok && opts.Mode != RenderPersist {
			html.SetAttr(el, "style", fmt.Sprintf("position: absolute; left: %spx; top: %spx",
				formatNumber(pos.X), formatNumber(pos.Y)))
		}
	}

	img := html.NewElement("img", xhtml.Attribute{Key: "src", Val: i.Src}, xhtml.Attribute{Key: "alt", Val: i.Alt})
	if i.Width > 0 {
		html.SetAttr(img, "width", formatNumber(i.Width))
	}
	if i.Height > 0 {
		html.SetAttr(img, "height", formatNumber(i.Height))
	}
	html.AppendChild(el, img)
	return el
}

// GridTemplate is the CSS grid template for a rows×cols group
func GridTemplate(rows, cols int) string {
	return fmt.Sprintf("grid-template-columns: repeat(%d, 1fr); grid-template-rows: repeat(%d, minmax(80px, auto))", cols, rows)
}

func encodeGroup(g *Group, opts EncodeOptions) *html.Node {
	el := html.NewElement("div",
		xhtml.Attribute{Key: "class", Val: ClassGroup},
		idAttr(g.BlockID),
		xhtml.Attribute{Key: AttrRows, Val: strconv.Itoa(g.Rows)},
		xhtml.Attribute{Key: AttrCols, Val: strconv.Itoa(g.Cols)},
		xhtml.Attribute{Key: "style", Val: GridTemplate(g.Rows, g.Cols)},
	)
	for _, c := range g.Cells {
		html.AppendChild(el, encodeCell(c, opts))
	}
	return el
}

func encodeCell(c *Cell, opts EncodeOptions) *html.Node {
	el := html.NewElement("div", xhtml.Attribute{Key: "class", Val: ClassCell}, idAttr(c.BlockID))
	if opts.Mode != RenderView {
		html.SetAttr(el, "contenteditable", "true")
		html.SetAttr(el, "draggable", "true")
	}
	parent := el
	if c.Mixed() {
		parent = html.NewElement("div", xhtml.Attribute{Key: "class", Val: ClassCellContent})
		html.AppendChild(el, parent)
	}
	for _, n := range EncodeBlocks(c.Blocks, opts) {
		html.AppendChild(parent, n)
	}
	return el
}

func encodeWidget(w *Widget, opts EncodeOptions) *html.Node {
	class := ClassWidget
	if opts.Mode == RenderView {
		class += " " + ClassReadOnly
	}
	el := html.NewElement("div", xhtml.Attribute{Key: "class", Val: class}, idAttr(w.BlockID))
	src := w.Source
	if opts.Sources != nil {
		if s, ok := opts.Sources(w.BlockID); ok {
			src = s
		}
	}
	if opts.Mode != RenderView {
		html.SetAttr(el, "contenteditable", "false")
		source := html.NewElement("textarea", xhtml.Attribute{Key: "class", Val: ClassSource})
		html.AppendChild(source, html.NewText(src))
		html.AppendChild(el, source)
	}

	preview := html.NewElement("div", xhtml.Attribute{Key: "class", Val: ClassPreview})
	for _, n := range Preview(src) {
		if opts.Mode == RenderView {
			stripAffordances(n)
		}
		html.AppendChild(preview, n)
	}
	html.AppendChild(el, preview)
	return el
}

// Preview interprets widget source as markup. Unparseable input degrades to
// a text node holding the source.
func Preview(source string) []*html.Node {
	nodes, err := html.ParseFragment(source)
	if err != nil {
		return []*html.Node{html.NewText(source)}
	}
	return nodes
}

func idAttr(id string) xhtml.Attribute {
	return xhtml.Attribute{Key: AttrBlockID, Val: id}
}

// stripAffordances removes editing attributes from n and its descendants
func stripAffordances(n *html.Node) {
	html.Walk(n, func(c *html.Node) bool {
		if c.Type == xhtml.ElementNode {
			html.RemoveAttr(c, "contenteditable")
			html.RemoveAttr(c, "draggable")
		}
		return true
	})
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
