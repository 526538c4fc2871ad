package doc

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/gm6nx/blockedit/internal/parser/html"
	xhtml "golang.org/x/net/html"
)

// Markup class names and attributes of the persisted format
const (
	ClassImageBlock  = "image-block"
	ClassGroup       = "grid-group"
	ClassCell        = "grid-cell"
	ClassCellContent = "cell-content"
	ClassWidget      = "html-widget"
	ClassSource      = "html-source"
	ClassPreview     = "html-preview"
	ClassReadOnly    = "read-only"

	AttrBlockID = "data-block-id"
	AttrRows    = "data-rows"
	AttrCols    = "data-cols"
	AttrMode    = "data-mode"
	AttrAnchor  = "data-anchor"
	AttrOffsetX = "data-offset-x"
	AttrOffsetY = "data-offset-y"
)

// inlineTags are elements that merge into the surrounding line
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "big": true,
	"cite": true, "code": true, "data": true, "del": true, "dfn": true, "em": true,
	"font": true, "i": true, "img": true, "ins": true, "kbd": true, "label": true,
	"mark": true, "q": true, "s": true, "samp": true, "small": true, "span": true,
	"strike": true, "strong": true, "sub": true, "sup": true, "time": true, "tt": true,
	"u": true, "var": true, "wbr": true,
}

// droppedTags render no text and are removed from containers
var droppedTags = map[string]bool{
	"script": true, "style": true, "link": true, "meta": true, "title": true,
	"head": true, "template": true, "noscript": true,
}

// lineAttrSkip are attributes not carried over onto a TextLine
var lineAttrSkip = map[string]bool{
	AttrBlockID: true, "contenteditable": true, "draggable": true,
}

// Normalizer rewrites arbitrary container content into Block form. It never
// fails: anything it does not recognize ends up inside a TextLine.
type Normalizer struct {
	newID  func() string
	logger *slog.Logger
}

// NewNormalizer creates a normalizer drawing fresh IDs from newID
func NewNormalizer(newID func() string) *Normalizer {
	return &Normalizer{
		newID:  newID,
		logger: slog.Default().With("component", "normalizer"),
	}
}

// Blocks converts the raw child nodes of a container. inCell selects the
// grid-cell rules (no nested groups). Nodes are consumed.
func (n *Normalizer) Blocks(nodes []*html.Node, inCell bool) []Block {
	p := &pass{n: n, seen: make(map[string]bool), generated: make(map[string]bool)}
	return p.container(nodes, inCell)
}

// Container re-normalizes the direct children of a root or cell container in
// place, e.g. after text input changed a line's inline content.
func (n *Normalizer) Container(d *Document, container string) error {
	kind, err := d.ContainerKind(container)
	if err != nil {
		return err
	}
	if kind == KindGroup {
		return nil
	}
	children, err := d.Children(container)
	if err != nil {
		return err
	}

	p := &pass{n: n, seen: make(map[string]bool), generated: make(map[string]bool)}
	d.Walk(func(b Block, _ string) bool {
		p.seen[b.ID()] = true
		return true
	})

	inCell := kind == KindCell
	var out []Block
	for _, b := range children {
		switch v := b.(type) {
		case *TextLine:
			delete(p.seen, v.BlockID)
			out = append(out, p.container([]*html.Node{LineElement(v)}, inCell)...)
		case *Group:
			if inCell {
				for _, c := range v.Cells {
					out = append(out, c.Blocks...)
				}
				continue
			}
			out = append(out, v)
		default:
			out = append(out, b)
		}
	}
	if inCell && len(out) == 0 {
		out = append(out, &TextLine{BlockID: p.fresh(), Tag: "p"})
	}
	n.logger.Debug("container normalized", "container", container, "before", len(children), "after", len(out))
	return d.SetChildren(container, out)
}

// LineElement builds a detached element for a line, taking ownership of its
// inline nodes
func LineElement(t *TextLine) *html.Node {
	tag := t.Tag
	if tag == "" {
		tag = "p"
	}
	el := html.NewElement(tag, append([]xhtml.Attribute{{Key: AttrBlockID, Val: t.BlockID}}, t.Attr...)...)
	html.SetChildren(el, t.Inline)
	t.Inline = nil
	return el
}

// pass carries the IDs already handed out during one normalization
type pass struct {
	n         *Normalizer
	seen      map[string]bool
	generated map[string]bool
}

func (p *pass) fresh() string {
	for {
		id := p.n.newID()
		if !p.seen[id] {
			p.seen[id] = true
			p.generated[id] = true
			return id
		}
	}
}

// id keeps the element's block ID unless it is missing or already used
func (p *pass) id(node *html.Node) string {
	if v, ok := html.Attr(node, AttrBlockID); ok {
		v = strings.TrimSpace(v)
		if v != "" && v != RootID && !p.seen[v] {
			p.seen[v] = true
			return v
		}
	}
	return p.fresh()
}

func (p *pass) container(nodes []*html.Node, inCell bool) []Block {
	var out []Block
	var run []*html.Node
	// closable is set while the last emitted block is a line that a
	// following <br> would merely terminate
	closable := false

	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, p.lines("p", nil, nil, run)...)
		run = nil
		closable = false
	}

	for _, node := range html.DetachAll(nodes) {
		switch node.Type {
		case xhtml.TextNode:
			if strings.TrimSpace(node.Data) == "" {
				if len(run) > 0 {
					run = append(run, node)
				}
				continue
			}
			run = append(run, node)
			continue
		case xhtml.ElementNode:
		default:
			continue
		}

		tag := strings.ToLower(node.Data)
		switch {
		case droppedTags[tag]:
		case html.IsBreak(node):
			switch {
			case len(run) > 0:
				flush()
			case closable:
				closable = false
			default:
				out = append(out, &TextLine{BlockID: p.fresh(), Tag: "p"})
			}
		case inlineTags[tag] && tag != "img" && !hasBlockContent(node):
			run = append(run, node)
		default:
			flush()
			blocks := p.element(node, inCell)
			out = append(out, blocks...)
			closable = false
			if len(blocks) > 0 {
				_, closable = blocks[len(blocks)-1].(*TextLine)
			}
		}
	}
	flush()
	return out
}

func (p *pass) element(node *html.Node, inCell bool) []Block {
	tag := strings.ToLower(node.Data)
	switch {
	case tag == "img" || html.HasClass(node, ClassImageBlock):
		if blocks := p.image(node, inCell); blocks != nil {
			return blocks
		}
	case html.HasClass(node, ClassGroup):
		if inCell {
			return p.flattenGroup(node)
		}
		return []Block{p.group(node)}
	case html.HasClass(node, ClassWidget):
		return []Block{p.widget(node)}
	case html.HasClass(node, ClassCell), html.HasClass(node, ClassCellContent):
		return p.flatten(node, inCell)
	case IsTextLineTag(tag) && !hasBlockChild(node):
		return p.lines(tag, node.Attr, node, html.Children(node))
	}
	if hasBlockChild(node) {
		return p.flatten(node, inCell)
	}
	return p.lines("p", nil, node, html.Children(node))
}

// flatten splices the content of a wrapper element. The wrapper's ID moves
// to the first produced block when that block had none of its own.
func (p *pass) flatten(node *html.Node, inCell bool) []Block {
	blocks := p.container(html.Children(node), inCell)
	if len(blocks) == 0 || !p.generated[blocks[0].ID()] {
		return blocks
	}
	if v, ok := html.Attr(node, AttrBlockID); ok {
		v = strings.TrimSpace(v)
		if v != "" && v != RootID && !p.seen[v] {
			p.seen[v] = true
			blocks[0].setID(v)
		}
	}
	return blocks
}

// lines cuts inline content at hard breaks into one TextLine per segment.
// The first line keeps the element's ID.
func (p *pass) lines(tag string, attrs []xhtml.Attribute, idSource *html.Node, nodes []*html.Node) []Block {
	segs := html.SplitAtBreaks(html.DetachAll(nodes))
	if len(segs) > 1 && html.IsBlank(segs[len(segs)-1]) {
		segs = segs[:len(segs)-1]
	}

	var kept []xhtml.Attribute
	for _, a := range attrs {
		if !lineAttrSkip[strings.ToLower(a.Key)] {
			kept = append(kept, a)
		}
	}

	out := make([]Block, 0, len(segs))
	for i, seg := range segs {
		line := &TextLine{Tag: tag, Attr: append([]xhtml.Attribute(nil), kept...)}
		if i == 0 && idSource != nil {
			line.BlockID = p.id(idSource)
		} else {
			line.BlockID = p.fresh()
		}
		if seg = trimBlank(seg); !html.IsBlank(seg) {
			line.Inline = seg
		}
		out = append(out, line)
	}
	return out
}

// image converts an <img> or an image-block wrapper. Other content found in
// a wrapper follows the image as blocks of its own.
func (p *pass) image(node *html.Node, inCell bool) []Block {
	imgNode := node
	if !html.IsElement(node, "img") {
		imgNode = nil
		html.Walk(node, func(c *html.Node) bool {
			if html.IsElement(c, "img") {
				imgNode = c
				return false
			}
			return true
		})
		if imgNode == nil {
			return nil
		}
	}

	img := &Image{BlockID: p.id(node)}
	img.Src, _ = html.Attr(imgNode, "src")
	img.Alt, _ = html.Attr(imgNode, "alt")
	img.Width = attrFloat(imgNode, "width")
	img.Height = attrFloat(imgNode, "height")
	if mode, _ := html.Attr(node, AttrMode); mode == "tight" {
		img.Mode = ModeTight
		img.Anchor, _ = html.Attr(node, AttrAnchor)
		if img.Anchor == "" {
			img.Anchor = RootID
		}
		img.OffsetX = attrFloat(node, AttrOffsetX)
		img.OffsetY = attrFloat(node, AttrOffsetY)
	}

	out := []Block{img}
	if imgNode != node {
		html.Detach(imgNode)
		if rest := html.Children(node); !html.IsBlank(rest) {
			out = append(out, p.container(rest, inCell)...)
		}
	}
	return out
}

func (p *pass) group(node *html.Node) *Group {
	g := &Group{BlockID: p.id(node)}
	g.Rows = min(attrInt(node, AttrRows), MaxCells)
	g.Cols = min(attrInt(node, AttrCols), MaxCells)

	for _, child := range html.DetachAll(html.Children(node)) {
		switch {
		case html.IsElement(child) && html.HasClass(child, ClassCell):
			g.Cells = append(g.Cells, p.cell(child, html.Children(child)))
		case html.IsBlank([]*html.Node{child}) || child.Type == xhtml.CommentNode:
		default:
			g.Cells = append(g.Cells, p.cell(nil, []*html.Node{child}))
		}
	}

	n := len(g.Cells)
	if g.Cols < 1 {
		switch {
		case g.Rows >= 1 && n > 0:
			g.Cols = int(math.Ceil(float64(n) / float64(g.Rows)))
		case n > 0:
			g.Cols = n
		default:
			g.Cols = 1
		}
	}
	if g.Rows < 1 {
		g.Rows = 1
	}
	if !GridFits(g.Rows, g.Cols) && g.Rows*g.Cols > n {
		p.n.logger.Warn("grid dimensions out of range", "rows", g.Rows, "cols", g.Cols, "cells", n)
		g.Rows = max(1, (n+g.Cols-1)/g.Cols)
	}
	if n > g.Rows*g.Cols {
		g.Rows = int(math.Ceil(float64(n) / float64(g.Cols)))
	}
	for len(g.Cells) < g.Rows*g.Cols {
		g.Cells = append(g.Cells, &Cell{
			BlockID: p.fresh(),
			Blocks:  []Block{&TextLine{BlockID: p.fresh(), Tag: "p"}},
		})
	}
	return g
}

func (p *pass) cell(idSource *html.Node, nodes []*html.Node) *Cell {
	c := &Cell{}
	if idSource != nil {
		c.BlockID = p.id(idSource)
	} else {
		c.BlockID = p.fresh()
	}
	c.Blocks = p.container(nodes, true)
	if len(c.Blocks) == 0 {
		c.Blocks = []Block{&TextLine{BlockID: p.fresh(), Tag: "p"}}
	}
	return c
}

// flattenGroup splices the content of a group found inside a cell
func (p *pass) flattenGroup(node *html.Node) []Block {
	p.n.logger.Debug("flattening nested grid group")
	var out []Block
	for _, child := range html.DetachAll(html.Children(node)) {
		if html.IsElement(child) && html.HasClass(child, ClassCell) {
			out = append(out, p.container(html.Children(child), true)...)
			continue
		}
		out = append(out, p.container([]*html.Node{child}, true)...)
	}
	return out
}

func (p *pass) widget(node *html.Node) *Widget {
	w := &Widget{BlockID: p.id(node)}
	var source, preview *html.Node
	html.Walk(node, func(c *html.Node) bool {
		if c == node {
			return true
		}
		if source == nil && html.HasClass(c, ClassSource) {
			source = c
		}
		if preview == nil && html.HasClass(c, ClassPreview) {
			preview = c
		}
		return true
	})
	switch {
	case source != nil:
		w.Source = html.TextContent(html.Children(source))
	case preview != nil:
		w.Source = html.RenderString(html.Children(preview))
	default:
		w.Source = html.RenderString(html.Children(node))
	}
	return w
}

// hasBlockChild reports whether any child of n forces block treatment
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode || droppedTags[strings.ToLower(c.Data)] {
			continue
		}
		tag := strings.ToLower(c.Data)
		if tag == "br" {
			continue
		}
		if !inlineTags[tag] || hasBlockContent(c) {
			return true
		}
	}
	return false
}

// hasBlockContent reports whether an inline element wraps block content
func hasBlockContent(n *html.Node) bool {
	return html.ContainsElement(n, func(d *html.Node) bool {
		tag := strings.ToLower(d.Data)
		return tag != "br" && !inlineTags[tag] && !droppedTags[tag]
	})
}

// trimBlank drops whitespace-only text nodes at either end of a segment
func trimBlank(seg []*html.Node) []*html.Node {
	for len(seg) > 0 && html.IsText(seg[0]) && strings.TrimSpace(seg[0].Data) == "" {
		seg = seg[1:]
	}
	for len(seg) > 0 && html.IsText(seg[len(seg)-1]) && strings.TrimSpace(seg[len(seg)-1].Data) == "" {
		seg = seg[:len(seg)-1]
	}
	return seg
}

func attrFloat(n *html.Node, key string) float64 {
	v, ok := html.Attr(n, key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func attrInt(n *html.Node, key string) int {
	v, ok := html.Attr(n, key)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return i
}
