// Package doc holds the block-structured page model: a root Document whose
// direct children, like those of every grid cell, are exactly one of the
// Block variants below. Markup is converted to and from this model by the
// Normalizer and the Encoder; editing logic mutates the model only.
package doc

import (
	"strings"

	"github.com/gm6nx/blockedit/internal/parser/html"
	xhtml "golang.org/x/net/html"
)

// Kind tags a Block variant
type Kind int

const (
	// KindRoot is the kind of the document root as a container
	KindRoot Kind = -1

	KindTextLine Kind = iota - 1
	KindImage
	KindGroup
	KindCell
	KindWidget
)

func (k Kind) String() string {
	switch k {
	case KindTextLine:
		return "text-line"
	case KindImage:
		return "image"
	case KindGroup:
		return "grid-group"
	case KindCell:
		return "grid-cell"
	case KindWidget:
		return "html-widget"
	}
	return "unknown"
}

// Block is one structurally independent unit of page content
type Block interface {
	ID() string
	Kind() Kind
	setID(id string)
}

// RootID identifies the document root as a container and as an anchor
const RootID = "root"

// TextLine is a single line of inline-formatted content. Inline holds
// detached nodes and never contains a <br>; an empty Inline is an empty line.
type TextLine struct {
	BlockID string
	Tag     string
	Attr    []xhtml.Attribute
	Inline  []*html.Node
}

// NewTextLine creates a line from inline nodes; tag defaults to "p"
func NewTextLine(id string, inline ...*html.Node) *TextLine {
	return &TextLine{BlockID: id, Tag: "p", Inline: html.DetachAll(inline)}
}

func (t *TextLine) ID() string      { return t.BlockID }
func (t *TextLine) Kind() Kind      { return KindTextLine }
func (t *TextLine) setID(id string) { t.BlockID = id }

// Text returns the plain text of the line
func (t *TextLine) Text() string { return html.TextContent(t.Inline) }

// Empty reports whether the line has no content
func (t *TextLine) Empty() bool { return len(t.Inline) == 0 }

// ImageMode is the positioning of an image block
type ImageMode int

const (
	// ModeFlow images occupy their slot in document order
	ModeFlow ImageMode = iota
	// ModeTight images are drawn at an offset from an anchor block
	ModeTight
)

// Image wraps one <img>. Width and Height are the declared or probed
// natural size in pixels, zero when unknown. Anchor and Offset are only
// meaningful in ModeTight.
type Image struct {
	BlockID string
	Src     string
	Alt     string
	Width   float64
	Height  float64
	Mode    ImageMode
	Anchor  string
	OffsetX float64
	OffsetY float64
}

func (i *Image) ID() string      { return i.BlockID }
func (i *Image) Kind() Kind      { return KindImage }
func (i *Image) setID(id string) { i.BlockID = id }

// Tight reports whether the image is freely positioned
func (i *Image) Tight() bool { return i.Mode == ModeTight }

// MaxCells bounds Rows×Cols of a grid group
const MaxCells = 1024

// GridFits reports whether a rows×cols grid is at least 1x1 and holds at
// most MaxCells cells
func GridFits(rows, cols int) bool {
	return rows >= 1 && cols >= 1 && rows <= MaxCells && cols <= MaxCells && rows*cols <= MaxCells
}

// Group is a rows×cols grid. len(Cells) == Rows*Cols once synchronized.
type Group struct {
	BlockID string
	Rows    int
	Cols    int
	Cells   []*Cell
}

func (g *Group) ID() string      { return g.BlockID }
func (g *Group) Kind() Kind      { return KindGroup }
func (g *Group) setID(id string) { g.BlockID = id }

// Cell is one grid slot; it is a nested container with the same block
// rules as the root, except that grid groups are never nested.
type Cell struct {
	BlockID string
	Blocks  []Block
}

func (c *Cell) ID() string      { return c.BlockID }
func (c *Cell) Kind() Kind      { return KindCell }
func (c *Cell) setID(id string) { c.BlockID = id }

// Mixed reports whether the cell holds content that is neither a single
// image/widget nor only text lines.
func (c *Cell) Mixed() bool {
	heavy, text := 0, 0
	for _, b := range c.Blocks {
		if b.Kind() == KindTextLine {
			text++
		} else {
			heavy++
		}
	}
	return heavy > 1 || (heavy == 1 && text > 0)
}

// Widget holds raw HTML source. Its preview is always derived from Source.
type Widget struct {
	BlockID string
	Source  string
}

func (w *Widget) ID() string      { return w.BlockID }
func (w *Widget) Kind() Kind      { return KindWidget }
func (w *Widget) setID(id string) { w.BlockID = id }

// PlaceholderSource is the initial source of a new widget
const PlaceholderSource = "<div>Custom HTML</div>"

// textLineTags are element names kept as the tag of a TextLine
var textLineTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// IsTextLineTag reports whether tag names a line element
func IsTextLineTag(tag string) bool {
	return textLineTags[strings.ToLower(tag)]
}
