// Package layout computes where every block of a document renders for a
// given viewport width. The geometry drives hit testing for drag and drop
// and the placement of tight images relative to their anchors.
package layout

import (
	"log/slog"
	"math"
	"strings"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/parser/css"
	"github.com/gm6nx/blockedit/internal/parser/html"
	"github.com/gm6nx/blockedit/internal/style"
)

// Options represents options for the layout engine
type Options struct {
	Width         float64 // viewport width
	Padding       float64 // root content padding
	FontSize      float64 // base font size
	LineHeight    float64 // line height as a multiple of the font size
	CellMinHeight float64 // minimum grid row height
	CellPadding   float64
	GridGap       float64
	BlockGap      float64 // space after images, groups and widgets
}

// DefaultOptions returns the editor's default geometry
func DefaultOptions() Options {
	return Options{
		Width:         800,
		Padding:       16,
		FontSize:      style.BaseFontSize,
		LineHeight:    1.4,
		CellMinHeight: 80,
		CellPadding:   8,
		GridGap:       8,
		BlockGap:      8,
	}
}

// Engine handles the layout process
type Engine struct {
	options Options
	styles  *style.StyleEngine
	sizer   ImageSizer
	sources func(id string) (string, bool)
	logger  *slog.Logger
}

// NewEngine creates a layout engine. A zero Options value is
// DefaultOptions; see SetOptions for partial values.
func NewEngine(options Options) *Engine {
	e := &Engine{
		styles: style.NewStyleEngine(),
		logger: slog.Default().With("component", "layout"),
	}
	e.SetOptions(options)
	return e
}

// SetOptions sets the options for the layout engine. Width, FontSize,
// LineHeight and CellMinHeight take their defaults when not positive.
// Padding and the gaps are used as given, so zero removes them; negative
// values count as zero.
func (e *Engine) SetOptions(options Options) {
	def := DefaultOptions()
	pick := func(v, d float64) float64 {
		if v <= 0 {
			return d
		}
		return v
	}
	e.options = Options{
		Width:         pick(options.Width, def.Width),
		Padding:       math.Max(options.Padding, 0),
		FontSize:      pick(options.FontSize, def.FontSize),
		LineHeight:    pick(options.LineHeight, def.LineHeight),
		CellMinHeight: pick(options.CellMinHeight, def.CellMinHeight),
		CellPadding:   math.Max(options.CellPadding, 0),
		GridGap:       math.Max(options.GridGap, 0),
		BlockGap:      math.Max(options.BlockGap, 0),
	}
	if options == (Options{}) {
		e.options = def
	}
}

// Options returns the effective options
func (e *Engine) Options() Options { return e.options }

// SetImageSizer sets the source of natural image sizes
func (e *Engine) SetImageSizer(s ImageSizer) { e.sizer = s }

// SetWidgetSources sets a lookup of widget source that takes precedence
// over the document's when sizing widget previews
func (e *Engine) SetWidgetSources(fn func(id string) (string, bool)) { e.sources = fn }

// AddStylesheet adds author styles to the cascade used for text metrics
func (e *Engine) AddStylesheet(sheet *css.Stylesheet) { e.styles.AddStylesheet(sheet) }

// Layout computes the box of every block. Tight images take no space in
// the flow and are placed at their anchor's origin plus their offset once
// the flow is complete.
func (e *Engine) Layout(d *doc.Document) *Map {
	m := newMap(e.options.Width)
	pad := e.options.Padding
	tight := make(map[string]*doc.Image)

	bottom := e.layoutBlocks(m, m.Root, d.Blocks, pad, pad, e.options.Width-2*pad, tight)
	m.Root.Rect.Height = bottom + pad

	for _, b := range m.tight {
		img := tight[b.ID]
		origin := m.Root.Rect.Origin()
		if r, ok := m.Rect(img.Anchor); ok && img.Anchor != img.BlockID {
			origin = r.Origin()
		}
		b.Rect.X = origin.X + img.OffsetX
		b.Rect.Y = origin.Y + img.OffsetY
	}

	e.logger.Debug("layout complete", "width", e.options.Width, "height", m.Root.Rect.Height, "boxes", len(m.byID))
	return m
}

func (e *Engine) layoutBlocks(m *Map, parent *BlockBox, blocks []doc.Block, x, y, width float64, tight map[string]*doc.Image) float64 {
	for _, b := range blocks {
		switch v := b.(type) {
		case *doc.TextLine:
			lines, h, mb := e.lineBox(v, width)
			m.add(parent, &BlockBox{ID: v.BlockID, Kind: doc.KindTextLine, Lines: lines, Rect: Rect{X: x, Y: y, Width: width, Height: h}})
			y += h + mb
		case *doc.Image:
			w, h := e.imageSize(v, width)
			box := &BlockBox{ID: v.BlockID, Kind: doc.KindImage, Tight: v.Tight(), Rect: Rect{X: x, Y: y, Width: w, Height: h}}
			m.add(parent, box)
			if v.Tight() {
				tight[v.BlockID] = v
				continue
			}
			y += h + e.options.BlockGap
		case *doc.Group:
			y = e.layoutGroup(m, parent, v, x, y, width, tight) + e.options.BlockGap
		case *doc.Widget:
			h := e.widgetHeight(v, width)
			m.add(parent, &BlockBox{ID: v.BlockID, Kind: doc.KindWidget, Rect: Rect{X: x, Y: y, Width: width, Height: h}})
			y += h + e.options.BlockGap
		}
	}
	return y
}

// layoutGroup places cells in equal-width columns; each row is as tall as
// its tallest cell and never shorter than CellMinHeight
func (e *Engine) layoutGroup(m *Map, parent *BlockBox, g *doc.Group, x, y, width float64, tight map[string]*doc.Image) float64 {
	gbox := &BlockBox{ID: g.BlockID, Kind: doc.KindGroup, Rect: Rect{X: x, Y: y, Width: width}}
	m.add(parent, gbox)

	cols := g.Cols
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil(float64(len(g.Cells)) / float64(cols)))
	if g.Rows > rows {
		rows = g.Rows
	}
	gap, pad := e.options.GridGap, e.options.CellPadding
	cw := math.Max((width-gap*float64(cols-1))/float64(cols), 0)

	rowY := y
	for r := 0; r < rows; r++ {
		rowH := e.options.CellMinHeight
		var row []*BlockBox
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= len(g.Cells) {
				break
			}
			cell := g.Cells[i]
			cbox := &BlockBox{ID: cell.BlockID, Kind: doc.KindCell, Rect: Rect{X: x + float64(c)*(cw+gap), Y: rowY, Width: cw}}
			m.add(gbox, cbox)
			bottom := e.layoutBlocks(m, cbox, cell.Blocks, cbox.Rect.X+pad, rowY+pad, math.Max(cw-2*pad, 0), tight)
			rowH = math.Max(rowH, bottom-rowY+pad)
			row = append(row, cbox)
		}
		for _, cb := range row {
			cb.Rect.Height = rowH
		}
		rowY += rowH
		if r < rows-1 {
			rowY += gap
		}
	}
	gbox.Rect.Height = rowY - y
	return rowY
}

// lineBox returns the wrapped line count, height and bottom margin of a line
func (e *Engine) lineBox(t *doc.TextLine, width float64) (int, float64, float64) {
	tag := t.Tag
	if tag == "" {
		tag = "p"
	}
	el := html.NewElement(tag, t.Attr...)
	html.SetChildren(el, html.CloneAll(t.Inline))
	base := e.styles.Computed(el)

	var runs []inlineRun
	e.collectInlineRuns(el, &runs)
	lines, h := e.wrapText(runs, base, width)

	fs, _ := e.fontMetrics(base)
	mb := 0.0
	if v := base.Value("margin"); strings.TrimSpace(v) != "" {
		_, _, mb, _ = parseBoxShorthand(v, fs, 0)
	}
	if v := base.Value("margin-bottom"); v != "" {
		mb = style.ParsePixels(v, fs, mb)
	}
	return lines, h, mb
}

func (e *Engine) widgetHeight(w *doc.Widget, width float64) float64 {
	pad := e.options.CellPadding
	src := w.Source
	if e.sources != nil {
		if s, ok := e.sources(w.BlockID); ok {
			src = s
		}
	}
	preview := html.NewElement("div")
	html.SetChildren(preview, doc.Preview(src))
	var runs []inlineRun
	e.collectInlineRuns(preview, &runs)
	_, h := e.wrapText(runs, e.styles.Computed(preview), math.Max(width-2*pad, 0))
	return h + 2*pad
}

// parseBoxShorthand parses CSS shorthand like "4px", "0 8px", "0 0 4px" or
// "1px 2px 3px 4px" and returns (top, right, bottom, left).
func parseBoxShorthand(value string, relative, def float64) (float64, float64, float64, float64) {
	parts := strings.Fields(value)
	to := func(s string) float64 { return style.ParsePixels(s, relative, def) }
	switch len(parts) {
	case 0:
		return def, def, def, def
	case 1:
		a := to(parts[0])
		return a, a, a, a
	case 2:
		vtb, vrl := to(parts[0]), to(parts[1])
		return vtb, vrl, vtb, vrl
	case 3:
		t, r, b := to(parts[0]), to(parts[1]), to(parts[2])
		return t, r, b, r
	default:
		return to(parts[0]), to(parts[1]), to(parts[2]), to(parts[3])
	}
}
