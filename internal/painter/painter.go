// Package painter implements the format painter: arm it with a text
// selection, then click any element to wrap the selection in a span
// carrying that element's computed style.
package painter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/parser/css"
	"github.com/gm6nx/blockedit/internal/parser/html"
	"github.com/gm6nx/blockedit/internal/style"
	xhtml "golang.org/x/net/html"
)

// ErrNoSelection is returned when arming without a non-collapsed selection
var ErrNoSelection = errors.New("select some text before using the format painter")

// State of the painter
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Point is a caret position: a rune offset into the text of a line
type Point struct {
	Line   string
	Offset int
}

// Range is a text selection between two caret positions
type Range struct {
	Start, End Point
}

// Collapsed reports whether the range selects nothing
func (r Range) Collapsed() bool { return r.Start == r.End }

// Target is a clicked element: the block, and for text lines the rune
// offset whose innermost enclosing element was hit. A negative offset means
// the block element itself.
type Target struct {
	Block  string
	Offset int
}

// Painter is the format painter state machine
type Painter struct {
	state  State
	rng    Range
	styles *style.StyleEngine
	logger *slog.Logger
}

// New creates an idle painter computing styles with styles
func New(styles *style.StyleEngine) *Painter {
	if styles == nil {
		styles = style.NewStyleEngine()
	}
	return &Painter{styles: styles, logger: slog.Default().With("component", "painter")}
}

// State returns the current state
func (p *Painter) State() State { return p.state }

// Arm records sel. A collapsed selection, or one outside any text line,
// leaves the painter idle.
func (p *Painter) Arm(d *doc.Document, sel Range) error {
	if sel.Collapsed() || line(d, sel.Start.Line) == nil || line(d, sel.End.Line) == nil {
		return ErrNoSelection
	}
	p.rng = sel
	p.state = Armed
	p.logger.Debug("armed", "start", sel.Start, "end", sel.End)
	return nil
}

// Cancel discards the recorded range
func (p *Painter) Cancel() {
	p.rng = Range{}
	p.state = Idle
}

// Click captures the computed style of target and returns the recorded
// range with the inline style to apply. ok is false when the painter was
// not armed. The painter is idle afterwards.
func (p *Painter) Click(d *doc.Document, target Target) (rng Range, inline string, ok bool, err error) {
	if p.state != Armed {
		return Range{}, "", false, nil
	}
	defer p.Cancel()
	node, err := p.element(d, target)
	if err != nil {
		return Range{}, "", false, err
	}
	rng = p.rng
	inline = InlineStyle(p.styles.Computed(node))
	p.logger.Debug("style captured", "target", target.Block, "style", inline)
	return rng, inline, true, nil
}

// element builds a detached rendering of the target block and returns the
// hit element inside it
func (p *Painter) element(d *doc.Document, target Target) (*html.Node, error) {
	b, ok := d.Lookup(target.Block)
	if !ok {
		return nil, fmt.Errorf("click target %s: %w", target.Block, doc.ErrNotFound)
	}
	nodes := doc.EncodeBlocks([]doc.Block{b}, doc.EncodeOptions{})
	el := nodes[0]
	if b.Kind() == doc.KindImage && el.FirstChild != nil {
		return el.FirstChild, nil
	}
	if b.Kind() != doc.KindTextLine || target.Offset < 0 {
		return el, nil
	}

	hit := el
	pos := 0
	html.Walk(el, func(n *html.Node) bool {
		if n.Type != xhtml.TextNode {
			return true
		}
		l := html.TextLen([]*html.Node{n})
		if target.Offset >= pos && target.Offset < pos+l {
			hit = n.Parent
			return false
		}
		pos += l
		return true
	})
	return hit, nil
}

// captured lists the properties the painter copies, in output order
var captured = []string{
	"color",
	"background-color",
	"font-family",
	"font-size",
	"font-weight",
	"font-style",
	"text-decoration-line",
	"letter-spacing",
	"text-transform",
	"line-height",
}

// defaults holds the values that are left out of the inline style
var defaults = map[string][]string{
	"color":                {"", "black", "#000", "#000000", "rgb(0, 0, 0)", "rgb(0,0,0)", "inherit", "initial"},
	"background-color":     {"", "transparent", "rgba(0, 0, 0, 0)", "rgba(0,0,0,0)", "inherit", "initial"},
	"font-family":          {"", "inherit", "initial"},
	"font-size":            {"", style.FormatPixels(style.BaseFontSize), "medium", "inherit", "initial"},
	"font-weight":          {"", "normal", "400", "inherit", "initial"},
	"font-style":           {"", "normal", "inherit", "initial"},
	"text-decoration-line": {"", "none", "inherit", "initial"},
	"letter-spacing":       {"", "normal", "0", "0px", "inherit", "initial"},
	"text-transform":       {"", "none", "inherit", "initial"},
	"line-height":          {"", "normal", "inherit", "initial"},
}

func isDefault(prop, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, d := range defaults[prop] {
		if v == d {
			return true
		}
	}
	return false
}

// InlineStyle renders the captured properties of cs that differ from their
// defaults, e.g. "color: red; font-weight: bold"
func InlineStyle(cs style.ComputedStyle) string {
	var decls []*css.Declaration
	for _, prop := range captured {
		v := cs.Value(prop)
		if isDefault(prop, v) {
			continue
		}
		decls = append(decls, &css.Declaration{Property: prop, Value: v})
	}
	return css.FormatInline(decls)
}

func line(d *doc.Document, id string) *doc.TextLine {
	b, ok := d.Lookup(id)
	if !ok {
		return nil
	}
	l, _ := b.(*doc.TextLine)
	return l
}

// lines returns the text lines from the one holding a to the one holding b
// in document order, swapping the ends when b comes first
func lines(d *doc.Document, r Range) ([]*doc.TextLine, Range) {
	var all []*doc.TextLine
	d.Walk(func(b doc.Block, _ string) bool {
		if l, ok := b.(*doc.TextLine); ok {
			all = append(all, l)
		}
		return true
	})
	si, ei := -1, -1
	for i, l := range all {
		if l.BlockID == r.Start.Line {
			si = i
		}
		if l.BlockID == r.End.Line {
			ei = i
		}
	}
	if si < 0 || ei < 0 {
		return nil, r
	}
	if si > ei || (si == ei && r.Start.Offset > r.End.Offset) {
		si, ei = ei, si
		r.Start, r.End = r.End, r.Start
	}
	return all[si : ei+1], r
}

// Wrap wraps the text covered by r in one span per line carrying the given
// inline style. It returns the number of spans inserted.
func Wrap(d *doc.Document, r Range, inline string) (int, error) {
	span, r := lines(d, r)
	if len(span) == 0 {
		return 0, ErrNoSelection
	}
	n := 0
	for i, l := range span {
		total := html.TextLen(l.Inline)
		from, to := 0, total
		if i == 0 {
			from = clamp(r.Start.Offset, 0, total)
		}
		if i == len(span)-1 {
			to = clamp(r.End.Offset, 0, total)
		}
		if from >= to {
			continue
		}
		left, rest := html.SplitAt(l.Inline, from)
		mid, right := html.SplitAt(rest, to-from)

		wrapper := html.NewElement("span")
		if inline != "" {
			html.SetAttr(wrapper, "style", inline)
		}
		html.SetChildren(wrapper, mid)

		next := make([]*html.Node, 0, len(left)+len(right)+1)
		next = append(next, left...)
		next = append(next, wrapper)
		next = append(next, html.DetachAll(right)...)
		l.Inline = html.DetachAll(next)
		n++
	}
	return n, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
