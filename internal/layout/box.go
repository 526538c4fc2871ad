package layout

import (
	"github.com/gm6nx/blockedit/internal/doc"
)

// Point is a viewport position in pixels
type Point = doc.Point

// Rect is an axis-aligned box in viewport pixels
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether p lies inside r (right and bottom edges excluded)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// MidY is the vertical midpoint
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Origin is the top-left corner
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Bottom is the lower edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// BlockBox is the rendered box of one block. Children mirror the block tree;
// a tight image's box sits in its tree position but is placed relative to
// its anchor.
type BlockBox struct {
	ID       string
	Kind     doc.Kind
	Rect     Rect
	Tight    bool
	Lines    int
	Children []*BlockBox
}

// Map is the result of a layout pass
type Map struct {
	Root  *BlockBox
	Width float64

	byID   map[string]*BlockBox
	parent map[string]string
	tight  []*BlockBox
}

func newMap(width float64) *Map {
	root := &BlockBox{ID: doc.RootID, Kind: doc.KindRoot, Rect: Rect{Width: width}}
	return &Map{
		Root:   root,
		Width:  width,
		byID:   map[string]*BlockBox{doc.RootID: root},
		parent: make(map[string]string),
	}
}

func (m *Map) add(parent *BlockBox, b *BlockBox) {
	parent.Children = append(parent.Children, b)
	m.byID[b.ID] = b
	m.parent[b.ID] = parent.ID
	if b.Tight {
		m.tight = append(m.tight, b)
	}
}

// Rect returns the rendered rectangle of a block or of the root
func (m *Map) Rect(id string) (Rect, bool) {
	if m == nil {
		return Rect{}, false
	}
	b, ok := m.byID[id]
	if !ok {
		return Rect{}, false
	}
	return b.Rect, true
}

// Box returns the box of a block
func (m *Map) Box(id string) (*BlockBox, bool) {
	b, ok := m.byID[id]
	return b, ok
}

// Positions returns the top-left corner of every tight image
func (m *Map) Positions() map[string]Point {
	out := make(map[string]Point, len(m.tight))
	for _, b := range m.tight {
		out[b.ID] = b.Rect.Origin()
	}
	return out
}

// HitTest returns the chain of block IDs under p, from the root to the
// deepest box. Tight images are tested first since they are drawn on top.
// Blocks for which skip returns true are transparent, along with their
// content.
func (m *Map) HitTest(p Point, skip func(id string) bool) []string {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	for i := len(m.tight) - 1; i >= 0; i-- {
		b := m.tight[i]
		if b.Rect.Contains(p) && !skip(b.ID) && !m.skipped(b.ID, skip) {
			return append(m.chain(b.ID), b.ID)
		}
	}

	path := []string{doc.RootID}
	cur := m.Root
	for {
		next := (*BlockBox)(nil)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			c := cur.Children[i]
			if c.Tight || skip(c.ID) {
				continue
			}
			if c.Rect.Contains(p) {
				next = c
				break
			}
		}
		if next == nil {
			return path
		}
		path = append(path, next.ID)
		cur = next
	}
}

// chain returns the IDs from the root down to the parent of id
func (m *Map) chain(id string) []string {
	var rev []string
	for cur := id; cur != doc.RootID; {
		p, ok := m.parent[cur]
		if !ok {
			break
		}
		rev = append(rev, p)
		cur = p
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

func (m *Map) skipped(id string, skip func(string) bool) bool {
	for _, a := range m.chain(id) {
		if a != doc.RootID && skip(a) {
			return true
		}
	}
	return false
}
