// Package classify maps pointer positions and nested blocks onto the direct
// children of a container.
package classify

import (
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
)

// Position is the side of the reference block an insertion goes to
type Position int

const (
	After Position = iota
	Before
)

func (p Position) String() string {
	if p == Before {
		return "before"
	}
	return "after"
}

// InsertPoint is a resolved insertion point. An empty Reference means
// "append at the end of Container".
type InsertPoint struct {
	Container string
	Reference string
	Position  Position
}

// Index converts the insertion point to a child index of its container
func (p InsertPoint) Index(d *doc.Document) int {
	children, err := d.Children(p.Container)
	if err != nil {
		return 0
	}
	for i, b := range children {
		if b.ID() == p.Reference {
			if p.Position == Before {
				return i
			}
			return i + 1
		}
	}
	return len(children)
}

// ResolveBlock climbs from id to the block whose parent is exactly
// container. It returns nil when id is not inside container.
func ResolveBlock(d *doc.Document, container, id string) doc.Block {
	for cur := id; cur != doc.RootID; {
		parent, ok := d.Parent(cur)
		if !ok {
			return nil
		}
		if parent == container {
			b, _ := d.Lookup(cur)
			return b
		}
		cur = parent
	}
	return nil
}

// ResolveInsertPosition finds the child of container under p and picks the
// side by comparing p.Y with the child's vertical midpoint; the exact
// midpoint resolves to After. With nothing under the pointer the point
// appends. Blocks for which skip returns true are ignored.
func ResolveInsertPosition(d *doc.Document, m *layout.Map, container string, p layout.Point, skip func(id string) bool) InsertPoint {
	ip := InsertPoint{Container: container, Position: After}
	if m == nil {
		return ip
	}
	path := m.HitTest(p, skip)
	if len(path) == 0 {
		return ip
	}
	ref := ResolveBlock(d, container, path[len(path)-1])
	if ref == nil {
		return ip
	}
	if img, ok := ref.(*doc.Image); ok && img.Tight() {
		return ip
	}
	r, ok := m.Rect(ref.ID())
	if !ok {
		return ip
	}
	ip.Reference = ref.ID()
	if p.Y < r.MidY() {
		ip.Position = Before
	}
	return ip
}

// Innermost returns the deepest block of the given kind in a hit path
func Innermost(d *doc.Document, path []string, kind doc.Kind) (doc.Block, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if b, ok := d.Lookup(path[i]); ok && b.Kind() == kind {
			return b, true
		}
	}
	return nil, false
}
