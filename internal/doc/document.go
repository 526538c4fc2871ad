package doc

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for an unknown block or container ID
	ErrNotFound = errors.New("block not found")
	// ErrInvalidParent is returned when a block kind may not live in a container
	ErrInvalidParent = errors.New("block kind not allowed in container")
	// ErrCycle is returned when a block would be moved inside itself
	ErrCycle = errors.New("block cannot contain itself")
)

type location struct {
	block  Block
	parent string
}

// Document is the root container. Blocks are in top-to-bottom order.
// The index maps every block ID, at any depth, to its block and parent and
// is rebuilt after each structural mutation made through Document methods.
type Document struct {
	Blocks []Block

	// NewID generates block identifiers; uuid strings when nil
	NewID func() string

	index map[string]location
}

// New creates an empty document
func New() *Document {
	d := &Document{}
	d.Reindex()
	return d
}

// GenerateID returns a fresh block identifier
func (d *Document) GenerateID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

// Reindex rebuilds the ID index from the tree
func (d *Document) Reindex() {
	d.index = make(map[string]location)
	d.Walk(func(b Block, parent string) bool {
		d.index[b.ID()] = location{block: b, parent: parent}
		return true
	})
}

// Walk visits every block depth-first in document order with the ID of its
// container until fn returns false
func (d *Document) Walk(fn func(b Block, parent string) bool) {
	walkBlocks(d.Blocks, RootID, fn)
}

func walkBlocks(blocks []Block, parent string, fn func(Block, string) bool) bool {
	for _, b := range blocks {
		if !fn(b, parent) {
			return false
		}
		var inner []Block
		switch v := b.(type) {
		case *Group:
			inner = cellBlocks(v.Cells)
		case *Cell:
			inner = v.Blocks
		}
		if !walkBlocks(inner, b.ID(), fn) {
			return false
		}
	}
	return true
}

// Lookup returns the block with the given ID
func (d *Document) Lookup(id string) (Block, bool) {
	loc, ok := d.index[id]
	return loc.block, ok
}

// Parent returns the container ID holding id
func (d *Document) Parent(id string) (string, bool) {
	loc, ok := d.index[id]
	return loc.parent, ok
}

// Exists reports whether id is the root or an indexed block
func (d *Document) Exists(id string) bool {
	if id == RootID {
		return true
	}
	_, ok := d.index[id]
	return ok
}

// Ancestors returns the container chain of id from its parent up to the root
func (d *Document) Ancestors(id string) []string {
	var out []string
	for cur := id; cur != RootID; {
		p, ok := d.Parent(cur)
		if !ok {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

// Contains reports whether ancestor is id or one of its containers
func (d *Document) Contains(ancestor, id string) bool {
	if ancestor == id {
		return true
	}
	for _, a := range d.Ancestors(id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Children returns the direct children of a container (root, group or cell)
func (d *Document) Children(container string) ([]Block, error) {
	if container == RootID {
		return d.Blocks, nil
	}
	b, ok := d.Lookup(container)
	if !ok {
		return nil, fmt.Errorf("container %s: %w", container, ErrNotFound)
	}
	switch v := b.(type) {
	case *Group:
		return cellBlocks(v.Cells), nil
	case *Cell:
		return v.Blocks, nil
	}
	return nil, fmt.Errorf("%s is a %s: %w", container, b.Kind(), ErrInvalidParent)
}

// SetChildren replaces the children of a container and reindexes
func (d *Document) SetChildren(container string, blocks []Block) error {
	kind, err := d.containerKind(container)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if !Allowed(kind, b.Kind()) {
			return fmt.Errorf("%s in %s: %w", b.Kind(), container, ErrInvalidParent)
		}
	}
	switch container {
	case RootID:
		d.Blocks = blocks
	default:
		b, _ := d.Lookup(container)
		switch v := b.(type) {
		case *Group:
			cells := make([]*Cell, 0, len(blocks))
			for _, c := range blocks {
				cells = append(cells, c.(*Cell))
			}
			v.Cells = cells
		case *Cell:
			v.Blocks = blocks
		}
	}
	d.Reindex()
	return nil
}

// IndexOf returns the container and position of id
func (d *Document) IndexOf(id string) (string, int, error) {
	parent, ok := d.Parent(id)
	if !ok {
		return "", -1, fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	siblings, err := d.Children(parent)
	if err != nil {
		return "", -1, err
	}
	for i, b := range siblings {
		if b.ID() == id {
			return parent, i, nil
		}
	}
	return "", -1, fmt.Errorf("block %s: %w", id, ErrNotFound)
}

// Remove detaches a block (and its subtree) from the document
func (d *Document) Remove(id string) (Block, error) {
	parent, idx, err := d.IndexOf(id)
	if err != nil {
		return nil, err
	}
	siblings, _ := d.Children(parent)
	removed := siblings[idx]
	next := make([]Block, 0, len(siblings)-1)
	next = append(next, siblings[:idx]...)
	next = append(next, siblings[idx+1:]...)
	if err := d.SetChildren(parent, next); err != nil {
		return nil, err
	}
	return removed, nil
}

// Insert places b at position idx of container; idx past the end appends
func (d *Document) Insert(container string, idx int, b Block) error {
	if d.Exists(b.ID()) {
		return fmt.Errorf("block %s already in document", b.ID())
	}
	siblings, err := d.Children(container)
	if err != nil {
		return err
	}
	if idx < 0 || idx > len(siblings) {
		idx = len(siblings)
	}
	next := make([]Block, 0, len(siblings)+1)
	next = append(next, siblings[:idx]...)
	next = append(next, b)
	next = append(next, siblings[idx:]...)
	return d.SetChildren(container, next)
}

func (d *Document) containerKind(container string) (Kind, error) {
	if container == RootID {
		return KindRoot, nil
	}
	b, ok := d.Lookup(container)
	if !ok {
		return 0, fmt.Errorf("container %s: %w", container, ErrNotFound)
	}
	if b.Kind() != KindGroup && b.Kind() != KindCell {
		return 0, fmt.Errorf("%s is a %s: %w", container, b.Kind(), ErrInvalidParent)
	}
	return b.Kind(), nil
}

// ContainerKind returns the kind of a container, KindRoot for the root
func (d *Document) ContainerKind(container string) (Kind, error) {
	return d.containerKind(container)
}

// Allowed reports whether a block of kind child may be a direct child of a
// container of kind parent
func Allowed(parent, child Kind) bool {
	switch parent {
	case KindGroup:
		return child == KindCell
	case KindCell:
		return child == KindTextLine || child == KindImage || child == KindWidget
	case KindRoot:
		return child != KindCell
	}
	return false
}

// GroupOf returns the group containing a cell
func (d *Document) GroupOf(cellID string) (*Group, bool) {
	p, ok := d.Parent(cellID)
	if !ok {
		return nil, false
	}
	b, ok := d.Lookup(p)
	if !ok {
		return nil, false
	}
	g, ok := b.(*Group)
	return g, ok
}

// Images returns every image block in document order
func (d *Document) Images() []*Image {
	var out []*Image
	d.Walk(func(b Block, _ string) bool {
		if img, ok := b.(*Image); ok {
			out = append(out, img)
		}
		return true
	})
	return out
}

// Widgets returns every widget block in document order
func (d *Document) Widgets() []*Widget {
	var out []*Widget
	d.Walk(func(b Block, _ string) bool {
		if w, ok := b.(*Widget); ok {
			out = append(out, w)
		}
		return true
	})
	return out
}

func cellBlocks(cells []*Cell) []Block {
	out := make([]Block, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
