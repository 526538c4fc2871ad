// Package command models every document mutation as a discrete command.
// Commands that create blocks record the IDs they generated, so a command
// list replays identically against the document it was first applied to.
package command

import (
	"fmt"

	"github.com/gm6nx/blockedit/internal/anchor"
	"github.com/gm6nx/blockedit/internal/classify"
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/grid"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/gm6nx/blockedit/internal/painter"
	"github.com/gm6nx/blockedit/internal/parser/html"
)

// Command is one document mutation
type Command interface {
	Name() string
	Apply(d *doc.Document) error
}

// Replay applies commands in order and stops at the first failure
func Replay(d *doc.Document, cmds ...Command) error {
	for i, c := range cmds {
		if err := c.Apply(d); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, c.Name(), err)
		}
	}
	return nil
}

// Insert places a detached block at an insertion point
type Insert struct {
	Block doc.Block
	At    classify.InsertPoint
}

func (c *Insert) Name() string { return "insert" }

func (c *Insert) Apply(d *doc.Document) error {
	if err := d.Insert(c.At.Container, c.At.Index(d), c.Block); err != nil {
		return err
	}
	return syncIfGroup(d, c.At.Container)
}

// Move relocates an existing block to an insertion point in any container
// that accepts its kind
type Move struct {
	ID string
	At classify.InsertPoint
}

func (c *Move) Name() string { return "move" }

func (c *Move) Apply(d *doc.Document) error {
	b, ok := d.Lookup(c.ID)
	if !ok {
		return fmt.Errorf("move %s: %w", c.ID, doc.ErrNotFound)
	}
	if c.At.Reference == c.ID {
		return nil
	}
	if d.Contains(c.ID, c.At.Container) {
		return fmt.Errorf("move %s into %s: %w", c.ID, c.At.Container, doc.ErrCycle)
	}
	kind, err := d.ContainerKind(c.At.Container)
	if err != nil {
		return err
	}
	if !doc.Allowed(kind, b.Kind()) {
		return fmt.Errorf("move %s into %s: %w", b.Kind(), c.At.Container, doc.ErrInvalidParent)
	}

	from, _ := d.Parent(c.ID)
	if _, err := d.Remove(c.ID); err != nil {
		return err
	}
	if err := d.Insert(c.At.Container, c.At.Index(d), b); err != nil {
		return err
	}
	if from != c.At.Container {
		if err := syncIfGroup(d, from); err != nil {
			return err
		}
		if err := fillCell(d, from); err != nil {
			return err
		}
	}
	return syncIfGroup(d, c.At.Container)
}

// Delete removes a block with its content. Tight images anchored inside the
// removed subtree are re-anchored to the root at the position they had in
// Layout, when given.
type Delete struct {
	ID     string
	Layout *layout.Map
}

func (c *Delete) Name() string { return "delete" }

func (c *Delete) Apply(d *doc.Document) error {
	parent, ok := d.Parent(c.ID)
	if !ok {
		return fmt.Errorf("delete %s: %w", c.ID, doc.ErrNotFound)
	}
	if _, err := d.Remove(c.ID); err != nil {
		return err
	}
	anchor.Rebase(d, c.Layout)
	if err := syncIfGroup(d, parent); err != nil {
		return err
	}
	return fillCell(d, parent)
}

// CreateGroup inserts a new rows×cols group
type CreateGroup struct {
	Rows, Cols int
	At         classify.InsertPoint

	// GroupID is set on first apply
	GroupID string
}

func (c *CreateGroup) Name() string { return "create-group" }

func (c *CreateGroup) Apply(d *doc.Document) error {
	g, err := grid.NewGroup(d, c.Rows, c.Cols)
	if err != nil {
		return err
	}
	if c.GroupID != "" {
		g.BlockID = c.GroupID
	}
	if c.At.Container == "" {
		c.At.Container = doc.RootID
	}
	if err := d.Insert(c.At.Container, c.At.Index(d), g); err != nil {
		return err
	}
	c.GroupID = g.BlockID
	return nil
}

// Resize changes the dimensions of a group, discarding trailing cells.
// Tight images anchored inside discarded cells are rebased as for Delete.
type Resize struct {
	Group      string
	Rows, Cols int
	Layout     *layout.Map

	// Removed holds the discarded cells of the last apply
	Removed []*doc.Cell
}

func (c *Resize) Name() string { return "resize" }

func (c *Resize) Apply(d *doc.Document) error {
	removed, err := grid.Resize(d, c.Group, c.Rows, c.Cols)
	c.Removed = removed
	if err == nil && len(removed) > 0 {
		anchor.Rebase(d, c.Layout)
	}
	return err
}

// AddWidget appends a content or html cell to a group
type AddWidget struct {
	Group string
	Kind  grid.CellKind

	// CellID is set on first apply
	CellID string
}

func (c *AddWidget) Name() string { return "add-widget" }

func (c *AddWidget) Apply(d *doc.Document) error {
	cell := grid.NewCell(d, c.Kind)
	if c.CellID != "" {
		cell.BlockID = c.CellID
	}
	if err := grid.AddCell(d, c.Group, cell); err != nil {
		return err
	}
	c.CellID = cell.BlockID
	return nil
}

// WrapInCell moves a block into a new cell inserted into a group
type WrapInCell struct {
	ID string
	At classify.InsertPoint

	// CellID is set on first apply
	CellID string
}

func (c *WrapInCell) Name() string { return "wrap-in-cell" }

func (c *WrapInCell) Apply(d *doc.Document) error {
	b, ok := d.Lookup(c.ID)
	if !ok {
		return fmt.Errorf("wrap %s: %w", c.ID, doc.ErrNotFound)
	}
	if !doc.Allowed(doc.KindCell, b.Kind()) {
		return fmt.Errorf("wrap %s in cell: %w", b.Kind(), doc.ErrInvalidParent)
	}
	if kind, err := d.ContainerKind(c.At.Container); err != nil {
		return err
	} else if kind != doc.KindGroup {
		return fmt.Errorf("wrap into %s: %w", c.At.Container, doc.ErrInvalidParent)
	}

	from, _ := d.Parent(c.ID)
	if _, err := d.Remove(c.ID); err != nil {
		return err
	}
	cell := grid.Wrap(d, b)
	if c.CellID != "" {
		cell.BlockID = c.CellID
	}
	if err := d.Insert(c.At.Container, c.At.Index(d), cell); err != nil {
		return err
	}
	c.CellID = cell.BlockID
	if err := fillCell(d, from); err != nil {
		return err
	}
	return grid.Sync(d, c.At.Container)
}

// ExtractCell unwraps a cell's content into a non-group container and
// destroys the cell. A cell holding one image or widget yields that block;
// text lines are moved as they are; mixed content keeps its order.
type ExtractCell struct {
	Cell string
	At   classify.InsertPoint
}

func (c *ExtractCell) Name() string { return "extract-cell" }

func (c *ExtractCell) Apply(d *doc.Document) error {
	b, ok := d.Lookup(c.Cell)
	if !ok {
		return fmt.Errorf("extract %s: %w", c.Cell, doc.ErrNotFound)
	}
	cell, ok := b.(*doc.Cell)
	if !ok {
		return fmt.Errorf("extract %s: %w", b.Kind(), doc.ErrInvalidParent)
	}
	kind, err := d.ContainerKind(c.At.Container)
	if err != nil {
		return err
	}
	if kind == doc.KindGroup || d.Contains(c.Cell, c.At.Container) {
		return fmt.Errorf("extract into %s: %w", c.At.Container, doc.ErrInvalidParent)
	}

	group, _ := d.Parent(c.Cell)
	content := extractable(cell)
	if _, err := d.Remove(c.Cell); err != nil {
		return err
	}
	idx := c.At.Index(d)
	children, err := d.Children(c.At.Container)
	if err != nil {
		return err
	}
	next := make([]doc.Block, 0, len(children)+len(content))
	next = append(next, children[:idx]...)
	next = append(next, content...)
	next = append(next, children[idx:]...)
	if err := d.SetChildren(c.At.Container, next); err != nil {
		return err
	}
	return syncIfGroup(d, group)
}

// extractable drops the empty lines around a single heavy block
func extractable(cell *doc.Cell) []doc.Block {
	var heavy []doc.Block
	for _, b := range cell.Blocks {
		if b.Kind() != doc.KindTextLine {
			heavy = append(heavy, b)
		}
	}
	if len(heavy) == 1 {
		onlyEmpty := true
		for _, b := range cell.Blocks {
			if l, ok := b.(*doc.TextLine); ok && !l.Empty() {
				onlyEmpty = false
			}
		}
		if onlyEmpty {
			return heavy
		}
	}
	return cell.Blocks
}

// SetAnchor changes an image's positioning. With Tight set the image is
// anchored to Anchor at Offset; otherwise it returns to the flow.
type SetAnchor struct {
	Image            string
	Tight            bool
	Anchor           string
	OffsetX, OffsetY float64
}

func (c *SetAnchor) Name() string { return "set-anchor" }

func (c *SetAnchor) Apply(d *doc.Document) error {
	if !c.Tight {
		return anchor.Leave(d, c.Image)
	}
	b, ok := d.Lookup(c.Image)
	if !ok {
		return fmt.Errorf("anchor %s: %w", c.Image, doc.ErrNotFound)
	}
	img, ok := b.(*doc.Image)
	if !ok {
		return fmt.Errorf("%s: %w", c.Image, anchor.ErrNotImage)
	}
	a := c.Anchor
	if a == "" || a == c.Image || !d.Exists(a) {
		a = doc.RootID
	}
	img.Mode = doc.ModeTight
	img.Anchor = a
	img.OffsetX, img.OffsetY = c.OffsetX, c.OffsetY
	return nil
}

// ApplyStyle wraps a text range in a span with an inline style
type ApplyStyle struct {
	Range painter.Range
	Style string
}

func (c *ApplyStyle) Name() string { return "apply-style" }

func (c *ApplyStyle) Apply(d *doc.Document) error {
	_, err := painter.Wrap(d, c.Range, c.Style)
	return err
}

// SetLineContent replaces a line's inline markup, as typed by the user, and
// re-normalizes the line's container
type SetLineContent struct {
	Line   string
	Markup string
}

func (c *SetLineContent) Name() string { return "set-line-content" }

func (c *SetLineContent) Apply(d *doc.Document) error {
	b, ok := d.Lookup(c.Line)
	if !ok {
		return fmt.Errorf("line %s: %w", c.Line, doc.ErrNotFound)
	}
	l, ok := b.(*doc.TextLine)
	if !ok {
		return fmt.Errorf("%s is a %s: %w", c.Line, b.Kind(), doc.ErrInvalidParent)
	}
	nodes, err := html.ParseFragment(c.Markup)
	if err != nil {
		return fmt.Errorf("parse line content: %w", err)
	}
	l.Inline = html.DetachAll(nodes)
	parent, _ := d.Parent(c.Line)
	return doc.NewNormalizer(d.GenerateID).Container(d, parent)
}

// SetWidgetSource stores a widget's source
type SetWidgetSource struct {
	Widget string
	Source string
}

func (c *SetWidgetSource) Name() string { return "set-widget-source" }

func (c *SetWidgetSource) Apply(d *doc.Document) error {
	b, ok := d.Lookup(c.Widget)
	if !ok {
		return fmt.Errorf("widget %s: %w", c.Widget, doc.ErrNotFound)
	}
	w, ok := b.(*doc.Widget)
	if !ok {
		return fmt.Errorf("%s is a %s: %w", c.Widget, b.Kind(), doc.ErrInvalidParent)
	}
	w.Source = c.Source
	return nil
}

func syncIfGroup(d *doc.Document, container string) error {
	if kind, err := d.ContainerKind(container); err == nil && kind == doc.KindGroup {
		return grid.Sync(d, container)
	}
	return nil
}

// fillCell gives a cell left without blocks an empty line
func fillCell(d *doc.Document, container string) error {
	kind, err := d.ContainerKind(container)
	if err != nil || kind != doc.KindCell {
		return nil
	}
	children, _ := d.Children(container)
	if len(children) > 0 {
		return nil
	}
	return d.Insert(container, 0, &doc.TextLine{BlockID: d.GenerateID(), Tag: "p"})
}
