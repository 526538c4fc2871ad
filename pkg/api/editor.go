package api

import (
	"context"
	"fmt"

	"github.com/gm6nx/blockedit/internal/anchor"
	"github.com/gm6nx/blockedit/internal/classify"
	"github.com/gm6nx/blockedit/internal/command"
	"github.com/gm6nx/blockedit/internal/dnd"
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/grid"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/gm6nx/blockedit/internal/painter"
	"github.com/gm6nx/blockedit/internal/parser/html"
)

// Input replaces the content of a text line with what the user typed.
// Blocks typed into the line are split out by normalization.
func (e *Editor) Input(lineID, markup string) error {
	return e.Apply(&command.SetLineContent{Line: lineID, Markup: markup})
}

// InsertText inserts a text line at an insertion point; an empty container
// means the root
func (e *Editor) InsertText(at classify.InsertPoint, text string) (string, error) {
	if at.Container == "" {
		at.Container = doc.RootID
	}
	line := doc.NewTextLine(e.doc.GenerateID())
	if text != "" {
		line.Inline = []*html.Node{html.NewText(text)}
	}
	if err := e.Apply(&command.Insert{Block: line, At: at}); err != nil {
		return "", err
	}
	return line.BlockID, nil
}

// Delete removes a block with its content
func (e *Editor) Delete(id string) error {
	return e.Apply(&command.Delete{ID: id, Layout: e.lmap})
}

// Click handles a click on a block. An armed format painter captures the
// clicked element's style and applies it to its recorded selection; the
// click is then consumed. Otherwise the click selects the group around the
// block, or clears the selection.
func (e *Editor) Click(target painter.Target) (bool, error) {
	if e.painter.State() == painter.Armed {
		rng, inline, ok, err := e.painter.Click(e.doc, target)
		if err != nil || !ok {
			return true, err
		}
		return true, e.Apply(&command.ApplyStyle{Range: rng, Style: inline})
	}
	e.selectAround(target.Block)
	return false, nil
}

func (e *Editor) selectAround(id string) {
	chain := append([]string{id}, e.doc.Ancestors(id)...)
	for _, c := range chain {
		if b, ok := e.doc.Lookup(c); ok && b.Kind() == doc.KindGroup {
			_ = e.selection.Select(e.doc, c)
			return
		}
	}
	e.selection.Deselect()
}

// KeyDown handles a key press. Escape cancels an armed format painter and
// any drag in progress. It reports whether the key was handled.
func (e *Editor) KeyDown(key string) bool {
	switch key {
	case "Escape", "Esc":
		handled := e.painter.State() == painter.Armed || e.drag.State() == dnd.Dragging
		e.CancelPainter()
		e.drag.End()
		return handled
	}
	return false
}

// ArmPainter records a selection for the format painter. Without a
// selection a warning notice is raised and the painter stays idle.
func (e *Editor) ArmPainter(sel painter.Range) error {
	if err := e.painter.Arm(e.doc, sel); err != nil {
		e.notify(NoticeWarning, err.Error(), nil)
		return err
	}
	return nil
}

// CancelPainter disarms the format painter
func (e *Editor) CancelPainter() { e.painter.Cancel() }

// PainterState returns the state of the format painter
func (e *Editor) PainterState() painter.State { return e.painter.State() }

// SelectGroup selects a group
func (e *Editor) SelectGroup(id string) error {
	return e.selection.Select(e.doc, id)
}

// Controls returns the dimension controls of the selected group
func (e *Editor) Controls() grid.Controls {
	return e.selection.Controls(e.doc)
}

// CreateGroup inserts a rows×cols group after the root-level block holding
// after, or at the end of the page when after is empty, and selects it
func (e *Editor) CreateGroup(rows, cols int, after string) (string, error) {
	at := classify.InsertPoint{Container: doc.RootID}
	if after != "" {
		b := classify.ResolveBlock(e.doc, doc.RootID, after)
		if b == nil {
			return "", fmt.Errorf("create group after %s: %w", after, doc.ErrNotFound)
		}
		at.Reference = b.ID()
		at.Position = classify.After
	}
	cmd := &command.CreateGroup{Rows: rows, Cols: cols, At: at}
	if err := e.Apply(cmd); err != nil {
		return "", err
	}
	_ = e.selection.Select(e.doc, cmd.GroupID)
	return cmd.GroupID, nil
}

// ResizeSelectedGroup changes the dimensions of the selected group
func (e *Editor) ResizeSelectedGroup(rows, cols int) error {
	g, err := e.selection.Selected(e.doc)
	if err != nil {
		return err
	}
	return e.Apply(&command.Resize{Group: g.BlockID, Rows: rows, Cols: cols, Layout: e.lmap})
}

// AddWidget appends a content or HTML cell to the selected group and
// returns the new cell
func (e *Editor) AddWidget(kind grid.CellKind) (string, error) {
	g, err := e.selection.Selected(e.doc)
	if err != nil {
		return "", err
	}
	cmd := &command.AddWidget{Group: g.BlockID, Kind: kind}
	if err := e.Apply(cmd); err != nil {
		return "", err
	}
	return cmd.CellID, nil
}

// EditWidgetSource updates the live source of an HTML widget and returns
// its re-rendered preview. EditHTML and the layout show the edit at once;
// the source reaches the document on the next save or view.
func (e *Editor) EditWidgetSource(id, source string) (string, error) {
	preview, err := e.widgets.Edit(e.doc, id, source)
	if err != nil {
		return "", err
	}
	e.relayout()
	return preview, nil
}

// WidgetSource returns the current source of an HTML widget
func (e *Editor) WidgetSource(id string) (string, error) {
	return e.widgets.Source(e.doc, id)
}

// SetImageMode switches an image between flow and tight positioning. An
// image entering tight mode is anchored to its enclosing cell, or the root,
// and keeps its rendered spot.
func (e *Editor) SetImageMode(id string, tight bool) error {
	cmd := &command.SetAnchor{Image: id, Tight: tight}
	if tight {
		b, ok := e.doc.Lookup(id)
		if !ok {
			return fmt.Errorf("image %s: %w", id, doc.ErrNotFound)
		}
		img, ok := b.(*doc.Image)
		if !ok {
			return fmt.Errorf("%s: %w", id, anchor.ErrNotImage)
		}
		if img.Tight() {
			return nil
		}
		r, ok := e.lmap.Rect(id)
		if !ok {
			return fmt.Errorf("image %s has no layout: %w", id, doc.ErrNotFound)
		}
		cmd.Anchor = anchor.Enclosing(e.doc, id)
		o := e.lmap.Root.Rect.Origin()
		if ar, ok := e.lmap.Rect(cmd.Anchor); ok {
			o = ar.Origin()
		}
		cmd.OffsetX, cmd.OffsetY = r.X-o.X, r.Y-o.Y
	}
	return e.Apply(cmd)
}

// DragStart begins dragging a block from pointer p
func (e *Editor) DragStart(id string, p layout.Point) error {
	return e.drag.Start(e.doc, e.lmap, id, p)
}

// DragOver tracks the pointer and returns the current drop target
func (e *Editor) DragOver(p layout.Point) (dnd.Target, error) {
	return e.drag.Over(e.doc, e.lmap, p)
}

// Drop commits the drag at p. The returned command is nil when the drop
// changed nothing.
func (e *Editor) Drop(p layout.Point) (command.Command, error) {
	cmd, err := e.drag.Drop(e.doc, e.lmap, p)
	if err != nil || cmd == nil {
		return nil, err
	}
	e.commit(cmd)
	return cmd, nil
}

// DropFile uploads a file dropped from outside and inserts it as an image
// at p. Non-image files are ignored. An upload failure raises an error
// notice and leaves the document unchanged.
func (e *Editor) DropFile(ctx context.Context, p layout.Point, f dnd.File) (command.Command, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	cmd, err := e.drag.DropFile(ctx, e.doc, e.lmap, p, f, e.store)
	if err != nil {
		e.notify(NoticeError, "Image upload failed", err)
		return nil, err
	}
	if cmd != nil {
		e.commit(cmd)
	}
	return cmd, nil
}

// DragEnd cancels the drag in progress
func (e *Editor) DragEnd() { e.drag.End() }

// Markers returns the drop indicators of the drag in progress
func (e *Editor) Markers() []dnd.Marker { return e.drag.Markers() }

// InsertImage uploads image data and inserts the image at p, returning the
// new image block
func (e *Editor) InsertImage(ctx context.Context, name string, data []byte, p layout.Point) (string, error) {
	f := dnd.File{Name: name, Data: data}
	if !dnd.IsImage(f) {
		e.notify(NoticeError, "Image upload failed", ErrNotImage)
		return "", fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	cmd, err := e.DropFile(ctx, p, f)
	if err != nil {
		return "", err
	}
	ins, ok := cmd.(*command.Insert)
	if !ok {
		return "", fmt.Errorf("insert %s: nothing inserted", name)
	}
	if c, ok := ins.Block.(*doc.Cell); ok && len(c.Blocks) > 0 {
		return c.Blocks[0].ID(), nil
	}
	return ins.Block.ID(), nil
}
