// Package grid manages grid groups: creation, destructive resizing, widget
// cells and the single-group selection behind the dimension controls.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/gm6nx/blockedit/internal/doc"
)

var (
	// ErrNoSelection is returned by operations on the selected group when
	// no group is selected
	ErrNoSelection = errors.New("no grid group selected")
	// ErrInvalidDimensions is returned for rows or cols below one or a
	// grid larger than doc.MaxCells cells
	ErrInvalidDimensions = fmt.Errorf("grid dimensions must be at least 1x1 and at most %d cells", doc.MaxCells)
)

// CellKind is the kind of widget cell added to a group
type CellKind int

const (
	CellContent CellKind = iota
	CellHTML
)

func (k CellKind) String() string {
	if k == CellHTML {
		return "html"
	}
	return "content"
}

// ParseCellKind parses "content" (also "text") or "html"
func ParseCellKind(s string) (CellKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "content", "text", "":
		return CellContent, nil
	case "html":
		return CellHTML, nil
	}
	return 0, fmt.Errorf("unknown cell kind %q", s)
}

// Template is the CSS grid template of a group
func Template(g *doc.Group) string {
	return doc.GridTemplate(g.Rows, g.Cols)
}

// NewGroup builds a rows×cols group of empty content cells in row-major
// order. It is not inserted into d.
func NewGroup(d *doc.Document, rows, cols int) (*doc.Group, error) {
	if !doc.GridFits(rows, cols) {
		return nil, fmt.Errorf("%dx%d: %w", rows, cols, ErrInvalidDimensions)
	}
	g := &doc.Group{BlockID: d.GenerateID(), Rows: rows, Cols: cols}
	for i := 0; i < rows*cols; i++ {
		g.Cells = append(g.Cells, NewCell(d, CellContent))
	}
	return g, nil
}

// NewCell builds a detached cell: a content cell holds one empty line, an
// html cell one widget with the placeholder source
func NewCell(d *doc.Document, kind CellKind) *doc.Cell {
	c := &doc.Cell{BlockID: d.GenerateID()}
	if kind == CellHTML {
		c.Blocks = []doc.Block{&doc.Widget{BlockID: d.GenerateID(), Source: doc.PlaceholderSource}}
	} else {
		c.Blocks = []doc.Block{&doc.TextLine{BlockID: d.GenerateID(), Tag: "p"}}
	}
	return c
}

// Wrap builds a detached cell holding b
func Wrap(d *doc.Document, b doc.Block) *doc.Cell {
	return &doc.Cell{BlockID: d.GenerateID(), Blocks: []doc.Block{b}}
}

func group(d *doc.Document, id string) (*doc.Group, error) {
	b, ok := d.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, doc.ErrNotFound)
	}
	g, ok := b.(*doc.Group)
	if !ok {
		return nil, fmt.Errorf("%s is a %s: %w", id, b.Kind(), doc.ErrInvalidParent)
	}
	return g, nil
}

// Resize sets the group to rows×cols. Trailing cells beyond the new count
// are discarded with their content and returned; missing cells are appended
// empty.
func Resize(d *doc.Document, groupID string, rows, cols int) ([]*doc.Cell, error) {
	if !doc.GridFits(rows, cols) {
		return nil, fmt.Errorf("%dx%d: %w", rows, cols, ErrInvalidDimensions)
	}
	g, err := group(d, groupID)
	if err != nil {
		return nil, err
	}
	target := rows * cols
	var removed []*doc.Cell
	cells := append([]*doc.Cell(nil), g.Cells...)
	if len(cells) > target {
		removed = cells[target:]
		cells = cells[:target]
	}
	for len(cells) < target {
		cells = append(cells, NewCell(d, CellContent))
	}
	g.Rows, g.Cols, g.Cells = rows, cols, cells
	d.Reindex()
	if len(removed) > 0 {
		slog.Default().With("component", "grid").Debug("group shrunk", "group", groupID, "removed", len(removed))
	}
	return removed, nil
}

// Sync restores len(Cells) == Rows×Cols after cells were added or removed
// individually: columns are kept, rows become ceil(cells/cols) (at least
// one) and the last row is padded with empty cells.
func Sync(d *doc.Document, groupID string) error {
	g, err := group(d, groupID)
	if err != nil {
		return err
	}
	g.Cols = min(max(g.Cols, 1), doc.MaxCells)
	g.Rows = int(math.Max(1, math.Ceil(float64(len(g.Cells))/float64(g.Cols))))
	for len(g.Cells) < g.Rows*g.Cols {
		g.Cells = append(g.Cells, NewCell(d, CellContent))
	}
	d.Reindex()
	return nil
}

// AddCell appends c to the group and re-synchronizes its dimensions
func AddCell(d *doc.Document, groupID string, c *doc.Cell) error {
	g, err := group(d, groupID)
	if err != nil {
		return err
	}
	if len(g.Cells) >= doc.MaxCells {
		return fmt.Errorf("adding cell %d: %w", len(g.Cells)+1, ErrInvalidDimensions)
	}
	if err := d.Insert(groupID, len(g.Cells), c); err != nil {
		return err
	}
	return Sync(d, groupID)
}

// Controls is the state of the dimension controls
type Controls struct {
	Visible bool
	Group   string
	Rows    int
	Cols    int
}

// Selection tracks the one selected group of an editing session
type Selection struct {
	group string
}

// Select makes groupID the selected group
func (s *Selection) Select(d *doc.Document, groupID string) error {
	if _, err := group(d, groupID); err != nil {
		return err
	}
	s.group = groupID
	return nil
}

// Deselect clears the selection
func (s *Selection) Deselect() { s.group = "" }

// Selected returns the selected group, clearing a selection whose group no
// longer exists
func (s *Selection) Selected(d *doc.Document) (*doc.Group, error) {
	if s.group == "" {
		return nil, ErrNoSelection
	}
	g, err := group(d, s.group)
	if err != nil {
		s.group = ""
		return nil, ErrNoSelection
	}
	return g, nil
}

// Controls reports the dimension controls for the current selection
func (s *Selection) Controls(d *doc.Document) Controls {
	g, err := s.Selected(d)
	if err != nil {
		return Controls{}
	}
	return Controls{Visible: true, Group: g.BlockID, Rows: g.Rows, Cols: g.Cols}
}
