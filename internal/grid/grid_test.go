package grid

import (
	"fmt"
	"testing"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc() *doc.Document {
	d := doc.New()
	n := 0
	d.NewID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return d
}

func TestNewGroup(t *testing.T) {
	d := newDoc()
	g, err := NewGroup(d, 2, 3)
	require.NoError(t, err)
	assert.Len(t, g.Cells, 6)
	for _, c := range g.Cells {
		require.Len(t, c.Blocks, 1)
		assert.True(t, c.Blocks[0].(*doc.TextLine).Empty())
	}
	assert.Equal(t, "grid-template-columns: repeat(3, 1fr); grid-template-rows: repeat(2, minmax(80px, auto))", Template(g))

	_, err = NewGroup(d, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	assert.False(t, d.Exists(g.BlockID), "new groups are detached")
}

func TestResize(t *testing.T) {
	d := newDoc()
	g, _ := NewGroup(d, 2, 2)
	require.NoError(t, d.Insert(doc.RootID, 0, g))
	first := g.Cells[0].BlockID

	removed, err := Resize(d, g.BlockID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Len(t, g.Cells, 2)
	assert.False(t, d.Exists(removed[0].BlockID))

	removed, err = Resize(d, g.BlockID, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Len(t, g.Cells, 9)
	assert.Equal(t, first, g.Cells[0].BlockID)
	assert.True(t, d.Exists(g.Cells[8].BlockID))

	_, err = Resize(d, "nope", 1, 1)
	assert.ErrorIs(t, err, doc.ErrNotFound)
	_, err = Resize(d, g.Cells[0].BlockID, 1, 1)
	assert.ErrorIs(t, err, doc.ErrInvalidParent)
}

func TestDimensionBounds(t *testing.T) {
	d := newDoc()
	g, err := NewGroup(d, 2, 2)
	require.NoError(t, err)
	require.NoError(t, d.Insert(doc.RootID, 0, g))

	for _, dims := range [][2]int{
		{1 << 32, 1 << 32},
		{100000, 100000},
		{doc.MaxCells + 1, 1},
		{33, 32},
	} {
		_, err := Resize(d, g.BlockID, dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidDimensions, "%dx%d", dims[0], dims[1])
		_, err = NewGroup(d, dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidDimensions, "%dx%d", dims[0], dims[1])
	}
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 2, g.Cols)
	assert.Len(t, g.Cells, 4)

	_, err = Resize(d, g.BlockID, 32, 32)
	require.NoError(t, err)
	assert.Len(t, g.Cells, doc.MaxCells)
	assert.ErrorIs(t, AddCell(d, g.BlockID, NewCell(d, CellContent)), ErrInvalidDimensions)
	assert.Len(t, g.Cells, doc.MaxCells)
}

func TestAddCellSyncs(t *testing.T) {
	d := newDoc()
	g, _ := NewGroup(d, 1, 1)
	require.NoError(t, d.Insert(doc.RootID, 0, g))

	require.NoError(t, AddCell(d, g.BlockID, NewCell(d, CellHTML)))
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 1, g.Cols)
	w, ok := g.Cells[1].Blocks[0].(*doc.Widget)
	require.True(t, ok)
	assert.Equal(t, doc.PlaceholderSource, w.Source)

	g.Cols = 3
	require.NoError(t, Sync(d, g.BlockID))
	assert.Equal(t, 1, g.Rows)
	assert.Len(t, g.Cells, 3)
}

func TestParseCellKind(t *testing.T) {
	for in, want := range map[string]CellKind{"": CellContent, "text": CellContent, "Content": CellContent, " html ": CellHTML} {
		got, err := ParseCellKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCellKind("video")
	assert.Error(t, err)
}

func TestSelection(t *testing.T) {
	d := newDoc()
	g, _ := NewGroup(d, 2, 2)
	require.NoError(t, d.Insert(doc.RootID, 0, g))

	var s Selection
	assert.Equal(t, Controls{}, s.Controls(d))
	_, err := s.Selected(d)
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, s.Select(d, g.BlockID))
	assert.Equal(t, Controls{Visible: true, Group: g.BlockID, Rows: 2, Cols: 2}, s.Controls(d))

	assert.Error(t, s.Select(d, g.Cells[0].BlockID))
	assert.Equal(t, g.BlockID, s.Controls(d).Group, "a failed select keeps the current group")

	_, err = d.Remove(g.BlockID)
	require.NoError(t, err)
	assert.False(t, s.Controls(d).Visible)
	_, err = s.Selected(d)
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, d.Insert(doc.RootID, 0, g))
	assert.False(t, s.Controls(d).Visible, "a stale selection is cleared")

	require.NoError(t, s.Select(d, g.BlockID))
	s.Deselect()
	assert.False(t, s.Controls(d).Visible)
}
