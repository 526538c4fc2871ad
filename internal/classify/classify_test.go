package classify

import (
	"testing"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<p data-block-id="a">alpha</p>` +
	`<div class="grid-group" data-block-id="g" data-rows="1" data-cols="2">` +
	`<div class="grid-cell" data-block-id="c1"><p data-block-id="l1">one</p></div>` +
	`<div class="grid-cell" data-block-id="c2"><p data-block-id="l2">two</p></div></div>` +
	`<p data-block-id="z">omega</p>`

func setup(t *testing.T) (*doc.Document, *layout.Map) {
	t.Helper()
	d, err := doc.Decode(page, nil)
	require.NoError(t, err)
	return d, layout.NewEngine(layout.DefaultOptions()).Layout(d)
}

func TestResolveBlock(t *testing.T) {
	d, _ := setup(t)

	assert.Equal(t, "g", ResolveBlock(d, doc.RootID, "l2").ID())
	assert.Equal(t, "c2", ResolveBlock(d, "g", "l2").ID())
	assert.Equal(t, "l2", ResolveBlock(d, "c2", "l2").ID())
	assert.Nil(t, ResolveBlock(d, "c1", "l2"))
	assert.Nil(t, ResolveBlock(d, doc.RootID, "missing"))
	assert.Nil(t, ResolveBlock(d, doc.RootID, doc.RootID))
}

func TestResolveInsertPositionMidpointTieBreak(t *testing.T) {
	d, m := setup(t)
	a, _ := m.Rect("a")

	above := ResolveInsertPosition(d, m, doc.RootID, layout.Point{X: a.X + 1, Y: a.MidY() - 1}, nil)
	assert.Equal(t, InsertPoint{Container: doc.RootID, Reference: "a", Position: Before}, above)

	tie := ResolveInsertPosition(d, m, doc.RootID, layout.Point{X: a.X + 1, Y: a.MidY()}, nil)
	assert.Equal(t, InsertPoint{Container: doc.RootID, Reference: "a", Position: After}, tie)

	below := ResolveInsertPosition(d, m, doc.RootID, layout.Point{X: a.X + 1, Y: a.MidY() + 1}, nil)
	assert.Equal(t, After, below.Position)
}

func TestResolveInsertPositionNested(t *testing.T) {
	d, m := setup(t)
	c2, _ := m.Rect("c2")
	pt := layout.Point{X: c2.X + 10, Y: c2.Y + 12}

	root := ResolveInsertPosition(d, m, doc.RootID, pt, nil)
	assert.Equal(t, "g", root.Reference)

	inGroup := ResolveInsertPosition(d, m, "g", pt, nil)
	assert.Equal(t, InsertPoint{Container: "g", Reference: "c2", Position: Before}, inGroup)
	assert.Equal(t, 1, inGroup.Index(d))

	skipped := ResolveInsertPosition(d, m, "g", pt, func(id string) bool { return id == "c2" })
	assert.Equal(t, InsertPoint{Container: "g", Position: After}, skipped)
	assert.Equal(t, 2, skipped.Index(d))
}

func TestResolveInsertPositionAppendsOnEmptySpace(t *testing.T) {
	d, m := setup(t)

	ip := ResolveInsertPosition(d, m, doc.RootID, layout.Point{X: 10, Y: 5000}, nil)
	assert.Equal(t, InsertPoint{Container: doc.RootID, Position: After}, ip)
	assert.Equal(t, 3, ip.Index(d))
	assert.Equal(t, "after", ip.Position.String())

	assert.Equal(t, InsertPoint{Container: doc.RootID}, ResolveInsertPosition(d, nil, doc.RootID, layout.Point{}, nil))
}

func TestInnermost(t *testing.T) {
	d, _ := setup(t)

	b, ok := Innermost(d, []string{doc.RootID, "g", "c1", "l1"}, doc.KindCell)
	require.True(t, ok)
	assert.Equal(t, "c1", b.ID())
	_, ok = Innermost(d, []string{doc.RootID, "a"}, doc.KindGroup)
	assert.False(t, ok)
}
