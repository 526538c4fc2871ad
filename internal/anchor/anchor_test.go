package anchor

import (
	"fmt"
	"testing"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, markup string) (*doc.Document, *layout.Map) {
	t.Helper()
	n := 0
	d, err := doc.Decode(markup, func() string {
		n++
		return fmt.Sprintf("n%d", n)
	})
	require.NoError(t, err)
	return d, layout.NewEngine(layout.DefaultOptions()).Layout(d)
}

const page = `<p data-block-id="a">a</p>` +
	`<div class="grid-group" data-block-id="g" data-rows="1" data-cols="2">` +
	`<div class="grid-cell" data-block-id="c1"><img data-block-id="i" src="x.png" width="20" height="20"></div>` +
	`<div class="grid-cell" data-block-id="c2"><p data-block-id="l2">two</p></div></div>`

func TestEnterAnchorsToEnclosingCell(t *testing.T) {
	d, m := decode(t, page)
	before, _ := m.Rect("i")
	c1, _ := m.Rect("c1")

	assert.Equal(t, "c1", Enclosing(d, "i"))
	assert.Equal(t, doc.RootID, Enclosing(d, "a"))

	require.NoError(t, Enter(d, m, "i"))
	img := d.Images()[0]
	assert.True(t, img.Tight())
	assert.Equal(t, "c1", img.Anchor)
	assert.InDelta(t, before.X-c1.X, img.OffsetX, 0.001)
	assert.InDelta(t, before.Y-c1.Y, img.OffsetY, 0.001)
	pos := Position(m, img)
	assert.InDelta(t, before.X, pos.X, 0.001)
	assert.InDelta(t, before.Y, pos.Y, 0.001)

	require.NoError(t, Enter(d, m, "i"), "entering twice is a no-op")
	assert.Equal(t, "c1", img.Anchor)

	require.NoError(t, Leave(d, "i"))
	assert.False(t, img.Tight())
	assert.Empty(t, img.Anchor)

	assert.ErrorIs(t, Enter(d, m, "a"), ErrNotImage)
	assert.ErrorIs(t, Leave(d, "missing"), doc.ErrNotFound)
}

func TestResolveSkipsSelfAndTightImages(t *testing.T) {
	d, m := decode(t, page)
	require.NoError(t, Place(d, m, "i", doc.RootID, layout.Point{X: 420, Y: 40}))
	m = layout.NewEngine(layout.DefaultOptions()).Layout(d)

	i, _ := m.Rect("i")
	assert.Equal(t, layout.Point{X: 420, Y: 40}, i.Origin())

	over := layout.Point{X: 425, Y: 55}
	assert.Equal(t, "l2", Resolve(d, m, over, "i"))
	assert.Equal(t, "l2", Resolve(d, m, over, "other"), "tight images never anchor")
	assert.Equal(t, doc.RootID, Resolve(d, m, layout.Point{X: 5000, Y: 5000}, "i"))
}

func TestPlaceFallsBackToRoot(t *testing.T) {
	d, m := decode(t, page)
	require.NoError(t, Place(d, m, "i", "i", layout.Point{X: 50, Y: 60}))
	img := d.Images()[0]
	assert.Equal(t, doc.RootID, img.Anchor)
	assert.Equal(t, 50.0, img.OffsetX)
	assert.Equal(t, 60.0, img.OffsetY)
}

func TestRebaseKeepsPosition(t *testing.T) {
	d, m := decode(t, page)
	require.NoError(t, Place(d, m, "i", "l2", layout.Point{X: 500, Y: 100}))
	m = layout.NewEngine(layout.DefaultOptions()).Layout(d)

	_, err := d.Remove("l2")
	require.NoError(t, err)
	assert.Equal(t, []string{"i"}, Rebase(d, m))

	img := d.Images()[0]
	assert.Equal(t, doc.RootID, img.Anchor)
	pos := Position(layout.NewEngine(layout.DefaultOptions()).Layout(d), img)
	assert.InDelta(t, 500, pos.X, 0.001)
	assert.InDelta(t, 100, pos.Y, 0.001)

	assert.Empty(t, Rebase(d, m), "nothing left to rebase")
}
