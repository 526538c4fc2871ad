package layout

import (
	"strings"
	"testing"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, markup string) *doc.Document {
	t.Helper()
	d, err := doc.Decode(markup, nil)
	require.NoError(t, err)
	return d
}

type fixedSizer map[string][2]float64

func (f fixedSizer) ImageSize(src string) (float64, float64, bool) {
	s, ok := f[src]
	return s[0], s[1], ok
}

func TestLayoutStacksLines(t *testing.T) {
	d := mustDecode(t, `<p data-block-id="a"><br></p><p data-block-id="b"><br></p>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	a, ok := m.Rect("a")
	require.True(t, ok)
	b, ok := m.Rect("b")
	require.True(t, ok)

	assert.InDelta(t, 16, a.X, 0.001)
	assert.InDelta(t, 16, a.Y, 0.001)
	assert.InDelta(t, 768, a.Width, 0.001)
	assert.InDelta(t, 22.4, a.Height, 0.001)
	assert.InDelta(t, 16+22.4+4, b.Y, 0.001)
	assert.InDelta(t, b.Bottom()+4+16, m.Root.Rect.Height, 0.001)
}

func TestLayoutWrapsLongText(t *testing.T) {
	text := strings.Repeat("word ", 200)
	d := mustDecode(t, `<p data-block-id="a">`+text+`</p>`)

	wide := NewEngine(Options{Width: 2000, Padding: 16}).Layout(d)
	narrow := NewEngine(Options{Width: 300, Padding: 16}).Layout(d)

	wb, _ := wide.Box("a")
	nb, _ := narrow.Box("a")
	assert.Greater(t, nb.Lines, wb.Lines)
	assert.Greater(t, nb.Rect.Height, wb.Rect.Height)
}

func TestLayoutHeadingIsTaller(t *testing.T) {
	d := mustDecode(t, `<p data-block-id="p">Title</p><h1 data-block-id="h">Title</h1>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	p, _ := m.Rect("p")
	h, _ := m.Rect("h")
	assert.InDelta(t, 2*p.Height, h.Height, 0.001)
}

func TestLayoutImageSizing(t *testing.T) {
	d := mustDecode(t, `<img data-block-id="big" src="big.png"><img src="decl.png" width="100" height="50"><img src="none.png">`)
	e := NewEngine(Options{Width: 432, Padding: 16})
	e.SetImageSizer(fixedSizer{"big.png": {800, 600}})
	m := e.Layout(d)

	big, _ := m.Rect("big")
	assert.InDelta(t, 400, big.Width, 0.001)
	assert.InDelta(t, 300, big.Height, 0.001)

	imgs := d.Images()
	require.Len(t, imgs, 3)
	decl, _ := m.Rect(imgs[1].ID())
	assert.Equal(t, Rect{X: 16, Y: 16 + 300, Width: 100, Height: 50}, decl, "no block gap unless set")
	none, _ := m.Rect(imgs[2].ID())
	assert.Equal(t, DefaultImageWidth, none.Width)
}

func TestEngineOptions(t *testing.T) {
	def := DefaultOptions()
	assert.Equal(t, def, NewEngine(Options{}).Options())

	got := NewEngine(Options{Width: 500, GridGap: -3, BlockGap: 4}).Options()
	assert.Equal(t, 500.0, got.Width)
	assert.Equal(t, def.FontSize, got.FontSize)
	assert.Equal(t, def.LineHeight, got.LineHeight)
	assert.Equal(t, def.CellMinHeight, got.CellMinHeight)
	assert.Zero(t, got.Padding)
	assert.Zero(t, got.CellPadding)
	assert.Zero(t, got.GridGap)
	assert.Equal(t, 4.0, got.BlockGap)
}

func TestLayoutTightImageFollowsAnchor(t *testing.T) {
	d := mustDecode(t, `<p data-block-id="a"><br></p><p data-block-id="b"><br></p>`+
		`<div class="image-block" data-block-id="i" data-mode="tight" data-anchor="b" data-offset-x="10" data-offset-y="5"><img src="x.png" width="40" height="40"></div>`+
		`<p data-block-id="c"><br></p>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	b, _ := m.Rect("b")
	c, _ := m.Rect("c")
	i, _ := m.Rect("i")
	assert.InDelta(t, b.X+10, i.X, 0.001)
	assert.InDelta(t, b.Y+5, i.Y, 0.001)
	assert.InDelta(t, b.Bottom()+4, c.Y, 0.001, "tight images take no flow space")

	pos := m.Positions()
	assert.Equal(t, i.Origin(), pos["i"])

	path := m.HitTest(Point{X: i.X + 1, Y: i.Y + 1}, nil)
	assert.Equal(t, []string{doc.RootID, "i"}, path)
	path = m.HitTest(Point{X: i.X + 1, Y: i.Y + 1}, func(id string) bool { return id == "i" })
	assert.Equal(t, []string{doc.RootID, "b"}, path)
}

func TestLayoutTightImageWithMissingAnchorUsesRoot(t *testing.T) {
	d := mustDecode(t, `<div class="image-block" data-block-id="i" data-mode="tight" data-anchor="gone" data-offset-x="30" data-offset-y="40"><img src="x.png"></div>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	i, _ := m.Rect("i")
	assert.Equal(t, Point{X: 30, Y: 40}, i.Origin())
}

func TestLayoutGroup(t *testing.T) {
	d := mustDecode(t, `<div class="grid-group" data-block-id="g" data-rows="1" data-cols="2">`+
		`<div class="grid-cell" data-block-id="c1"><p data-block-id="l1"><br></p></div>`+
		`<div class="grid-cell" data-block-id="c2"><p data-block-id="l2"><br></p></div></div>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	g, _ := m.Rect("g")
	c1, _ := m.Rect("c1")
	c2, _ := m.Rect("c2")
	assert.Equal(t, Rect{X: 16, Y: 16, Width: 768, Height: 80}, g)
	assert.Equal(t, Rect{X: 16, Y: 16, Width: 380, Height: 80}, c1)
	assert.Equal(t, Rect{X: 404, Y: 16, Width: 380, Height: 80}, c2)

	assert.Equal(t, []string{doc.RootID, "g", "c2", "l2"}, m.HitTest(Point{X: 420, Y: 30}, nil))
	assert.Equal(t, []string{doc.RootID, "g", "c2"}, m.HitTest(Point{X: 420, Y: 90}, nil))
	assert.Equal(t, []string{doc.RootID, "g"}, m.HitTest(Point{X: 399, Y: 30}, nil))
	assert.Equal(t, []string{doc.RootID}, m.HitTest(Point{X: 420, Y: 500}, nil))
	assert.Equal(t, []string{doc.RootID}, m.HitTest(Point{X: 420, Y: 30}, func(id string) bool { return id == "g" }))
}

func TestLayoutGroupRowGrowsWithContent(t *testing.T) {
	lines := strings.Repeat("<p>x</p>", 6)
	d := mustDecode(t, `<div class="grid-group" data-block-id="g" data-rows="2" data-cols="1">`+
		`<div class="grid-cell" data-block-id="c1">`+lines+`</div><div class="grid-cell" data-block-id="c2"></div></div>`)
	m := NewEngine(DefaultOptions()).Layout(d)

	c1, _ := m.Rect("c1")
	c2, _ := m.Rect("c2")
	assert.InDelta(t, 8+6*(22.4+4)+8, c1.Height, 0.001)
	assert.InDelta(t, c1.Bottom()+8, c2.Y, 0.001)
	assert.Equal(t, 80.0, c2.Height)
}

func TestParseBoxShorthand(t *testing.T) {
	top, right, bottom, left := parseBoxShorthand("0 0 4px", 16, 0)
	assert.Equal(t, []float64{0, 0, 4, 0}, []float64{top, right, bottom, left})
	top, right, bottom, left = parseBoxShorthand("1em 2px", 10, 0)
	assert.Equal(t, []float64{10, 2, 10, 2}, []float64{top, right, bottom, left})
}
