package dnd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gm6nx/blockedit/internal/command"
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, markup string) *doc.Document {
	t.Helper()
	n := 0
	d, err := doc.Decode(markup, func() string {
		n++
		return fmt.Sprintf("n%d", n)
	})
	require.NoError(t, err)
	return d
}

func layoutOf(d *doc.Document) *layout.Map {
	return layout.NewEngine(layout.DefaultOptions()).Layout(d)
}

func ids(blocks []doc.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.ID())
	}
	return out
}

const imageAndGroup = `<img data-block-id="img" src="x.png" width="40" height="40">` +
	`<div class="grid-group" data-block-id="g" data-rows="1" data-cols="2">` +
	`<div class="grid-cell" data-block-id="c1"><p data-block-id="l1">one</p></div>` +
	`<div class="grid-cell" data-block-id="c2"><p data-block-id="l2">two</p></div></div>`

func TestDropFlowImageIntoGroupAppendsCell(t *testing.T) {
	d := decode(t, imageAndGroup)
	m := layoutOf(d)
	e := New()

	require.NoError(t, e.Start(d, m, "img", layout.Point{X: 20, Y: 20}))
	assert.Equal(t, Dragging, e.State())

	// the gap between the two cells belongs to the group only
	over := layout.Point{X: 399, Y: 100}
	target, err := e.Over(d, m, over)
	require.NoError(t, err)
	assert.True(t, target.Group)
	assert.Equal(t, "g", target.At.Container)
	assert.Empty(t, target.At.Reference)
	assert.Equal(t, []Marker{{Block: "g", Edge: EdgeAppend}}, e.Markers())

	cmd, err := e.Drop(d, m, over)
	require.NoError(t, err)
	require.IsType(t, &command.WrapInCell{}, cmd)
	assert.Equal(t, Idle, e.State())
	assert.Empty(t, e.Markers())

	assert.Equal(t, []string{"g"}, ids(d.Blocks))
	g := d.Blocks[0].(*doc.Group)
	assert.Equal(t, 2, g.Rows)
	require.Len(t, g.Cells, 4)
	assert.Equal(t, []string{"img"}, ids(g.Cells[2].Blocks))
}

func TestDropLineBeforeAndAfter(t *testing.T) {
	d := decode(t, `<p data-block-id="a">a</p><p data-block-id="b">b</p><p data-block-id="c">c</p>`)
	m := layoutOf(d)
	b, _ := m.Rect("b")
	e := New()

	require.NoError(t, e.Start(d, m, "a", layout.Point{X: 20, Y: 20}))
	_, err := e.Over(d, m, layout.Point{X: 100, Y: b.Y + 1})
	require.NoError(t, err)
	assert.Equal(t, []Marker{{Block: "b", Edge: EdgeBefore}}, e.Markers())
	_, err = e.Over(d, m, layout.Point{X: 100, Y: b.Bottom() - 1})
	require.NoError(t, err)
	assert.Equal(t, []Marker{{Block: "b", Edge: EdgeAfter}}, e.Markers())

	cmd, err := e.Drop(d, m, layout.Point{X: 100, Y: b.Bottom() - 1})
	require.NoError(t, err)
	require.IsType(t, &command.Move{}, cmd)
	assert.Equal(t, []string{"b", "a", "c"}, ids(d.Blocks))
}

func TestDropOntoItselfIsNoop(t *testing.T) {
	d := decode(t, `<p data-block-id="a">a</p><p data-block-id="b">b</p>`)
	m := layoutOf(d)
	before := d.HTML()
	e := New()

	require.NoError(t, e.Start(d, m, "a", layout.Point{X: 20, Y: 20}))
	cmd, err := e.Drop(d, m, layout.Point{X: 20, Y: 20})
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, before, d.HTML())

	cmd, err = e.Drop(d, m, layout.Point{X: 20, Y: 20})
	require.NoError(t, err)
	assert.Nil(t, cmd, "a drop without a gesture does nothing")
}

func TestDropBelowContentAppends(t *testing.T) {
	d := decode(t, `<p data-block-id="a">a</p><p data-block-id="b">b</p>`)
	m := layoutOf(d)
	e := New()

	require.NoError(t, e.Start(d, m, "a", layout.Point{X: 20, Y: 20}))
	_, err := e.Over(d, m, layout.Point{X: 20, Y: 1000})
	require.NoError(t, err)
	assert.Empty(t, e.Markers())
	cmd, err := e.Drop(d, m, layout.Point{X: 20, Y: 1000})
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"b", "a"}, ids(d.Blocks))
}

func TestDropCellOutsideGroupExtractsIt(t *testing.T) {
	d := decode(t, imageAndGroup+`<p data-block-id="z">z</p>`)
	m := layoutOf(d)
	z, _ := m.Rect("z")
	e := New()

	require.NoError(t, e.Start(d, m, "l1", layout.Point{X: 30, Y: 70}))
	payload, ok := e.Payload()
	require.True(t, ok)
	assert.Equal(t, PayloadLine, payload.Kind)

	require.NoError(t, e.Start(d, m, "c1", layout.Point{X: 30, Y: 70}))
	payload, _ = e.Payload()
	assert.Equal(t, PayloadCell, payload.Kind, "a new gesture replaces the payload")
	assert.Equal(t, "g", payload.Origin)

	cmd, err := e.Drop(d, m, layout.Point{X: 30, Y: z.Bottom() - 1})
	require.NoError(t, err)
	require.IsType(t, &command.ExtractCell{}, cmd)
	assert.Equal(t, []string{"img", "g", "z", "l1"}, ids(d.Blocks))
	g := d.Blocks[1].(*doc.Group)
	assert.Len(t, g.Cells, g.Rows*g.Cols)
	assert.False(t, d.Exists("c1"))
}

func TestDragTightImageReanchors(t *testing.T) {
	d := decode(t, `<p data-block-id="a">a</p><p data-block-id="b">b</p>`+
		`<div class="image-block" data-block-id="i" data-mode="tight" data-offset-x="300" data-offset-y="300"><img src="x.png" width="20" height="20"></div>`)
	m := layoutOf(d)
	b, _ := m.Rect("b")
	e := New()

	require.NoError(t, e.Start(d, m, "i", layout.Point{X: 305, Y: 305}))
	payload, _ := e.Payload()
	assert.Equal(t, PayloadTightImage, payload.Kind)
	assert.Equal(t, layout.Point{X: 300, Y: 300}, payload.Start)

	drop := layout.Point{X: 105, Y: b.Y + 7.6}
	_, err := e.Over(d, m, drop)
	require.NoError(t, err)
	live, ok := e.LivePosition()
	require.True(t, ok)
	assert.InDelta(t, 100, live.X, 0.001)
	assert.Empty(t, e.Markers())

	cmd, err := e.Drop(d, m, drop)
	require.NoError(t, err)
	require.IsType(t, &command.SetAnchor{}, cmd)

	img := d.Images()[0]
	assert.Equal(t, "b", img.Anchor)
	r, _ := layoutOf(d).Rect("i")
	assert.InDelta(t, 100, r.X, 0.001)
	assert.InDelta(t, b.Y+2.6, r.Y, 0.001)
}

func TestClassify(t *testing.T) {
	d := decode(t, imageAndGroup+
		`<div class="grid-group" data-block-id="h" data-rows="1" data-cols="1"><div class="grid-cell" data-block-id="hc">`+
		`<div class="html-widget" data-block-id="w"><textarea class="html-source">x</textarea></div></div></div>`)

	kind, id, err := Classify(d, "w")
	require.NoError(t, err)
	assert.Equal(t, PayloadCell, kind)
	assert.Equal(t, "hc", id)

	kind, _, err = Classify(d, "img")
	require.NoError(t, err)
	assert.Equal(t, PayloadFlowImage, kind)

	_, _, err = Classify(d, "g")
	assert.ErrorIs(t, err, ErrNotDraggable)
	_, _, err = Classify(d, "missing")
	assert.ErrorIs(t, err, doc.ErrNotFound)
}

func TestOverAndEndWithoutPayload(t *testing.T) {
	d := decode(t, `<p>a</p>`)
	m := layoutOf(d)
	e := New()

	_, err := e.Over(d, m, layout.Point{})
	assert.ErrorIs(t, err, ErrNoPayload)

	require.NoError(t, e.Start(d, m, d.Blocks[0].ID(), layout.Point{}))
	e.End()
	assert.Equal(t, Idle, e.State())
	_, ok := e.Payload()
	assert.False(t, ok)
}

type fakeUploader struct {
	url string
	err error
	got []string
}

func (f *fakeUploader) UploadImage(_ context.Context, name string, _ []byte) (string, error) {
	f.got = append(f.got, name)
	return f.url, f.err
}

func TestDropFile(t *testing.T) {
	png := File{Name: "cat.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	t.Run("inserts uploaded image", func(t *testing.T) {
		d := decode(t, `<p data-block-id="a">a</p>`)
		up := &fakeUploader{url: "/uploads/1-cat.png"}
		cmd, err := New().DropFile(context.Background(), d, layoutOf(d), layout.Point{X: 20, Y: 500}, png, up)
		require.NoError(t, err)
		require.NotNil(t, cmd)
		require.Len(t, d.Blocks, 2)
		img := d.Blocks[1].(*doc.Image)
		assert.Equal(t, "/uploads/1-cat.png", img.Src)
		assert.Equal(t, []string{"cat.png"}, up.got)
	})

	t.Run("into a group wraps a cell", func(t *testing.T) {
		d := decode(t, imageAndGroup)
		up := &fakeUploader{url: "/u.png"}
		_, err := New().DropFile(context.Background(), d, layoutOf(d), layout.Point{X: 399, Y: 100}, png, up)
		require.NoError(t, err)
		g := d.Blocks[1].(*doc.Group)
		require.Len(t, g.Cells, 4)
		assert.Equal(t, doc.KindImage, g.Cells[2].Blocks[0].Kind())
	})

	t.Run("upload failure leaves document unchanged", func(t *testing.T) {
		d := decode(t, `<p data-block-id="a">a</p>`)
		before := d.HTML()
		up := &fakeUploader{err: errors.New("disk full")}
		cmd, err := New().DropFile(context.Background(), d, layoutOf(d), layout.Point{}, png, up)
		assert.ErrorContains(t, err, "disk full")
		assert.Nil(t, cmd)
		assert.Equal(t, before, d.HTML())
	})

	t.Run("non-image is ignored", func(t *testing.T) {
		d := decode(t, `<p>a</p>`)
		up := &fakeUploader{}
		cmd, err := New().DropFile(context.Background(), d, layoutOf(d), layout.Point{}, File{Name: "a.txt", Data: []byte("hello")}, up)
		require.NoError(t, err)
		assert.Nil(t, cmd)
		assert.Empty(t, up.got)
	})
}
