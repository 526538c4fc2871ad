package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) []*Node {
	t.Helper()
	nodes, err := ParseFragment(markup)
	require.NoError(t, err)
	return nodes
}

func TestParseFragmentRoundTrip(t *testing.T) {
	nodes := parse(t, `<p class="a b">one</p>text<img src="x.png">`)
	require.Len(t, nodes, 3)
	assert.True(t, IsElement(nodes[0], "p"))
	assert.True(t, HasClass(nodes[0], "b"))
	assert.True(t, IsText(nodes[1]))
	assert.Equal(t, `<p class="a b">one</p>text<img src="x.png"/>`, RenderString(nodes))
}

func TestSplitAt(t *testing.T) {
	nodes := DetachAll(Children(parse(t, `<p>ab<b>cd</b>ef</p>`)[0]))
	left, right := SplitAt(nodes, 3)
	assert.Equal(t, "ab<b>c</b>", RenderString(left))
	assert.Equal(t, "<b>d</b>ef", RenderString(right))

	left, right = SplitAt(DetachAll(Children(parse(t, `<p>ab</p>`)[0])), 0)
	assert.Empty(t, left)
	assert.Equal(t, "ab", TextContent(right))
}

func TestSplitAtBreaks(t *testing.T) {
	nodes := DetachAll(Children(parse(t, `<p>one<br><i>two<br>three</i><br></p>`)[0]))
	segs := SplitAtBreaks(nodes)
	require.Len(t, segs, 4)
	assert.Equal(t, "one", RenderString(segs[0]))
	assert.Equal(t, "<i>two</i>", RenderString(segs[1]))
	assert.Equal(t, "<i>three</i>", RenderString(segs[2]))
	assert.True(t, IsBlank(segs[3]))
}

func TestAttrHelpers(t *testing.T) {
	el := NewElement("div")
	SetAttr(el, "data-x", "1")
	SetAttr(el, "data-x", "2")
	v, ok := Attr(el, "data-x")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	RemoveAttr(el, "data-x")
	_, ok = Attr(el, "data-x")
	assert.False(t, ok)

	AppendChild(el, NewText("héllo"))
	assert.Equal(t, 5, TextLen([]*Node{el}))
	assert.False(t, IsBlank([]*Node{el}))
	assert.True(t, IsBlank([]*Node{NewText("  "), NewElement("br")}))
}
