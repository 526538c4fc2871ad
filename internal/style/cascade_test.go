package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gm6nx/blockedit/internal/parser/css"
	"github.com/gm6nx/blockedit/internal/parser/html"
)

func firstElement(t *testing.T, root *html.Node, tag string) *html.Node {
	t.Helper()
	var found *html.Node
	html.Walk(root, func(n *html.Node) bool {
		if found == nil && html.IsElement(n, tag) {
			found = n
		}
		return found == nil
	})
	require.NotNil(t, found, tag)
	return found
}

func TestCascadeOrder(t *testing.T) {
	doc, err := html.NewParser().ParseString(
		`<div class="note" id="main"><p class="lead" style="color: green">x <b>y</b></p></div>`)
	require.NoError(t, err)

	sheet, err := css.NewParser().ParseString(`
		p { color: red; font-size: 2em; }
		.note p { color: blue; font-family: Georgia; }
		#main .lead { margin: 0; }
		b { color: purple !important; }
	`)
	require.NoError(t, err)
	e := NewStyleEngine()
	e.AddStylesheet(sheet)

	p := firstElement(t, doc.Root, "p")
	st := e.Computed(p)
	assert.Equal(t, "green", st.Value("color"))
	assert.Equal(t, SourceInline, st["color"].Source)
	assert.Equal(t, "32px", st.Value("font-size"))
	assert.Equal(t, "0", st.Value("margin"))

	b := firstElement(t, doc.Root, "b")
	bs := e.Computed(b)
	assert.Equal(t, "purple", bs.Value("color"))
	assert.Equal(t, "bold", bs.Value("font-weight"))
	assert.Equal(t, "Georgia", bs.Value("font-family"))
	assert.Equal(t, SourceInherited, bs["font-family"].Source)
	assert.Equal(t, "32px", bs.Value("font-size"))

	all := e.ComputeStyles(doc)
	assert.Equal(t, "green", all[p].Value("color"))
}

func TestFontPresentationalHints(t *testing.T) {
	nodes, err := html.ParseFragment(`<p><font color="#f00" face="Courier" size="5">big</font></p>`)
	require.NoError(t, err)
	font := firstElement(t, nodes[0], "font")

	st := NewStyleEngine().Computed(font)
	assert.Equal(t, "#f00", st.Value("color"))
	assert.Equal(t, "Courier", st.Value("font-family"))
	assert.Equal(t, "24px", st.Value("font-size"))
}

func TestTextDecorationLine(t *testing.T) {
	nodes, err := html.ParseFragment(`<p><u>a</u><span style="text-decoration: red wavy line-through">b</span></p>`)
	require.NoError(t, err)
	e := NewStyleEngine()
	assert.Equal(t, "underline", e.Cascade(firstElement(t, nodes[0], "u")).Value("text-decoration-line"))
	assert.Equal(t, "line-through", e.Cascade(firstElement(t, nodes[0], "span")).Value("text-decoration-line"))
}

func TestParsePixels(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 7},
		{"12px", 12},
		{"1.5em", 30},
		{"2rem", 32},
		{"12pt", 16},
		{"50%", 10},
		{"large", 18},
		{"smaller", 20 * 0.83},
		{"14", 14},
		{"auto", 7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePixels(tt.in, 20, 7), 1e-9)
		})
	}
	assert.Equal(t, "12.5px", FormatPixels(12.5))
}
