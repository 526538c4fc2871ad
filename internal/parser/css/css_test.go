package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStylesheet(t *testing.T) {
	sheet, err := NewParser().ParseString(`
		/* headings */
		@import "base.css";
		h1, h2 { font-weight: bold; color: red !important }
		@media print { p { color: black } }
		.hero { background: url(data:image/png;base64,AAAA); }
		broken
	`)
	require.NoError(t, err)
	require.Len(t, sheet.Rules, 2)

	assert.Equal(t, []string{"h1", "h2"}, sheet.Rules[0].Selectors)
	require.Len(t, sheet.Rules[0].Declarations, 2)
	assert.Equal(t, "red", sheet.Rules[0].Declarations[1].Value)
	assert.True(t, sheet.Rules[0].Declarations[1].Important)

	v, ok := Lookup(sheet.Rules[1].Declarations, "background")
	require.True(t, ok)
	assert.Equal(t, "url(data:image/png;base64,AAAA)", v)
}

func TestInlineRoundTrip(t *testing.T) {
	decls := ParseInline("Color: red; ; font-weight:bold; width: ; font-size: 12px !important")
	require.Len(t, decls, 3)
	assert.Equal(t, "color", decls[0].Property)
	assert.Equal(t, "color: red; font-weight: bold; font-size: 12px !important", FormatInline(decls))

	_, ok := Lookup(decls, "width")
	assert.False(t, ok)
	v, ok := Lookup(append(decls, &Declaration{Property: "color", Value: "blue"}), "COLOR")
	require.True(t, ok)
	assert.Equal(t, "blue", v)
}
