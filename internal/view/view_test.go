package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStripsAffordances(t *testing.T) {
	out, err := Render(`<div class="grid-group" data-block-id="g" data-rows="1" data-cols="1">`+
		`<div class="grid-cell" data-block-id="c" contenteditable="true" draggable="true">`+
		`<p data-block-id="l" contenteditable="true">hi</p></div></div>`, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `class="grid-cell" data-block-id="c"`)
	assert.NotContains(t, out, "contenteditable")
	assert.NotContains(t, out, "draggable")
	assert.Contains(t, out, ">hi</p>")
}

func TestRenderWrapsBareImages(t *testing.T) {
	out, err := Render(`<img src="a.png" alt="a"><p>text with <img src="b.png"> inline</p>`, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="image-block"`)
	assert.Contains(t, out, `<img src="a.png" alt="a"/>`)
	assert.Contains(t, out, `text with <img src="b.png"/> inline`, "inline images stay in their line")
	assert.NotContains(t, out, "draggable")
}

func TestRenderWidgetAsPreview(t *testing.T) {
	out, err := Render(`<div class="html-widget" data-block-id="w">`+
		`<textarea class="html-source">&lt;b contenteditable=&#34;true&#34;&gt;bold&lt;/b&gt;</textarea>`+
		`<div class="html-preview"></div></div>`, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `class="html-widget read-only"`)
	assert.NotContains(t, out, "textarea")
	assert.Contains(t, out, `<div class="html-preview"><b>bold</b></div>`)
}

func TestRenderPositionsTightImages(t *testing.T) {
	out, err := Render(`<div class="image-block" data-block-id="i" data-mode="tight" data-anchor="root" `+
		`data-offset-x="10" data-offset-y="20"><img src="a.png" width="40" height="40"/></div>`, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `style="position: absolute; left: 10px; top: 20px"`)
}
