package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	root := newRootCommand(&app{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blockedit.yaml")
	cfg := "store:\n" +
		"  path: " + filepath.Join(dir, "pages.db") + "\n" +
		"  uploads_dir: " + filepath.Join(dir, "uploads") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestNormalizeFromStdin(t *testing.T) {
	out, err := run(t, `<p>Hello</p><br><div>World</div>`, "normalize")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "<p data-block-id="))
	assert.NotContains(t, out, "<div")
}

func TestViewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p contenteditable="true">hi</p>`), 0o644))

	out, err := run(t, "", "view", path, "--width", "600")
	require.NoError(t, err)
	assert.Contains(t, out, ">hi</p>")
	assert.NotContains(t, out, "contenteditable")
}

func TestImportPrintsMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nbody\n"), 0o644))

	out, err := run(t, "", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, ">Title</h1>")
}

func TestPageLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "page", "get", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome")

	_, err = run(t, "", "--config", cfg, "page", "create", "about", "About")
	require.NoError(t, err)

	out, err = run(t, `<p>About us</p><img src="team.png">`, "--config", cfg, "page", "put", "about")
	require.NoError(t, err)
	assert.Contains(t, out, "saved about (2 blocks)")

	out, err = run(t, "", "--config", cfg, "page", "get", "about")
	require.NoError(t, err)
	assert.Contains(t, out, `class="image-block"`)

	out, err = run(t, "", "--config", cfg, "page", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "about")
	assert.Contains(t, out, "home")

	out, err = run(t, "", "--config", cfg, "view", "--page", "about")
	require.NoError(t, err)
	assert.NotContains(t, out, "draggable")

	_, err = run(t, "", "--config", cfg, "page", "put", "missing")
	assert.Error(t, err)
}

func TestUpload(t *testing.T) {
	cfg := writeConfig(t)
	path := filepath.Join(t.TempDir(), "cat photo.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	out, err := run(t, "", "--config", cfg, "upload", path)
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/\d+-cat_photo\.png\n$`, out)
}
