// Package view turns stored page markup into its read-only rendering
package view

import (
	"fmt"
	"log/slog"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/gm6nx/blockedit/internal/parser/css"
)

// Options configures the viewer
type Options struct {
	// Layout is the geometry used to place tight images
	Layout layout.Options
	// Sizer reports natural image sizes; images without declared size
	// take the layout default when nil
	Sizer layout.ImageSizer
	// Stylesheets are author styles that affect text metrics
	Stylesheets []*css.Stylesheet
}

// Render normalizes markup and renders it read-only: editing attributes
// are stripped, bare images are wrapped as image blocks, widgets show only
// their preview and tight images are absolutely positioned.
func Render(markup string, opts Options) (string, error) {
	d, err := doc.Decode(markup, nil)
	if err != nil {
		return "", fmt.Errorf("view: %w", err)
	}
	return Document(d, opts), nil
}

// Document renders an already decoded document read-only. The document is
// not modified.
func Document(d *doc.Document, opts Options) string {
	e := layout.NewEngine(opts.Layout)
	if opts.Sizer != nil {
		e.SetImageSizer(opts.Sizer)
	}
	for _, s := range opts.Stylesheets {
		e.AddStylesheet(s)
	}
	m := e.Layout(d)
	slog.Default().With("component", "view").Debug("rendering read-only view",
		"blocks", len(d.Blocks), "width", e.Options().Width)
	return doc.Encode(d, doc.EncodeOptions{Mode: doc.RenderView, Positions: m.Positions()})
}
