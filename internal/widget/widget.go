// Package widget holds the live source buffers of HTML widgets. Edits land
// in a buffer and re-render the preview at once; Flush writes the buffers
// back into the document before it is serialized or viewed.
package widget

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/parser/html"
)

// Buffers maps widget block IDs to their unflushed source
type Buffers struct {
	mu     sync.Mutex
	live   map[string]string
	logger *slog.Logger
}

// NewBuffers creates an empty buffer set
func NewBuffers() *Buffers {
	return &Buffers{
		live:   make(map[string]string),
		logger: slog.Default().With("component", "widget"),
	}
}

func lookup(d *doc.Document, id string) (*doc.Widget, error) {
	b, ok := d.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("widget %s: %w", id, doc.ErrNotFound)
	}
	w, ok := b.(*doc.Widget)
	if !ok {
		return nil, fmt.Errorf("%s is a %s: %w", id, b.Kind(), doc.ErrInvalidParent)
	}
	return w, nil
}

// Edit replaces the live source of a widget and returns the re-rendered
// preview markup
func (b *Buffers) Edit(d *doc.Document, id, source string) (string, error) {
	if _, err := lookup(d, id); err != nil {
		return "", err
	}
	b.mu.Lock()
	b.live[id] = source
	b.mu.Unlock()
	return RenderPreview(source), nil
}

// Source returns the current source of a widget, buffered or flushed
func (b *Buffers) Source(d *doc.Document, id string) (string, error) {
	w, err := lookup(d, id)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.live[id]; ok {
		return s, nil
	}
	return w.Source, nil
}

// Live returns the unflushed source of a widget, if any
func (b *Buffers) Live(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.live[id]
	return s, ok
}

// Dirty reports whether any buffer holds an unflushed edit
func (b *Buffers) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live) > 0
}

// Flush writes every buffered source into its widget and empties the
// buffers. Buffers of widgets that were deleted meanwhile are dropped.
func (b *Buffers) Flush(d *doc.Document) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, source := range b.live {
		w, err := lookup(d, id)
		if err != nil {
			b.logger.Debug("dropping buffer of removed widget", "widget", id)
			continue
		}
		w.Source = source
		n++
	}
	b.live = make(map[string]string)
	return n
}

// Reset drops all buffered edits
func (b *Buffers) Reset() {
	b.mu.Lock()
	b.live = make(map[string]string)
	b.mu.Unlock()
}

// RenderPreview renders widget source as preview markup
func RenderPreview(source string) string {
	return html.RenderString(doc.Preview(source))
}
