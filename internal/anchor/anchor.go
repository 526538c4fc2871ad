// Package anchor positions tight images. A tight image stores the ID of its
// anchor block and an offset from the anchor's top-left corner; its rendered
// position is always derived from the anchor's current box.
package anchor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/layout"
)

// ErrNotImage is returned when an ID does not name an image block
var ErrNotImage = errors.New("block is not an image")

func image(d *doc.Document, id string) (*doc.Image, error) {
	b, ok := d.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, doc.ErrNotFound)
	}
	img, ok := b.(*doc.Image)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotImage)
	}
	return img, nil
}

// Enclosing returns the anchor for an image entering tight mode: the grid
// cell around it, or the root
func Enclosing(d *doc.Document, imageID string) string {
	for _, a := range d.Ancestors(imageID) {
		if b, ok := d.Lookup(a); ok && b.Kind() == doc.KindCell {
			return a
		}
	}
	return doc.RootID
}

// Resolve returns the deepest block under p that can anchor the image self:
// neither self nor another tight image. It falls back to the root.
func Resolve(d *doc.Document, m *layout.Map, p layout.Point, self string) string {
	path := m.HitTest(p, func(id string) bool {
		if id == self {
			return true
		}
		img, ok := lookupImage(d, id)
		return ok && img.Tight()
	})
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] != self && d.Exists(path[i]) {
			return path[i]
		}
	}
	return doc.RootID
}

func lookupImage(d *doc.Document, id string) (*doc.Image, bool) {
	b, ok := d.Lookup(id)
	if !ok {
		return nil, false
	}
	img, ok := b.(*doc.Image)
	return img, ok
}

// origin is the top-left of an anchor, the root's when it is unknown
func origin(m *layout.Map, anchor string) layout.Point {
	if r, ok := m.Rect(anchor); ok {
		return r.Origin()
	}
	return m.Root.Rect.Origin()
}

// Position is the rendered top-left of a tight image
func Position(m *layout.Map, img *doc.Image) layout.Point {
	o := origin(m, img.Anchor)
	return layout.Point{X: o.X + img.OffsetX, Y: o.Y + img.OffsetY}
}

// Place makes the image tight, anchored to anchorID, so that it renders with
// its top-left at pos
func Place(d *doc.Document, m *layout.Map, imageID, anchorID string, pos layout.Point) error {
	img, err := image(d, imageID)
	if err != nil {
		return err
	}
	if anchorID == "" || anchorID == imageID || !d.Exists(anchorID) {
		anchorID = doc.RootID
	}
	o := origin(m, anchorID)
	img.Mode = doc.ModeTight
	img.Anchor = anchorID
	img.OffsetX = pos.X - o.X
	img.OffsetY = pos.Y - o.Y
	return nil
}

// Enter switches a flow image to tight mode at its current rendered spot
func Enter(d *doc.Document, m *layout.Map, imageID string) error {
	img, err := image(d, imageID)
	if err != nil {
		return err
	}
	if img.Tight() {
		return nil
	}
	r, ok := m.Rect(imageID)
	if !ok {
		return fmt.Errorf("image %s has no layout: %w", imageID, doc.ErrNotFound)
	}
	return Place(d, m, imageID, Enclosing(d, imageID), r.Origin())
}

// Leave returns an image to the flow at its tree position
func Leave(d *doc.Document, imageID string) error {
	img, err := image(d, imageID)
	if err != nil {
		return err
	}
	img.Mode = doc.ModeFlow
	img.Anchor = ""
	img.OffsetX, img.OffsetY = 0, 0
	return nil
}

// Rebase re-anchors every tight image whose anchor no longer exists to the
// root, keeping the position it had in m (the layout from before the
// anchor went away). It returns the IDs of the rebased images.
func Rebase(d *doc.Document, m *layout.Map) []string {
	var rebased []string
	for _, img := range d.Images() {
		if !img.Tight() || img.Anchor == doc.RootID || d.Exists(img.Anchor) {
			continue
		}
		pos := layout.Point{X: img.OffsetX, Y: img.OffsetY}
		if m != nil {
			pos = Position(m, img)
		}
		slog.Default().With("component", "anchor").Warn("anchor removed, rebasing image to root",
			"image", img.BlockID, "anchor", img.Anchor)
		img.Anchor = doc.RootID
		img.OffsetX, img.OffsetY = pos.X, pos.Y
		if m != nil {
			o := m.Root.Rect.Origin()
			img.OffsetX -= o.X
			img.OffsetY -= o.Y
		}
		rebased = append(rebased, img.BlockID)
	}
	return rebased
}
