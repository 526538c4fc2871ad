// Package dnd is the drag and drop state machine. A gesture starts with a
// payload, keeps a live drop target with its visual markers while the
// pointer moves, and commits exactly one command on drop.
package dnd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gm6nx/blockedit/internal/anchor"
	"github.com/gm6nx/blockedit/internal/classify"
	"github.com/gm6nx/blockedit/internal/command"
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/grid"
	"github.com/gm6nx/blockedit/internal/layout"
)

var (
	// ErrNoPayload is returned when a drag operation needs an active gesture
	ErrNoPayload = errors.New("no drag in progress")
	// ErrNotDraggable is returned when a gesture starts on a block that
	// cannot be dragged
	ErrNotDraggable = errors.New("block is not draggable")
)

// State of the engine
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// PayloadKind classifies the origin of a gesture
type PayloadKind int

const (
	PayloadCell PayloadKind = iota
	PayloadFlowImage
	PayloadTightImage
	PayloadLine
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadCell:
		return "cell"
	case PayloadFlowImage:
		return "flow-image"
	case PayloadTightImage:
		return "tight-image"
	case PayloadLine:
		return "line"
	}
	return "unknown"
}

// Payload is the block being dragged
type Payload struct {
	Kind   PayloadKind
	ID     string
	Origin string // container the block was dragged from
	// Pointer and Start are the pointer and the block's top-left when the
	// gesture began
	Pointer layout.Point
	Start   layout.Point
}

// Edge is the side of a marked block
type Edge int

const (
	EdgeBefore Edge = iota
	EdgeAfter
	EdgeAppend
)

func (e Edge) String() string {
	switch e {
	case EdgeBefore:
		return "before"
	case EdgeAfter:
		return "after"
	}
	return "append"
}

// Marker is a visual drop indicator on a block
type Marker struct {
	Block string
	Edge  Edge
}

// Target is a resolved drop target
type Target struct {
	At    classify.InsertPoint
	Group bool // the target container is a grid group
}

// File is an externally dropped file
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores an image and returns its URL
type Uploader interface {
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
}

// Engine is the drag and drop state machine of one editing session
type Engine struct {
	state   State
	payload *Payload
	target  *Target
	markers []Marker
	live    layout.Point
	logger  *slog.Logger
}

// New creates an idle engine
func New() *Engine {
	return &Engine{logger: slog.Default().With("component", "dnd")}
}

// State returns the current state
func (e *Engine) State() State { return e.state }

// Payload returns the active payload
func (e *Engine) Payload() (Payload, bool) {
	if e.payload == nil {
		return Payload{}, false
	}
	return *e.payload, true
}

// Markers returns the current visual markers
func (e *Engine) Markers() []Marker {
	return append([]Marker(nil), e.markers...)
}

// LivePosition is the top-left of a tight image being dragged
func (e *Engine) LivePosition() (layout.Point, bool) {
	if e.payload == nil || e.payload.Kind != PayloadTightImage {
		return layout.Point{}, false
	}
	return e.live, true
}

// Classify determines the payload for a gesture starting on block id. A
// widget inside a cell drags its cell.
func Classify(d *doc.Document, id string) (PayloadKind, string, error) {
	b, ok := d.Lookup(id)
	if !ok {
		return 0, "", fmt.Errorf("drag %s: %w", id, doc.ErrNotFound)
	}
	switch v := b.(type) {
	case *doc.Cell:
		return PayloadCell, id, nil
	case *doc.Image:
		if v.Tight() {
			return PayloadTightImage, id, nil
		}
		return PayloadFlowImage, id, nil
	case *doc.TextLine:
		return PayloadLine, id, nil
	case *doc.Widget:
		if parent, _ := d.Parent(id); parent != doc.RootID {
			return PayloadCell, parent, nil
		}
	}
	return 0, "", fmt.Errorf("drag %s: %w", b.Kind(), ErrNotDraggable)
}

// Start begins a gesture on block id at pointer p, replacing any previous
// payload
func (e *Engine) Start(d *doc.Document, m *layout.Map, id string, p layout.Point) error {
	kind, pid, err := Classify(d, id)
	if err != nil {
		return err
	}
	e.reset()
	origin, _ := d.Parent(pid)
	start := p
	if r, ok := m.Rect(pid); ok {
		start = r.Origin()
	}
	e.payload = &Payload{Kind: kind, ID: pid, Origin: origin, Pointer: p, Start: start}
	e.live = start
	e.state = Dragging
	e.logger.Debug("drag start", "kind", kind, "block", pid)
	return nil
}

// Over recomputes the drop target for pointer p and replaces the markers
func (e *Engine) Over(d *doc.Document, m *layout.Map, p layout.Point) (Target, error) {
	if e.payload == nil {
		return Target{}, ErrNoPayload
	}
	if e.payload.Kind == PayloadTightImage {
		e.live = layout.Point{
			X: e.payload.Start.X + p.X - e.payload.Pointer.X,
			Y: e.payload.Start.Y + p.Y - e.payload.Pointer.Y,
		}
		e.markers = nil
		return Target{}, nil
	}
	t := e.resolve(d, m, p)
	e.target = &t
	e.markers = markersFor(t)
	return t, nil
}

// Target returns the last target computed by Over
func (e *Engine) Target() (Target, bool) {
	if e.target == nil {
		return Target{}, false
	}
	return *e.target, true
}

// skipTight makes tight images transparent to drop targeting
func skipTight(d *doc.Document) func(string) bool {
	return func(id string) bool {
		b, ok := d.Lookup(id)
		if !ok {
			return false
		}
		img, ok := b.(*doc.Image)
		return ok && img.Tight()
	}
}

func (e *Engine) resolve(d *doc.Document, m *layout.Map, p layout.Point) Target {
	skip := skipTight(d)
	path := m.HitTest(p, skip)
	if g, ok := classify.Innermost(d, path, doc.KindGroup); ok {
		return Target{At: classify.ResolveInsertPosition(d, m, g.ID(), p, skip), Group: true}
	}
	return Target{At: classify.ResolveInsertPosition(d, m, doc.RootID, p, skip)}
}

func markersFor(t Target) []Marker {
	switch {
	case t.At.Reference != "" && t.At.Position == classify.Before:
		return []Marker{{Block: t.At.Reference, Edge: EdgeBefore}}
	case t.At.Reference != "":
		return []Marker{{Block: t.At.Reference, Edge: EdgeAfter}}
	case t.Group:
		return []Marker{{Block: t.At.Container, Edge: EdgeAppend}}
	}
	return nil
}

// Drop commits the gesture at pointer p. It returns the applied command, or
// nil when the drop resolved to nothing actionable; the engine is idle
// afterwards either way.
func (e *Engine) Drop(d *doc.Document, m *layout.Map, p layout.Point) (command.Command, error) {
	defer e.reset()
	if e.payload == nil {
		return nil, nil
	}
	pl := *e.payload
	if !d.Exists(pl.ID) {
		return nil, nil
	}

	var cmd command.Command
	if pl.Kind == PayloadTightImage {
		pos := layout.Point{X: pl.Start.X + p.X - pl.Pointer.X, Y: pl.Start.Y + p.Y - pl.Pointer.Y}
		a := anchor.Resolve(d, m, p, pl.ID)
		o := m.Root.Rect.Origin()
		if r, ok := m.Rect(a); ok {
			o = r.Origin()
		}
		cmd = &command.SetAnchor{Image: pl.ID, Tight: true, Anchor: a, OffsetX: pos.X - o.X, OffsetY: pos.Y - o.Y}
	} else {
		t := e.resolve(d, m, p)
		cmd = commit(pl, t)
	}
	if cmd == nil {
		return nil, nil
	}
	if err := cmd.Apply(d); err != nil {
		e.logger.Debug("drop discarded", "kind", pl.Kind, "block", pl.ID, "err", err)
		return nil, nil
	}
	e.logger.Debug("drop", "kind", pl.Kind, "block", pl.ID, "command", cmd.Name())
	return cmd, nil
}

func commit(pl Payload, t Target) command.Command {
	// dropped onto itself or onto its own cell
	if t.At.Reference == pl.ID || (t.Group && t.At.Reference == pl.Origin) {
		return nil
	}
	switch pl.Kind {
	case PayloadCell:
		if t.Group {
			return &command.Move{ID: pl.ID, At: t.At}
		}
		return &command.ExtractCell{Cell: pl.ID, At: t.At}
	case PayloadFlowImage, PayloadLine:
		if t.Group {
			return &command.WrapInCell{ID: pl.ID, At: t.At}
		}
		return &command.Move{ID: pl.ID, At: t.At}
	}
	return nil
}

// DropFile uploads an externally dropped image and inserts it at the drop
// target. Files that are not images are ignored. On upload failure the
// document is left unchanged and the error is returned.
func (e *Engine) DropFile(ctx context.Context, d *doc.Document, m *layout.Map, p layout.Point, f File, up Uploader) (command.Command, error) {
	e.reset()
	if !IsImage(f) {
		e.logger.Debug("ignoring dropped non-image file", "name", f.Name)
		return nil, nil
	}
	url, err := up.UploadImage(ctx, f.Name, f.Data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	path := m.HitTest(p, nil)
	img := &doc.Image{BlockID: d.GenerateID(), Src: url, Alt: f.Name}
	var cmd command.Command
	if g, ok := classify.Innermost(d, path, doc.KindGroup); ok {
		at := classify.ResolveInsertPosition(d, m, g.ID(), p, nil)
		cmd = &command.Insert{Block: grid.Wrap(d, img), At: at}
	} else {
		cmd = &command.Insert{Block: img, At: classify.ResolveInsertPosition(d, m, doc.RootID, p, nil)}
	}
	if err := cmd.Apply(d); err != nil {
		return nil, err
	}
	return cmd, nil
}

// IsImage reports whether a dropped file carries an image MIME type,
// sniffing the content when no type was given
func IsImage(f File) bool {
	ct := f.ContentType
	if ct == "" {
		ct = http.DetectContentType(f.Data)
	}
	return strings.HasPrefix(strings.ToLower(ct), "image/")
}

// End cancels the gesture without touching the document
func (e *Engine) End() {
	if e.payload != nil {
		e.logger.Debug("drag cancelled", "block", e.payload.ID)
	}
	e.reset()
}

func (e *Engine) reset() {
	e.state = Idle
	e.payload = nil
	e.target = nil
	e.markers = nil
	e.live = layout.Point{}
}
