package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gm6nx/blockedit/internal/anchor"
	"github.com/gm6nx/blockedit/internal/command"
	"github.com/gm6nx/blockedit/internal/dnd"
	"github.com/gm6nx/blockedit/internal/doc"
	"github.com/gm6nx/blockedit/internal/grid"
	"github.com/gm6nx/blockedit/internal/layout"
	"github.com/gm6nx/blockedit/internal/markdown"
	"github.com/gm6nx/blockedit/internal/painter"
	"github.com/gm6nx/blockedit/internal/parser/css"
	"github.com/gm6nx/blockedit/internal/res"
	"github.com/gm6nx/blockedit/internal/style"
	"github.com/gm6nx/blockedit/internal/view"
	"github.com/gm6nx/blockedit/internal/widget"
)

var (
	// ErrNoStore is returned by operations that need a page store when the
	// editor has none
	ErrNoStore = errors.New("no page store configured")
	// ErrNoPage is returned when saving before a page was loaded
	ErrNoPage = errors.New("no page loaded")
	// ErrNotImage is returned when inserting a file that is not an image
	ErrNotImage = errors.New("file is not an image")
)

// PageStore loads and saves page content and stores uploaded images
type PageStore interface {
	// LoadPageContent returns the saved markup of a page, or "" when the
	// page has none
	LoadPageContent(ctx context.Context, slug string) (string, error)
	SavePageContent(ctx context.Context, slug, content string) error
	// UploadImage stores an image and returns the URL it is served from
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
}

// Editor is one editing session: it owns the document of the loaded page
// and every piece of gesture state. Its methods are meant to be called from
// one goroutine; only SaveAsync does work on another.
type Editor struct {
	options Options
	store   PageStore
	loader  *res.Loader
	engine  *layout.Engine
	styles  *style.StyleEngine
	sheets  []*css.Stylesheet

	slug      string
	doc       *doc.Document
	lmap      *layout.Map
	selection grid.Selection
	drag      *dnd.Engine
	painter   *painter.Painter
	widgets   *widget.Buffers
	history   []command.Command

	mu      sync.Mutex
	notices []Notice
	logger  *slog.Logger
}

// New creates an editor with default options modified by opts. store may be
// nil for sessions that only work on markup.
func New(store PageStore, opts ...Option) *Editor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return NewWithOptions(store, options)
}

// NewWithOptions creates an editor with the specified options
func NewWithOptions(store PageStore, options Options) *Editor {
	e := &Editor{
		options: options,
		store:   store,
		loader:  newLoader(options),
		styles:  style.NewStyleEngine(),
		drag:    dnd.New(),
		widgets: widget.NewBuffers(),
		logger:  slog.Default().With("component", "editor"),
	}
	e.sheets = parseStylesheet(options.Stylesheet, e.logger)
	e.engine = layout.NewEngine(layoutOptions(options))
	e.engine.SetImageSizer(e.loader)
	e.engine.SetWidgetSources(e.widgets.Live)
	for _, s := range e.sheets {
		e.engine.AddStylesheet(s)
		e.styles.AddStylesheet(s)
	}
	e.painter = painter.New(e.styles)
	e.reset(doc.New())
	return e
}

func newLoader(options Options) *res.Loader {
	loader := res.NewLoader(options.BaseURL)
	for _, path := range options.ResourcePaths {
		loader.AddSearchPath(path)
	}
	for prefix, dir := range options.Mounts {
		loader.Mount(prefix, dir)
	}
	return loader
}

func parseStylesheet(source string, logger *slog.Logger) []*css.Stylesheet {
	if source == "" {
		return nil
	}
	sheet, err := css.NewParser().ParseString(source)
	if err != nil {
		logger.Warn("ignoring author stylesheet", "err", err)
		return nil
	}
	return []*css.Stylesheet{sheet}
}

func layoutOptions(o Options) layout.Options {
	lo := layout.DefaultOptions()
	lo.Width = o.ViewportWidth
	lo.Padding = o.Padding
	lo.FontSize = o.FontSize
	lo.LineHeight = o.LineHeight
	lo.CellMinHeight = o.CellMinHeight
	lo.GridGap = o.GridGap
	return lo
}

// reset replaces the document and drops all session state tied to the old one
func (e *Editor) reset(d *doc.Document) {
	if d.NewID == nil && e.options.NewID != nil {
		d.NewID = e.options.NewID
	}
	e.doc = d
	e.selection.Deselect()
	e.drag.End()
	e.painter.Cancel()
	e.widgets.Reset()
	e.history = nil
	if rebased := anchor.Rebase(d, nil); len(rebased) > 0 {
		e.logger.Warn("loaded images had dangling anchors", "images", rebased)
	}
	e.relayout()
}

func (e *Editor) relayout() {
	e.lmap = e.engine.Layout(e.doc)
}

// Load fetches a page from the store and starts editing it
func (e *Editor) Load(ctx context.Context, slug string) error {
	if e.store == nil {
		return ErrNoStore
	}
	content, err := e.store.LoadPageContent(ctx, slug)
	if err != nil {
		e.notify(NoticeError, "Failed to load page", err)
		return fmt.Errorf("load page %s: %w", slug, err)
	}
	if err := e.LoadHTML(content); err != nil {
		return err
	}
	e.slug = slug
	e.logger.Info("page loaded", "slug", slug, "blocks", len(e.doc.Blocks))
	return nil
}

// LoadHTML normalizes markup and starts editing it
func (e *Editor) LoadHTML(markup string) error {
	d, err := doc.Decode(markup, e.options.NewID)
	if err != nil {
		return err
	}
	e.reset(d)
	return nil
}

// ImportMarkdown converts Markdown and starts editing the result
func (e *Editor) ImportMarkdown(source []byte) error {
	d, err := markdown.Import(source, e.options.NewID)
	if err != nil {
		return err
	}
	e.reset(d)
	return nil
}

// Slug returns the loaded page
func (e *Editor) Slug() string { return e.slug }

// Document returns the edited document
func (e *Editor) Document() *doc.Document { return e.doc }

// Layout returns the geometry of the current document
func (e *Editor) Layout() *layout.Map { return e.lmap }

// History returns the commands applied since the document was loaded
func (e *Editor) History() []command.Command {
	return append([]command.Command(nil), e.history...)
}

// HTML flushes widget buffers and returns the persisted markup
func (e *Editor) HTML() string {
	e.widgets.Flush(e.doc)
	return e.doc.HTML()
}

// EditHTML returns the markup rendered for editing, with tight images
// absolutely positioned and widgets showing their live source
func (e *Editor) EditHTML() string {
	return doc.Encode(e.doc, doc.EncodeOptions{
		Mode:      doc.RenderEdit,
		Positions: e.lmap.Positions(),
		Sources:   e.widgets.Live,
	})
}

// ViewHTML flushes widget buffers and returns the read-only rendering
func (e *Editor) ViewHTML() string {
	e.widgets.Flush(e.doc)
	return view.Document(e.doc, e.viewOptions())
}

func (e *Editor) viewOptions() view.Options {
	return view.Options{Layout: e.engine.Options(), Sizer: e.loader, Stylesheets: e.sheets}
}

func (e *Editor) content() (string, error) {
	if e.store == nil {
		return "", ErrNoStore
	}
	if e.slug == "" {
		return "", ErrNoPage
	}
	return e.HTML(), nil
}

// Save serializes the document and stores it. On failure the document is
// kept so the save can be retried.
func (e *Editor) Save(ctx context.Context) error {
	content, err := e.content()
	if err != nil {
		return err
	}
	return e.save(ctx, e.slug, content)
}

// SaveAsync serializes the document now and stores it in the background.
// The channel receives the outcome. Concurrent saves are not ordered; the
// last one to finish wins.
func (e *Editor) SaveAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	content, err := e.content()
	if err != nil {
		done <- err
		close(done)
		return done
	}
	slug := e.slug
	go func() {
		defer close(done)
		done <- e.save(ctx, slug, content)
	}()
	return done
}

func (e *Editor) save(ctx context.Context, slug, content string) error {
	if err := e.store.SavePageContent(ctx, slug, content); err != nil {
		e.notify(NoticeError, "Save failed", err)
		return fmt.Errorf("save page %s: %w", slug, err)
	}
	e.notify(NoticeInfo, "Page saved", nil)
	return nil
}

// Apply runs a command against the document and relays it out
func (e *Editor) Apply(cmd command.Command) error {
	if err := cmd.Apply(e.doc); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	e.commit(cmd)
	return nil
}

// commit records a command that was already applied
func (e *Editor) commit(cmd command.Command) {
	e.history = append(e.history, cmd)
	e.relayout()
	e.logger.Debug("command applied", "command", cmd.Name(), "history", len(e.history))
}

// ResizeViewport changes the viewport width and relays out the document
func (e *Editor) ResizeViewport(width float64) {
	e.options.ViewportWidth = width
	e.engine.SetOptions(layoutOptions(e.options))
	e.relayout()
}

// View renders stored page markup read-only
func View(markup string, opts ...Option) (string, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return view.Render(markup, view.Options{
		Layout:      layoutOptions(options),
		Sizer:       newLoader(options),
		Stylesheets: parseStylesheet(options.Stylesheet, slog.Default().With("component", "view")),
	})
}
