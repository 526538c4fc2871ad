// Package blockedit is a block-structured page editor core: it normalizes
// page markup into text lines, images, grid groups and HTML widgets, and
// edits that model through drag and drop, grid, anchoring and format
// painter gestures.
package blockedit

import (
	"github.com/gm6nx/blockedit/pkg/api"
)

type Editor = api.Editor
type Options = api.Options
type Option = api.Option
type PageStore = api.PageStore
type Notice = api.Notice
type NoticeLevel = api.NoticeLevel

func New(store PageStore, opts ...Option) *Editor { return api.New(store, opts...) }
func NewWithOptions(store PageStore, options Options) *Editor {
	return api.NewWithOptions(store, options)
}
func DefaultOptions() Options { return api.DefaultOptions() }
func View(markup string, opts ...Option) (string, error) {
	return api.View(markup, opts...)
}

var (
	WithViewportWidth = api.WithViewportWidth
	WithPadding       = api.WithPadding
	WithFont          = api.WithFont
	WithGrid          = api.WithGrid
	WithStylesheet    = api.WithStylesheet
	WithBaseURL       = api.WithBaseURL
	WithResourcePath  = api.WithResourcePath
	WithMount         = api.WithMount
	WithNotifier      = api.WithNotifier
	WithIDGenerator   = api.WithIDGenerator
)

var (
	ErrNoStore  = api.ErrNoStore
	ErrNoPage   = api.ErrNoPage
	ErrNotImage = api.ErrNotImage
)

const (
	NoticeInfo    = api.NoticeInfo
	NoticeWarning = api.NoticeWarning
	NoticeError   = api.NoticeError
)
