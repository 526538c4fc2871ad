package api

// Options represents configuration options for an editing session
type Options struct {
	// Viewport geometry used for hit testing and tight image placement
	ViewportWidth float64
	Padding       float64
	FontSize      float64
	// LineHeight is a multiple of the font size
	LineHeight    float64
	CellMinHeight float64
	GridGap       float64

	// Stylesheet is author CSS affecting text metrics and the format
	// painter's computed styles
	Stylesheet string

	// Resource resolution for image sizes
	BaseURL       string
	ResourcePaths []string
	Mounts        map[string]string

	// Notify receives every notice as it is raised
	Notify func(Notice)
	// NewID generates block identifiers; uuids when nil
	NewID func() string
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		ViewportWidth: 800,
		Padding:       16,
		FontSize:      16,
		LineHeight:    1.4,
		CellMinHeight: 80,
		GridGap:       8,

		ResourcePaths: []string{},
		Mounts:        map[string]string{},
	}
}

// WithViewportWidth sets the viewport width
func WithViewportWidth(width float64) Option {
	return func(o *Options) {
		o.ViewportWidth = width
	}
}

// WithPadding sets the root content padding
func WithPadding(padding float64) Option {
	return func(o *Options) {
		o.Padding = padding
	}
}

// WithFont sets the base font size and line height
func WithFont(size, lineHeight float64) Option {
	return func(o *Options) {
		o.FontSize = size
		o.LineHeight = lineHeight
	}
}

// WithGrid sets the minimum row height and the gap of grid groups
func WithGrid(cellMinHeight, gap float64) Option {
	return func(o *Options) {
		o.CellMinHeight = cellMinHeight
		o.GridGap = gap
	}
}

// WithStylesheet sets the author stylesheet
func WithStylesheet(css string) Option {
	return func(o *Options) {
		o.Stylesheet = css
	}
}

// WithBaseURL sets the URL relative image sources resolve against
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithResourcePath adds a path to search for images
func WithResourcePath(path string) Option {
	return func(o *Options) {
		o.ResourcePaths = append(o.ResourcePaths, path)
	}
}

// WithMount serves image sources starting with prefix from dir, e.g. the
// uploads URL from the uploads directory
func WithMount(prefix, dir string) Option {
	return func(o *Options) {
		if o.Mounts == nil {
			o.Mounts = map[string]string{}
		}
		o.Mounts[prefix] = dir
	}
}

// WithNotifier sets the notice callback
func WithNotifier(fn func(Notice)) Option {
	return func(o *Options) {
		o.Notify = fn
	}
}

// WithIDGenerator sets the block identifier generator
func WithIDGenerator(fn func() string) Option {
	return func(o *Options) {
		o.NewID = fn
	}
}
