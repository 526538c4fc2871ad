// Package res loads the images a page references and probes their natural
// size, so the layout engine can size image blocks the way a browser would.
package res

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrNotImage is returned when a resource is not a decodable image
var ErrNotImage = errors.New("resource is not an image")

// Resource is a loaded resource
type Resource struct {
	URL      string
	Data     []byte
	MimeType string
}

// IsImage reports whether the resource has an image MIME type
func (r *Resource) IsImage() bool {
	return strings.HasPrefix(r.MimeType, "image/")
}

// Loader resolves image sources against a base URL or directory, local
// search paths (e.g. the uploads directory) and remote hosts
type Loader struct {
	// BaseURL resolves relative sources; a directory or an http(s) URL
	BaseURL string

	cache     map[string]*Resource
	sizes     map[string]size
	cacheLock sync.RWMutex

	searchPaths []string
	// prefixes maps a URL path prefix, such as "/uploads/", to a directory
	prefixes map[string]string

	client *http.Client
	logger *slog.Logger
}

type size struct {
	w, h float64
	ok   bool
}

// NewLoader creates a loader
func NewLoader(baseURL string) *Loader {
	return &Loader{
		BaseURL:  baseURL,
		cache:    make(map[string]*Resource),
		sizes:    make(map[string]size),
		prefixes: make(map[string]string),
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default().With("component", "res"),
	}
}

// AddSearchPath adds a directory searched by file name for local sources
// that do not exist at their resolved path
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// Mount serves sources starting with prefix from dir
func (l *Loader) Mount(prefix, dir string) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	l.prefixes[prefix] = dir
}

// Load loads a resource from a data URL, a local path or a remote URL
func (l *Loader) Load(ctx context.Context, src string) (*Resource, error) {
	l.cacheLock.RLock()
	if r, ok := l.cache[src]; ok {
		l.cacheLock.RUnlock()
		return r, nil
	}
	l.cacheLock.RUnlock()

	var (
		r   *Resource
		err error
	)
	if strings.HasPrefix(src, "data:") {
		r, err = parseDataURL(src)
	} else {
		var resolved string
		resolved, err = l.resolve(src)
		if err == nil {
			if isRemote(resolved) {
				r, err = l.loadRemote(ctx, resolved)
			} else {
				r, err = l.loadLocal(resolved)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", abbreviate(src), err)
	}

	l.cacheLock.Lock()
	l.cache[src] = r
	l.cacheLock.Unlock()
	return r, nil
}

// LoadImage loads a resource and checks that it is an image
func (l *Loader) LoadImage(ctx context.Context, src string) (*Resource, error) {
	r, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if !r.IsImage() {
		return nil, fmt.Errorf("%s: %w", abbreviate(src), ErrNotImage)
	}
	return r, nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func abbreviate(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// parseDataURL parses a data URL (RFC 2397), e.g.
// data:image/png;base64,<base64> or data:text/plain,Hello%20World
func parseDataURL(u string) (*Resource, error) {
	s := strings.TrimPrefix(u, "data:")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URL")
	}
	meta, payload := parts[0], parts[1]

	mime := "application/octet-stream"
	isBase64 := false
	if meta != "" {
		comps := strings.Split(meta, ";")
		if comps[0] != "" {
			mime = strings.ToLower(comps[0])
		}
		for _, c := range comps[1:] {
			if strings.EqualFold(strings.TrimSpace(c), "base64") {
				isBase64 = true
			}
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data URL: %w", err)
		}
	} else if d, err := url.QueryUnescape(payload); err == nil {
		data = []byte(d)
	} else {
		data = []byte(payload)
	}
	return &Resource{URL: u, Data: data, MimeType: mime}, nil
}

// resolve turns a source into an absolute URL or file path
func (l *Loader) resolve(src string) (string, error) {
	if isRemote(src) {
		return src, nil
	}
	for prefix, dir := range l.prefixes {
		if strings.HasPrefix(src, prefix) {
			return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(src, prefix))), nil
		}
	}
	if isRemote(l.BaseURL) {
		base, err := url.Parse(l.BaseURL)
		if err != nil {
			return "", err
		}
		rel, err := url.Parse(src)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(rel).String(), nil
	}
	if filepath.IsAbs(src) || l.BaseURL == "" {
		return src, nil
	}
	return filepath.Join(l.BaseURL, src), nil
}

func (l *Loader) loadRemote(ctx context.Context, u string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &Resource{URL: u, Data: data, MimeType: strings.TrimSpace(mime)}, nil
}

func (l *Loader) loadLocal(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l.loadFromSearchPaths(path)
	}
	if err != nil {
		return nil, err
	}
	return &Resource{URL: path, Data: data, MimeType: MimeType(path, data)}, nil
}

func (l *Loader) loadFromSearchPaths(filename string) (*Resource, error) {
	base := filepath.Base(filename)
	for _, dir := range l.searchPaths {
		path := filepath.Join(dir, base)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return &Resource{URL: path, Data: data, MimeType: MimeType(path, data)}, nil
	}
	return nil, fmt.Errorf("resource not found: %s", filename)
}

// MimeType determines the MIME type of a file from its extension, sniffing
// the content for unknown extensions
func MimeType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".ico":
		return "image/x-icon"
	case ".svg":
		return "image/svg+xml"
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return strings.TrimSpace(strings.SplitN(http.DetectContentType(data), ";", 2)[0])
}
