package res

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	// Register a broad set of decoders so image.DecodeConfig can probe
	// every format the editor accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// probeTimeout bounds remote loads made on behalf of the layout engine
const probeTimeout = 5 * time.Second

// Probe decodes the header of an image and returns its natural size and
// format name
func Probe(data []byte) (w, h int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// ImageSize returns the natural size of the image at src. Failures are
// remembered and reported as !ok; the layout engine then uses its default
// size.
func (l *Loader) ImageSize(src string) (float64, float64, bool) {
	l.cacheLock.RLock()
	s, cached := l.sizes[src]
	l.cacheLock.RUnlock()
	if cached {
		return s.w, s.h, s.ok
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	s = size{}
	if r, err := l.Load(ctx, src); err != nil {
		l.logger.Debug("image unavailable", "src", abbreviate(src), "err", err)
	} else if w, h, _, err := Probe(r.Data); err != nil {
		l.logger.Debug("image not decodable", "src", abbreviate(src), "err", err)
	} else {
		s = size{w: float64(w), h: float64(h), ok: true}
	}

	l.cacheLock.Lock()
	l.sizes[src] = s
	l.cacheLock.Unlock()
	return s.w, s.h, s.ok
}
