package layout

import (
	"github.com/gm6nx/blockedit/internal/doc"
)

// Default box for an image whose size is neither declared nor probed
const (
	DefaultImageWidth  = 200.0
	DefaultImageHeight = 150.0
)

// ImageSizer reports the natural size of an image source
type ImageSizer interface {
	ImageSize(src string) (width, height float64, ok bool)
}

// imageSize sizes an image from its declared attributes, then the sizer,
// then the default, scaled down to fit maxWidth with its aspect ratio kept.
func (e *Engine) imageSize(img *doc.Image, maxWidth float64) (float64, float64) {
	w, h := img.Width, img.Height
	if (w <= 0 || h <= 0) && e.sizer != nil {
		if nw, nh, ok := e.sizer.ImageSize(img.Src); ok && nw > 0 && nh > 0 {
			switch {
			case w > 0:
				h = w * nh / nw
			case h > 0:
				w = h * nw / nh
			default:
				w, h = nw, nh
			}
		}
	}
	if w <= 0 || h <= 0 {
		w, h = DefaultImageWidth, DefaultImageHeight
	}
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	return w, h
}
