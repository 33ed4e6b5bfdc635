// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// thumbs.go renders bounded-size JPEG thumbnails from the library's
// images. This is the expensive per-item computation the thumbnail route
// caches: decoding and rescaling a large photo dwarfs the cost of the
// request itself.
package gallery

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding
	"os"

	"golang.org/x/image/draw"
)

const (
	// DefaultThumbEdge is the bounding box for generated thumbnails.
	DefaultThumbEdge = 320

	// thumbQuality is the JPEG quality for thumbnail output.
	thumbQuality = 80
)

// Thumbnailer renders thumbnails for library items.
type Thumbnailer struct {
	library *Library
	maxEdge int
}

// NewThumbnailer creates a thumbnailer over the library. maxEdge bounds
// the longer side of the output; 0 uses the default.
func NewThumbnailer(library *Library, maxEdge int) *Thumbnailer {
	if maxEdge <= 0 {
		maxEdge = DefaultThumbEdge
	}
	return &Thumbnailer{library: library, maxEdge: maxEdge}
}

// Render decodes the image at the album-rooted path and returns JPEG
// thumbnail bytes no larger than maxEdge on either side. Images already
// inside the bounding box are re-encoded without upscaling.
func (t *Thumbnailer) Render(rel string) ([]byte, error) {
	abs, err := t.library.Abs(rel)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %q: %w", rel, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("thumbnail decode %q: %w", rel, err)
	}

	dst := src
	bounds := src.Bounds()
	if w, h := bounds.Dx(), bounds.Dy(); w > t.maxEdge || h > t.maxEdge {
		outW, outH := fit(w, h, t.maxEdge)
		scaled := image.NewRGBA(image.Rect(0, 0, outW, outH))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail encode %q: %w", rel, err)
	}
	return buf.Bytes(), nil
}

// fit scales (w, h) proportionally so the longer side equals edge.
func fit(w, h, edge int) (int, int) {
	if w >= h {
		return edge, max(1, h*edge/w)
	}
	return max(1, w*edge/h), edge
}
