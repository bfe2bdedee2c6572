// Package imaging normalizes captured frames and rasterized pages into the
// bounded JPEG form the payload carries.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // capture intermediates arrive as PNG

	"github.com/nfnt/resize"
)

const MIMEType = "image/jpeg"

// Normalize decodes an encoded image, scales it down so the longer edge is
// at most maxEdge (aspect ratio preserved, never upscaling), and re-encodes
// it as JPEG at the given quality (1-100). The source buffer is read once
// and not retained.
func Normalize(data []byte, maxEdge, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has degenerate bounds %dx%d", w, h)
	}

	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		if w >= h {
			img = resize.Resize(uint(maxEdge), 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, uint(maxEdge), img, resize.Lanczos3)
		}
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}
