package imagecodec

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// NormalizePNG decodes an uploaded image and re-encodes it as PNG so every
// hosted object has a single content type regardless of what the browser or
// the provider produced. JPEG input loses nothing it had; PNG input
// round-trips byte-for-byte pixel content.
func NormalizePNG(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales the image down so its longest edge is maxEdge, for the
// public gallery cards. Images already small enough are re-encoded as-is.
func Thumbnail(raw []byte, maxEdge int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
