package imagecodec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Image is a decoded upload: raw bytes plus the MIME type taken from the
// data-URL prefix.
type Image struct {
	MIME  string
	Bytes []byte
}

// IsDataURL reports whether s is an inline data URL rather than a hosted
// reference.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// IsHostedURL reports whether s already points at durable storage.
func IsHostedURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseDataURL decodes a data URL into bytes. Anything that is not
// explicitly image/png is treated as image/jpeg, matching what the
// generation provider expects.
func ParseDataURL(s string) (*Image, error) {
	if !IsDataURL(s) {
		return nil, fmt.Errorf("not a data url")
	}

	payload := s
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		payload = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty data url")
	}

	mime := "image/jpeg"
	if strings.HasPrefix(s, "data:image/png") {
		mime = "image/png"
	}

	return &Image{MIME: mime, Bytes: raw}, nil
}

// EncodeDataURL is the inverse of ParseDataURL.
func EncodeDataURL(mime string, b []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}
