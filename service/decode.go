package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

// DecodeImage converts a base64 payload, optionally carrying a data-URL
// prefix, into a decoded image. All decode failures wrap ErrInvalidImage
// so callers can classify them as client errors.
func DecodeImage(data string) (image.Image, error) {
	if strings.HasPrefix(data, "data:image") {
		idx := strings.Index(data, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: data URL has no payload", ErrInvalidImage)
		}
		data = data[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}
