package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"
)

const (
	// JPEGQuality is the encoder quality used for cropped photos.
	JPEGQuality = 95
)

var (
	// ErrUnsupportedFormat is returned when the submitted bytes are not a decodable image.
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
	// ErrEmptyImage is returned when no image data was provided.
	ErrEmptyImage = errors.New("imaging: image data is empty")
)

// Decode parses the raw bytes into an image, reporting the detected format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, format, nil
}

// EncodeJPEG serialises the image as JPEG at the fixed photo quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG serialises the image as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentTypeForFormat maps a decoded format name onto its MIME type.
func ContentTypeForFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
