// Package imaging reads raster metadata, computes where the QR watermark goes
// and composites it onto the source image.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedImage = errors.New("unsupported or corrupt image")
	ErrImageTooSmall    = errors.New("image too small for qr placement")
	ErrImageTooLarge    = errors.New("image exceeds pixel limit")
)

// DefaultMaxPixels is 0x3FFF squared, the largest input the composite step
// accepts unless configured otherwise.
const DefaultMaxPixels int64 = 16383 * 16383

// Meta is the metadata read from an image header.
type Meta struct {
	Width  int
	Height int
	Format string
}

// DecodeMeta reads width, height and format without decoding pixel data.
// Images with more than maxPixels pixels fail with ErrImageTooLarge before
// anything allocates their raster. maxPixels <= 0 means DefaultMaxPixels.
func DecodeMeta(data []byte, maxPixels int64) (Meta, error) {
	if len(data) == 0 {
		return Meta{}, ErrUnsupportedImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Meta{}, ErrUnsupportedImage
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return Meta{}, fmt.Errorf("%w: %dx%d is %d pixels, limit %d", ErrImageTooLarge, cfg.Width, cfg.Height, px, maxPixels)
	}
	return Meta{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
