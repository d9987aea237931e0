package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// Renderer turns a payload into a PNG-encoded QR raster.
type Renderer interface {
	Render(payload string) ([]byte, error)
}

type skipRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewRenderer returns a Renderer producing size×size PNGs at medium error correction.
func NewRenderer(size int) Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &skipRenderer{size: size, level: qrcode.Medium}
}

func (r *skipRenderer) Render(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("render qr: empty payload")
	}
	png, err := qrcode.Encode(payload, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
