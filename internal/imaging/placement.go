package imaging

import "fmt"

const (
	// QRWidthRatio is the QR side length as a percentage of image width.
	QRWidthRatio = 30
	// QRMargin is the gap in pixels between the QR and the right and bottom edges.
	QRMargin = 30
)

// Placement is the square region the QR is drawn into.
type Placement struct {
	Size int `json:"size"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// CalculatePlacement anchors an S×S square, S = floor(0.3*W), at the
// bottom-right corner inset by QRMargin on both axes.
func CalculatePlacement(width, height int) (Placement, error) {
	size := width * QRWidthRatio / 100
	p := Placement{
		Size: size,
		X:    width - size - QRMargin,
		Y:    height - size - QRMargin,
	}
	if p.Size < 1 || p.X < 0 || p.Y < 0 {
		return p, fmt.Errorf("%w: %dx%d", ErrImageTooSmall, width, height)
	}
	return p, nil
}
