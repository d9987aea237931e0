package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

const DefaultJPEGQuality = 90

type EncodeOptions struct {
	JPEGQuality int
}

// Encoded is a re-encoded image ready for upload.
type Encoded struct {
	Data        []byte
	Format      string
	ContentType string
	Ext         string
}

// Composite draws the QR raster, scaled to p.Size, over a copy of src at
// (p.X, p.Y) and encodes the result in the source format. src is not modified.
func Composite(src []byte, qrPNG []byte, p Placement, opts EncodeOptions) (Encoded, error) {
	base, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return Encoded{}, fmt.Errorf("decode source: %w", err)
	}
	code, _, err := image.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return Encoded{}, fmt.Errorf("decode qr: %w", err)
	}

	b := base.Bounds()
	target := image.Rect(b.Min.X+p.X, b.Min.Y+p.Y, b.Min.X+p.X+p.Size, b.Min.Y+p.Y+p.Size)
	if p.Size < 1 || !target.In(b) {
		return Encoded{}, fmt.Errorf("%w: placement %+v outside %v", ErrImageTooSmall, p, b)
	}

	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, base, b.Min, draw.Src)
	draw.NearestNeighbor.Scale(canvas, target, code, code.Bounds(), draw.Src, nil)

	return encode(canvas, format, opts)
}

func encode(img image.Image, format string, opts EncodeOptions) (Encoded, error) {
	if format != "jpeg" && format != "gif" && format != "bmp" && format != "tiff" {
		// png, and webp which has no encoder
		format = "png"
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		q := opts.JPEGQuality
		if q < 1 || q > 100 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return Encoded{}, fmt.Errorf("encode %s: %w", format, err)
	}

	mime, ext := ContentType(format)
	return Encoded{Data: buf.Bytes(), Format: format, ContentType: mime, Ext: ext}, nil
}

// ContentType maps a decoder format name to its MIME type and file extension.
func ContentType(format string) (mime, ext string) {
	switch format {
	case "jpeg":
		return "image/jpeg", ".jpg"
	case "gif":
		return "image/gif", ".gif"
	case "bmp":
		return "image/bmp", ".bmp"
	case "tiff":
		return "image/tiff", ".tiff"
	case "webp":
		return "image/webp", ".webp"
	case "png":
		return "image/png", ".png"
	default:
		return "application/octet-stream", ""
	}
}
