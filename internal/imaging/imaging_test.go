package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var red = color.RGBA{R: 255, A: 255}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeAs(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

// qrStub is a 2x2 raster: black top-left module, white elsewhere.
func qrStub(t *testing.T) []byte {
	img := solid(2, 2, color.White)
	img.Set(0, 0, color.Black)
	return encodeAs(t, img, "png")
}

func TestDecodeMeta(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "gif", "bmp", "tiff"} {
		t.Run(format, func(t *testing.T) {
			meta, err := DecodeMeta(encodeAs(t, solid(64, 48, red), format), 0)
			require.NoError(t, err)
			assert.Equal(t, Meta{Width: 64, Height: 48, Format: format}, meta)
		})
	}
}

func TestDecodeMeta_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("definitely not an image")},
		{name: "truncated png", data: encodeAs(t, solid(8, 8, red), "png")[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMeta(tt.data, 0)
			assert.ErrorIs(t, err, ErrUnsupportedImage)
		})
	}
}

// pngHeader returns a PNG holding only an 8-bit grayscale IHDR chunk.
// It is enough for DecodeConfig but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // depth, gray, deflate, filter, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeMeta_PixelLimit(t *testing.T) {
	t.Run("header only giant is rejected", func(t *testing.T) {
		_, err := DecodeMeta(pngHeader(20000, 20000), 0)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("default limit boundary", func(t *testing.T) {
		meta, err := DecodeMeta(pngHeader(16383, 16383), 0)
		require.NoError(t, err)
		assert.Equal(t, Meta{Width: 16383, Height: 16383, Format: "png"}, meta)

		_, err = DecodeMeta(pngHeader(16384, 16383), 0)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("custom limit", func(t *testing.T) {
		_, err := DecodeMeta(pngHeader(12000, 12000), 100_000_000)
		assert.ErrorIs(t, err, ErrImageTooLarge)

		_, err = DecodeMeta(encodeAs(t, solid(64, 48, red), "png"), 64*48)
		assert.NoError(t, err)
		_, err = DecodeMeta(encodeAs(t, solid(64, 48, red), "png"), 64*48-1)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})
}

func TestCalculatePlacement(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		want    Placement
		wantErr bool
	}{
		{name: "reference", w: 1000, h: 800, want: Placement{Size: 300, X: 670, Y: 470}},
		{name: "floor", w: 333, h: 500, want: Placement{Size: 99, X: 204, Y: 371}},
		{name: "exact fit", w: 100, h: 90, want: Placement{Size: 30, X: 40, Y: 30}},
		{name: "too short", w: 1000, h: 100, wantErr: true},
		{name: "too narrow", w: 3, h: 1000, wantErr: true},
		{name: "zero", w: 0, h: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculatePlacement(tt.w, tt.h)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrImageTooSmall)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatePlacement_Deterministic(t *testing.T) {
	a, errA := CalculatePlacement(1920, 1080)
	b, errB := CalculatePlacement(1920, 1080)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestComposite_PNG(t *testing.T) {
	src := encodeAs(t, solid(1000, 800, red), "png")
	orig := append([]byte(nil), src...)
	p, err := CalculatePlacement(1000, 800)
	require.NoError(t, err)

	out, err := Composite(src, qrStub(t), p, EncodeOptions{})
	require.NoError(t, err)

	assert.Equal(t, orig, src)
	assert.Equal(t, "png", out.Format)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, ".png", out.Ext)

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 800), img.Bounds())

	rgba := func(x, y int) color.RGBA {
		return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	}
	assert.Equal(t, red, rgba(0, 0))
	assert.Equal(t, red, rgba(669, 469))
	assert.Equal(t, color.RGBA{A: 255}, rgba(670, 470))
	assert.Equal(t, color.RGBA{A: 255}, rgba(819, 619))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgba(969, 769))
	assert.Equal(t, red, rgba(970, 770))
	assert.Equal(t, red, rgba(999, 799))
}

func TestComposite_KeepsFormat(t *testing.T) {
	tests := []struct {
		format string
		mime   string
		ext    string
	}{
		{format: "jpeg", mime: "image/jpeg", ext: ".jpg"},
		{format: "gif", mime: "image/gif", ext: ".gif"},
		{format: "bmp", mime: "image/bmp", ext: ".bmp"},
		{format: "tiff", mime: "image/tiff", ext: ".tiff"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			src := encodeAs(t, solid(200, 200, red), tt.format)
			p, err := CalculatePlacement(200, 200)
			require.NoError(t, err)

			out, err := Composite(src, qrStub(t), p, EncodeOptions{JPEGQuality: 80})
			require.NoError(t, err)
			assert.Equal(t, tt.format, out.Format)
			assert.Equal(t, tt.mime, out.ContentType)
			assert.Equal(t, tt.ext, out.Ext)

			meta, err := DecodeMeta(out.Data, 0)
			require.NoError(t, err)
			assert.Equal(t, Meta{Width: 200, Height: 200, Format: tt.format}, meta)
		})
	}
}

func TestComposite_Errors(t *testing.T) {
	src := encodeAs(t, solid(200, 200, red), "png")

	_, err := Composite([]byte("junk"), qrStub(t), Placement{Size: 60, X: 110, Y: 110}, EncodeOptions{})
	assert.ErrorContains(t, err, "decode source")

	_, err = Composite(src, []byte("junk"), Placement{Size: 60, X: 110, Y: 110}, EncodeOptions{})
	assert.ErrorContains(t, err, "decode qr")

	_, err = Composite(src, qrStub(t), Placement{Size: 60, X: 150, Y: 150}, EncodeOptions{})
	assert.ErrorIs(t, err, ErrImageTooSmall)
}

func TestContentType(t *testing.T) {
	mime, ext := ContentType("webp")
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, ".webp", ext)

	mime, ext = ContentType("unknown")
	assert.Equal(t, "application/octet-stream", mime)
	assert.Empty(t, ext)
}
