package radar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodeFrame decodes raw snapshot bytes into an RGBA bitmap.
// Payloads that do not sniff as an image are rejected before decoding.
func DecodeFrame(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode frame: empty payload")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("decode frame: unexpected content type %s", mtype.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return ToRGBA(img), nil
}

// LoadBitmap reads and decodes an image file from disk.
func LoadBitmap(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(data)
}

// ToRGBA converts img to an *image.RGBA anchored at the origin.
// An *image.RGBA already anchored at the origin is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Composite copies base and alpha-blends frame onto the copy at offset.
// Parts of frame falling outside base are clipped. base is left untouched.
func Composite(base, frame *image.RGBA, offset image.Point) *image.RGBA {
	out := image.NewRGBA(base.Bounds())
	draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)

	if frame == nil {
		return out
	}

	r := image.Rectangle{Min: offset, Max: offset.Add(frame.Bounds().Size())}
	draw.Draw(out, r, frame, frame.Bounds().Min, draw.Over)
	return out
}
