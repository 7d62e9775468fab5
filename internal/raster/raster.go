// Package raster converts pixel buffers to and from standard images and encodes them
// for import and export.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"

	"github.com/inamate/pixelkit/internal/pixel"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format is an export encoding.
type Format string

const (
	PNG Format = "png"
	BMP Format = "bmp"
)

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	if f == BMP {
		return "image/bmp"
	}
	return "image/png"
}

// ToImage converts a buffer; empty pixels become fully transparent.
func ToImage(buf *pixel.Buffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			if p := buf.At(x, y); p.Filled {
				img.SetNRGBA(x, y, p.NRGBA)
			}
		}
	}
	return img
}

// FromImage converts an image; fully transparent pixels become empty.
func FromImage(img image.Image) *pixel.Buffer {
	src := imaging.Clone(img)
	b := src.Bounds()
	buf := pixel.NewBuffer(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := src.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if c.A != 0 {
				buf.Set(x, y, pixel.Of(c))
			}
		}
	}
	return buf
}

// FitCanvas scales img down with nearest-neighbor sampling until it fits a w x h
// canvas and centers it on a transparent background.
func FitCanvas(img image.Image, w, h int) *pixel.Buffer {
	fitted := imaging.Fit(img, w, h, imaging.NearestNeighbor)
	canvas := imaging.New(w, h, color.NRGBA{})
	return FromImage(imaging.PasteCenter(canvas, fitted))
}

// Scale enlarges a buffer by an integer factor with hard pixel edges.
func Scale(buf *pixel.Buffer, factor int) *image.NRGBA {
	img := ToImage(buf)
	if factor <= 1 {
		return img
	}
	return imaging.Resize(img, buf.Width*factor, buf.Height*factor, imaging.NearestNeighbor)
}

// SpriteSheet lays frames out left to right in rows of columns cells. Frames must
// share the size of the first one; others are skipped.
func SpriteSheet(frames []*pixel.Buffer, columns int) *image.NRGBA {
	if len(frames) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	columns = min(max(columns, 1), len(frames))
	rows := (len(frames) + columns - 1) / columns
	fw, fh := frames[0].Width, frames[0].Height

	sheet := imaging.New(fw*columns, fh*rows, color.NRGBA{})
	for i, f := range frames {
		if f.Width != fw || f.Height != fh {
			continue
		}
		at := image.Pt((i%columns)*fw, (i/columns)*fh)
		sheet = imaging.Paste(sheet, ToImage(f), at)
	}
	return sheet
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case PNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case BMP:
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("encode image: %w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// Decode reads a PNG, JPEG, GIF, BMP or TIFF image.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
