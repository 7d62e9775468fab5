// Package pixel holds the flat row-major pixel buffer shared by every editing tool,
// together with the color and coordinate helpers the tools are built on.
package pixel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// Pixel is a single buffer cell. The zero value is an empty (transparent) cell.
type Pixel struct {
	color.NRGBA
	Filled bool
}

// Empty is the transparent cell.
var Empty = Pixel{}

// Of returns a filled cell holding c.
func Of(c color.NRGBA) Pixel {
	return Pixel{NRGBA: c, Filled: true}
}

// MustHex returns a filled cell for a hex color and panics on malformed input.
// Intended for tests and fixtures.
func MustHex(s string) Pixel {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return Of(c)
}

// MarshalJSON encodes an empty cell as null and a filled one as "#rrggbbaa".
func (p Pixel) MarshalJSON() ([]byte, error) {
	if !p.Filled {
		return []byte("null"), nil
	}
	return json.Marshal(Hex(p.NRGBA))
}

// UnmarshalJSON accepts null or a hex color string.
func (p *Pixel) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Empty
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c, err := ParseHex(s)
	if err != nil {
		return err
	}
	*p = Of(c)
	return nil
}

// Buffer is a width x height grid of cells stored row-major: index = y*Width + x.
type Buffer struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Pix    []Pixel `json:"pixels"`
}

// NewBuffer allocates an empty buffer. Negative dimensions are treated as zero.
func NewBuffer(width, height int) *Buffer {
	width = max(width, 0)
	height = max(height, 0)
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, width*height),
	}
}

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Index returns the flat index of (x, y). It does not check bounds.
func (b *Buffer) Index(x, y int) int {
	return y*b.Width + x
}

// InBounds reports whether (x, y) lies inside the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// At returns the cell at (x, y), or Empty when out of bounds.
func (b *Buffer) At(x, y int) Pixel {
	if !b.InBounds(x, y) {
		return Empty
	}
	return b.Pix[b.Index(x, y)]
}

// Set writes a cell. Out-of-bounds writes are ignored.
func (b *Buffer) Set(x, y int, p Pixel) {
	if !b.InBounds(x, y) {
		return
	}
	b.Pix[b.Index(x, y)] = p
}

// Clear empties the cell at (x, y).
func (b *Buffer) Clear(x, y int) {
	b.Set(x, y, Empty)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]Pixel, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// CopyFrom overwrites b with the contents of src. Both buffers must have the same size.
func (b *Buffer) CopyFrom(src *Buffer) {
	if src.Width != b.Width || src.Height != b.Height {
		return
	}
	copy(b.Pix, src.Pix)
}

// CopyRect copies the cells of r (clipped to both buffers) from src into b.
func (b *Buffer) CopyRect(src *Buffer, r image.Rectangle) {
	r = r.Intersect(b.Bounds()).Intersect(src.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * b.Width
		srow := y * src.Width
		copy(b.Pix[row+r.Min.X:row+r.Max.X], src.Pix[srow+r.Min.X:srow+r.Max.X])
	}
}

// Equal reports whether two buffers have the same size and cells.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Width != o.Width || b.Height != o.Height {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// FilledCount returns the number of non-empty cells.
func (b *Buffer) FilledCount() int {
	n := 0
	for _, p := range b.Pix {
		if p.Filled {
			n++
		}
	}
	return n
}

// HasFilled reports whether any cell is non-empty. A nil buffer has none.
func (b *Buffer) HasFilled() bool {
	if b == nil {
		return false
	}
	for _, p := range b.Pix {
		if p.Filled {
			return true
		}
	}
	return false
}

// Key formats a pixel coordinate as "x,y".
func Key(x, y int) string {
	return strconv.Itoa(x) + "," + strconv.Itoa(y)
}

// ParseKey parses an "x,y" pixel key.
func ParseKey(key string) (image.Point, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid pixel key %q", key)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid pixel key %q: %w", key, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid pixel key %q: %w", key, err)
	}
	return image.Pt(x, y), nil
}
