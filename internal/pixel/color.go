package pixel

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/exp/constraints"
)

// ParseHex parses "#RGB", "#RRGGBB" or "#RRGGBBAA" (the leading '#' is optional).
// Colors without an alpha component are fully opaque.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]}) + "ff"
	case 6:
		h += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// Hex formats c as "#rrggbbaa".
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// DistanceSq returns the squared Euclidean distance between the RGB channels of a and b.
// Alpha is ignored.
func DistanceSq(a, b color.NRGBA) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Distance returns the Euclidean RGB distance between a and b on the 0-255 scale.
func Distance(a, b color.NRGBA) float64 {
	return math.Sqrt(float64(DistanceSq(a, b)))
}

// Within reports whether the RGB distance between a and b is at most tolerance.
// The comparison is done on integers so boundary values are exact.
func Within(a, b color.NRGBA, tolerance int) bool {
	if tolerance < 0 {
		return false
	}
	return DistanceSq(a, b) <= tolerance*tolerance
}

// Mix linearly blends a toward b by t in [0,1]. RGB is blended by go-colorful,
// alpha is interpolated directly.
func Mix(a, b color.NRGBA, t float64) color.NRGBA {
	t = Clamp(t, 0, 1)

	ca, _ := colorful.MakeColor(opaque(a))
	cb, _ := colorful.MakeColor(opaque(b))
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()

	return color.NRGBA{
		R: r,
		G: g,
		B: bl,
		A: uint8(math.Round(float64(a.A) + (float64(b.A)-float64(a.A))*t)),
	}
}

// opaque drops alpha so colorful.MakeColor does not see a zero-alpha color.
func opaque(c color.NRGBA) color.NRGBA {
	c.A = 0xff
	return c
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
