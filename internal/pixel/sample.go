package pixel

import (
	"image/color"
	"math"
)

// Filter selects how a source coordinate is turned into a cell.
type Filter int

const (
	Nearest Filter = iota
	BilinearFilter
)

func (f Filter) String() string {
	switch f {
	case BilinearFilter:
		return "bilinear"
	default:
		return "nearest"
	}
}

// ParseFilter maps "bilinear" to BilinearFilter and anything else to Nearest.
func ParseFilter(s string) Filter {
	if s == "bilinear" {
		return BilinearFilter
	}
	return Nearest
}

// Sample reads src at the continuous coordinate (x, y), where cell (i, j) covers
// [i, i+1) x [j, j+1). mask, when non-nil, has one byte per cell; zero bytes are
// treated as empty.
func Sample(src *Buffer, mask []byte, x, y float64, f Filter) Pixel {
	if math.IsNaN(x) || math.IsNaN(y) {
		return Empty
	}
	if f == BilinearFilter {
		return Bilinear(src, mask, x-0.5, y-0.5)
	}
	ix, iy := int(math.Floor(x)), int(math.Floor(y))
	if !src.InBounds(ix, iy) {
		return Empty
	}
	i := src.Index(ix, iy)
	if mask != nil && mask[i] == 0 {
		return Empty
	}
	return src.Pix[i]
}

// Bilinear interpolates the four cells around (x, y), where integer coordinates are
// cell centers. Empty or masked-out neighbors contribute nothing; the result is
// empty when no neighbor contributes or the accumulated weight is below one half,
// so edges stay hard like the nearest-neighbor output.
func Bilinear(src *Buffer, mask []byte, x, y float64) Pixel {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	var (
		out  color.NRGBA
		wsum float64
	)
	add := func(cx, cy int, w float64) {
		if w <= 0 || !src.InBounds(cx, cy) {
			return
		}
		i := src.Index(cx, cy)
		if mask != nil && mask[i] == 0 {
			return
		}
		p := src.Pix[i]
		if !p.Filled {
			return
		}
		// Running weighted mean: each neighbor pulls by its share of the weight so far.
		wsum += w
		out = Mix(out, p.NRGBA, w/wsum)
	}

	add(x0, y0, (1-fx)*(1-fy))
	add(x0+1, y0, fx*(1-fy))
	add(x0, y0+1, (1-fx)*fy)
	add(x0+1, y0+1, fx*fy)

	if wsum < 0.5 {
		return Empty
	}
	return Of(out)
}
