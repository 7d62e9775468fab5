// Package fill inpaints masked pixels from their known surroundings (content-aware fill).
package fill

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

const (
	// DefaultSearchRadius bounds the scan for the nearest known pixel. Holes farther
	// than this from any known pixel are ordered last.
	DefaultSearchRadius = 10
	DefaultSampleRadius = 2
	DefaultThreshold    = 1
)

// Options configures a fill pass.
type Options struct {
	// Threshold is the minimum number of contributing neighbors a pixel needs to be
	// filled. Values below one are treated as one.
	Threshold int `json:"threshold"`
	// SampleRadius is the half-size of the square neighborhood averaged per pixel.
	SampleRadius int `json:"sampleRadius"`
	// SearchRadius bounds the distance-to-edge scan. Zero means DefaultSearchRadius.
	SearchRadius int `json:"searchRadius,omitempty"`
}

// DefaultOptions returns the stock fill settings.
func DefaultOptions() Options {
	return Options{
		Threshold:    DefaultThreshold,
		SampleRadius: DefaultSampleRadius,
		SearchRadius: DefaultSearchRadius,
	}
}

type hole struct {
	x, y int
	dist float64
}

// Fill returns a copy of src in which masked pixels (mask byte non-zero, one byte per
// src pixel) are replaced by the rounded average of the non-transparent, unmasked
// pixels around them. Holes are processed nearest-to-edge first and become sources for
// later holes, so the fill grows inward. The returned mask has the bits of pixels that
// received no samples still set.
func Fill(src *pixel.Buffer, mask []byte, opts Options) (*pixel.Buffer, []byte) {
	out := src.Clone()
	remaining := make([]byte, len(src.Pix))
	copy(remaining, mask)

	if len(mask) != len(src.Pix) {
		return out, remaining
	}

	searchRadius := opts.SearchRadius
	if searchRadius <= 0 {
		searchRadius = DefaultSearchRadius
	}
	sampleRadius := max(opts.SampleRadius, 1)
	threshold := max(opts.Threshold, 1)

	holes := collectHoles(src, mask, searchRadius)

	for _, h := range holes {
		c, n := average(out, remaining, h.x, h.y, sampleRadius)
		if n < threshold {
			continue
		}
		i := out.Index(h.x, h.y)
		out.Pix[i] = pixel.Of(c)
		remaining[i] = 0
	}

	return out, remaining
}

// collectHoles lists the masked pixels in row-major order and stably sorts them by
// distance to the nearest unmasked pixel.
func collectHoles(src *pixel.Buffer, mask []byte, searchRadius int) []hole {
	var holes []hole
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if mask[src.Index(x, y)] != 0 {
				holes = append(holes, hole{x: x, y: y, dist: edgeDistance(src, mask, x, y, searchRadius)})
			}
		}
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return holes[i].dist < holes[j].dist
	})
	return holes
}

// edgeDistance is the Euclidean distance from (x, y) to the nearest unmasked pixel
// within radius, or +Inf when there is none.
func edgeDistance(src *pixel.Buffer, mask []byte, x, y, radius int) float64 {
	best := math.Inf(1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if !src.InBounds(nx, ny) || mask[src.Index(nx, ny)] != 0 {
				continue
			}
			if d := math.Hypot(float64(dx), float64(dy)); d < best {
				best = d
			}
		}
	}
	return best
}

// average returns the rounded mean RGBA of unmasked, non-transparent neighbors of
// (x, y) within the square window, excluding the center, and how many contributed.
func average(buf *pixel.Buffer, mask []byte, x, y, radius int) (color.NRGBA, int) {
	var r, g, b, a, n int
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !buf.InBounds(nx, ny) {
				continue
			}
			i := buf.Index(nx, ny)
			if mask[i] != 0 {
				continue
			}
			p := buf.Pix[i]
			if !p.Filled || p.A == 0 {
				continue
			}
			r += int(p.R)
			g += int(p.G)
			b += int(p.B)
			a += int(p.A)
			n++
		}
	}
	if n == 0 {
		return color.NRGBA{}, 0
	}
	return color.NRGBA{
		R: roundDiv(r, n),
		G: roundDiv(g, n),
		B: roundDiv(b, n),
		A: roundDiv(a, n),
	}, n
}

func roundDiv(sum, n int) uint8 {
	return uint8(math.Round(float64(sum) / float64(n)))
}

// Selection fills the selected pixels of layer in place and returns how many pixels
// were filled. The patch is the selection bounds clipped to the layer.
func Selection(layer *pixel.Buffer, sel region.Selection, opts Options) int {
	r := sel.Bounds().Intersect(layer.Bounds())
	if r.Empty() {
		return 0
	}

	// Known pixels just outside the selection bounds feed the edge, so pad the patch.
	pad := max(opts.SampleRadius, 1)
	outer := r.Inset(-pad).Intersect(layer.Bounds())
	padded := pixel.NewBuffer(outer.Dx(), outer.Dy())
	mask := make([]byte, len(padded.Pix))
	inner := sel.BuildMask(r)
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			padded.Set(x-outer.Min.X, y-outer.Min.Y, layer.At(x, y))
			if image.Pt(x, y).In(r) && inner[(y-r.Min.Y)*r.Dx()+(x-r.Min.X)] != 0 {
				mask[padded.Index(x-outer.Min.X, y-outer.Min.Y)] = 255
			}
		}
	}

	out, remaining := Fill(padded, mask, opts)

	filled := 0
	for i, m := range mask {
		if m == 0 || remaining[i] != 0 {
			continue
		}
		x, y := outer.Min.X+i%outer.Dx(), outer.Min.Y+i/outer.Dx()
		layer.Set(x, y, out.Pix[i])
		filled++
	}
	return filled
}
