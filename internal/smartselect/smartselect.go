// Package smartselect grows selections by color similarity (the magic-wand tool).
package smartselect

import (
	"image"
	"image/color"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

// MaxTolerance is the largest accepted RGB distance.
const MaxTolerance = 50

// Mode decides how a fresh selection is folded into the existing one.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeAdd      Mode = "add"
	ModeSubtract Mode = "subtract"
)

// Options configures a smart selection.
type Options struct {
	Tolerance int  `json:"tolerance"`
	Mode      Mode `json:"mode"`
}

func clampTolerance(t int) int {
	return pixel.Clamp(t, 0, MaxTolerance)
}

// FloodFill returns the 4-connected region around seed whose cells are non-empty and
// within tolerance of the seed color. Every comparison uses the seed color, never the
// color of the neighbor being walked from. An empty or out-of-bounds seed yields an
// empty set.
func FloodFill(buf *pixel.Buffer, seed image.Point, tolerance int) region.PixelSet {
	out := make(region.PixelSet)
	if buf == nil || !buf.InBounds(seed.X, seed.Y) {
		return out
	}
	target := buf.At(seed.X, seed.Y)
	if !target.Filled {
		return out
	}
	fill(buf, seed, target.NRGBA, clampTolerance(tolerance), out)
	return out
}

func fill(buf *pixel.Buffer, seed image.Point, target color.NRGBA, tolerance int, out region.PixelSet) {
	visited := make([]bool, len(buf.Pix))
	queue := []image.Point{seed}
	visited[buf.Index(seed.X, seed.Y)] = true

	neighbors := [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	for head := 0; head < len(queue); head++ {
		p := queue[head]
		out.Add(p)

		for _, d := range neighbors {
			n := p.Add(d)
			if !buf.InBounds(n.X, n.Y) {
				continue
			}
			i := buf.Index(n.X, n.Y)
			if visited[i] {
				continue
			}
			visited[i] = true
			c := buf.Pix[i]
			if c.Filled && pixel.Within(target, c.NRGBA, tolerance) {
				queue = append(queue, n)
			}
		}
	}
}

// Combine folds fresh into existing: normal replaces, add is the union and
// subtract removes fresh from existing.
func Combine(existing, fresh region.PixelSet, mode Mode) region.PixelSet {
	switch mode {
	case ModeAdd:
		return existing.Union(fresh)
	case ModeSubtract:
		return existing.Subtract(fresh)
	default:
		return fresh.Clone()
	}
}

// Select flood-fills from seed and combines the result with existing. A transparent
// seed leaves the existing selection unchanged.
func Select(buf *pixel.Buffer, seed image.Point, existing region.PixelSet, opts Options) region.PixelSet {
	if buf == nil || !buf.At(seed.X, seed.Y).Filled {
		return existing.Clone()
	}
	return Combine(existing, FloodFill(buf, seed, opts.Tolerance), opts.Mode)
}

// Expand flood-fills from every point of a drag batch, unions the fills, and folds the
// union into existing with the same rule as Select. Points whose fill would repeat
// one already computed for the same seed color are skipped.
func Expand(buf *pixel.Buffer, points []image.Point, existing region.PixelSet, opts Options) region.PixelSet {
	if buf == nil {
		return existing.Clone()
	}

	tolerance := clampTolerance(opts.Tolerance)
	batch := make(region.PixelSet)
	seen := make(map[color.NRGBA]region.PixelSet)

	for _, p := range points {
		c := buf.At(p.X, p.Y)
		if !c.Filled {
			continue
		}
		if done, ok := seen[c.NRGBA]; ok && done.Has(p) {
			continue
		}
		fresh := make(region.PixelSet)
		fill(buf, p, c.NRGBA, tolerance, fresh)
		if prev, ok := seen[c.NRGBA]; ok {
			seen[c.NRGBA] = prev.Union(fresh)
		} else {
			seen[c.NRGBA] = fresh
		}
		for q := range fresh {
			batch.Add(q)
		}
	}

	if len(batch) == 0 {
		return existing.Clone()
	}
	return Combine(existing, batch, opts.Mode)
}
