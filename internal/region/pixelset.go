package region

import (
	"encoding/json"
	"image"
	"sort"

	"github.com/inamate/pixelkit/internal/pixel"
)

// PixelSet is a set of pixel coordinates. On the wire it is a sorted list of "x,y" keys.
type PixelSet map[image.Point]struct{}

// NewPixelSet returns a set holding pts.
func NewPixelSet(pts ...image.Point) PixelSet {
	s := make(PixelSet, len(pts))
	for _, p := range pts {
		s[p] = struct{}{}
	}
	return s
}

func (s PixelSet) Add(p image.Point)    { s[p] = struct{}{} }
func (s PixelSet) Remove(p image.Point) { delete(s, p) }

func (s PixelSet) Has(p image.Point) bool {
	_, ok := s[p]
	return ok
}

// Clone returns a copy. A nil set clones to an empty set.
func (s PixelSet) Clone() PixelSet {
	out := make(PixelSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Union returns s ∪ o.
func (s PixelSet) Union(o PixelSet) PixelSet {
	out := s.Clone()
	for p := range o {
		out[p] = struct{}{}
	}
	return out
}

// Subtract returns s \ o.
func (s PixelSet) Subtract(o PixelSet) PixelSet {
	out := make(PixelSet, len(s))
	for p := range s {
		if _, ok := o[p]; !ok {
			out[p] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every member of s is in o.
func (s PixelSet) SubsetOf(o PixelSet) bool {
	for p := range s {
		if _, ok := o[p]; !ok {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle holding every member, or the empty rectangle.
func (s PixelSet) Bounds() image.Rectangle {
	var r image.Rectangle
	first := true
	for p := range s {
		cell := image.Rect(p.X, p.Y, p.X+1, p.Y+1)
		if first {
			r = cell
			first = false
			continue
		}
		r = r.Union(cell)
	}
	return r
}

// Points returns the members sorted by row, then column.
func (s PixelSet) Points() []image.Point {
	pts := make([]image.Point, 0, len(s))
	for p := range s {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
	return pts
}

// Keys returns the members as sorted "x,y" keys.
func (s PixelSet) Keys() []string {
	pts := s.Points()
	keys := make([]string, len(pts))
	for i, p := range pts {
		keys[i] = pixel.Key(p.X, p.Y)
	}
	return keys
}

func (s PixelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

func (s *PixelSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if keys == nil {
		*s = nil
		return nil
	}
	out := make(PixelSet, len(keys))
	for _, k := range keys {
		p, err := pixel.ParseKey(k)
		if err != nil {
			return err
		}
		out[p] = struct{}{}
	}
	*s = out
	return nil
}
