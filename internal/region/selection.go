// Package region turns a selection description into per-pixel membership.
package region

import (
	"image"

	"github.com/inamate/pixelkit/internal/geom"
)

// Shape tags the geometry of a selection.
type Shape string

const (
	ShapeRect    Shape = "rect"
	ShapeEllipse Shape = "ellipse"
	ShapePolygon Shape = "polygon"
	ShapeLasso   Shape = "lasso"
)

// Selection describes the selected area of the canvas. When Mask is non-empty it is
// authoritative and the shape geometry only serves as a hint.
type Selection struct {
	Shape  Shape        `json:"shape"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Points []geom.Point `json:"points,omitempty"`
	Mask   PixelSet     `json:"mask,omitempty"`
}

// Rect returns a rectangular selection.
func Rect(r image.Rectangle) Selection {
	return Selection{Shape: ShapeRect, X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Ellipse returns an elliptical selection inscribed in r.
func Ellipse(r image.Rectangle) Selection {
	s := Rect(r)
	s.Shape = ShapeEllipse
	return s
}

// Polygon returns a polygon selection; its rectangle is the pixel bounds of pts.
func Polygon(pts []geom.Point) Selection {
	b := geom.Bounds(pts...).Pixels()
	return Selection{
		Shape:  ShapePolygon,
		X:      b.Min.X,
		Y:      b.Min.Y,
		Width:  b.Dx(),
		Height: b.Dy(),
		Points: pts,
	}
}

// FromMask returns a selection driven entirely by an explicit pixel set.
func FromMask(mask PixelSet) Selection {
	b := mask.Bounds()
	return Selection{Shape: ShapeRect, X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy(), Mask: mask}
}

// HasMask reports whether an explicit mask is present.
func (s Selection) HasMask() bool {
	return len(s.Mask) > 0
}

// Bounds returns the selected rectangle: the mask bounds when a mask is present,
// otherwise the shape rectangle.
func (s Selection) Bounds() image.Rectangle {
	if s.HasMask() {
		return s.Mask.Bounds()
	}
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// Empty reports whether the selection covers no area.
func (s Selection) Empty() bool {
	b := s.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// Contains reports whether the canvas pixel (x, y) is selected.
func (s Selection) Contains(x, y int) bool {
	if s.HasMask() {
		return s.Mask.Has(image.Pt(x, y))
	}
	b := s.Bounds()
	if !image.Pt(x, y).In(b) {
		return false
	}
	return s.shapeContains(b, x-b.Min.X, y-b.Min.Y)
}

// BuildMask returns one byte per pixel of patch (row-major, patch-local), 255 where the
// pixel is selected and 0 elsewhere.
func (s Selection) BuildMask(patch image.Rectangle) []byte {
	w, h := max(patch.Dx(), 0), max(patch.Dy(), 0)
	mask := make([]byte, w*h)

	if s.HasMask() {
		for p := range s.Mask {
			lx, ly := p.X-patch.Min.X, p.Y-patch.Min.Y
			if lx >= 0 && ly >= 0 && lx < w && ly < h {
				mask[ly*w+lx] = 255
			}
		}
		return mask
	}

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			if s.shapeContains(patch, px, py) {
				mask[py*w+px] = 255
			}
		}
	}
	return mask
}

// shapeContains tests the patch-local pixel (px, py) against the shape. Ellipses are
// centered on the patch; polygons are tested in canvas coordinates at the pixel center.
func (s Selection) shapeContains(patch image.Rectangle, px, py int) bool {
	switch s.Shape {
	case ShapeEllipse:
		rx := float64(patch.Dx()) / 2
		ry := float64(patch.Dy()) / 2
		if rx <= 0 || ry <= 0 {
			return false
		}
		dx := (float64(px) + 0.5 - rx) / rx
		dy := (float64(py) + 0.5 - ry) / ry
		return dx*dx+dy*dy <= 1
	case ShapePolygon, ShapeLasso:
		p := geom.Pt(float64(patch.Min.X+px)+0.5, float64(patch.Min.Y+py)+0.5)
		return geom.PointInPolygon(p, s.Points)
	default:
		return true
	}
}

// PixelSet materializes the selection as an explicit set of canvas pixels clipped to bounds.
func (s Selection) PixelSet(bounds image.Rectangle) PixelSet {
	r := s.Bounds().Intersect(bounds)
	mask := s.BuildMask(r)
	out := make(PixelSet)
	w := r.Dx()
	for i, m := range mask {
		if m != 0 {
			out[image.Pt(r.Min.X+i%w, r.Min.Y+i/w)] = struct{}{}
		}
	}
	return out
}
