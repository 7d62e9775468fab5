// Package geom provides the float geometry used by the transform tools: points,
// affine matrices, bilinear quads and polygon tests.
package geom

import (
	"image"
	"math"
)

// Point is a canvas-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromImage converts an integer point.
func FromImage(p image.Point) Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

func (p Point) Add(o Point) Point     { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point     { return Point{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }
func (p Point) Dot(o Point) float64   { return p.X*o.X + p.Y*o.Y }
func (p Point) Cross(o Point) float64 { return p.X*o.Y - p.Y*o.X }
func (p Point) Len() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(o Point) float64  { return p.Sub(o).Len() }
func (p Point) Lerp(o Point, t float64) Point {
	return Point{X: p.X + (o.X-p.X)*t, Y: p.Y + (o.Y-p.Y)*t}
}

// Rotate rotates p around the origin by radians (positive is clockwise in y-down space).
func (p Point) Rotate(radians float64) Point {
	sin, cos := math.Sincos(radians)
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Rect is a float rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the axis-aligned bounding box of pts.
func Bounds(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Pixels returns the integer rectangle of pixels whose cells intersect r.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

// Floor returns the rectangle with its origin and size floored, minimum size 1.
func (r Rect) Floor() image.Rectangle {
	x, y := int(math.Floor(r.X)), int(math.Floor(r.Y))
	w := max(int(math.Floor(r.Width)), 1)
	h := max(int(math.Floor(r.Height)), 1)
	return image.Rect(x, y, x+w, y+h)
}

// RectOf converts an integer rectangle.
func RectOf(r image.Rectangle) Rect {
	return Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}
