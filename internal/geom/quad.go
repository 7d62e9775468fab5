package geom

import "math"

// Corner names one vertex of a Quad.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

var cornerNames = [...]string{"top-left", "top-right", "bottom-right", "bottom-left"}

func (c Corner) String() string {
	if c < TopLeft || c > BottomLeft {
		return "unknown"
	}
	return cornerNames[c]
}

// ParseCorner maps a corner name back to its value.
func ParseCorner(s string) (Corner, bool) {
	for i, n := range cornerNames {
		if n == s {
			return Corner(i), true
		}
	}
	return 0, false
}

// Quad is a quadrilateral given clockwise from the top-left corner. The mapping
// (u, v) -> point is bilinear over the unit square.
type Quad struct {
	TopLeft     Point `json:"topLeft"`
	TopRight    Point `json:"topRight"`
	BottomRight Point `json:"bottomRight"`
	BottomLeft  Point `json:"bottomLeft"`
}

// QuadFromRect returns the quad with the corners of r.
func QuadFromRect(r Rect) Quad {
	return Quad{
		TopLeft:     Pt(r.X, r.Y),
		TopRight:    Pt(r.X+r.Width, r.Y),
		BottomRight: Pt(r.X+r.Width, r.Y+r.Height),
		BottomLeft:  Pt(r.X, r.Y+r.Height),
	}
}

// Corner returns the vertex c.
func (q Quad) Corner(c Corner) Point {
	switch c {
	case TopRight:
		return q.TopRight
	case BottomRight:
		return q.BottomRight
	case BottomLeft:
		return q.BottomLeft
	default:
		return q.TopLeft
	}
}

// SetCorner returns a copy of q with vertex c moved to p.
func (q Quad) SetCorner(c Corner, p Point) Quad {
	switch c {
	case TopRight:
		q.TopRight = p
	case BottomRight:
		q.BottomRight = p
	case BottomLeft:
		q.BottomLeft = p
	default:
		q.TopLeft = p
	}
	return q
}

// Corners returns the vertices in Corner order.
func (q Quad) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Translate moves every vertex by d.
func (q Quad) Translate(d Point) Quad {
	return Quad{
		TopLeft:     q.TopLeft.Add(d),
		TopRight:    q.TopRight.Add(d),
		BottomRight: q.BottomRight.Add(d),
		BottomLeft:  q.BottomLeft.Add(d),
	}
}

// Center returns the vertex centroid.
func (q Quad) Center() Point {
	return q.TopLeft.Add(q.TopRight).Add(q.BottomRight).Add(q.BottomLeft).Scale(0.25)
}

// Bounds returns the axis-aligned bounding box.
func (q Quad) Bounds() Rect {
	return Bounds(q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft)
}

// At maps unit-square coordinates onto the quad.
func (q Quad) At(u, v float64) Point {
	top := q.TopLeft.Lerp(q.TopRight, u)
	bottom := q.BottomLeft.Lerp(q.BottomRight, u)
	return top.Lerp(bottom, v)
}

const quadEps = 1e-9

// Inverse returns the unit-square coordinates (u, v) that At maps to p.
// ok is false when p is outside the quad (with a small tolerance) or the quad is
// degenerate along the axis needed to solve for p.
func (q Quad) Inverse(p Point) (u, v float64, ok bool) {
	e := q.TopRight.Sub(q.TopLeft)
	f := q.BottomLeft.Sub(q.TopLeft)
	g := q.TopLeft.Sub(q.TopRight).Add(q.BottomRight).Sub(q.BottomLeft)
	h := p.Sub(q.TopLeft)

	k2 := g.Cross(f)
	k1 := e.Cross(f) + h.Cross(g)
	k0 := h.Cross(e)

	if math.Abs(k2) < quadEps {
		if math.Abs(k1) < quadEps {
			return 0, 0, false
		}
		v = -k0 / k1
		u, ok = solveU(e, f, g, h, v)
		return u, v, ok && inUnit(u, v)
	}

	w := k1*k1 - 4*k0*k2
	if w < 0 {
		return 0, 0, false
	}
	w = math.Sqrt(w)
	ik2 := 0.5 / k2

	v = (-k1 - w) * ik2
	u, ok = solveU(e, f, g, h, v)
	if ok && inUnit(u, v) {
		return u, v, true
	}

	v = (-k1 + w) * ik2
	u, ok = solveU(e, f, g, h, v)
	return u, v, ok && inUnit(u, v)
}

// solveU recovers u once v is known, using whichever axis is better conditioned.
func solveU(e, f, g, h Point, v float64) (float64, bool) {
	dx := e.X + g.X*v
	dy := e.Y + g.Y*v
	switch {
	case math.Abs(dx) >= math.Abs(dy) && math.Abs(dx) > quadEps:
		return (h.X - f.X*v) / dx, true
	case math.Abs(dy) > quadEps:
		return (h.Y - f.Y*v) / dy, true
	default:
		return 0, false
	}
}

func inUnit(u, v float64) bool {
	const tol = 1e-7
	return u >= -tol && u <= 1+tol && v >= -tol && v <= 1+tol
}

// Thirds returns the 3x3 guide grid lines of the quad: two lines joining the top and
// bottom edges at u = 1/3, 2/3 and two joining the left and right edges at v = 1/3, 2/3.
func (q Quad) Thirds() [][2]Point {
	lines := make([][2]Point, 0, 4)
	for _, t := range []float64{1.0 / 3, 2.0 / 3} {
		lines = append(lines, [2]Point{q.At(t, 0), q.At(t, 1)})
	}
	for _, t := range []float64{1.0 / 3, 2.0 / 3} {
		lines = append(lines, [2]Point{q.At(0, t), q.At(1, t)})
	}
	return lines
}
