package geom

// PointInPolygon reports whether p lies inside the closed polygon under the
// even-odd rule. Fewer than three vertices enclose nothing.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	prev := polygon[len(polygon)-1]
	for _, cur := range polygon {
		if crossesRight(p, prev, cur) {
			inside = !inside
		}
		prev = cur
	}
	return inside
}

// crossesRight reports whether the horizontal ray from p toward +X crosses the
// edge a-b. Edges are half-open in Y so shared vertices count once.
func crossesRight(p, a, b Point) bool {
	if (a.Y > p.Y) == (b.Y > p.Y) {
		return false
	}
	t := (p.Y - a.Y) / (b.Y - a.Y)
	return p.X < a.X+t*(b.X-a.X)
}
