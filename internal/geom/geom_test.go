package geom

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix_FromTransformAnchorLandsOnPosition(t *testing.T) {
	assert := assert.New(t)

	m := FromTransform(10, 20, 2, 3, 37, 4, 5)
	p := m.Apply(Pt(4, 5))
	assert.InDelta(10, p.X, 1e-9)
	assert.InDelta(20, p.Y, 1e-9)

	inv := m.Invert()
	back := inv.Apply(m.Apply(Pt(1, 7)))
	assert.InDelta(1, back.X, 1e-9)
	assert.InDelta(7, back.Y, 1e-9)
	assert.True(m.Multiply(inv).IsIdentity())
}

func TestMatrix_SingularInvertsToIdentity(t *testing.T) {
	assert.True(t, Scale(0, 1).Invert().IsIdentity())
}

func TestMatrix_TransformRectRotated(t *testing.T) {
	assert := assert.New(t)

	m := FromTransform(0, 0, 1, 1, 90, 0, 0)
	r := m.TransformRect(Rect{X: 0, Y: 0, Width: 4, Height: 2})
	assert.InDelta(-2, r.X, 1e-9)
	assert.InDelta(0, r.Y, 1e-9)
	assert.InDelta(2, r.Width, 1e-9)
	assert.InDelta(4, r.Height, 1e-9)
}

func TestRect_PixelsAndFloor(t *testing.T) {
	assert := assert.New(t)

	r := Rect{X: 1.5, Y: -0.5, Width: 2, Height: 0.2}
	assert.Equal(image.Rect(1, -1, 4, 0), r.Pixels())
	assert.Equal(image.Rect(1, -1, 3, 0), r.Floor())
	assert.Equal(Rect{X: 2, Y: 3, Width: 4, Height: 5}, RectOf(image.Rect(2, 3, 6, 8)))
}

func TestQuad_InverseOfRectangle(t *testing.T) {
	assert := assert.New(t)

	q := QuadFromRect(Rect{X: 2, Y: 3, Width: 4, Height: 8})
	u, v, ok := q.Inverse(Pt(3, 5))
	assert.True(ok)
	assert.InDelta(0.25, u, 1e-12)
	assert.InDelta(0.25, v, 1e-12)

	_, _, ok = q.Inverse(Pt(7, 5))
	assert.False(ok)
}

func TestQuad_InverseRoundTripsOnTrapezoid(t *testing.T) {
	assert := assert.New(t)

	q := Quad{
		TopLeft:     Pt(0, 0),
		TopRight:    Pt(10, 1),
		BottomRight: Pt(12, 9),
		BottomLeft:  Pt(-1, 7),
	}
	for _, uv := range [][2]float64{{0.1, 0.2}, {0.5, 0.5}, {0.9, 0.7}, {0, 1}, {1, 0}} {
		p := q.At(uv[0], uv[1])
		u, v, ok := q.Inverse(p)
		assert.True(ok, "%v", uv)
		assert.InDelta(uv[0], u, 1e-7)
		assert.InDelta(uv[1], v, 1e-7)
	}
}

func TestQuad_DegenerateDoesNotPanic(t *testing.T) {
	q := Quad{}
	_, _, ok := q.Inverse(Pt(1, 1))
	assert.False(t, ok)
}

func TestQuad_CornersAndThirds(t *testing.T) {
	assert := assert.New(t)

	q := QuadFromRect(Rect{Width: 3, Height: 3})
	q = q.SetCorner(BottomRight, Pt(6, 6))
	assert.Equal(Pt(6, 6), q.Corner(BottomRight))
	assert.Equal("bottom-right", BottomRight.String())

	c, ok := ParseCorner("top-right")
	assert.True(ok)
	assert.Equal(TopRight, c)

	lines := QuadFromRect(Rect{Width: 3, Height: 3}).Thirds()
	assert.Len(lines, 4)
	assert.InDelta(1, lines[0][0].X, 1e-12)
	assert.InDelta(2, lines[1][1].X, 1e-12)
	assert.InDelta(1, lines[2][0].Y, 1e-12)
}

func TestPointInPolygon(t *testing.T) {
	assert := assert.New(t)

	square := []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	assert.True(PointInPolygon(Pt(2, 2), square))
	assert.False(PointInPolygon(Pt(5, 2), square))
	assert.False(PointInPolygon(Pt(2, 2), square[:2]))

	notch := []Point{{0, 0}, {6, 0}, {6, 6}, {2, 6}, {2, 2}, {4, 2}, {4, 4}, {0, 4}}
	assert.True(PointInPolygon(Pt(1, 1), notch))
	assert.False(PointInPolygon(Pt(3, 3), notch))

	// Winding twice around the square cancels out under even-odd.
	twice := append(append([]Point{}, square...), square...)
	assert.False(PointInPolygon(Pt(2, 2), twice))
}
