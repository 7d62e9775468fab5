package transform

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

func TestDistort_IdentityCommitIsNoop(t *testing.T) {
	c := noisy(6, 6, 4)
	c.sel = region.Rect(image.Rect(1, 1, 5, 4))
	before := c.base().Clone()

	d := NewDistort(c, DefaultOptions())
	require.True(t, d.Activate())
	res, ok := d.Commit(CommitOptions{})
	require.True(t, ok)
	assert.True(t, res.Noop)
	assert.True(t, before.Equal(c.base()))
}

func TestDistort_CornerDragResamples(t *testing.T) {
	assert := assert.New(t)

	c := noisy(4, 4, 9)
	c.sel = region.Rect(image.Rect(0, 0, 2, 2))
	orig := c.base().Clone()

	d := NewDistort(c, DefaultOptions())
	require.True(t, d.Activate())
	require.True(t, d.BeginDrag(geom.BottomRight))
	require.True(t, d.Drag(geom.Pt(4, 4)))
	d.EndDrag()
	assert.False(d.Drag(geom.Pt(1, 1)), "no drag in progress")

	_, ok := d.Commit(CommitOptions{})
	require.True(t, ok)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := orig.At(x/2, y/2)
			if !want.Filled {
				if x < 2 && y < 2 {
					want = pixel.Empty
				} else {
					want = orig.At(x, y)
				}
			}
			assert.Equal(want, c.base().At(x, y), "(%d,%d)", x, y)
		}
	}
	assert.Equal(image.Rect(0, 0, 4, 4), c.sel.Bounds())
	assert.Equal([]string{"Distort"}, c.snapshots)
}

func TestDistort_HitTestAndGuides(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	d := NewDistort(c, DefaultOptions())
	assert.Nil(d.Guides())
	_, ok := d.CornerAt(geom.Pt(6, 6), 1)
	assert.False(ok)

	require.True(t, d.Activate())
	corner, ok := d.CornerAt(geom.Pt(6.2, 6.1), 8)
	assert.True(ok)
	assert.Equal(geom.BottomRight, corner)
	_, ok = d.CornerAt(geom.Pt(4, 4), 8)
	assert.False(ok)

	assert.Len(d.Guides(), 4)
	assert.False(d.BeginDrag(geom.Corner(7)))
}

func TestMoveCorner_KeepParallelEdges(t *testing.T) {
	assert := assert.New(t)

	q := geom.QuadFromRect(geom.Rect{Width: 4, Height: 4})
	cons := Constraints{KeepParallelEdges: true}

	got := MoveCorner(q, geom.TopLeft, geom.Pt(1, -1), cons, 1)
	assert.Equal(geom.Pt(1, -1), got.TopLeft)
	assert.Equal(geom.Pt(1, 4), got.BottomLeft)
	assert.Equal(geom.Pt(4, -1), got.TopRight)
	assert.Equal(q.BottomRight, got.BottomRight)

	got = MoveCorner(q, geom.BottomRight, geom.Pt(5, 6), cons, 1)
	assert.Equal(geom.Pt(5, 0), got.TopRight)
	assert.Equal(geom.Pt(0, 6), got.BottomLeft)

	got = MoveCorner(q, geom.TopRight, geom.Pt(6, 1), cons, 1)
	assert.Equal(geom.Pt(6, 4), got.BottomRight)
	assert.Equal(geom.Pt(0, 1), got.TopLeft)

	got = MoveCorner(q, geom.BottomLeft, geom.Pt(-2, 5), cons, 1)
	assert.Equal(geom.Pt(-2, 0), got.TopLeft)
	assert.Equal(geom.Pt(4, 5), got.BottomRight)
}

func TestMoveCorner_PreserveAspectRatio(t *testing.T) {
	assert := assert.New(t)

	q := geom.QuadFromRect(geom.Rect{X: 0, Y: 1, Width: 4, Height: 2})
	want := geom.QuadFromRect(geom.Rect{X: -1, Y: 0.5, Width: 6, Height: 3})

	assert.Equal(want, MoveCorner(q, geom.BottomRight, geom.Pt(5, 3), Constraints{PreserveAspectRatio: true}, 2))

	both := Constraints{PreserveAspectRatio: true, KeepParallelEdges: true}
	assert.Equal(want, MoveCorner(q, geom.BottomRight, geom.Pt(5, 3), both, 2), "aspect wins")

	// Dragging onto the center keeps a minimal rectangle instead of collapsing.
	tiny := MoveCorner(q, geom.TopLeft, geom.Pt(2, 2), Constraints{PreserveAspectRatio: true}, 2)
	assert.Equal(geom.Pt(1, 1.5), tiny.TopLeft)
	assert.Equal(geom.Pt(3, 2.5), tiny.BottomRight)
}

func TestMoveCorner_Unconstrained(t *testing.T) {
	q := geom.QuadFromRect(geom.Rect{Width: 4, Height: 4})
	got := MoveCorner(q, geom.TopLeft, geom.Pt(1, 1), Constraints{}, 1)
	assert.Equal(t, q.SetCorner(geom.TopLeft, geom.Pt(1, 1)), got)
}

func TestPerspective_AspectDrag(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(8, 8)
	c.sel = region.Rect(image.Rect(2, 2, 6, 4))
	c.base().Set(2, 2, blue)

	p := NewPerspective(c, DefaultOptions())
	require.True(t, p.Activate(Constraints{PreserveAspectRatio: true}))
	assert.Equal(4, p.Params().SourceWidth)

	require.True(t, p.BeginDrag(geom.TopLeft))
	require.True(t, p.Drag(geom.Pt(0, 3)))
	assert.Equal(geom.QuadFromRect(geom.Rect{X: 0, Y: 1, Width: 8, Height: 4}), p.Params().Quad)

	require.True(t, p.SetConstraints(Constraints{}))
	require.True(t, p.Drag(geom.Pt(-1, 0)))
	assert.Equal(geom.Pt(-1, 0), p.Params().Quad.TopLeft)
	assert.Equal(geom.Pt(8, 1), p.Params().Quad.TopRight)

	assert.True(p.Cancel())
	assert.Equal(blue, c.base().At(2, 2))
	assert.Equal(1, c.base().FilledCount())
}

func TestDistort_CollapsedQuadKeepsPixels(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	before := c.base().Clone()
	d := NewDistort(c, DefaultOptions())
	require.True(t, d.Activate())

	flat := geom.Quad{
		TopLeft: geom.Pt(2, 4), TopRight: geom.Pt(6, 4),
		BottomRight: geom.Pt(6, 4), BottomLeft: geom.Pt(2, 4),
	}
	require.True(t, d.SetQuad(flat))
	assert.True(before.Equal(c.base()), "preview falls back to the source")

	res, ok := d.Commit(CommitOptions{})
	require.True(t, ok)
	assert.True(res.Noop)
	assert.True(before.Equal(c.base()))
	assert.Empty(c.snapshots)
	assert.Equal(image.Rect(2, 2, 6, 6), c.sel.Bounds())
}
