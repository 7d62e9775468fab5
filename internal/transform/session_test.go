package transform

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

type testCanvas struct {
	w, h      int
	layers    map[string]*pixel.Buffer
	order     []string
	active    string
	sel       region.Selection
	snapshots []string
	version   int
}

func newCanvas(w, h int) *testCanvas {
	c := &testCanvas{w: w, h: h, layers: map[string]*pixel.Buffer{}, active: "base"}
	c.layers["base"] = pixel.NewBuffer(w, h)
	c.order = []string{"base"}
	return c
}

func (c *testCanvas) Size() (int, int)                    { return c.w, c.h }
func (c *testCanvas) Selection() region.Selection         { return c.sel }
func (c *testCanvas) SetSelection(sel region.Selection)   { c.sel = sel }
func (c *testCanvas) ActiveLayerID() string               { return c.active }
func (c *testCanvas) LayerBuffer(id string) *pixel.Buffer { return c.layers[id] }
func (c *testCanvas) SaveSnapshot(label string)           { c.snapshots = append(c.snapshots, label) }
func (c *testCanvas) Touch()                              { c.version++ }

func (c *testCanvas) AddLayer(name string) (string, *pixel.Buffer) {
	id := fmt.Sprintf("layer-%d", len(c.order))
	c.layers[id] = pixel.NewBuffer(c.w, c.h)
	c.order = append(c.order, id)
	return id, c.layers[id]
}

func (c *testCanvas) base() *pixel.Buffer { return c.layers["base"] }

var (
	red  = pixel.Of(color.NRGBA{R: 255, A: 255})
	blue = pixel.Of(color.NRGBA{B: 255, A: 255})
)

// redDot is the 8x8 canvas with one red pixel at (3,3) and the 4x4 selection at (2,2).
func redDot() *testCanvas {
	c := newCanvas(8, 8)
	c.base().Set(3, 3, red)
	c.sel = region.Rect(image.Rect(2, 2, 6, 6))
	return c
}

func noisy(w, h int, seed int64) *testCanvas {
	c := newCanvas(w, h)
	r := rand.New(rand.NewSource(seed))
	for i := range c.base().Pix {
		if r.Intn(5) == 0 {
			continue
		}
		c.base().Pix[i] = pixel.Of(color.NRGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255})
	}
	return c
}

func TestSession_ActivatePreconditions(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(4, 4)
	before := c.base().Clone()

	f := NewFree(c, DefaultOptions())
	assert.False(f.Activate(), "empty selection")

	c.sel = region.Rect(image.Rect(10, 10, 12, 12))
	assert.False(f.Activate(), "selection off canvas")

	c.sel = region.Rect(image.Rect(0, 0, 2, 2))
	c.active = "missing"
	assert.False(f.Activate(), "missing layer")

	assert.False(f.Active())
	assert.True(before.Equal(c.base()))
	assert.Equal(0, c.version)

	assert.False(NewFree(nil, DefaultOptions()).Activate())
}

func TestSession_ActivateTwiceIsRejected(t *testing.T) {
	c := redDot()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	assert.False(t, f.Activate())
}

func TestSession_StateClearedAfterCommit(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	_, ok := f.Commit(CommitOptions{})
	assert.True(ok)

	assert.False(f.Active())
	assert.False(f.Cancel())
	_, ok = f.Commit(CommitOptions{})
	assert.False(ok)
	assert.Nil(f.Session().Source().Buffer)
	assert.Equal(FreeParams{}, f.Params())

	assert.True(f.Activate(), "a fresh activation works after commit")
}

func TestCancel_RestoresLayerForEveryKind(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	randPt := func() geom.Point { return geom.Pt(r.Float64()*16-3, r.Float64()*16-3) }

	type tool interface {
		Active() bool
		Cancel() bool
	}
	kinds := map[string]func(c *testCanvas) tool{
		"free": func(c *testCanvas) tool {
			f := NewFree(c, DefaultOptions())
			f.Activate()
			for _, h := range []Handle{HandleBottomRight, HandleRotate, HandleMove, HandleLeft} {
				f.BeginDrag(h, randPt())
				f.Drag(randPt(), Modifiers{Constrain: r.Intn(2) == 0, Snap: true})
				f.Drag(randPt(), Modifiers{})
				f.EndDrag()
			}
			f.Mirror(true)
			return f
		},
		"distort": func(c *testCanvas) tool {
			d := NewDistort(c, DefaultOptions())
			d.Activate()
			for i := 0; i < 4; i++ {
				d.BeginDrag(geom.Corner(i))
				d.Drag(randPt())
			}
			return d
		},
		"perspective": func(c *testCanvas) tool {
			p := NewPerspective(c, DefaultOptions())
			p.Activate(Constraints{KeepParallelEdges: true})
			p.BeginDrag(geom.TopLeft)
			p.Drag(randPt())
			p.SetConstraints(Constraints{PreserveAspectRatio: true})
			p.Drag(randPt())
			return p
		},
		"warp": func(c *testCanvas) tool {
			w := NewWarp(c, DefaultOptions())
			w.Activate(Grid4x4)
			for i := 0; i < 6; i++ {
				w.BeginDrag(r.Intn(25))
				w.Drag(randPt())
			}
			w.SetGridSize(Grid5x5)
			w.BeginDrag(7)
			w.Drag(randPt())
			return w
		},
		"puppet": func(c *testCanvas) tool {
			p := NewPuppet(c, DefaultOptions())
			p.Activate()
			pin, _ := p.AddPin(geom.Pt(4, 4))
			p.SetRadius(pin.ID, 6)
			p.BeginDrag(pin.ID)
			p.Drag(randPt())
			p.AddPin(geom.Pt(6, 6))
			return p
		},
	}

	for name, run := range kinds {
		t.Run(name, func(t *testing.T) {
			c := noisy(12, 12, 5)
			c.sel = region.Ellipse(image.Rect(2, 3, 9, 10))
			before := c.base().Clone()

			tl := run(c)
			require.True(t, tl.Active())
			assert.True(t, tl.Cancel())
			assert.True(t, before.Equal(c.base()), "layer differs after cancel")
			assert.False(t, tl.Active())
			assert.False(t, tl.Cancel())
			assert.Empty(t, c.snapshots)
		})
	}
}

func TestFree_IdentityCommitIsNoop(t *testing.T) {
	assert := assert.New(t)

	c := noisy(8, 8, 2)
	c.sel = region.Rect(image.Rect(1, 1, 6, 5))
	before := c.base().Clone()

	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	res, ok := f.Commit(CommitOptions{})
	assert.True(ok)
	assert.True(res.Noop)
	assert.True(before.Equal(c.base()))
	assert.Empty(c.snapshots)
}

func TestFree_ScaleRoundTrip(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())

	corner := f.HandlePosition(HandleBottomRight, 1)
	assert.Equal(geom.Pt(6, 6), corner)
	require.True(t, f.BeginDrag(HandleBottomRight, corner))
	require.True(t, f.Drag(geom.Pt(10, 10), Modifiers{}))

	p := f.Params()
	assert.Equal(2.0, p.X)
	assert.Equal(2.0, p.Y)
	assert.Equal(8.0, p.Width)
	assert.Equal(8.0, p.Height)
	assert.Equal(2.0, p.ScaleX())

	res, ok := f.Commit(CommitOptions{})
	require.True(t, ok)
	assert.False(res.Noop)

	layer := c.base()
	for _, pt := range []image.Point{{4, 4}, {5, 4}, {4, 5}, {5, 5}} {
		assert.Equal(red, layer.At(pt.X, pt.Y), "%v", pt)
	}
	assert.Equal(4, layer.FilledCount())
	assert.False(layer.At(3, 3).Filled)
	assert.False(layer.At(2, 2).Filled)

	assert.Equal(image.Rect(2, 2, 10, 10), c.sel.Bounds())
	assert.Equal([]string{"Free Transform"}, c.snapshots)
}

func TestFree_PreviewDoesNotLeak(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	before := c.base().Clone()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	assert.True(before.Equal(c.base()), "identity preview shows the original")

	f.BeginDrag(HandleMove, geom.Pt(4, 4))
	f.Drag(geom.Pt(6, 4), Modifiers{})
	assert.Equal(red, c.base().At(5, 3))
	assert.False(c.base().At(3, 3).Filled)
	assert.Equal(1, c.base().FilledCount())

	f.Drag(geom.Pt(4, 4), Modifiers{})
	assert.True(before.Equal(c.base()))
}

func TestFree_RotateSnapsToStep(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())

	start := f.HandlePosition(HandleRotate, 1)
	assert.Equal(geom.Pt(4, -18), start)
	require.True(t, f.BeginDrag(HandleRotate, start))

	f.Drag(geom.Pt(14, 5), Modifiers{})
	assert.InDelta(95.71, f.Params().Rotation, 0.01)

	f.Drag(geom.Pt(14, 5), Modifiers{Snap: true})
	assert.Equal(90.0, f.Params().Rotation)

	_, ok := f.Commit(CommitOptions{})
	require.True(t, ok)
	assert.Equal(red, c.base().At(4, 3))
	assert.Equal(1, c.base().FilledCount())
	assert.Equal(image.Rect(2, 2, 6, 6), c.sel.Bounds())
}

func TestFree_ResizeHandles(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(8, 8)
	c.sel = region.Rect(image.Rect(2, 2, 6, 4))
	c.base().Set(2, 2, blue)

	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())

	f.BeginDrag(HandleBottomRight, geom.Pt(6, 4))
	f.Drag(geom.Pt(10, 4), Modifiers{Constrain: true})
	p := f.Params()
	assert.Equal([]float64{2, 2, 8, 4}, []float64{p.X, p.Y, p.Width, p.Height})

	f.Drag(geom.Pt(10, 4), Modifiers{})
	p = f.Params()
	assert.Equal([]float64{2, 2, 8, 2}, []float64{p.X, p.Y, p.Width, p.Height})
	f.EndDrag()

	f.SetParams(FreeParams{X: 2, Y: 2, Width: 4, Height: 2})
	f.BeginDrag(HandleLeft, geom.Pt(2, 3))
	f.Drag(geom.Pt(3, 3), Modifiers{})
	p = f.Params()
	assert.Equal([]float64{3, 2, 3, 2}, []float64{p.X, p.Y, p.Width, p.Height})

	// Dragging past the opposite edge clamps to one pixel.
	f.Drag(geom.Pt(20, 3), Modifiers{})
	assert.Equal(1.0, f.Params().Width)
	assert.Equal(5.0, f.Params().X)
}

func TestFree_MirrorSwapsColumns(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(4, 1)
	c.base().Set(0, 0, red)
	c.base().Set(1, 0, blue)
	c.sel = region.Rect(image.Rect(0, 0, 2, 1))

	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	require.True(t, f.Mirror(true))
	assert.Equal(-1.0, f.Params().ScaleX())

	res, ok := f.Commit(CommitOptions{})
	require.True(t, ok)
	assert.False(res.Noop)
	assert.Equal(blue, c.base().At(0, 0))
	assert.Equal(red, c.base().At(1, 0))
}

func TestFree_HandleAt(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	f := NewFree(c, DefaultOptions())
	assert.Equal(HandleNone, f.HandleAt(geom.Pt(6, 6), 8))
	require.True(t, f.Activate())

	assert.Equal(HandleBottomRight, f.HandleAt(geom.Pt(6.5, 6.5), 8))
	assert.Equal(HandleTop, f.HandleAt(geom.Pt(4, 2), 8))
	assert.Equal(HandleRotate, f.HandleAt(geom.Pt(4, -0.5), 8))
	assert.Equal(HandleMove, f.HandleAt(geom.Pt(4, 4), 8))
	assert.Equal(HandleNone, f.HandleAt(geom.Pt(20, 20), 8))

	// Zoomed out, the same screen radius covers more canvas.
	assert.Equal(HandleBottomRight, f.HandleAt(geom.Pt(7, 7), 0.5))
}

func TestFree_DuplicateKeepsOriginal(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	f.BeginDrag(HandleMove, geom.Pt(4, 4))
	f.Drag(geom.Pt(6, 4), Modifiers{})

	_, ok := f.Commit(CommitOptions{Duplicate: true})
	require.True(t, ok)
	assert.Equal(red, c.base().At(3, 3))
	assert.Equal(red, c.base().At(5, 3))
	assert.Equal(image.Rect(4, 2, 8, 6), c.sel.Bounds())
}

func TestFree_NewLayerTarget(t *testing.T) {
	assert := assert.New(t)

	c := redDot()
	before := c.base().Clone()
	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	f.BeginDrag(HandleMove, geom.Pt(4, 4))
	f.Drag(geom.Pt(6, 4), Modifiers{})

	res, ok := f.Commit(CommitOptions{NewLayer: true, Label: "to layer"})
	require.True(t, ok)
	assert.Equal("layer-1", res.LayerID)
	assert.True(before.Equal(c.base()))
	assert.Equal(red, c.layers["layer-1"].At(5, 3))
	assert.Equal(1, c.layers["layer-1"].FilledCount())
	assert.Equal([]string{"to layer"}, c.snapshots)
}

func TestFree_MaskedSelectionMovesOnlySelectedPixels(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(6, 1)
	c.base().Set(0, 0, red)
	c.base().Set(1, 0, blue)
	c.sel = region.FromMask(region.NewPixelSet(image.Pt(0, 0)))

	f := NewFree(c, DefaultOptions())
	require.True(t, f.Activate())
	f.BeginDrag(HandleMove, geom.Pt(0.5, 0.5))
	f.Drag(geom.Pt(3.5, 0.5), Modifiers{})
	_, ok := f.Commit(CommitOptions{})
	require.True(t, ok)

	assert.False(c.base().At(0, 0).Filled)
	assert.Equal(blue, c.base().At(1, 0))
	assert.Equal(red, c.base().At(3, 0))
}

func TestFreeParams_JSONIncludesDerivedFields(t *testing.T) {
	p := FreeParams{X: 1, Y: 2, Width: 8, Height: 4, SourceWidth: 4, SourceHeight: 4, FlipY: true}
	data, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":2,"width":8,"height":4,"rotation":0,"flipX":false,"flipY":true,
		"sourceWidth":4,"sourceHeight":4,"scaleX":2,"scaleY":-1,"centerX":5,"centerY":4}`, string(data))
}

func TestKind_Names(t *testing.T) {
	assert := assert.New(t)

	k, ok := ParseKind("puppet")
	assert.True(ok)
	assert.Equal(KindPuppet, k)
	assert.Equal("Puppet Warp", k.Title())
	_, ok = ParseKind("shear")
	assert.False(ok)
	assert.Equal(HandleTopLeft, ParseHandle("top-left"))
	assert.Equal(HandleNone, ParseHandle(""))
}
