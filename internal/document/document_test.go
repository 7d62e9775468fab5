package document

import (
	"encoding/json"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/animation"
	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
	"github.com/inamate/pixelkit/internal/transform"
)

var _ transform.Canvas = (*Document)(nil)

var red = pixel.Of(color.NRGBA{R: 255, A: 255})

func TestNew_Defaults(t *testing.T) {
	assert := assert.New(t)

	d := New("proj_1", "Sprite", 0, 5000)
	w, h := d.Size()
	assert.Equal(DefaultWidth, w)
	assert.Equal(DefaultHeight, h)
	require.Len(t, d.Layers, 1)
	assert.Equal(d.Layers[0].ID, d.ActiveLayerID())
	assert.True(strings.HasPrefix(d.ActiveLayer, "layer_"))
	assert.NotNil(d.LayerBuffer(d.ActiveLayer))
	assert.Nil(d.LayerBuffer("missing"))
}

func TestParse_RoundTripAndValidation(t *testing.T) {
	assert := assert.New(t)

	d := NewSampleDocument("proj_sample")
	data, err := json.Marshal(d)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(d.ActiveLayer, back.ActiveLayer)
	require.Len(t, back.Layers, 2)
	assert.True(d.Layers[1].Pixels.Equal(back.Layers[1].Pixels))
	assert.Len(back.Rig.Bindings, len(d.Rig.Bindings))
	require.Len(t, back.Animations.Animations, 1)

	_, err = Parse([]byte(`{"project":{"width":0,"height":4}}`))
	assert.Error(err)
	_, err = Parse([]byte(`{"project":{"width":2,"height":2},"layers":[{"id":"a","pixels":{"width":2,"height":2,"pixels":[null]}}]}`))
	assert.Error(err)
	_, err = Parse([]byte(`not json`))
	assert.Error(err)

	fixed, err := Parse([]byte(`{"project":{"width":2,"height":2},"layers":[{"id":"a"}],"activeLayer":"gone"}`))
	require.NoError(t, err)
	assert.Equal("a", fixed.ActiveLayer)
	assert.Len(fixed.Layers[0].Pixels.Pix, 4)
}

func TestAddLayer_InsertsAboveActive(t *testing.T) {
	assert := assert.New(t)

	d := New("p", "n", 4, 4)
	first := d.ActiveLayer
	top, _ := d.AddLayer("top")
	mid, buf := d.AddLayer("mid")
	assert.Equal(first, d.ActiveLayer, "active layer unchanged")
	assert.Equal([]string{first, mid, top}, layerIDs(d))
	assert.Equal(image.Rect(0, 0, 4, 4), buf.Bounds())

	d.SetLayerLocked(mid, true)
	assert.Nil(d.LayerBuffer(mid))

	assert.True(d.SetActiveLayer(top))
	assert.True(d.RemoveLayer(top))
	assert.Equal(mid, d.ActiveLayer)
	assert.True(d.RemoveLayer(mid))
	assert.False(d.RemoveLayer(first), "last layer stays")
}

func TestSnapshots_HistoryAndRestore(t *testing.T) {
	assert := assert.New(t)

	d := New("p", "n", 4, 4)
	var seen []Snapshot
	d.OnSnapshot(func(s Snapshot) { seen = append(seen, s) })

	d.SaveSnapshot("empty")
	buf := d.LayerBuffer(d.ActiveLayer)
	buf.Set(1, 1, red)
	d.SetSelection(region.Rect(image.Rect(0, 0, 2, 2)))
	d.Touch()
	d.SaveSnapshot("dot")

	assert.Equal([]string{"empty", "dot"}, d.History())
	require.Len(t, seen, 2)
	assert.Equal("p", seen[1].ProjectID)
	assert.True(strings.HasPrefix(seen[0].ID, "snap_"))

	v := d.PixelsVersion
	require.True(t, d.RestoreID(seen[0].ID))
	assert.Equal(0, d.LayerBuffer(d.ActiveLayer).FilledCount())
	assert.True(d.Selection().Empty())
	assert.Greater(d.PixelsVersion, v)

	require.True(t, d.RestoreID(seen[1].ID))
	assert.Equal(red, d.LayerBuffer(d.ActiveLayer).At(1, 1))
	// Restored layers are copies; editing them leaves history intact.
	d.LayerBuffer(d.ActiveLayer).Clear(1, 1)
	assert.True(d.Snapshots()[1].Layers[0].Pixels.At(1, 1).Filled)

	assert.False(d.RestoreID("snap_missing"))

	for i := 0; i < MaxHistory+5; i++ {
		d.SaveSnapshot("x")
	}
	assert.Len(d.History(), MaxHistory)
}

func TestFlatten_VisibilityAndOpacity(t *testing.T) {
	assert := assert.New(t)

	d := New("p", "n", 2, 1)
	d.Layers[0].Pixels.Set(0, 0, pixel.Of(color.NRGBA{B: 255, A: 255}))
	id, top := d.AddLayer("top")
	top.Set(0, 0, red)
	top.Set(1, 0, red)

	out := d.Flatten(nil)
	assert.Equal(red, out.At(0, 0))
	assert.Equal(red, out.At(1, 0))

	l, _ := d.Layer(id)
	l.Opacity = 0.5
	out = d.Flatten(nil)
	assert.Equal(pixel.Of(color.NRGBA{R: 128, B: 128, A: 255}), out.At(0, 0))
	assert.Equal(pixel.Of(color.NRGBA{R: 255, A: 128}), out.At(1, 0))

	d.SetLayerVisible(id, false)
	out = d.Flatten(nil)
	assert.Equal(pixel.Of(color.NRGBA{B: 255, A: 255}), out.At(0, 0))
	assert.False(out.At(1, 0).Filled)
}

func TestRenderFrame_SampleWaves(t *testing.T) {
	assert := assert.New(t)

	d := NewSampleDocument("proj_sample")
	charID := d.Layers[1].ID
	before := d.Layers[1].Pixels.Clone()
	anim := d.Animations.Animations[0]

	rest, ok := d.RenderLayer(charID, anim.ID, 0)
	require.True(t, ok)
	assert.True(before.Equal(rest), "frame 0 is the rest pose")

	raised, _ := d.RenderLayer(charID, anim.ID, 6)
	assert.False(raised.At(22, 15).Filled, "hand left its rest position")
	assert.True(raised.At(22, 11).Filled)
	assert.True(before.Equal(d.Layers[1].Pixels), "stored pixels untouched")

	frame := d.RenderFrame(anim.ID, 6)
	assert.Equal(pixel.MustHex("#1a1a2e"), frame.At(22, 15))

	_, ok = d.RenderLayer("missing", anim.ID, 0)
	assert.False(ok)
}

func TestRemoveBone_DropsTracksAndBindings(t *testing.T) {
	assert := assert.New(t)

	d := NewSampleDocument("p")
	b := d.Rig.Bones[0]
	hand := b.Points[1]
	require.NotEmpty(t, d.Rig.Bindings)

	assert.True(d.RemoveBonePoint(b.ID, hand.ID))
	assert.Empty(d.Rig.Bindings)
	assert.Empty(d.Animations.Animations[0].Tracks)

	p, ok := d.Rig.AddPoint(b.ID, geom.Pt(1, 1), "")
	require.True(t, ok)
	require.True(t, d.Animations.Animations[0].SetKeyframe(b.ID, p.ID, animation.Keyframe{Frame: 2, X: 3, Y: 3}))
	assert.True(d.RemoveBone(b.ID))
	assert.Empty(d.Animations.Animations[0].Tracks)
	assert.False(d.RemoveBone(b.ID))
}

func layerIDs(d *Document) []string {
	out := make([]string, len(d.Layers))
	for i, l := range d.Layers {
		out[i] = l.ID
	}
	return out
}
