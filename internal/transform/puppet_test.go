package transform

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/region"
)

func TestInfluence_Falloff(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.0, Influence(0, 8))
	assert.Equal(1.0, Influence(2, 8))
	assert.Equal(0.0, Influence(8, 8))
	assert.Equal(0.0, Influence(20, 8))
	assert.Equal(0.0, Influence(1, 0))

	prev := 1.0
	for d := 2.5; d < 8; d += 0.5 {
		w := Influence(d, 8)
		assert.True(w > 0 && w < 1, "d=%v", d)
		assert.True(w < prev, "d=%v", d)
		prev = w
	}
}

func TestDisplacement_Invariants(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(geom.Point{}, Displacement(nil, geom.Pt(3, 3)), "no pins is identity")

	pin := Pin{X: 7, Y: 5, OriginalX: 5, OriginalY: 5, Radius: 8}
	// Inside the core around the live position the pin moves pixels rigidly.
	assert.Equal(geom.Pt(2, 0), Displacement([]Pin{pin}, geom.Pt(8, 6)))
	assert.Equal(geom.Pt(2, 0), Displacement([]Pin{pin}, geom.Pt(7, 5)))
	// Nothing moves outside the radius.
	assert.Equal(geom.Point{}, Displacement([]Pin{pin}, geom.Pt(20, 5)))

	// An unmoved pin sharing the area halves the pull.
	anchor := Pin{X: 7, Y: 5, OriginalX: 7, OriginalY: 5, Radius: 8}
	assert.Equal(geom.Pt(1, 0), Displacement([]Pin{pin, anchor}, geom.Pt(7, 5)))
}

func TestPuppet_PinLifecycle(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(20, 10)
	c.sel = region.Rect(image.Rect(0, 0, 20, 10))
	p := NewPuppet(c, DefaultOptions())
	_, ok := p.AddPin(geom.Pt(1, 1))
	assert.False(ok, "inactive")

	require.True(t, p.Activate())
	assert.InDelta(1.5, p.Params().DefaultRadius, 1e-9)

	pin, ok := p.AddPin(geom.Pt(4, 4))
	require.True(t, ok)
	assert.True(strings.HasPrefix(pin.ID, "pin_"))
	assert.Equal(pin.Radius, p.Params().DefaultRadius)

	id, ok := p.PinAt(geom.Pt(4.5, 4), 1)
	assert.True(ok)
	assert.Equal(pin.ID, id)

	assert.True(p.SetRadius(pin.ID, -3))
	assert.Equal(1.0, p.Params().Pins[0].Radius)

	require.True(t, p.SetLocked(pin.ID, true))
	assert.False(p.BeginDrag(pin.ID), "locked pins do not drag")
	assert.False(p.Drag(geom.Pt(9, 9)))
	assert.Equal(4.0, p.Params().Pins[0].X)

	require.True(t, p.SetLocked(pin.ID, false))
	require.True(t, p.BeginDrag(pin.ID))
	require.True(t, p.Drag(geom.Pt(5, 6)))
	assert.Equal(geom.Pt(1, 2), p.Params().Pins[0].Delta())

	assert.True(p.RemovePin(pin.ID))
	assert.Empty(p.Params().Pins)
	assert.False(p.RemovePin(pin.ID))
	assert.False(p.Drag(geom.Pt(1, 1)), "removed pin ends the drag")
}

func TestPuppet_NoPinsCommitIsNoop(t *testing.T) {
	c := noisy(8, 8, 8)
	c.sel = region.Rect(image.Rect(1, 1, 7, 7))
	before := c.base().Clone()

	p := NewPuppet(c, DefaultOptions())
	require.True(t, p.Activate())
	_, ok := p.AddPin(geom.Pt(3, 3))
	require.True(t, ok)

	res, ok := p.Commit(CommitOptions{})
	require.True(t, ok)
	assert.True(t, res.Noop)
	assert.True(t, before.Equal(c.base()))
}

func TestPuppet_SinglePinMovesPatchRigidly(t *testing.T) {
	assert := assert.New(t)

	c := newCanvas(10, 10)
	c.base().Set(3, 3, red)
	c.sel = region.Rect(image.Rect(2, 2, 6, 6))

	p := NewPuppet(c, DefaultOptions())
	require.True(t, p.Activate())
	pin, ok := p.AddPin(geom.Pt(4, 4))
	require.True(t, ok)
	assert.Equal(geom.Pt(2, 2), pin.Point(), "pins are patch-local")
	require.True(t, p.SetRadius(pin.ID, 100))
	require.True(t, p.BeginDrag(pin.ID))
	require.True(t, p.Drag(geom.Pt(6, 4)))

	assert.Equal(red, c.base().At(5, 3), "preview")
	assert.Equal(1, c.base().FilledCount())

	res, ok := p.Commit(CommitOptions{})
	require.True(t, ok)
	assert.False(res.Noop)
	assert.Equal(red, c.base().At(5, 3))
	assert.False(c.base().At(3, 3).Filled)
	assert.Equal(1, c.base().FilledCount())
	assert.Equal(image.Rect(5, 3, 6, 4), c.sel.Bounds())
	assert.Equal([]string{"Puppet Warp"}, c.snapshots)
}
