package bone

import (
	"image"
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// Interpolator resolves the animated position of a bone point at a time.
type Interpolator interface {
	InterpolateBoneTransform(animationID, boneID, pointID string, time float64) (geom.Point, bool)
}

// Pose returns the current position of a bone point, or false to leave it at rest.
type Pose func(boneID, pointID string) (geom.Point, bool)

// AtTime adapts an interpolator to a Pose for one animation and time.
func AtTime(in Interpolator, animationID string, time float64) Pose {
	return func(boneID, pointID string) (geom.Point, bool) {
		if in == nil {
			return geom.Point{}, false
		}
		return in.InterpolateBoneTransform(animationID, boneID, pointID, time)
	}
}

// Render returns src with every bound pixel drawn displaced by its bone point's
// movement from rest. Bound pixels are not drawn at their rest position, a pixel
// bound to several points follows the last binding, and where two pixels land on
// the same destination the later one wins. src is never modified.
func (r *Rig) Render(layerID string, src *pixel.Buffer, pose Pose) *pixel.Buffer {
	out := src.Clone()
	bindings := r.LayerBindings(layerID)
	if len(bindings) == 0 {
		return out
	}

	last := make(map[image.Point]int, len(bindings))
	for i, b := range bindings {
		if src.At(b.PixelX, b.PixelY).Filled {
			last[b.Pixel()] = i
		}
	}
	for p := range last {
		out.Clear(p.X, p.Y)
	}

	for i, b := range bindings {
		if j, ok := last[b.Pixel()]; !ok || j != i {
			continue
		}
		d := r.delta(b, pose)
		x := int(math.Round(float64(b.PixelX) + d.X))
		y := int(math.Round(float64(b.PixelY) + d.Y))
		out.Set(x, y, src.At(b.PixelX, b.PixelY))
	}
	return out
}

// delta is the displacement of a binding's point from rest; zero when the point is
// gone or has no pose.
func (r *Rig) delta(b Binding, pose Pose) geom.Point {
	rest, ok := r.RestPosition(b.BoneID, b.BonePointID)
	if !ok || pose == nil {
		return geom.Point{}
	}
	cur, ok := pose(b.BoneID, b.BonePointID)
	if !ok || !cur.Finite() {
		return geom.Point{}
	}
	return cur.Sub(rest)
}
