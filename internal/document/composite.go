package document

import (
	"image/color"
	"math"

	"github.com/inamate/pixelkit/internal/bone"
	"github.com/inamate/pixelkit/internal/pixel"
)

// Flatten composites the visible layers bottom to top. With a non-nil pose every
// layer is first rendered through the rig; stored pixels are not modified.
func (d *Document) Flatten(pose bone.Pose) *pixel.Buffer {
	w, h := d.Size()
	out := pixel.NewBuffer(w, h)
	for _, l := range d.Layers {
		if !l.Visible || l.Opacity <= 0 {
			continue
		}
		src := l.Pixels
		if pose != nil {
			src = d.Rig.Render(l.ID, src, pose)
		}
		for i, p := range src.Pix {
			if p.Filled {
				out.Pix[i] = over(out.Pix[i], p, l.Opacity)
			}
		}
	}
	return out
}

// RenderLayer returns one layer as posed at a frame of an animation.
func (d *Document) RenderLayer(layerID, animationID string, frame float64) (*pixel.Buffer, bool) {
	l, ok := d.Layer(layerID)
	if !ok {
		return nil, false
	}
	return d.Rig.Render(l.ID, l.Pixels, bone.AtTime(&d.Animations, animationID, frame)), true
}

// RenderFrame flattens the document posed at a frame of an animation.
func (d *Document) RenderFrame(animationID string, frame float64) *pixel.Buffer {
	return d.Flatten(bone.AtTime(&d.Animations, animationID, frame))
}

// over composites src onto dst (source-over on straight alpha).
func over(dst, src pixel.Pixel, opacity float64) pixel.Pixel {
	sa := float64(src.A) / 255 * min(opacity, 1)
	if !dst.Filled || dst.A == 0 {
		if sa <= 0 {
			return dst
		}
		c := src.NRGBA
		c.A = uint8(math.Round(sa * 255))
		return pixel.Of(c)
	}
	da := float64(dst.A) / 255
	oa := sa + da*(1-sa)
	if oa <= 0 {
		return pixel.Empty
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*sa + float64(d)*da*(1-sa)) / oa
		return uint8(math.Round(v))
	}
	return pixel.Of(color.NRGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8(math.Round(oa * 255)),
	})
}
