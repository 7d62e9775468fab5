package document

import (
	"github.com/inamate/pixelkit/internal/animation"
	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// NewSampleDocument returns a small rigged sprite: a background, a character layer
// with a two-point arm bone, and a wave animation.
func NewSampleDocument(projectID string) *Document {
	d := New(projectID, "Untitled", 32, 32)
	bg := d.Layers[0]
	bg.Name = "Background"

	sky := pixel.MustHex("#1a1a2e")
	for i := range bg.Pixels.Pix {
		bg.Pixels.Pix[i] = sky
	}

	charID, char := d.AddLayer("Character")
	d.ActiveLayer = charID

	body := pixel.MustHex("#f5a623")
	outline := pixel.MustHex("#c78400")
	for y := 12; y < 24; y++ {
		for x := 12; x < 18; x++ {
			p := body
			if x == 12 || x == 17 || y == 12 || y == 23 {
				p = outline
			}
			char.Set(x, y, p)
		}
	}
	// Head.
	head := pixel.MustHex("#53d769")
	for y := 7; y < 12; y++ {
		for x := 13; x < 17; x++ {
			char.Set(x, y, head)
		}
	}
	// Arm.
	arm := pixel.MustHex("#bd10e0")
	for x := 18; x < 23; x++ {
		char.Set(x, 15, arm)
	}

	b := d.Rig.AddBone("Arm", "#ffffff", 2)
	shoulder, _ := d.Rig.AddPoint(b.ID, geom.Pt(18.5, 15.5), "")
	hand, _ := d.Rig.AddPoint(b.ID, geom.Pt(22.5, 15.5), shoulder.ID)
	d.Rig.AutoBind(charID, char, b.ID, hand.ID, 2)

	wave := d.NewAnimation("Wave", 12, 12)
	wave.SetKeyframe(b.ID, hand.ID, animation.Keyframe{Frame: 0, X: 22.5, Y: 15.5, Easing: animation.EasingEaseInOut})
	wave.SetKeyframe(b.ID, hand.ID, animation.Keyframe{Frame: 6, X: 22.5, Y: 11.5, Easing: animation.EasingEaseInOut})
	wave.SetKeyframe(b.ID, hand.ID, animation.Keyframe{Frame: 12, X: 22.5, Y: 15.5})

	return d
}
