package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// Kind identifies a transform tool.
type Kind int

const (
	KindFree Kind = iota
	KindDistort
	KindPerspective
	KindWarp
	KindPuppet
)

var kindNames = [...]string{"free", "distort", "perspective", "warp", "puppet"}
var kindTitles = [...]string{"Free Transform", "Distort", "Perspective", "Warp", "Puppet Warp"}

func (k Kind) String() string {
	if k < KindFree || k > KindPuppet {
		return "unknown"
	}
	return kindNames[k]
}

// Title is the human label used for snapshots and new layers.
func (k Kind) Title() string {
	if k < KindFree || k > KindPuppet {
		return "Transform"
	}
	return kindTitles[k]
}

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown transform kind %q", b)
	}
	*k = v
	return nil
}

// Params is the geometric state of one transform kind. The set of implementations is
// closed: FreeParams, DistortParams, PerspectiveParams, MeshParams and PinParams.
type Params interface {
	Kind() Kind
	// identity reports whether the params leave the source patch where it was.
	identity(src Patch) bool
}

// Patch is the source content lifted out of the layer when a transform activates.
type Patch struct {
	Origin image.Point
	Buffer *pixel.Buffer
	// Mask marks the selected cells of Buffer (255) in patch-local coordinates.
	Mask []byte
}

// Rect returns the canvas rectangle the patch was lifted from.
func (p Patch) Rect() image.Rectangle {
	if p.Buffer == nil {
		return image.Rectangle{Min: p.Origin, Max: p.Origin}
	}
	return image.Rect(p.Origin.X, p.Origin.Y, p.Origin.X+p.Buffer.Width, p.Origin.Y+p.Buffer.Height)
}

// Bounds is Rect as a float rectangle.
func (p Patch) Bounds() geom.Rect {
	return geom.RectOf(p.Rect())
}

func (p Patch) empty() bool {
	return p.Buffer == nil || p.Buffer.Width == 0 || p.Buffer.Height == 0
}

// Placed is a resampled patch positioned on the canvas.
type Placed struct {
	// Rect is the canvas rectangle covered by Buffer.
	Rect   image.Rectangle
	Buffer *pixel.Buffer
	// Bounds is the geometric extent of the transformed patch.
	Bounds geom.Rect
}

// Selection returns the floored transformed bounds used as the new selection.
func (p Placed) Selection() image.Rectangle {
	return p.Bounds.Floor()
}

// DrawOnto writes the filled pixels of p into dst, clipped to dst.
func (p Placed) DrawOnto(dst *pixel.Buffer) {
	if p.Buffer == nil {
		return
	}
	for y := 0; y < p.Buffer.Height; y++ {
		for x := 0; x < p.Buffer.Width; x++ {
			px := p.Buffer.Pix[p.Buffer.Index(x, y)]
			if px.Filled {
				dst.Set(p.Rect.Min.X+x, p.Rect.Min.Y+y, px)
			}
		}
	}
}

// Resample renders src under params. The source patch is never modified.
func Resample(src Patch, params Params, f pixel.Filter) Placed {
	if src.empty() {
		return Placed{}
	}
	switch p := params.(type) {
	case FreeParams:
		return resampleFree(src, p, f)
	case DistortParams:
		return resampleQuad(src, p.Quad, f)
	case PerspectiveParams:
		return resampleQuad(src, p.Quad, f)
	case MeshParams:
		return resampleMesh(src, p, f)
	case PinParams:
		return resamplePins(src, p, f)
	default:
		return Placed{}
	}
}

// place allocates the output buffer for the canvas pixels covering bounds.
func place(bounds geom.Rect) (Placed, bool) {
	if !geom.Pt(bounds.X, bounds.Y).Finite() || !geom.Pt(bounds.Width, bounds.Height).Finite() {
		return Placed{}, false
	}
	r := bounds.Pixels()
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return Placed{}, false
	}
	return Placed{Rect: r, Buffer: pixel.NewBuffer(r.Dx(), r.Dy()), Bounds: bounds}, true
}

// snapRect drops floating point noise so that exact integer extents floor correctly.
func snapRect(r geom.Rect) geom.Rect {
	return geom.Rect{X: snap(r.X), Y: snap(r.Y), Width: snap(r.Width), Height: snap(r.Height)}
}

func snap(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}
