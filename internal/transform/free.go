package transform

import (
	"encoding/json"
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// FreeParams is the free transform state: an unrotated box in canvas space, rotated
// about its center and optionally mirrored per axis.
type FreeParams struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Rotation     float64 `json:"rotation"`
	FlipX        bool    `json:"flipX"`
	FlipY        bool    `json:"flipY"`
	SourceWidth  int     `json:"sourceWidth"`
	SourceHeight int     `json:"sourceHeight"`
}

func (p FreeParams) Kind() Kind { return KindFree }

// Center is always (X + Width/2, Y + Height/2).
func (p FreeParams) Center() geom.Point {
	return geom.Pt(p.X+p.Width/2, p.Y+p.Height/2)
}

// ScaleX is the signed horizontal scale relative to the source patch.
func (p FreeParams) ScaleX() float64 {
	return signedScale(p.Width, p.SourceWidth, p.FlipX)
}

// ScaleY is the signed vertical scale relative to the source patch.
func (p FreeParams) ScaleY() float64 {
	return signedScale(p.Height, p.SourceHeight, p.FlipY)
}

func signedScale(size float64, source int, flip bool) float64 {
	s := 1.0
	if source > 0 {
		s = max(size, 1) / float64(source)
	}
	if flip {
		s = -s
	}
	return s
}

// Matrix maps source-patch coordinates onto the canvas.
func (p FreeParams) Matrix() geom.Matrix2D {
	c := p.Center()
	return geom.FromTransform(c.X, c.Y, p.ScaleX(), p.ScaleY(), p.Rotation,
		float64(p.SourceWidth)/2, float64(p.SourceHeight)/2)
}

func (p FreeParams) identity(src Patch) bool {
	const eps = 1e-6
	b := src.Bounds()
	return !p.FlipX && !p.FlipY &&
		math.Abs(normalizeDegrees(p.Rotation)) < eps &&
		math.Abs(p.Width-b.Width) < eps &&
		math.Abs(p.Height-b.Height) < eps &&
		math.Abs(p.X-b.X) < eps &&
		math.Abs(p.Y-b.Y) < eps
}

func (p FreeParams) finite() bool {
	return geom.Pt(p.X, p.Y).Finite() && geom.Pt(p.Width, p.Height).Finite() &&
		!math.IsNaN(p.Rotation) && !math.IsInf(p.Rotation, 0)
}

// MarshalJSON adds the derived scale and center fields.
func (p FreeParams) MarshalJSON() ([]byte, error) {
	type alias FreeParams
	c := p.Center()
	return json.Marshal(struct {
		alias
		ScaleX  float64 `json:"scaleX"`
		ScaleY  float64 `json:"scaleY"`
		CenterX float64 `json:"centerX"`
		CenterY float64 `json:"centerY"`
	}{alias(p), p.ScaleX(), p.ScaleY(), c.X, c.Y})
}

func resampleFree(src Patch, p FreeParams, f pixel.Filter) Placed {
	if !p.finite() {
		return Placed{}
	}
	p.SourceWidth, p.SourceHeight = src.Buffer.Width, src.Buffer.Height
	m := p.Matrix()
	inv := m.Invert()

	out, ok := place(snapRect(m.TransformRect(geom.Rect{Width: float64(p.SourceWidth), Height: float64(p.SourceHeight)})))
	if !ok {
		return Placed{}
	}
	for y := 0; y < out.Buffer.Height; y++ {
		for x := 0; x < out.Buffer.Width; x++ {
			q := geom.Pt(float64(out.Rect.Min.X+x)+0.5, float64(out.Rect.Min.Y+y)+0.5)
			s := inv.Apply(q)
			out.Buffer.Pix[out.Buffer.Index(x, y)] = pixel.Sample(src.Buffer, nil, s.X, s.Y, f)
		}
	}
	return out
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// Handle is a free transform grip.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
	HandleRotate
	HandleMove
)

var handleNames = [...]string{
	"", "top-left", "top", "top-right", "right",
	"bottom-right", "bottom", "bottom-left", "left", "rotate-center", "move",
}

func (h Handle) String() string {
	if h < HandleNone || h > HandleMove {
		return ""
	}
	return handleNames[h]
}

// ParseHandle maps a handle name back to its value.
func ParseHandle(s string) Handle {
	for i, n := range handleNames {
		if i > 0 && n == s {
			return Handle(i)
		}
	}
	return HandleNone
}

// signs returns which sides a scale handle drags: -1 for left/top, +1 for right/bottom.
func (h Handle) signs() (hx, hy float64) {
	switch h {
	case HandleTopLeft:
		return -1, -1
	case HandleTop:
		return 0, -1
	case HandleTopRight:
		return 1, -1
	case HandleRight:
		return 1, 0
	case HandleBottomRight:
		return 1, 1
	case HandleBottom:
		return 0, 1
	case HandleBottomLeft:
		return -1, 1
	case HandleLeft:
		return -1, 0
	}
	return 0, 0
}

func (h Handle) scales() bool {
	return h >= HandleTopLeft && h <= HandleLeft
}

// Modifiers are the keyboard modifiers in effect for one drag update.
type Modifiers struct {
	Constrain bool `json:"constrain"`
	Snap      bool `json:"snap"`
}

type freeDrag struct {
	handle Handle
	start  geom.Point
	params FreeParams
}

// Free is the free transform tool: nine handles plus move, mirroring per axis.
type Free struct {
	session *Session[FreeParams]
	opts    Options
	drag    *freeDrag
}

// NewFree returns an inactive free transform on canvas.
func NewFree(canvas Canvas, opts Options) *Free {
	return &Free{session: NewSession[FreeParams](canvas, opts.Filter), opts: opts}
}

func (t *Free) Kind() Kind                          { return KindFree }
func (t *Free) Active() bool                        { return t.session.Active() }
func (t *Free) Checkpoint() (string, *pixel.Buffer) { return t.session.Checkpoint() }
func (t *Free) Params() FreeParams                  { return t.session.Params() }
func (t *Free) Session() *Session[FreeParams]       { return t.session }

// Activate lifts the selection. The initial box is the selection rectangle.
func (t *Free) Activate() bool {
	t.drag = nil
	return t.session.Activate(func(src Patch) FreeParams {
		b := src.Bounds()
		return FreeParams{
			X:            b.X,
			Y:            b.Y,
			Width:        b.Width,
			Height:       b.Height,
			SourceWidth:  src.Buffer.Width,
			SourceHeight: src.Buffer.Height,
		}
	})
}

// SetParams replaces the box directly, as from numeric entry. Width and height are
// clamped to at least one; non-finite input is rejected.
func (t *Free) SetParams(p FreeParams) bool {
	if !t.Active() || !p.finite() {
		return false
	}
	cur := t.Params()
	p.SourceWidth, p.SourceHeight = cur.SourceWidth, cur.SourceHeight
	p.Width, p.Height = max(p.Width, 1), max(p.Height, 1)
	p.Rotation = normalizeDegrees(p.Rotation)
	return t.session.Preview(p)
}

// Mirror flips the box horizontally or vertically.
func (t *Free) Mirror(horizontal bool) bool {
	if !t.Active() {
		return false
	}
	p := t.Params()
	if horizontal {
		p.FlipX = !p.FlipX
	} else {
		p.FlipY = !p.FlipY
	}
	return t.session.Preview(p)
}

// HandlePosition returns the canvas position of h at the given zoom.
func (t *Free) HandlePosition(h Handle, zoom float64) geom.Point {
	p := t.Params()
	if h == HandleRotate {
		if zoom <= 0 {
			zoom = 1
		}
		return handlePoint(p, geom.Pt(0, -p.Height/2-rotateHandleOffset/zoom))
	}
	hx, hy := h.signs()
	return handlePoint(p, geom.Pt(hx*p.Width/2, hy*p.Height/2))
}

func handlePoint(p FreeParams, local geom.Point) geom.Point {
	return p.Center().Add(local.Rotate(p.Rotation * math.Pi / 180))
}

// HandleAt returns the nearest handle within the zoom-scaled hit radius, then falls
// back to the box interior for a move.
func (t *Free) HandleAt(pt geom.Point, zoom float64) Handle {
	if !t.Active() {
		return HandleNone
	}
	r := t.opts.hitRadius(zoom)
	best, bestDist := HandleNone, math.Inf(1)
	for h := HandleTopLeft; h <= HandleRotate; h++ {
		if d := t.HandlePosition(h, zoom).Dist(pt); d <= r && d < bestDist {
			best, bestDist = h, d
		}
	}
	if best != HandleNone {
		return best
	}

	p := t.Params()
	local := pt.Sub(p.Center()).Rotate(-p.Rotation * math.Pi / 180)
	if math.Abs(local.X) <= p.Width/2 && math.Abs(local.Y) <= p.Height/2 {
		return HandleMove
	}
	return HandleNone
}

// BeginDrag starts dragging h from pointer position pt.
func (t *Free) BeginDrag(h Handle, pt geom.Point) bool {
	if !t.Active() || h == HandleNone || !pt.Finite() {
		return false
	}
	t.drag = &freeDrag{handle: h, start: pt, params: t.Params()}
	return true
}

// Drag updates the box from the pointer position and repaints the preview.
func (t *Free) Drag(pt geom.Point, mods Modifiers) bool {
	if !t.Active() || t.drag == nil || !pt.Finite() {
		return false
	}
	d := t.drag
	var p FreeParams
	switch {
	case d.handle == HandleMove:
		p = d.params
		delta := pt.Sub(d.start)
		p.X += delta.X
		p.Y += delta.Y
	case d.handle == HandleRotate:
		p = t.rotate(d, pt, mods.Snap)
	case d.handle.scales():
		p = resize(d, pt, mods.Constrain)
	default:
		return false
	}
	return t.session.Preview(p)
}

// EndDrag finishes the current drag.
func (t *Free) EndDrag() {
	t.drag = nil
}

func (t *Free) rotate(d *freeDrag, pt geom.Point, snap bool) FreeParams {
	p := d.params
	c := p.Center()
	a0 := math.Atan2(d.start.Y-c.Y, d.start.X-c.X)
	a1 := math.Atan2(pt.Y-c.Y, pt.X-c.X)
	r := p.Rotation + (a1-a0)*180/math.Pi
	if snap && t.opts.SnapAngle > 0 {
		r = math.Round(r/t.opts.SnapAngle) * t.opts.SnapAngle
	}
	p.Rotation = normalizeDegrees(r)
	return p
}

// resize applies a scale handle drag: the opposite side stays fixed, and with
// constrain the other axis follows the source aspect ratio.
func resize(d *freeDrag, pt geom.Point, constrain bool) FreeParams {
	start := d.params
	hx, hy := d.handle.signs()
	rad := start.Rotation * math.Pi / 180
	local := pt.Sub(d.start).Rotate(-rad)

	w, h := start.Width, start.Height
	if hx != 0 {
		w = start.Width + hx*local.X
	}
	if hy != 0 {
		h = start.Height + hy*local.Y
	}
	w, h = max(w, 1), max(h, 1)

	if constrain && start.SourceWidth > 0 && start.SourceHeight > 0 {
		aspect := float64(start.SourceWidth) / float64(start.SourceHeight)
		switch {
		case hy == 0:
			h = w / aspect
		case hx == 0:
			w = h * aspect
		case math.Abs(w/start.Width-1) >= math.Abs(h/start.Height-1):
			h = w / aspect
		default:
			w = h * aspect
		}
		w, h = max(w, 1), max(h, 1)
	}

	anchor := start.Center().Add(geom.Pt(-hx*start.Width/2, -hy*start.Height/2).Rotate(rad))
	center := anchor.Add(geom.Pt(hx*w/2, hy*h/2).Rotate(rad))

	p := start
	p.Width, p.Height = w, h
	p.X, p.Y = center.X-w/2, center.Y-h/2
	return p
}

// Commit writes the transformed pixels. With rotation 0, unit scale, no move, no
// mirror and no duplicate it restores the original pixels and writes nothing.
func (t *Free) Commit(opts CommitOptions) (Result, bool) {
	t.drag = nil
	return t.session.Commit(opts)
}

// Cancel restores the layer as it was before activation.
func (t *Free) Cancel() bool {
	t.drag = nil
	return t.session.Cancel()
}
