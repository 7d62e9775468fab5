package transform

import (
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/typeid"
)

// coreFraction is the share of a pin radius that moves rigidly with the pin.
const coreFraction = 0.25

// Pin is a puppet warp control point in patch-local coordinates.
type Pin struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	OriginalX float64 `json:"originalX"`
	OriginalY float64 `json:"originalY"`
	Radius    float64 `json:"radius"`
	Locked    bool    `json:"locked"`
}

func (p Pin) Point() geom.Point    { return geom.Pt(p.X, p.Y) }
func (p Pin) Original() geom.Point { return geom.Pt(p.OriginalX, p.OriginalY) }
func (p Pin) Delta() geom.Point    { return p.Point().Sub(p.Original()) }

// PinParams is the puppet warp state.
type PinParams struct {
	Pins          []Pin   `json:"pins"`
	DefaultRadius float64 `json:"defaultRadius"`
}

func (p PinParams) Kind() Kind { return KindPuppet }

func (p PinParams) identity(Patch) bool {
	const eps = 1e-6
	for _, pin := range p.Pins {
		if pin.Delta().Len() >= eps {
			return false
		}
	}
	return true
}

func (p PinParams) clone() PinParams {
	p.Pins = append([]Pin(nil), p.Pins...)
	return p
}

func (p PinParams) index(id string) int {
	for i, pin := range p.Pins {
		if pin.ID == id {
			return i
		}
	}
	return -1
}

// Influence is the weight of a pin of radius r at distance d: one inside the core
// (a quarter of the radius), easing down to zero at r and beyond.
func Influence(d, r float64) float64 {
	if r <= 0 || d >= r || math.IsNaN(d) {
		return 0
	}
	core := r * coreFraction
	if d <= core {
		return 1
	}
	t := (d - core) / (r - core)
	return 1 - t*t*(3-2*t)
}

// Displacement is the blended pin movement at q: the influence-weighted sum of pin
// deltas, divided by the total weight once it exceeds one. Weights are measured from
// the live pin positions, so a pin's core carries its pixels rigidly.
func Displacement(pins []Pin, q geom.Point) geom.Point {
	var sum geom.Point
	var wsum float64
	for _, pin := range pins {
		w := Influence(q.Dist(pin.Point()), pin.Radius)
		if w == 0 {
			continue
		}
		sum = sum.Add(pin.Delta().Scale(w))
		wsum += w
	}
	return sum.Scale(1 / max(wsum, 1))
}

// resamplePins samples each destination pixel at its position minus the blended
// displacement. The output grows by the largest pin movement on every side.
func resamplePins(src Patch, p PinParams, f pixel.Filter) Placed {
	reach := 0.0
	for _, pin := range p.Pins {
		if !pin.Point().Finite() || !pin.Original().Finite() {
			return Placed{}
		}
		reach = max(reach, pin.Delta().Len())
	}
	pad := math.Ceil(reach)
	b := src.Bounds()
	out, ok := place(geom.Rect{X: b.X - pad, Y: b.Y - pad, Width: b.Width + 2*pad, Height: b.Height + 2*pad})
	if !ok {
		return Placed{}
	}

	ox, oy := float64(src.Origin.X), float64(src.Origin.Y)
	filled := false
	var minX, minY, maxX, maxY int
	for y := 0; y < out.Buffer.Height; y++ {
		for x := 0; x < out.Buffer.Width; x++ {
			q := geom.Pt(float64(out.Rect.Min.X+x)+0.5-ox, float64(out.Rect.Min.Y+y)+0.5-oy)
			s := q.Sub(Displacement(p.Pins, q))
			px := pixel.Sample(src.Buffer, nil, s.X, s.Y, f)
			if !px.Filled {
				continue
			}
			out.Buffer.Pix[out.Buffer.Index(x, y)] = px
			if !filled {
				minX, minY, maxX, maxY = x, y, x, y
				filled = true
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if filled {
		out.Bounds = geom.Rect{
			X:      float64(out.Rect.Min.X + minX),
			Y:      float64(out.Rect.Min.Y + minY),
			Width:  float64(maxX - minX + 1),
			Height: float64(maxY - minY + 1),
		}
	}
	return out
}

// Puppet deforms the selection with pins.
type Puppet struct {
	session *Session[PinParams]
	opts    Options
	drag    string
}

// NewPuppet returns an inactive puppet warp tool on canvas.
func NewPuppet(canvas Canvas, opts Options) *Puppet {
	return &Puppet{session: NewSession[PinParams](canvas, opts.Filter), opts: opts}
}

func (t *Puppet) Kind() Kind                          { return KindPuppet }
func (t *Puppet) Active() bool                        { return t.session.Active() }
func (t *Puppet) Checkpoint() (string, *pixel.Buffer) { return t.session.Checkpoint() }

// Params returns a copy of the pin state.
func (t *Puppet) Params() PinParams {
	return t.session.Params().clone()
}

// Activate lifts the selection with no pins. The default pin radius is a fraction
// of the smaller patch side, at least one pixel.
func (t *Puppet) Activate() bool {
	t.drag = ""
	factor := t.opts.PuppetRadiusFactor
	if factor <= 0 {
		factor = DefaultPuppetRadiusFactor
	}
	return t.session.Activate(func(src Patch) PinParams {
		side := min(src.Buffer.Width, src.Buffer.Height)
		return PinParams{DefaultRadius: max(float64(side)*factor, 1)}
	})
}

// Origin is the canvas position of the patch that pin coordinates are relative to.
func (t *Puppet) Origin() geom.Point {
	return geom.FromImage(t.session.Source().Origin)
}

// toLocal converts a canvas point to patch-local coordinates.
func (t *Puppet) toLocal(p geom.Point) geom.Point {
	return p.Sub(t.Origin())
}

// AddPin places an unlocked pin at the canvas point p with the default radius.
func (t *Puppet) AddPin(p geom.Point) (Pin, bool) {
	if !t.Active() || !p.Finite() {
		return Pin{}, false
	}
	params := t.Params()
	local := t.toLocal(p)
	pin := Pin{
		ID:        typeid.NewPinID(),
		X:         local.X,
		Y:         local.Y,
		OriginalX: local.X,
		OriginalY: local.Y,
		Radius:    params.DefaultRadius,
	}
	params.Pins = append(params.Pins, pin)
	return pin, t.session.Preview(params)
}

// RemovePin deletes a pin.
func (t *Puppet) RemovePin(id string) bool {
	params := t.Params()
	i := params.index(id)
	if !t.Active() || i < 0 {
		return false
	}
	params.Pins = append(params.Pins[:i], params.Pins[i+1:]...)
	if t.drag == id {
		t.drag = ""
	}
	return t.session.Preview(params)
}

// SetLocked locks or unlocks a pin. Locked pins ignore drags.
func (t *Puppet) SetLocked(id string, locked bool) bool {
	params := t.Params()
	i := params.index(id)
	if !t.Active() || i < 0 {
		return false
	}
	params.Pins[i].Locked = locked
	if locked && t.drag == id {
		t.drag = ""
	}
	return t.session.Preview(params)
}

// SetRadius changes a pin's radius, clamped to at least one pixel.
func (t *Puppet) SetRadius(id string, r float64) bool {
	params := t.Params()
	i := params.index(id)
	if !t.Active() || i < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return false
	}
	params.Pins[i].Radius = max(r, 1)
	return t.session.Preview(params)
}

// PinAt returns the nearest pin within the zoom-scaled hit radius of the canvas point p.
func (t *Puppet) PinAt(p geom.Point, zoom float64) (string, bool) {
	if !t.Active() {
		return "", false
	}
	local := t.toLocal(p)
	radius := t.opts.hitRadius(zoom)
	best, bestDist := "", math.Inf(1)
	for _, pin := range t.session.Params().Pins {
		if d := pin.Point().Dist(local); d <= radius && d < bestDist {
			best, bestDist = pin.ID, d
		}
	}
	return best, best != ""
}

// BeginDrag starts dragging a pin. Locked pins cannot be dragged.
func (t *Puppet) BeginDrag(id string) bool {
	params := t.session.Params()
	i := params.index(id)
	if !t.Active() || i < 0 || params.Pins[i].Locked {
		return false
	}
	t.drag = id
	return true
}

// Drag moves the dragged pin to the canvas point p.
func (t *Puppet) Drag(p geom.Point) bool {
	if !t.Active() || t.drag == "" || !p.Finite() {
		return false
	}
	params := t.Params()
	i := params.index(t.drag)
	if i < 0 || params.Pins[i].Locked {
		return false
	}
	local := t.toLocal(p)
	params.Pins[i].X, params.Pins[i].Y = local.X, local.Y
	return t.session.Preview(params)
}

// EndDrag finishes the current drag.
func (t *Puppet) EndDrag() {
	t.drag = ""
}

func (t *Puppet) Commit(opts CommitOptions) (Result, bool) {
	t.drag = ""
	return t.session.Commit(opts)
}

func (t *Puppet) Cancel() bool {
	t.drag = ""
	return t.session.Cancel()
}
