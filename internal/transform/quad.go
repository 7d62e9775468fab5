package transform

import (
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// DistortParams maps the source rectangle onto an arbitrary quad.
type DistortParams struct {
	Quad         geom.Quad `json:"quad"`
	SourceWidth  int       `json:"sourceWidth"`
	SourceHeight int       `json:"sourceHeight"`
}

func (p DistortParams) Kind() Kind              { return KindDistort }
func (p DistortParams) identity(src Patch) bool { return quadIdentity(src, p.Quad) }

// Constraints restrict how a perspective corner drag moves the other corners.
// PreserveAspectRatio wins when both are set.
type Constraints struct {
	PreserveAspectRatio bool `json:"preserveAspectRatio"`
	KeepParallelEdges   bool `json:"keepParallelEdges"`
}

// PerspectiveParams is a quad mapping whose corner drags honor Constraints.
type PerspectiveParams struct {
	Quad         geom.Quad   `json:"quad"`
	SourceWidth  int         `json:"sourceWidth"`
	SourceHeight int         `json:"sourceHeight"`
	Constraints  Constraints `json:"constraints"`
}

func (p PerspectiveParams) Kind() Kind              { return KindPerspective }
func (p PerspectiveParams) identity(src Patch) bool { return quadIdentity(src, p.Quad) }

func quadIdentity(src Patch, q geom.Quad) bool {
	const eps = 1e-6
	want := geom.QuadFromRect(src.Bounds()).Corners()
	for i, c := range q.Corners() {
		if math.Abs(c.X-want[i].X) >= eps || math.Abs(c.Y-want[i].Y) >= eps {
			return false
		}
	}
	return true
}

// resampleQuad inverse-maps every destination pixel center inside q back to the
// unit square and samples the source patch there.
func resampleQuad(src Patch, q geom.Quad, f pixel.Filter) Placed {
	for _, c := range q.Corners() {
		if !c.Finite() {
			return Placed{}
		}
	}
	out, ok := place(snapRect(q.Bounds()))
	if !ok {
		return Placed{}
	}
	w, h := float64(src.Buffer.Width), float64(src.Buffer.Height)
	for y := 0; y < out.Buffer.Height; y++ {
		for x := 0; x < out.Buffer.Width; x++ {
			p := geom.Pt(float64(out.Rect.Min.X+x)+0.5, float64(out.Rect.Min.Y+y)+0.5)
			u, v, ok := q.Inverse(p)
			if !ok {
				continue
			}
			out.Buffer.Pix[out.Buffer.Index(x, y)] = pixel.Sample(src.Buffer, nil, u*w, v*h, f)
		}
	}
	return out
}

// MoveCorner returns q with corner c dragged to p under the constraints. aspect is
// the source width over height.
func MoveCorner(q geom.Quad, c geom.Corner, p geom.Point, cons Constraints, aspect float64) geom.Quad {
	switch {
	case cons.PreserveAspectRatio:
		return aspectQuad(q.Center(), p, aspect)
	case cons.KeepParallelEdges:
		q = q.SetCorner(c, p)
		switch c {
		case geom.TopLeft:
			q.BottomLeft.X = p.X
			q.TopRight.Y = p.Y
		case geom.TopRight:
			q.BottomRight.X = p.X
			q.TopLeft.Y = p.Y
		case geom.BottomRight:
			q.TopRight.X = p.X
			q.BottomLeft.Y = p.Y
		case geom.BottomLeft:
			q.TopLeft.X = p.X
			q.BottomRight.Y = p.Y
		}
		return q
	default:
		return q.SetCorner(c, p)
	}
}

// aspectQuad rebuilds the quad as a rectangle centered on center with one corner
// reaching toward p and the given width over height.
func aspectQuad(center, p geom.Point, aspect float64) geom.Quad {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	hw := math.Abs(p.X - center.X)
	hh := math.Abs(p.Y - center.Y)
	if hw >= hh*aspect {
		hh = hw / aspect
	} else {
		hw = hh * aspect
	}
	// Keep at least half a pixel on the shorter side without breaking the ratio.
	if aspect >= 1 && hh < 0.5 {
		hh, hw = 0.5, 0.5*aspect
	} else if aspect < 1 && hw < 0.5 {
		hw, hh = 0.5, 0.5/aspect
	}
	return geom.QuadFromRect(geom.Rect{X: center.X - hw, Y: center.Y - hh, Width: 2 * hw, Height: 2 * hh})
}

// cornerAt returns the corner of q within the hit radius of p, nearest first.
func cornerAt(q geom.Quad, p geom.Point, radius float64) (geom.Corner, bool) {
	best, found := geom.TopLeft, false
	bestDist := math.Inf(1)
	for i, c := range q.Corners() {
		if d := c.Dist(p); d <= radius && d < bestDist {
			best, bestDist, found = geom.Corner(i), d, true
		}
	}
	return best, found
}

func quadFromPatch(src Patch) geom.Quad {
	return geom.QuadFromRect(src.Bounds())
}

func aspectOf(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return float64(w) / float64(h)
}

// Distort drags each corner of the quad independently.
type Distort struct {
	session *Session[DistortParams]
	opts    Options
	corner  geom.Corner
	drag    bool
}

// NewDistort returns an inactive distort tool on canvas.
func NewDistort(canvas Canvas, opts Options) *Distort {
	return &Distort{session: NewSession[DistortParams](canvas, opts.Filter), opts: opts}
}

func (t *Distort) Kind() Kind                          { return KindDistort }
func (t *Distort) Active() bool                        { return t.session.Active() }
func (t *Distort) Checkpoint() (string, *pixel.Buffer) { return t.session.Checkpoint() }
func (t *Distort) Params() DistortParams               { return t.session.Params() }

// Activate lifts the selection; the initial quad is the selection rectangle.
func (t *Distort) Activate() bool {
	t.drag = false
	return t.session.Activate(func(src Patch) DistortParams {
		return DistortParams{Quad: quadFromPatch(src), SourceWidth: src.Buffer.Width, SourceHeight: src.Buffer.Height}
	})
}

// CornerAt hit-tests the corners with the zoom-scaled handle radius.
func (t *Distort) CornerAt(p geom.Point, zoom float64) (geom.Corner, bool) {
	if !t.Active() {
		return 0, false
	}
	return cornerAt(t.Params().Quad, p, t.opts.hitRadius(zoom))
}

// BeginDrag starts dragging corner c.
func (t *Distort) BeginDrag(c geom.Corner) bool {
	if !t.Active() || c < geom.TopLeft || c > geom.BottomLeft {
		return false
	}
	t.corner, t.drag = c, true
	return true
}

// Drag moves the dragged corner to p.
func (t *Distort) Drag(p geom.Point) bool {
	if !t.Active() || !t.drag || !p.Finite() {
		return false
	}
	params := t.Params()
	params.Quad = params.Quad.SetCorner(t.corner, p)
	return t.session.Preview(params)
}

// EndDrag finishes the current drag.
func (t *Distort) EndDrag() {
	t.drag = false
}

// SetQuad replaces all four corners.
func (t *Distort) SetQuad(q geom.Quad) bool {
	if !t.Active() {
		return false
	}
	params := t.Params()
	params.Quad = q
	return t.session.Preview(params)
}

// Guides returns the thirds grid drawn over the quad.
func (t *Distort) Guides() [][2]geom.Point {
	if !t.Active() {
		return nil
	}
	return t.Params().Quad.Thirds()
}

func (t *Distort) Commit(opts CommitOptions) (Result, bool) {
	t.drag = false
	return t.session.Commit(opts)
}

func (t *Distort) Cancel() bool {
	t.drag = false
	return t.session.Cancel()
}

// Perspective drags corners of the quad under optional aspect or parallel-edge
// constraints.
type Perspective struct {
	session *Session[PerspectiveParams]
	opts    Options
	corner  geom.Corner
	drag    bool
}

// NewPerspective returns an inactive perspective tool on canvas.
func NewPerspective(canvas Canvas, opts Options) *Perspective {
	return &Perspective{session: NewSession[PerspectiveParams](canvas, opts.Filter), opts: opts}
}

func (t *Perspective) Kind() Kind                          { return KindPerspective }
func (t *Perspective) Active() bool                        { return t.session.Active() }
func (t *Perspective) Checkpoint() (string, *pixel.Buffer) { return t.session.Checkpoint() }
func (t *Perspective) Params() PerspectiveParams           { return t.session.Params() }

// Activate lifts the selection with the given constraints.
func (t *Perspective) Activate(cons Constraints) bool {
	t.drag = false
	return t.session.Activate(func(src Patch) PerspectiveParams {
		return PerspectiveParams{
			Quad:         quadFromPatch(src),
			SourceWidth:  src.Buffer.Width,
			SourceHeight: src.Buffer.Height,
			Constraints:  cons,
		}
	})
}

// SetConstraints changes the constraints used by later drags.
func (t *Perspective) SetConstraints(cons Constraints) bool {
	if !t.Active() {
		return false
	}
	params := t.Params()
	params.Constraints = cons
	return t.session.Preview(params)
}

// CornerAt hit-tests the corners with the zoom-scaled handle radius.
func (t *Perspective) CornerAt(p geom.Point, zoom float64) (geom.Corner, bool) {
	if !t.Active() {
		return 0, false
	}
	return cornerAt(t.Params().Quad, p, t.opts.hitRadius(zoom))
}

// BeginDrag starts dragging corner c.
func (t *Perspective) BeginDrag(c geom.Corner) bool {
	if !t.Active() || c < geom.TopLeft || c > geom.BottomLeft {
		return false
	}
	t.corner, t.drag = c, true
	return true
}

// Drag moves the dragged corner to p, adjusting the others per the constraints.
func (t *Perspective) Drag(p geom.Point) bool {
	if !t.Active() || !t.drag || !p.Finite() {
		return false
	}
	params := t.Params()
	aspect := aspectOf(params.SourceWidth, params.SourceHeight)
	params.Quad = MoveCorner(params.Quad, t.corner, p, params.Constraints, aspect)
	return t.session.Preview(params)
}

// EndDrag finishes the current drag.
func (t *Perspective) EndDrag() {
	t.drag = false
}

// Guides returns the thirds grid drawn over the quad.
func (t *Perspective) Guides() [][2]geom.Point {
	if !t.Active() {
		return nil
	}
	return t.Params().Quad.Thirds()
}

func (t *Perspective) Commit(opts CommitOptions) (Result, bool) {
	t.drag = false
	return t.session.Commit(opts)
}

func (t *Perspective) Cancel() bool {
	t.drag = false
	return t.session.Cancel()
}
