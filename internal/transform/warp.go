package transform

import (
	"math"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

// GridSize is the number of mesh cells per side.
type GridSize string

const (
	Grid3x3 GridSize = "3x3"
	Grid4x4 GridSize = "4x4"
	Grid5x5 GridSize = "5x5"
)

// Divisions returns the cell count per side; unknown sizes fall back to 3.
func (g GridSize) Divisions() int {
	switch g {
	case Grid4x4:
		return 4
	case Grid5x5:
		return 5
	default:
		return 3
	}
}

// Valid reports whether g is one of the supported sizes.
func (g GridSize) Valid() bool {
	return g == Grid3x3 || g == Grid4x4 || g == Grid5x5
}

// Node is one mesh intersection in canvas coordinates.
type Node struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	OriginalX float64 `json:"originalX"`
	OriginalY float64 `json:"originalY"`
}

// Point returns the live node position.
func (n Node) Point() geom.Point { return geom.Pt(n.X, n.Y) }

// MeshParams is the warp state: (n+1)x(n+1) nodes in row-major order.
type MeshParams struct {
	GridSize GridSize `json:"gridSize"`
	Nodes    []Node   `json:"nodes"`
	// Smoothing is kept for the UI; resampling is piecewise bilinear regardless.
	Smoothing float64 `json:"smoothing"`
}

func (p MeshParams) Kind() Kind { return KindWarp }

func (p MeshParams) identity(Patch) bool {
	const eps = 1e-6
	for _, n := range p.Nodes {
		if math.Abs(n.X-n.OriginalX) >= eps || math.Abs(n.Y-n.OriginalY) >= eps {
			return false
		}
	}
	return true
}

// node returns the node at (row, col) of an n-division mesh.
func (p MeshParams) node(row, col, n int) Node {
	return p.Nodes[row*(n+1)+col]
}

// clone copies the node slice so previews never share it with the caller.
func (p MeshParams) clone() MeshParams {
	p.Nodes = append([]Node(nil), p.Nodes...)
	return p
}

// RegenerateNodes spaces the nodes of a grid evenly across r, with every node at
// its original position.
func RegenerateNodes(r geom.Rect, g GridSize) []Node {
	n := g.Divisions()
	nodes := make([]Node, 0, (n+1)*(n+1))
	for row := 0; row <= n; row++ {
		for col := 0; col <= n; col++ {
			x := r.X + float64(col)*r.Width/float64(n)
			y := r.Y + float64(row)*r.Height/float64(n)
			nodes = append(nodes, Node{Row: row, Col: col, X: x, Y: y, OriginalX: x, OriginalY: y})
		}
	}
	return nodes
}

// resampleMesh maps each mesh cell as its own bilinear quad: the cell's four nodes
// are the destination and the matching fraction of the source patch is sampled.
func resampleMesh(src Patch, p MeshParams, f pixel.Filter) Placed {
	n := p.GridSize.Divisions()
	if len(p.Nodes) != (n+1)*(n+1) {
		p.Nodes = RegenerateNodes(src.Bounds(), p.GridSize)
	}
	pts := make([]geom.Point, len(p.Nodes))
	for i, node := range p.Nodes {
		if pts[i] = node.Point(); !pts[i].Finite() {
			return Placed{}
		}
	}
	out, ok := place(snapRect(geom.Bounds(pts...)))
	if !ok {
		return Placed{}
	}

	w, h := float64(src.Buffer.Width), float64(src.Buffer.Height)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			cell := geom.Quad{
				TopLeft:     p.node(row, col, n).Point(),
				TopRight:    p.node(row, col+1, n).Point(),
				BottomRight: p.node(row+1, col+1, n).Point(),
				BottomLeft:  p.node(row+1, col, n).Point(),
			}
			r := snapRect(cell.Bounds()).Pixels().Intersect(out.Rect)
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					u, v, ok := cell.Inverse(geom.Pt(float64(x)+0.5, float64(y)+0.5))
					if !ok {
						continue
					}
					su := (float64(col) + u) / float64(n) * w
					sv := (float64(row) + v) / float64(n) * h
					if s := pixel.Sample(src.Buffer, nil, su, sv, f); s.Filled {
						out.Buffer.Set(x-out.Rect.Min.X, y-out.Rect.Min.Y, s)
					}
				}
			}
		}
	}
	return out
}

// Warp deforms the selection with a draggable node mesh.
type Warp struct {
	session *Session[MeshParams]
	opts    Options
	node    int
}

// NewWarp returns an inactive warp tool on canvas.
func NewWarp(canvas Canvas, opts Options) *Warp {
	return &Warp{session: NewSession[MeshParams](canvas, opts.Filter), opts: opts, node: -1}
}

func (t *Warp) Kind() Kind                          { return KindWarp }
func (t *Warp) Active() bool                        { return t.session.Active() }
func (t *Warp) Checkpoint() (string, *pixel.Buffer) { return t.session.Checkpoint() }

// Params returns a copy of the mesh state.
func (t *Warp) Params() MeshParams {
	return t.session.Params().clone()
}

// Activate lifts the selection and lays out a fresh mesh of size g.
func (t *Warp) Activate(g GridSize) bool {
	t.node = -1
	if !g.Valid() {
		g = Grid3x3
	}
	return t.session.Activate(func(src Patch) MeshParams {
		return MeshParams{GridSize: g, Nodes: RegenerateNodes(src.Bounds(), g)}
	})
}

// SetGridSize switches the mesh size. The nodes are regenerated from the original
// source rectangle, so earlier node displacement is discarded.
func (t *Warp) SetGridSize(g GridSize) bool {
	if !t.Active() || !g.Valid() {
		return false
	}
	t.node = -1
	p := t.Params()
	p.GridSize = g
	p.Nodes = RegenerateNodes(t.session.Source().Bounds(), g)
	return t.session.Preview(p)
}

// SetSmoothing stores the smoothing amount clamped to [0, 1].
func (t *Warp) SetSmoothing(v float64) bool {
	if !t.Active() || math.IsNaN(v) {
		return false
	}
	p := t.Params()
	p.Smoothing = pixel.Clamp(v, 0, 1)
	return t.session.Preview(p)
}

// NodeAt returns the index of the nearest node within the zoom-scaled hit radius.
func (t *Warp) NodeAt(pt geom.Point, zoom float64) (int, bool) {
	if !t.Active() {
		return -1, false
	}
	radius := t.opts.hitRadius(zoom)
	best, bestDist := -1, math.Inf(1)
	for i, n := range t.session.Params().Nodes {
		if d := n.Point().Dist(pt); d <= radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// BeginDrag starts dragging node i.
func (t *Warp) BeginDrag(i int) bool {
	if !t.Active() || i < 0 || i >= len(t.session.Params().Nodes) {
		return false
	}
	t.node = i
	return true
}

// Drag moves the dragged node to pt.
func (t *Warp) Drag(pt geom.Point) bool {
	if !t.Active() || t.node < 0 || !pt.Finite() {
		return false
	}
	p := t.Params()
	p.Nodes[t.node].X, p.Nodes[t.node].Y = pt.X, pt.Y
	return t.session.Preview(p)
}

// EndDrag finishes the current drag.
func (t *Warp) EndDrag() {
	t.node = -1
}

func (t *Warp) Commit(opts CommitOptions) (Result, bool) {
	t.node = -1
	return t.session.Commit(opts)
}

func (t *Warp) Cancel() bool {
	t.node = -1
	return t.session.Cancel()
}
