package engine

import (
	"image"
	"strconv"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/transform"
)

// DrawCommand is one overlay primitive for the frontend to stroke on top of the
// canvas. Points are in canvas coordinates; Radius is in screen pixels.
type DrawCommand struct {
	Op          string       `json:"op"` // "line", "polygon", "handle", "circle"
	ID          string       `json:"id,omitempty"`
	Points      []geom.Point `json:"points"`
	Radius      float64      `json:"radius,omitempty"`
	Stroke      string       `json:"stroke,omitempty"`
	Fill        string       `json:"fill,omitempty"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
	Dashed      bool         `json:"dashed,omitempty"`
}

const (
	overlayStroke = "#00a8ff"
	overlayGuide  = "rgba(0,168,255,0.5)"
	handleFill    = "#ffffff"
	handleSize    = 4.0
	lockedFill    = "#ff3b30"
)

// Overlay compiles the handles and guides of the active tool, and the bones of the
// rig, into draw commands in painter's order.
func (e *Engine) Overlay(zoom float64) []DrawCommand {
	if e.doc == nil {
		return nil
	}
	var cmds []DrawCommand
	if sel := e.doc.Selection(); !sel.Empty() && e.tool == nil {
		cmds = append(cmds, DrawCommand{
			Op:     "polygon",
			Points: selectionOutline(sel.Bounds()),
			Stroke: overlayStroke,
			Dashed: true,
		})
	}

	switch t := e.tool.(type) {
	case *transform.Free:
		cmds = compileFree(cmds, t, zoom)
	case *transform.Distort:
		cmds = compileQuad(cmds, t.Params().Quad, t.Guides())
	case *transform.Perspective:
		cmds = compileQuad(cmds, t.Params().Quad, t.Guides())
	case *transform.Warp:
		cmds = compileMesh(cmds, t.Params())
	case *transform.Puppet:
		cmds = compilePins(cmds, t.Params(), t.Origin())
	}

	return compileBones(cmds, e)
}

func selectionOutline(r image.Rectangle) []geom.Point {
	return []geom.Point{
		geom.FromImage(r.Min),
		geom.FromImage(image.Pt(r.Max.X, r.Min.Y)),
		geom.FromImage(r.Max),
		geom.FromImage(image.Pt(r.Min.X, r.Max.Y)),
	}
}

func compileFree(cmds []DrawCommand, t *transform.Free, zoom float64) []DrawCommand {
	corners := []transform.Handle{
		transform.HandleTopLeft, transform.HandleTopRight,
		transform.HandleBottomRight, transform.HandleBottomLeft,
	}
	box := make([]geom.Point, len(corners))
	for i, h := range corners {
		box[i] = t.HandlePosition(h, zoom)
	}
	cmds = append(cmds, DrawCommand{Op: "polygon", Points: box, Stroke: overlayStroke})

	top := t.HandlePosition(transform.HandleTop, zoom)
	rot := t.HandlePosition(transform.HandleRotate, zoom)
	cmds = append(cmds, DrawCommand{Op: "line", Points: []geom.Point{top, rot}, Stroke: overlayStroke})

	for h := transform.HandleTopLeft; h <= transform.HandleRotate; h++ {
		op := "handle"
		if h == transform.HandleRotate {
			op = "circle"
		}
		cmds = append(cmds, DrawCommand{
			Op:     op,
			ID:     h.String(),
			Points: []geom.Point{t.HandlePosition(h, zoom)},
			Radius: handleSize,
			Stroke: overlayStroke,
			Fill:   handleFill,
		})
	}
	return cmds
}

func compileQuad(cmds []DrawCommand, q geom.Quad, guides [][2]geom.Point) []DrawCommand {
	for _, g := range guides {
		cmds = append(cmds, DrawCommand{Op: "line", Points: []geom.Point{g[0], g[1]}, Stroke: overlayGuide})
	}
	c := q.Corners()
	cmds = append(cmds, DrawCommand{Op: "polygon", Points: c[:], Stroke: overlayStroke})
	for i, p := range c {
		cmds = append(cmds, DrawCommand{
			Op:     "handle",
			ID:     geom.Corner(i).String(),
			Points: []geom.Point{p},
			Radius: handleSize,
			Stroke: overlayStroke,
			Fill:   handleFill,
		})
	}
	return cmds
}

func compileMesh(cmds []DrawCommand, p transform.MeshParams) []DrawCommand {
	n := p.GridSize.Divisions()
	if len(p.Nodes) != (n+1)*(n+1) {
		return cmds
	}
	at := func(row, col int) geom.Point { return p.Nodes[row*(n+1)+col].Point() }
	for i := 0; i <= n; i++ {
		row := make([]geom.Point, n+1)
		col := make([]geom.Point, n+1)
		for j := 0; j <= n; j++ {
			row[j] = at(i, j)
			col[j] = at(j, i)
		}
		cmds = append(cmds,
			DrawCommand{Op: "line", Points: row, Stroke: overlayGuide},
			DrawCommand{Op: "line", Points: col, Stroke: overlayGuide},
		)
	}
	for i, nd := range p.Nodes {
		cmds = append(cmds, DrawCommand{
			Op:     "handle",
			ID:     strconv.Itoa(i),
			Points: []geom.Point{nd.Point()},
			Radius: handleSize - 1,
			Stroke: overlayStroke,
			Fill:   handleFill,
		})
	}
	return cmds
}

func compilePins(cmds []DrawCommand, p transform.PinParams, origin geom.Point) []DrawCommand {
	for _, pin := range p.Pins {
		at := pin.Point().Add(origin)
		fill := handleFill
		if pin.Locked {
			fill = lockedFill
		}
		cmds = append(cmds,
			DrawCommand{
				Op:     "circle",
				ID:     pin.ID + ":radius",
				Points: []geom.Point{at},
				Radius: pin.Radius,
				Stroke: overlayGuide,
				Dashed: true,
			},
			DrawCommand{
				Op:     "circle",
				ID:     pin.ID,
				Points: []geom.Point{at},
				Radius: handleSize,
				Stroke: overlayStroke,
				Fill:   fill,
			},
		)
	}
	return cmds
}

// compileBones draws each bone segment from parent to child at the rest pose, or at
// the playhead pose when an animation is selected.
func compileBones(cmds []DrawCommand, e *Engine) []DrawCommand {
	rig := &e.doc.Rig
	anim := e.playback.animationID
	frame := float64(e.playback.frame)
	pos := func(boneID, pointID string, rest geom.Point) geom.Point {
		if anim == "" {
			return rest
		}
		if p, ok := e.doc.Animations.InterpolateBoneTransform(anim, boneID, pointID, frame); ok {
			return p
		}
		return rest
	}

	for _, b := range rig.Bones {
		for _, p := range b.Points {
			at := pos(b.ID, p.ID, p.Pos())
			if p.ParentID != "" {
				if parent, ok := b.Point(p.ParentID); ok {
					cmds = append(cmds, DrawCommand{
						Op:          "line",
						ID:          b.ID,
						Points:      []geom.Point{pos(b.ID, parent.ID, parent.Pos()), at},
						Stroke:      b.Color,
						StrokeWidth: b.Thickness,
					})
				}
			}
			cmds = append(cmds, DrawCommand{
				Op:     "circle",
				ID:     p.ID,
				Points: []geom.Point{at},
				Radius: handleSize,
				Stroke: b.Color,
				Fill:   b.Color,
			})
		}
	}
	return cmds
}
