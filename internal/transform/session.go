// Package transform implements the interactive geometric transforms of a selection:
// free transform, distort, perspective, mesh warp and puppet warp.
//
// Every tool runs on a Session, which lifts the selected pixels into a source patch
// on activation, previews by restoring and repainting only what the previous
// preview wrote, and on commit or cancel restores the exact layer it started from
// before writing the final result.
package transform

import (
	"image"
	"log/slog"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

// Canvas is the document a transform reads from and writes to.
type Canvas interface {
	Size() (width, height int)
	Selection() region.Selection
	SetSelection(sel region.Selection)
	ActiveLayerID() string
	// LayerBuffer returns nil when the layer does not exist.
	LayerBuffer(id string) *pixel.Buffer
	AddLayer(name string) (id string, buf *pixel.Buffer)
	SaveSnapshot(label string)
	// Touch bumps the pixels version after a buffer mutation.
	Touch()
}

// CommitOptions are the modifier flags in effect when a transform is committed.
type CommitOptions struct {
	// Duplicate keeps the original pixels and draws the result on top of them.
	Duplicate bool
	// NewLayer draws the result onto a new layer and leaves the source layer as it was.
	NewLayer bool
	// Label overrides the snapshot label.
	Label string
}

// Result describes a committed transform.
type Result struct {
	Kind Kind `json:"kind"`
	// Noop is set when the transform left the source in place and nothing was written.
	Noop      bool            `json:"noop"`
	LayerID   string          `json:"layerId"`
	Selection image.Rectangle `json:"selection"`
}

// Session is the checkpoint and scoped region shared by every transform tool.
// The zero value is inactive.
type Session[P Params] struct {
	canvas Canvas
	filter pixel.Filter

	active  bool
	layerID string
	layer   *pixel.Buffer
	backup  *pixel.Buffer // the layer as it was at activation
	base    *pixel.Buffer // backup with the selected pixels cleared
	src     Patch
	params  P
	written image.Rectangle
}

// NewSession returns an inactive session on canvas.
func NewSession[P Params](canvas Canvas, filter pixel.Filter) *Session[P] {
	return &Session[P]{canvas: canvas, filter: filter}
}

// Active reports whether the session holds a checkpoint.
func (s *Session[P]) Active() bool {
	return s.active
}

// Params returns the current parameters.
func (s *Session[P]) Params() P {
	return s.params
}

// Source returns the lifted patch.
func (s *Session[P]) Source() Patch {
	return s.src
}

// LayerID returns the layer being transformed.
func (s *Session[P]) LayerID() string {
	return s.layerID
}

// SetFilter changes the sampling filter used by later previews and the commit.
func (s *Session[P]) SetFilter(f pixel.Filter) {
	s.filter = f
}

// Activate lifts the selected pixels of the active layer into the source patch,
// derives the initial params from it and renders the first preview. It returns false
// without touching anything when the session is already active, the layer is missing
// or the selection is empty.
func (s *Session[P]) Activate(initial func(src Patch) P) bool {
	if s.active || s.canvas == nil {
		return false
	}
	layerID := s.canvas.ActiveLayerID()
	layer := s.canvas.LayerBuffer(layerID)
	if layer == nil {
		return false
	}
	sel := s.canvas.Selection()
	if sel.Empty() {
		return false
	}
	r := sel.Bounds().Intersect(layer.Bounds())
	if r.Empty() {
		return false
	}

	mask := sel.BuildMask(r)
	src := pixel.NewBuffer(r.Dx(), r.Dy())
	base := layer.Clone()
	lifted := 0
	for i, m := range mask {
		if m == 0 {
			continue
		}
		x, y := r.Min.X+i%r.Dx(), r.Min.Y+i/r.Dx()
		src.Pix[i] = layer.At(x, y)
		base.Clear(x, y)
		lifted++
	}
	if lifted == 0 {
		return false
	}

	s.active = true
	s.layerID = layerID
	s.layer = layer
	s.backup = layer.Clone()
	s.base = base
	s.src = Patch{Origin: r.Min, Buffer: src, Mask: mask}
	s.written = r

	s.layer.CopyRect(s.base, r)
	s.params = initial(s.src)
	slog.Debug("transform activated", "kind", s.params.Kind(), "layer", layerID, "rect", r)
	s.render()
	return true
}

// Preview replaces the params and repaints the live layer.
func (s *Session[P]) Preview(params P) bool {
	if !s.active {
		return false
	}
	s.params = params
	s.render()
	return true
}

// Checkpoint returns the transformed layer id and its pixels as they were at
// activation. The buffer is owned by the session; callers must not modify it.
func (s *Session[P]) Checkpoint() (string, *pixel.Buffer) {
	if !s.active {
		return "", nil
	}
	return s.layerID, s.backup
}

// collapsed reports whether placed lost every pixel of a non-empty source, as a
// quad or mesh squashed to a line does.
func (s *Session[P]) collapsed(placed Placed) bool {
	return !placed.Buffer.HasFilled() && s.src.Buffer.HasFilled()
}

func (s *Session[P]) render() {
	s.layer.CopyRect(s.base, s.written)
	placed := Resample(s.src, s.params, s.filter)
	if s.collapsed(placed) {
		placed = Placed{Rect: s.src.Rect(), Buffer: s.src.Buffer, Bounds: s.src.Bounds()}
	}
	placed.DrawOnto(s.layer)
	s.written = placed.Rect.Intersect(s.layer.Bounds())
	s.canvas.Touch()
}

// Commit restores the checkpoint and writes the final result once. It returns false
// when the session is not active. The session is inactive afterwards on every path.
func (s *Session[P]) Commit(opts CommitOptions) (Result, bool) {
	if !s.active {
		return Result{}, false
	}
	defer s.reset()

	kind := s.params.Kind()
	s.layer.CopyFrom(s.backup)

	if !opts.Duplicate && !opts.NewLayer && s.params.identity(s.src) {
		slog.Debug("transform commit skipped", "kind", kind, "reason", "identity")
		s.canvas.Touch()
		return Result{Kind: kind, Noop: true, LayerID: s.layerID, Selection: s.src.Rect()}, true
	}

	placed := Resample(s.src, s.params, s.filter)
	if s.collapsed(placed) {
		slog.Debug("transform commit skipped", "kind", kind, "reason", "collapsed")
		s.canvas.Touch()
		return Result{Kind: kind, Noop: true, LayerID: s.layerID, Selection: s.src.Rect()}, true
	}

	target, targetID := s.layer, s.layerID
	switch {
	case opts.NewLayer:
		if id, buf := s.canvas.AddLayer(kind.Title()); buf != nil {
			target, targetID = buf, id
		}
	case !opts.Duplicate:
		s.layer.CopyFrom(s.base)
	}
	placed.DrawOnto(target)

	sel := s.src.Rect()
	if placed.Buffer != nil {
		sel = placed.Selection()
	}
	s.canvas.SetSelection(region.Rect(sel))

	label := opts.Label
	if label == "" {
		label = kind.Title()
	}
	s.canvas.SaveSnapshot(label)
	s.canvas.Touch()

	slog.Debug("transform committed", "kind", kind, "layer", targetID, "selection", sel,
		"duplicate", opts.Duplicate, "newLayer", opts.NewLayer)
	return Result{Kind: kind, LayerID: targetID, Selection: sel}, true
}

// Cancel restores the layer to its state at activation. It returns false when the
// session is not active.
func (s *Session[P]) Cancel() bool {
	if !s.active {
		return false
	}
	defer s.reset()

	s.layer.CopyFrom(s.backup)
	s.canvas.Touch()
	slog.Debug("transform cancelled", "kind", s.params.Kind())
	return true
}

func (s *Session[P]) reset() {
	var zero P
	s.active = false
	s.layerID = ""
	s.layer = nil
	s.backup = nil
	s.base = nil
	s.src = Patch{}
	s.params = zero
	s.written = image.Rectangle{}
}
