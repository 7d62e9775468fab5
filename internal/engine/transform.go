package engine

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/transform"
)

// tool is the part of every transform tool the engine drives generically.
type tool interface {
	Kind() transform.Kind
	Active() bool
	Commit(transform.CommitOptions) (transform.Result, bool)
	Cancel() bool
	Checkpoint() (layerID string, backup *pixel.Buffer)
}

// BeginOptions carry the per-kind activation settings.
type BeginOptions struct {
	Grid        transform.GridSize    `json:"grid,omitempty"`
	Constraints transform.Constraints `json:"constraints"`
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
}

// Hit describes what a pointer-down landed on.
type Hit struct {
	Target string `json:"target"`
	ID     string `json:"id,omitempty"`
}

var hitNone = Hit{Target: "none"}

// BeginTransform lifts the current selection into a new transform of the given kind.
func (e *Engine) BeginTransform(kind transform.Kind, opts BeginOptions) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	e.wand = nil

	topts := e.opts.Transform
	var (
		t  tool
		ok bool
	)
	switch kind {
	case transform.KindFree:
		f := transform.NewFree(doc, topts)
		t, ok = f, f.Activate()
	case transform.KindDistort:
		d := transform.NewDistort(doc, topts)
		t, ok = d, d.Activate()
	case transform.KindPerspective:
		p := transform.NewPerspective(doc, topts)
		t, ok = p, p.Activate(opts.Constraints)
	case transform.KindWarp:
		w := transform.NewWarp(doc, topts)
		t, ok = w, w.Activate(opts.Grid)
	case transform.KindPuppet:
		p := transform.NewPuppet(doc, topts)
		t, ok = p, p.Activate()
	default:
		return fmt.Errorf("begin transform: %w: kind %d", ErrRejected, kind)
	}
	if !ok {
		if doc.Selection().Empty() {
			return fmt.Errorf("begin %s: %w", kind, ErrNoSelection)
		}
		return fmt.Errorf("begin %s: %w: nothing to transform", kind, ErrRejected)
	}
	e.tool = t
	slog.Debug("transform started", "kind", kind)
	return nil
}

// ActiveTransform returns the kind of the transform in progress.
func (e *Engine) ActiveTransform() (transform.Kind, bool) {
	if e.tool == nil {
		return 0, false
	}
	return e.tool.Kind(), true
}

// CommitTransform writes the transform result and ends the session.
func (e *Engine) CommitTransform(opts transform.CommitOptions) (transform.Result, error) {
	if e.tool == nil {
		return transform.Result{}, ErrNoSession
	}
	t := e.tool
	e.tool = nil
	res, ok := t.Commit(opts)
	if !ok {
		return transform.Result{}, ErrNoSession
	}
	slog.Debug("transform committed", "kind", res.Kind, "noop", res.Noop, "layer", res.LayerID)
	return res, nil
}

// CancelTransform restores the layer and ends the session.
func (e *Engine) CancelTransform() error {
	if e.tool == nil {
		return ErrNoSession
	}
	t := e.tool
	e.tool = nil
	if !t.Cancel() {
		return ErrNoSession
	}
	return nil
}

// Settled runs fn with the document as it was before the transform in progress
// started. The preview is back in place when Settled returns. fn must not mutate
// the document.
func (e *Engine) Settled(fn func(*Engine) error) error {
	if e.tool != nil && e.doc != nil {
		if id, backup := e.tool.Checkpoint(); backup != nil {
			if l, ok := e.doc.Layer(id); ok {
				live := l.Pixels
				l.Pixels = backup
				defer func() { l.Pixels = live }()
			}
		}
	}
	return fn(e)
}

// activeTool returns the transform in progress as T.
func activeTool[T tool](e *Engine) (T, error) {
	t, ok := e.tool.(T)
	if !ok {
		var zero T
		return zero, ErrNoSession
	}
	return t, nil
}

func (e *Engine) Free() (*transform.Free, error) {
	return activeTool[*transform.Free](e)
}

func (e *Engine) Distort() (*transform.Distort, error) {
	return activeTool[*transform.Distort](e)
}

func (e *Engine) Perspective() (*transform.Perspective, error) {
	return activeTool[*transform.Perspective](e)
}

func (e *Engine) Warp() (*transform.Warp, error) {
	return activeTool[*transform.Warp](e)
}

func (e *Engine) Puppet() (*transform.Puppet, error) {
	return activeTool[*transform.Puppet](e)
}

// TransformState is the serializable state of the transform in progress.
type TransformState struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Params any    `json:"params"`
}

// TransformState returns the current parameters of the transform in progress.
func (e *Engine) TransformState() (TransformState, error) {
	var params any
	switch t := e.tool.(type) {
	case *transform.Free:
		params = t.Params()
	case *transform.Distort:
		params = t.Params()
	case *transform.Perspective:
		params = t.Params()
	case *transform.Warp:
		params = t.Params()
	case *transform.Puppet:
		params = t.Params()
	default:
		return TransformState{}, ErrNoSession
	}
	k := e.tool.Kind()
	return TransformState{Kind: k.String(), Title: k.Title(), Params: params}, nil
}

// PointerDown hit-tests the active transform's handles at a canvas point and starts
// a drag on what it finds. With the puppet tool a press on empty canvas adds a pin,
// and an alt-press on a pin removes it.
func (e *Engine) PointerDown(pt geom.Point, zoom float64, mods Modifiers) (Hit, error) {
	switch t := e.tool.(type) {
	case *transform.Free:
		h := t.HandleAt(pt, zoom)
		if h == transform.HandleNone || !t.BeginDrag(h, pt) {
			return hitNone, nil
		}
		return Hit{Target: "handle", ID: h.String()}, nil

	case *transform.Distort:
		c, ok := t.CornerAt(pt, zoom)
		if !ok || !t.BeginDrag(c) {
			return hitNone, nil
		}
		return Hit{Target: "corner", ID: c.String()}, nil

	case *transform.Perspective:
		c, ok := t.CornerAt(pt, zoom)
		if !ok || !t.BeginDrag(c) {
			return hitNone, nil
		}
		return Hit{Target: "corner", ID: c.String()}, nil

	case *transform.Warp:
		i, ok := t.NodeAt(pt, zoom)
		if !ok || !t.BeginDrag(i) {
			return hitNone, nil
		}
		return Hit{Target: "node", ID: strconv.Itoa(i)}, nil

	case *transform.Puppet:
		id, ok := t.PinAt(pt, zoom)
		switch {
		case ok && mods.Alt:
			t.RemovePin(id)
			return Hit{Target: "pin-removed", ID: id}, nil
		case ok:
			if !t.BeginDrag(id) {
				return Hit{Target: "pin-locked", ID: id}, nil
			}
			return Hit{Target: "pin", ID: id}, nil
		}
		pin, ok := t.AddPin(pt)
		if !ok {
			return hitNone, nil
		}
		return Hit{Target: "pin-added", ID: pin.ID}, nil
	}
	return Hit{}, ErrNoSession
}

// PointerMove continues the current drag. Shift constrains proportions and snaps
// rotation in the free transform.
func (e *Engine) PointerMove(pt geom.Point, mods Modifiers) (bool, error) {
	switch t := e.tool.(type) {
	case *transform.Free:
		return t.Drag(pt, transform.Modifiers{Constrain: mods.Shift, Snap: mods.Shift}), nil
	case *transform.Distort:
		return t.Drag(pt), nil
	case *transform.Perspective:
		return t.Drag(pt), nil
	case *transform.Warp:
		return t.Drag(pt), nil
	case *transform.Puppet:
		return t.Drag(pt), nil
	}
	return false, ErrNoSession
}

// PointerUp ends the current drag.
func (e *Engine) PointerUp() error {
	switch t := e.tool.(type) {
	case *transform.Free:
		t.EndDrag()
	case *transform.Distort:
		t.EndDrag()
	case *transform.Perspective:
		t.EndDrag()
	case *transform.Warp:
		t.EndDrag()
	case *transform.Puppet:
		t.EndDrag()
	default:
		return ErrNoSession
	}
	return nil
}
