package engine

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/inamate/pixelkit/internal/animation"
	"github.com/inamate/pixelkit/internal/fill"
	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
	"github.com/inamate/pixelkit/internal/smartselect"
	"github.com/inamate/pixelkit/internal/transform"
)

// Command is a named engine operation with JSON arguments, as sent by the browser
// bridge and by collaboration clients.
type Command struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is the outcome of a command.
type Response struct {
	OK            bool   `json:"ok"`
	Result        any    `json:"result,omitempty"`
	PixelsVersion int    `json:"pixelsVersion"`
	Error         string `json:"error,omitempty"`
}

type handler struct {
	// mutates marks commands that change the shared document.
	mutates bool
	run     func(e *Engine, args json.RawMessage) (any, error)
}

// Mutates reports whether a command type changes the document. Unknown types
// report false.
func Mutates(typ string) bool {
	h, ok := handlers[typ]
	return ok && h.mutates
}

// Apply runs one command.
func (e *Engine) Apply(cmd Command) Response {
	h, ok := handlers[cmd.Type]
	if !ok {
		return e.fail(fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type))
	}
	res, err := h.run(e, cmd.Args)
	if err != nil {
		return e.fail(fmt.Errorf("%s: %w", cmd.Type, err))
	}
	return Response{OK: true, Result: res, PixelsVersion: e.PixelsVersion()}
}

// ApplyJSON decodes a command, runs it and encodes the response.
func (e *Engine) ApplyJSON(data []byte) []byte {
	var cmd Command
	var resp Response
	if err := json.Unmarshal(data, &cmd); err != nil {
		resp = e.fail(fmt.Errorf("decode command: %w", err))
	} else {
		resp = e.Apply(cmd)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(e.fail(fmt.Errorf("encode response: %w", err)))
	}
	return out
}

func (e *Engine) fail(err error) Response {
	return Response{Error: err.Error(), PixelsVersion: e.PixelsVersion()}
}

// decode unmarshals command arguments; missing arguments decode to the zero value.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode args: %w", err)
	}
	return v, nil
}

// cmd builds a handler from a typed function.
func cmd[T any](mutates bool, fn func(e *Engine, args T) (any, error)) handler {
	return handler{
		mutates: mutates,
		run: func(e *Engine, raw json.RawMessage) (any, error) {
			args, err := decode[T](raw)
			if err != nil {
				return nil, err
			}
			return fn(e, args)
		},
	}
}

// noArgs builds a handler for a command without arguments.
func noArgs(mutates bool, fn func(e *Engine) (any, error)) handler {
	return handler{mutates: mutates, run: func(e *Engine, _ json.RawMessage) (any, error) { return fn(e) }}
}

// Ref is the result of commands that create something, and the argument of
// commands that address one thing.
type Ref struct {
	ID string `json:"id"`
}

type (
	documentArgs struct {
		Document json.RawMessage `json:"document"`
	}
	newDocumentArgs struct {
		ProjectID string `json:"projectId"`
		Name      string `json:"name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	nameArgs struct {
		Name string `json:"name"`
	}
	importArgs struct {
		Name   string        `json:"name"`
		Buffer *pixel.Buffer `json:"buffer"`
	}
	layerFlagArgs struct {
		ID      string `json:"id"`
		Visible bool   `json:"visible"`
		Locked  bool   `json:"locked"`
	}
	pointArgs struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	smartSelectArgs struct {
		X         int              `json:"x"`
		Y         int              `json:"y"`
		Tolerance *int             `json:"tolerance,omitempty"`
		Mode      smartselect.Mode `json:"mode"`
	}
	beginArgs struct {
		Kind transform.Kind `json:"kind"`
		BeginOptions
	}
	pointerArgs struct {
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
		Zoom float64 `json:"zoom"`
		Modifiers
	}
	commitArgs struct {
		Duplicate bool   `json:"duplicate"`
		NewLayer  bool   `json:"newLayer"`
		Label     string `json:"label"`
	}
	mirrorArgs struct {
		Horizontal bool `json:"horizontal"`
	}
	gridArgs struct {
		Grid transform.GridSize `json:"grid"`
	}
	valueArgs struct {
		Value float64 `json:"value"`
	}
	pinArgs struct {
		ID     string  `json:"id"`
		Locked bool    `json:"locked"`
		Radius float64 `json:"radius"`
	}
	boneArgs struct {
		Name      string  `json:"name"`
		Color     string  `json:"color"`
		Thickness float64 `json:"thickness"`
	}
	bonePointArgs struct {
		BoneID  string  `json:"boneId"`
		PointID string  `json:"pointId"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		AddBonePointOptions
	}
	animationArgs struct {
		Name   string `json:"name"`
		FPS    int    `json:"fps"`
		Length int    `json:"length"`
	}
	keyframeArgs struct {
		AnimationID string `json:"animationId"`
		BoneID      string `json:"boneId"`
		PointID     string `json:"pointId"`
		animation.Keyframe
	}
	frameArgs struct {
		AnimationID string  `json:"animationId"`
		Frame       float64 `json:"frame"`
	}
	zoomArgs struct {
		Zoom float64 `json:"zoom"`
	}
)

func done(err error) (any, error) { return nil, err }

func check(ok bool, what string) error {
	if !ok {
		return fmt.Errorf("%s: %w", what, ErrRejected)
	}
	return nil
}

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		// Document
		"document.load": cmd(true, func(e *Engine, a documentArgs) (any, error) {
			return done(e.LoadDocument(a.Document))
		}),
		"document.update": cmd(true, func(e *Engine, a documentArgs) (any, error) {
			return done(e.UpdateDocument(a.Document))
		}),
		"document.sample": cmd(true, func(e *Engine, a newDocumentArgs) (any, error) {
			if a.ProjectID == "" {
				a.ProjectID = "proj_sample"
			}
			e.LoadSampleDocument(a.ProjectID)
			return nil, nil
		}),
		"document.new": cmd(true, func(e *Engine, a newDocumentArgs) (any, error) {
			e.NewDocument(a.ProjectID, a.Name, a.Width, a.Height)
			return nil, nil
		}),
		"document.get": noArgs(false, func(e *Engine) (any, error) {
			data, err := e.DocumentJSON()
			if err != nil {
				return nil, err
			}
			return json.RawMessage(data), nil
		}),

		// Layers
		"layer.add": cmd(true, func(e *Engine, a nameArgs) (any, error) {
			id, err := e.AddLayer(a.Name)
			return Ref{ID: id}, err
		}),
		"layer.import": cmd(true, func(e *Engine, a importArgs) (any, error) {
			id, err := e.ImportLayer(a.Name, a.Buffer)
			return Ref{ID: id}, err
		}),
		"layer.remove": cmd(true, func(e *Engine, a Ref) (any, error) {
			return done(e.RemoveLayer(a.ID))
		}),
		"layer.setActive": cmd(true, func(e *Engine, a Ref) (any, error) {
			return done(e.SetActiveLayer(a.ID))
		}),
		"layer.setVisible": cmd(true, func(e *Engine, a layerFlagArgs) (any, error) {
			return done(e.SetLayerVisible(a.ID, a.Visible))
		}),
		"layer.setLocked": cmd(true, func(e *Engine, a layerFlagArgs) (any, error) {
			return done(e.SetLayerLocked(a.ID, a.Locked))
		}),

		// Snapshots
		"snapshot.list": noArgs(false, func(e *Engine) (any, error) {
			if e.doc == nil {
				return nil, ErrNoDocument
			}
			type entry struct {
				ID    string `json:"id"`
				Label string `json:"label"`
			}
			out := []entry{}
			for _, s := range e.doc.Snapshots() {
				out = append(out, entry{ID: s.ID, Label: s.Label})
			}
			return out, nil
		}),
		"snapshot.restore": cmd(true, func(e *Engine, a Ref) (any, error) {
			return done(e.RestoreSnapshot(a.ID))
		}),

		// Selection
		"selection.get": noArgs(false, func(e *Engine) (any, error) {
			return e.Selection()
		}),
		"selection.set": cmd(true, func(e *Engine, sel region.Selection) (any, error) {
			return done(e.SetSelection(sel))
		}),
		"selection.clear": noArgs(true, func(e *Engine) (any, error) {
			return done(e.ClearSelection())
		}),
		"smartSelect.click": cmd(true, func(e *Engine, a smartSelectArgs) (any, error) {
			return e.SmartSelect(image.Pt(a.X, a.Y), e.smartArgs(a))
		}),
		"smartSelect.begin": cmd(true, func(e *Engine, a smartSelectArgs) (any, error) {
			return e.BeginSmartSelect(image.Pt(a.X, a.Y), e.smartArgs(a))
		}),
		"smartSelect.move": cmd(true, func(e *Engine, a smartSelectArgs) (any, error) {
			return e.MoveSmartSelect(image.Pt(a.X, a.Y))
		}),
		"smartSelect.end": noArgs(false, func(e *Engine) (any, error) {
			e.EndSmartSelect()
			return nil, nil
		}),
		"fill.contentAware": cmd(true, func(e *Engine, opts *fill.Options) (any, error) {
			n, err := e.ContentAwareFill(opts)
			return map[string]int{"filled": n}, err
		}),

		// Transforms
		"transform.begin": cmd(true, func(e *Engine, a beginArgs) (any, error) {
			return done(e.BeginTransform(a.Kind, a.BeginOptions))
		}),
		"transform.state": noArgs(false, func(e *Engine) (any, error) {
			return e.TransformState()
		}),
		"transform.pointerDown": cmd(true, func(e *Engine, a pointerArgs) (any, error) {
			return e.PointerDown(geom.Pt(a.X, a.Y), a.Zoom, a.Modifiers)
		}),
		"transform.pointerMove": cmd(true, func(e *Engine, a pointerArgs) (any, error) {
			moved, err := e.PointerMove(geom.Pt(a.X, a.Y), a.Modifiers)
			return map[string]bool{"moved": moved}, err
		}),
		"transform.pointerUp": noArgs(true, func(e *Engine) (any, error) {
			return done(e.PointerUp())
		}),
		"transform.commit": cmd(true, func(e *Engine, a commitArgs) (any, error) {
			return e.CommitTransform(transform.CommitOptions{Duplicate: a.Duplicate, NewLayer: a.NewLayer, Label: a.Label})
		}),
		"transform.cancel": noArgs(true, func(e *Engine) (any, error) {
			return done(e.CancelTransform())
		}),
		"free.setParams": cmd(true, func(e *Engine, p transform.FreeParams) (any, error) {
			t, err := e.Free()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetParams(p), "set params"))
		}),
		"free.mirror": cmd(true, func(e *Engine, a mirrorArgs) (any, error) {
			t, err := e.Free()
			if err != nil {
				return nil, err
			}
			return done(check(t.Mirror(a.Horizontal), "mirror"))
		}),
		"distort.setQuad": cmd(true, func(e *Engine, q geom.Quad) (any, error) {
			t, err := e.Distort()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetQuad(q), "set quad"))
		}),
		"perspective.setConstraints": cmd(true, func(e *Engine, c transform.Constraints) (any, error) {
			t, err := e.Perspective()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetConstraints(c), "set constraints"))
		}),
		"warp.setGrid": cmd(true, func(e *Engine, a gridArgs) (any, error) {
			t, err := e.Warp()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetGridSize(a.Grid), "set grid"))
		}),
		"warp.setSmoothing": cmd(true, func(e *Engine, a valueArgs) (any, error) {
			t, err := e.Warp()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetSmoothing(a.Value), "set smoothing"))
		}),
		"puppet.addPin": cmd(true, func(e *Engine, a pointArgs) (any, error) {
			t, err := e.Puppet()
			if err != nil {
				return nil, err
			}
			pin, ok := t.AddPin(geom.Pt(a.X, a.Y))
			return pin, check(ok, "add pin")
		}),
		"puppet.removePin": cmd(true, func(e *Engine, a pinArgs) (any, error) {
			t, err := e.Puppet()
			if err != nil {
				return nil, err
			}
			return done(check(t.RemovePin(a.ID), "remove pin"))
		}),
		"puppet.lockPin": cmd(true, func(e *Engine, a pinArgs) (any, error) {
			t, err := e.Puppet()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetLocked(a.ID, a.Locked), "lock pin"))
		}),
		"puppet.setPinRadius": cmd(true, func(e *Engine, a pinArgs) (any, error) {
			t, err := e.Puppet()
			if err != nil {
				return nil, err
			}
			return done(check(t.SetRadius(a.ID, a.Radius), "set pin radius"))
		}),

		// Bones
		"bone.add": cmd(true, func(e *Engine, a boneArgs) (any, error) {
			return e.AddBone(a.Name, a.Color, a.Thickness)
		}),
		"bone.remove": cmd(true, func(e *Engine, a Ref) (any, error) {
			return done(e.RemoveBone(a.ID))
		}),
		"bone.addPoint": cmd(true, func(e *Engine, a bonePointArgs) (any, error) {
			return e.AddBonePoint(a.BoneID, geom.Pt(a.X, a.Y), a.AddBonePointOptions)
		}),
		"bone.movePoint": cmd(true, func(e *Engine, a bonePointArgs) (any, error) {
			return done(e.MoveBonePoint(a.BoneID, a.PointID, geom.Pt(a.X, a.Y)))
		}),
		"bone.removePoint": cmd(true, func(e *Engine, a bonePointArgs) (any, error) {
			return done(e.RemoveBonePoint(a.BoneID, a.PointID))
		}),
		"bone.bind": cmd(true, func(e *Engine, a bonePointArgs) (any, error) {
			n, err := e.BindPoint(a.BoneID, a.PointID, a.Radius)
			return map[string]int{"bound": n}, err
		}),
		"bone.unbind": cmd(true, func(e *Engine, a bonePointArgs) (any, error) {
			n, err := e.Unbind(a.BoneID, a.PointID)
			return map[string]int{"unbound": n}, err
		}),

		// Animation
		"animation.new": cmd(true, func(e *Engine, a animationArgs) (any, error) {
			id, err := e.NewAnimation(a.Name, a.FPS, a.Length)
			return Ref{ID: id}, err
		}),
		"animation.remove": cmd(true, func(e *Engine, a Ref) (any, error) {
			return done(e.RemoveAnimation(a.ID))
		}),
		"animation.select": cmd(false, func(e *Engine, a Ref) (any, error) {
			return done(e.SetAnimation(a.ID))
		}),
		"animation.setKeyframe": cmd(true, func(e *Engine, a keyframeArgs) (any, error) {
			return done(e.SetKeyframe(a.AnimationID, a.BoneID, a.PointID, a.Keyframe))
		}),
		"animation.removeKeyframe": cmd(true, func(e *Engine, a keyframeArgs) (any, error) {
			return done(e.RemoveKeyframe(a.AnimationID, a.BoneID, a.PointID, a.Frame))
		}),

		// Playback
		"playback.state": noArgs(false, func(e *Engine) (any, error) {
			return e.PlaybackState(), nil
		}),
		"playback.seek": cmd(false, func(e *Engine, a frameArgs) (any, error) {
			return done(e.SetPlayhead(int(a.Frame)))
		}),
		"playback.play": noArgs(false, func(e *Engine) (any, error) {
			return done(e.Play())
		}),
		"playback.pause": noArgs(false, func(e *Engine) (any, error) {
			e.Pause()
			return nil, nil
		}),
		"playback.toggle": noArgs(false, func(e *Engine) (any, error) {
			playing, err := e.TogglePlay()
			return map[string]bool{"playing": playing}, err
		}),
		"playback.tick": noArgs(false, func(e *Engine) (any, error) {
			return map[string]bool{"moved": e.Tick()}, nil
		}),

		// Queries
		"render.frame": cmd(false, func(e *Engine, a frameArgs) (any, error) {
			return e.RenderFrame(a.AnimationID, a.Frame)
		}),
		"render.current": noArgs(false, func(e *Engine) (any, error) {
			return e.Render()
		}),
		"overlay": cmd(false, func(e *Engine, a zoomArgs) (any, error) {
			return e.Overlay(a.Zoom), nil
		}),
	}
}

func (e *Engine) smartArgs(a smartSelectArgs) smartselect.Options {
	tol := e.opts.Tolerance
	if a.Tolerance != nil {
		tol = *a.Tolerance
	}
	return smartselect.Options{Tolerance: tol, Mode: a.Mode}
}
