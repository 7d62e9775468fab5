package engine

import (
	"fmt"

	"github.com/inamate/pixelkit/internal/animation"
	"github.com/inamate/pixelkit/internal/document"
	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
)

type playback struct {
	animationID string
	frame       int
	playing     bool
}

// clamp keeps the playhead inside the selected animation, falling back to the first
// animation when the selected one is gone.
func (p *playback) clamp(doc *document.Document) {
	a, ok := doc.Animations.Get(p.animationID)
	if !ok {
		*p = playback{}
		if len(doc.Animations.Animations) == 0 {
			return
		}
		a = doc.Animations.Animations[0]
		p.animationID = a.ID
	}
	p.frame = min(max(p.frame, 0), a.Length)
}

// PlaybackState is the serializable playhead.
type PlaybackState struct {
	AnimationID string `json:"animationId"`
	Frame       int    `json:"frame"`
	Length      int    `json:"length"`
	FPS         int    `json:"fps"`
	Playing     bool   `json:"playing"`
}

func (e *Engine) PlaybackState() PlaybackState {
	s := PlaybackState{
		AnimationID: e.playback.animationID,
		Frame:       e.playback.frame,
		Playing:     e.playback.playing,
	}
	if a, ok := e.animation(); ok {
		s.Length, s.FPS = a.Length, a.FPS
	}
	return s
}

func (e *Engine) animation() (*animation.Animation, bool) {
	if e.doc == nil {
		return nil, false
	}
	return e.doc.Animations.Get(e.playback.animationID)
}

// SetAnimation selects the animation the playhead runs on and rewinds it.
func (e *Engine) SetAnimation(id string) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	if _, ok := e.doc.Animations.Get(id); !ok {
		return fmt.Errorf("animation %q: %w", id, ErrNotFound)
	}
	e.playback = playback{animationID: id}
	return nil
}

// SetPlayhead moves the playhead, clamped to the animation.
func (e *Engine) SetPlayhead(frame int) error {
	a, ok := e.animation()
	if !ok {
		return fmt.Errorf("playhead: %w", ErrNotFound)
	}
	e.playback.frame = min(max(frame, 0), a.Length)
	return nil
}

func (e *Engine) Play() error {
	if _, ok := e.animation(); !ok {
		return fmt.Errorf("play: %w", ErrNotFound)
	}
	e.playback.playing = true
	return nil
}

func (e *Engine) Pause() {
	e.playback.playing = false
}

// TogglePlay flips between playing and paused and reports the new state.
func (e *Engine) TogglePlay() (bool, error) {
	if e.playback.playing {
		e.Pause()
		return false, nil
	}
	if err := e.Play(); err != nil {
		return false, err
	}
	return true, nil
}

// Tick advances a playing playhead by one frame, wrapping past the last frame. It
// reports whether the playhead moved.
func (e *Engine) Tick() bool {
	a, ok := e.animation()
	if !ok || !e.playback.playing {
		return false
	}
	e.playback.frame++
	if e.playback.frame > a.Length {
		e.playback.frame = 0
	}
	return true
}

// RenderFrame flattens the document posed at a frame of an animation. An empty
// animationID renders the rest pose.
func (e *Engine) RenderFrame(animationID string, frame float64) (*pixel.Buffer, error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	if animationID == "" {
		return e.doc.Flatten(nil), nil
	}
	if _, ok := e.doc.Animations.Get(animationID); !ok {
		return nil, fmt.Errorf("animation %q: %w", animationID, ErrNotFound)
	}
	return e.doc.RenderFrame(animationID, frame), nil
}

// Render flattens the document at the playhead.
func (e *Engine) Render() (*pixel.Buffer, error) {
	if _, ok := e.animation(); !ok {
		return e.RenderFrame("", 0)
	}
	return e.RenderFrame(e.playback.animationID, float64(e.playback.frame))
}

// --- Animations ---

func (e *Engine) NewAnimation(name string, fps, length int) (string, error) {
	doc, err := e.idle()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = fmt.Sprintf("Animation %d", len(doc.Animations.Animations)+1)
	}
	a := doc.NewAnimation(name, fps, length)
	if e.playback.animationID == "" {
		e.playback = playback{animationID: a.ID}
	}
	return a.ID, nil
}

func (e *Engine) RemoveAnimation(id string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.Animations.Remove(id) {
		return fmt.Errorf("animation %q: %w", id, ErrNotFound)
	}
	e.playback.clamp(doc)
	return nil
}

// SetKeyframe keys a bone point at a frame.
func (e *Engine) SetKeyframe(animationID, boneID, pointID string, k animation.Keyframe) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	a, ok := doc.Animations.Get(animationID)
	if !ok {
		return fmt.Errorf("animation %q: %w", animationID, ErrNotFound)
	}
	if _, ok := doc.Rig.RestPosition(boneID, pointID); !ok {
		return fmt.Errorf("bone point %q: %w", pointID, ErrNotFound)
	}
	if !a.SetKeyframe(boneID, pointID, k) {
		return fmt.Errorf("set keyframe at %d: %w", k.Frame, ErrRejected)
	}
	return nil
}

// KeyCurrentPose keys a bone point at the playhead to pos.
func (e *Engine) KeyCurrentPose(boneID, pointID string, pos geom.Point, easing animation.Easing) error {
	return e.SetKeyframe(e.playback.animationID, boneID, pointID, animation.Keyframe{
		Frame:  e.playback.frame,
		X:      pos.X,
		Y:      pos.Y,
		Easing: easing,
	})
}

func (e *Engine) RemoveKeyframe(animationID, boneID, pointID string, frame int) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	a, ok := doc.Animations.Get(animationID)
	if !ok {
		return fmt.Errorf("animation %q: %w", animationID, ErrNotFound)
	}
	if !a.RemoveKeyframe(boneID, pointID, frame) {
		return fmt.Errorf("keyframe %d: %w", frame, ErrNotFound)
	}
	return nil
}
