// Package animation stores keyframed positions for bone points and interpolates
// them for playback.
package animation

import (
	"sort"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/typeid"
)

const (
	DefaultFPS    = 12
	DefaultLength = 24
)

// Keyframe pins a bone point to a position at a frame. Easing shapes the segment
// that starts at this key.
type Keyframe struct {
	Frame  int     `json:"frame"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Easing Easing  `json:"easing,omitempty"`
}

func (k Keyframe) Pos() geom.Point { return geom.Pt(k.X, k.Y) }

// Track holds the keyframes of one bone point, sorted by frame with at most one key
// per frame.
type Track struct {
	BoneID  string     `json:"boneId"`
	PointID string     `json:"pointId"`
	Keys    []Keyframe `json:"keys"`
}

// At interpolates the track at a fractional frame. Before the first key and after
// the last the nearest key holds.
func (t *Track) At(frame float64) (geom.Point, bool) {
	if len(t.Keys) == 0 {
		return geom.Point{}, false
	}

	// Index of the first key strictly after frame.
	i := sort.Search(len(t.Keys), func(i int) bool { return float64(t.Keys[i].Frame) > frame })
	if i == 0 {
		return t.Keys[0].Pos(), true
	}
	prev := t.Keys[i-1]
	if i == len(t.Keys) || float64(prev.Frame) == frame {
		return prev.Pos(), true
	}
	next := t.Keys[i]

	u := (frame - float64(prev.Frame)) / float64(next.Frame-prev.Frame)
	return prev.Pos().Lerp(next.Pos(), Ease(u, prev.Easing)), true
}

func (t *Track) set(k Keyframe) {
	i := sort.Search(len(t.Keys), func(i int) bool { return t.Keys[i].Frame >= k.Frame })
	if i < len(t.Keys) && t.Keys[i].Frame == k.Frame {
		t.Keys[i] = k
		return
	}
	t.Keys = append(t.Keys, Keyframe{})
	copy(t.Keys[i+1:], t.Keys[i:])
	t.Keys[i] = k
}

func (t *Track) remove(frame int) bool {
	for i, k := range t.Keys {
		if k.Frame == frame {
			t.Keys = append(t.Keys[:i], t.Keys[i+1:]...)
			return true
		}
	}
	return false
}

// Animation is a named clip of bone-point tracks.
type Animation struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	FPS    int     `json:"fps"`
	Length int     `json:"length"`
	Tracks []Track `json:"tracks"`
}

// New returns an empty animation; non-positive fps or length take the defaults.
func New(name string, fps, length int) *Animation {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &Animation{
		ID:     typeid.NewAnimationID(),
		Name:   name,
		FPS:    fps,
		Length: length,
		Tracks: []Track{},
	}
}

// Track returns the track of a bone point.
func (a *Animation) Track(boneID, pointID string) (*Track, bool) {
	for i := range a.Tracks {
		if a.Tracks[i].BoneID == boneID && a.Tracks[i].PointID == pointID {
			return &a.Tracks[i], true
		}
	}
	return nil, false
}

// SetKeyframe inserts or replaces the key at k.Frame, creating the track if needed.
// Keys outside [0, Length] and non-finite positions are rejected.
func (a *Animation) SetKeyframe(boneID, pointID string, k Keyframe) bool {
	if k.Frame < 0 || k.Frame > a.Length || !k.Pos().Finite() || !k.Easing.Valid() {
		return false
	}
	t, ok := a.Track(boneID, pointID)
	if !ok {
		a.Tracks = append(a.Tracks, Track{BoneID: boneID, PointID: pointID})
		t = &a.Tracks[len(a.Tracks)-1]
	}
	t.set(k)
	return true
}

// RemoveKeyframe deletes the key at frame. A track left empty is dropped.
func (a *Animation) RemoveKeyframe(boneID, pointID string, frame int) bool {
	t, ok := a.Track(boneID, pointID)
	if !ok || !t.remove(frame) {
		return false
	}
	if len(t.Keys) == 0 {
		a.dropTracks(func(t Track) bool { return t.BoneID == boneID && t.PointID == pointID })
	}
	return true
}

// RemoveBone drops the tracks of a bone, or of a single point when pointID is set.
func (a *Animation) RemoveBone(boneID, pointID string) {
	a.dropTracks(func(t Track) bool {
		return t.BoneID == boneID && (pointID == "" || t.PointID == pointID)
	})
}

func (a *Animation) dropTracks(match func(Track) bool) {
	kept := a.Tracks[:0]
	for _, t := range a.Tracks {
		if !match(t) {
			kept = append(kept, t)
		}
	}
	a.Tracks = kept
}

// Seconds converts a frame to seconds at the clip's rate.
func (a *Animation) Seconds(frame float64) float64 {
	return frame / float64(max(a.FPS, 1))
}

// Clone returns a deep copy.
func (a *Animation) Clone() *Animation {
	out := *a
	out.Tracks = make([]Track, len(a.Tracks))
	for i, t := range a.Tracks {
		t.Keys = append([]Keyframe(nil), t.Keys...)
		out.Tracks[i] = t
	}
	return &out
}
