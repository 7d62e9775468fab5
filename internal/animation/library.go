package animation

import "github.com/inamate/pixelkit/internal/geom"

// Library is the ordered set of animations of a document.
type Library struct {
	Animations []*Animation `json:"animations"`
}

func (l *Library) Get(id string) (*Animation, bool) {
	for _, a := range l.Animations {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

func (l *Library) Add(a *Animation) {
	l.Animations = append(l.Animations, a)
}

func (l *Library) Remove(id string) bool {
	for i, a := range l.Animations {
		if a.ID == id {
			l.Animations = append(l.Animations[:i], l.Animations[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveBone drops the tracks of a bone (or one of its points) from every animation.
func (l *Library) RemoveBone(boneID, pointID string) {
	for _, a := range l.Animations {
		a.RemoveBone(boneID, pointID)
	}
}

// InterpolateBoneTransform returns the position of a bone point at a frame of an
// animation, or false when the animation or track does not exist.
func (l *Library) InterpolateBoneTransform(animationID, boneID, pointID string, time float64) (geom.Point, bool) {
	a, ok := l.Get(animationID)
	if !ok {
		return geom.Point{}, false
	}
	t, ok := a.Track(boneID, pointID)
	if !ok {
		return geom.Point{}, false
	}
	return t.At(time)
}

func (l *Library) Clone() *Library {
	out := &Library{Animations: make([]*Animation, len(l.Animations))}
	for i, a := range l.Animations {
		out.Animations[i] = a.Clone()
	}
	return out
}
