// Package bone binds layer pixels to skeletal control points and displaces them at
// render time.
package bone

import (
	"image"

	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/typeid"
)

// DefaultAutoBindRadius is the radius used when a point is placed with auto-bind on.
const DefaultAutoBindRadius = 3.0

// Point is a bone control point at its rest position. A point without a parent is
// a root.
type Point struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ParentID string  `json:"parentId,omitempty"`
}

func (p Point) Pos() geom.Point { return geom.Pt(p.X, p.Y) }

// Bone is a named chain (in general a tree) of points.
type Bone struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
	Points    []Point `json:"points"`
}

func (b *Bone) point(id string) int {
	for i, p := range b.Points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Point returns the point with the given id.
func (b *Bone) Point(id string) (Point, bool) {
	if i := b.point(id); i >= 0 {
		return b.Points[i], true
	}
	return Point{}, false
}

// Children returns the ids of the points whose parent is id.
func (b *Bone) Children(id string) []string {
	var out []string
	for _, p := range b.Points {
		if p.ParentID == id {
			out = append(out, p.ID)
		}
	}
	return out
}

// Binding ties one pixel of a layer to a bone point.
type Binding struct {
	LayerID     string `json:"layerId"`
	PixelX      int    `json:"pixelX"`
	PixelY      int    `json:"pixelY"`
	BoneID      string `json:"boneId"`
	BonePointID string `json:"bonePointId"`
}

// Pixel returns the bound pixel coordinate.
func (b Binding) Pixel() image.Point { return image.Pt(b.PixelX, b.PixelY) }

// Rig holds the bones of a document and their pixel bindings.
type Rig struct {
	Bones    []Bone    `json:"bones"`
	Bindings []Binding `json:"bindings"`
}

func (r *Rig) bone(id string) int {
	for i, b := range r.Bones {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Bone returns a pointer to the bone with the given id, valid until the next change
// to the bone list.
func (r *Rig) Bone(id string) (*Bone, bool) {
	if i := r.bone(id); i >= 0 {
		return &r.Bones[i], true
	}
	return nil, false
}

// AddBone appends an empty bone.
func (r *Rig) AddBone(name, color string, thickness float64) Bone {
	b := Bone{
		ID:        typeid.NewBoneID(),
		Name:      name,
		Color:     color,
		Thickness: max(thickness, 1),
		Points:    []Point{},
	}
	r.Bones = append(r.Bones, b)
	return b
}

// RemoveBone deletes a bone and every binding to it.
func (r *Rig) RemoveBone(id string) bool {
	i := r.bone(id)
	if i < 0 {
		return false
	}
	r.Bones = append(r.Bones[:i], r.Bones[i+1:]...)
	r.dropBindings(func(b Binding) bool { return b.BoneID == id })
	return true
}

// AddPoint adds a point to a bone. parentID must name a point of the same bone or be
// empty for a root.
func (r *Rig) AddPoint(boneID string, at geom.Point, parentID string) (Point, bool) {
	b, ok := r.Bone(boneID)
	if !ok || !at.Finite() {
		return Point{}, false
	}
	if parentID != "" && b.point(parentID) < 0 {
		return Point{}, false
	}
	p := Point{ID: typeid.NewBonePointID(), X: at.X, Y: at.Y, ParentID: parentID}
	b.Points = append(b.Points, p)
	return p, true
}

// MovePoint changes the rest position of a point. Bindings are kept.
func (r *Rig) MovePoint(boneID, pointID string, at geom.Point) bool {
	b, ok := r.Bone(boneID)
	if !ok || !at.Finite() {
		return false
	}
	i := b.point(pointID)
	if i < 0 {
		return false
	}
	b.Points[i].X, b.Points[i].Y = at.X, at.Y
	return true
}

// RemovePoint deletes a point. Its children are re-parented to its parent and its
// bindings are dropped.
func (r *Rig) RemovePoint(boneID, pointID string) bool {
	b, ok := r.Bone(boneID)
	if !ok {
		return false
	}
	i := b.point(pointID)
	if i < 0 {
		return false
	}
	parent := b.Points[i].ParentID
	b.Points = append(b.Points[:i], b.Points[i+1:]...)
	for j := range b.Points {
		if b.Points[j].ParentID == pointID {
			b.Points[j].ParentID = parent
		}
	}
	r.dropBindings(func(bd Binding) bool { return bd.BoneID == boneID && bd.BonePointID == pointID })
	return true
}

// RestPosition returns the rest position of a point.
func (r *Rig) RestPosition(boneID, pointID string) (geom.Point, bool) {
	b, ok := r.Bone(boneID)
	if !ok {
		return geom.Point{}, false
	}
	p, ok := b.Point(pointID)
	return p.Pos(), ok
}

// AutoBind records a binding to (boneID, pointID) for every non-empty pixel of layer
// whose center lies within radius of the point. Pixels are not moved. It returns the
// number of bindings added; pixels already bound to the point are skipped.
func (r *Rig) AutoBind(layerID string, layer *pixel.Buffer, boneID, pointID string, radius float64) int {
	at, ok := r.RestPosition(boneID, pointID)
	if !ok || layer == nil || radius < 0 {
		return 0
	}

	existing := make(map[image.Point]bool)
	for _, b := range r.Bindings {
		if b.LayerID == layerID && b.BoneID == boneID && b.BonePointID == pointID {
			existing[b.Pixel()] = true
		}
	}

	area := geom.Rect{X: at.X - radius, Y: at.Y - radius, Width: 2 * radius, Height: 2 * radius}.Pixels().Intersect(layer.Bounds())
	added := 0
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if !layer.At(x, y).Filled || existing[image.Pt(x, y)] {
				continue
			}
			if geom.Pt(float64(x)+0.5, float64(y)+0.5).Dist(at) > radius {
				continue
			}
			r.Bindings = append(r.Bindings, Binding{
				LayerID:     layerID,
				PixelX:      x,
				PixelY:      y,
				BoneID:      boneID,
				BonePointID: pointID,
			})
			added++
		}
	}
	return added
}

// Unbind removes every binding to a point.
func (r *Rig) Unbind(boneID, pointID string) int {
	return r.dropBindings(func(b Binding) bool { return b.BoneID == boneID && b.BonePointID == pointID })
}

// LayerBindings returns the bindings of one layer in recorded order.
func (r *Rig) LayerBindings(layerID string) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.LayerID == layerID {
			out = append(out, b)
		}
	}
	return out
}

// RemoveLayer drops every binding to a layer.
func (r *Rig) RemoveLayer(layerID string) int {
	return r.dropBindings(func(b Binding) bool { return b.LayerID == layerID })
}

func (r *Rig) dropBindings(match func(Binding) bool) int {
	kept := r.Bindings[:0]
	for _, b := range r.Bindings {
		if !match(b) {
			kept = append(kept, b)
		}
	}
	n := len(r.Bindings) - len(kept)
	r.Bindings = kept
	return n
}

// Clone returns a deep copy.
func (r *Rig) Clone() *Rig {
	out := &Rig{Bones: make([]Bone, len(r.Bones)), Bindings: append([]Binding(nil), r.Bindings...)}
	for i, b := range r.Bones {
		b.Points = append([]Point(nil), b.Points...)
		out.Bones[i] = b
	}
	return out
}
