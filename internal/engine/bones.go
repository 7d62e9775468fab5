package engine

import (
	"fmt"

	"github.com/inamate/pixelkit/internal/bone"
	"github.com/inamate/pixelkit/internal/geom"
)

// AddBone creates an empty bone.
func (e *Engine) AddBone(name, color string, thickness float64) (bone.Bone, error) {
	doc, err := e.idle()
	if err != nil {
		return bone.Bone{}, err
	}
	if name == "" {
		name = fmt.Sprintf("Bone %d", len(doc.Rig.Bones)+1)
	}
	if color == "" {
		color = "#ffffff"
	}
	return doc.Rig.AddBone(name, color, thickness), nil
}

// AddBonePointOptions control how a new point is attached.
type AddBonePointOptions struct {
	// ParentID defaults to the bone's last point; Root forces a root point.
	ParentID string `json:"parentId,omitempty"`
	Root     bool   `json:"root,omitempty"`
	// AutoBind binds nearby pixels of the active layer to the new point.
	AutoBind bool    `json:"autoBind,omitempty"`
	Radius   float64 `json:"radius,omitempty"`
}

// BonePointResult is the new point and how many pixels it was bound to.
type BonePointResult struct {
	Point bone.Point `json:"point"`
	Bound int        `json:"bound"`
}

// AddBonePoint adds a point to a bone, chained to the previous point unless a parent
// is given.
func (e *Engine) AddBonePoint(boneID string, at geom.Point, opts AddBonePointOptions) (BonePointResult, error) {
	doc, err := e.idle()
	if err != nil {
		return BonePointResult{}, err
	}
	b, ok := doc.Rig.Bone(boneID)
	if !ok {
		return BonePointResult{}, fmt.Errorf("bone %q: %w", boneID, ErrNotFound)
	}
	parent := opts.ParentID
	if parent == "" && !opts.Root && len(b.Points) > 0 {
		parent = b.Points[len(b.Points)-1].ID
	}
	p, ok := doc.Rig.AddPoint(boneID, at, parent)
	if !ok {
		return BonePointResult{}, fmt.Errorf("add bone point: %w", ErrRejected)
	}

	res := BonePointResult{Point: p}
	if opts.AutoBind {
		n, err := e.bindPoint(boneID, p.ID, opts.Radius)
		if err != nil {
			return res, err
		}
		res.Bound = n
	}
	return res, nil
}

// BindPoint binds the filled pixels of the active layer around a point to it. A
// non-positive radius uses the configured default.
func (e *Engine) BindPoint(boneID, pointID string, radius float64) (int, error) {
	if _, err := e.idle(); err != nil {
		return 0, err
	}
	return e.bindPoint(boneID, pointID, radius)
}

func (e *Engine) bindPoint(boneID, pointID string, radius float64) (int, error) {
	doc := e.doc
	if _, ok := doc.Rig.RestPosition(boneID, pointID); !ok {
		return 0, fmt.Errorf("bone point %q: %w", pointID, ErrNotFound)
	}
	layer := doc.LayerBuffer(doc.ActiveLayer)
	if layer == nil {
		return 0, ErrLayerLocked
	}
	if radius <= 0 {
		radius = e.opts.AutoBindRadius
	}
	return doc.Rig.AutoBind(doc.ActiveLayer, layer, boneID, pointID, radius), nil
}

// Unbind drops every binding to a point.
func (e *Engine) Unbind(boneID, pointID string) (int, error) {
	doc, err := e.idle()
	if err != nil {
		return 0, err
	}
	return doc.Rig.Unbind(boneID, pointID), nil
}

// MoveBonePoint changes a point's rest position.
func (e *Engine) MoveBonePoint(boneID, pointID string, at geom.Point) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.Rig.MovePoint(boneID, pointID, at) {
		return fmt.Errorf("move bone point %q: %w", pointID, ErrRejected)
	}
	return nil
}

func (e *Engine) RemoveBonePoint(boneID, pointID string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.RemoveBonePoint(boneID, pointID) {
		return fmt.Errorf("bone point %q: %w", pointID, ErrNotFound)
	}
	return nil
}

func (e *Engine) RemoveBone(id string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.RemoveBone(id) {
		return fmt.Errorf("bone %q: %w", id, ErrNotFound)
	}
	return nil
}
