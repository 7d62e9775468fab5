package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inamate/pixelkit/internal/animation"
	"github.com/inamate/pixelkit/internal/bone"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
	"github.com/inamate/pixelkit/internal/typeid"
)

const (
	DefaultWidth  = 64
	DefaultHeight = 64
	// MaxSide bounds each canvas dimension.
	MaxSide = 4096
)

// Document is an editable pixel-art project.
type Document struct {
	Project          Project           `json:"project"`
	Layers           []*Layer          `json:"layers"`
	ActiveLayer      string            `json:"activeLayer"`
	CurrentSelection region.Selection  `json:"selection"`
	Rig              bone.Rig          `json:"rig"`
	Animations       animation.Library `json:"animations"`
	PixelsVersion    int               `json:"pixelsVersion"`

	history    []Snapshot
	onSnapshot func(Snapshot)
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Layer struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Visible bool          `json:"visible"`
	Locked  bool          `json:"locked"`
	Opacity float64       `json:"opacity"`
	Pixels  *pixel.Buffer `json:"pixels"`
}

func (l *Layer) clone() *Layer {
	out := *l
	out.Pixels = l.Pixels.Clone()
	return &out
}

// New creates an empty document with a single layer. Sizes outside [1, MaxSide] take
// the defaults.
func New(projectID, name string, width, height int) *Document {
	if width <= 0 || width > MaxSide {
		width = DefaultWidth
	}
	if height <= 0 || height > MaxSide {
		height = DefaultHeight
	}
	now := time.Now().UTC().Format(time.RFC3339)

	d := &Document{
		Project: Project{
			ID:        projectID,
			Name:      name,
			Version:   1,
			Width:     width,
			Height:    height,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Layers:     []*Layer{},
		Rig:        bone.Rig{Bones: []bone.Bone{}, Bindings: []bone.Binding{}},
		Animations: animation.Library{Animations: []*animation.Animation{}},
	}
	id, _ := d.AddLayer("Layer 1")
	d.ActiveLayer = id
	return d
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the canvas size and the layer buffers, and repairs what can be
// repaired: missing buffers are allocated and a dangling active layer falls back to
// the first layer.
func (d *Document) Validate() error {
	w, h := d.Project.Width, d.Project.Height
	if w <= 0 || h <= 0 || w > MaxSide || h > MaxSide {
		return fmt.Errorf("invalid canvas size %dx%d", w, h)
	}
	seen := make(map[string]bool, len(d.Layers))
	for i, l := range d.Layers {
		if l == nil || l.ID == "" {
			return fmt.Errorf("layer %d has no id", i)
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = true
		if l.Pixels == nil {
			l.Pixels = pixel.NewBuffer(w, h)
		}
		if l.Pixels.Width != w || l.Pixels.Height != h || len(l.Pixels.Pix) != w*h {
			return fmt.Errorf("layer %q is %dx%d with %d pixels, canvas is %dx%d",
				l.ID, l.Pixels.Width, l.Pixels.Height, len(l.Pixels.Pix), w, h)
		}
	}
	if !seen[d.ActiveLayer] {
		d.ActiveLayer = ""
		if len(d.Layers) > 0 {
			d.ActiveLayer = d.Layers[0].ID
		}
	}
	return nil
}

// Layer returns the layer with the given id.
func (d *Document) Layer(id string) (*Layer, bool) {
	for _, l := range d.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

func (d *Document) layerIndex(id string) int {
	for i, l := range d.Layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// SetActiveLayer selects the layer tools operate on.
func (d *Document) SetActiveLayer(id string) bool {
	if _, ok := d.Layer(id); !ok {
		return false
	}
	d.ActiveLayer = id
	return true
}

// RemoveLayer deletes a layer and its bone bindings. The last layer cannot be removed.
func (d *Document) RemoveLayer(id string) bool {
	i := d.layerIndex(id)
	if i < 0 || len(d.Layers) == 1 {
		return false
	}
	d.Layers = append(d.Layers[:i], d.Layers[i+1:]...)
	d.Rig.RemoveLayer(id)
	if d.ActiveLayer == id {
		d.ActiveLayer = d.Layers[max(i-1, 0)].ID
	}
	d.Touch()
	return true
}

// SetLayerVisible shows or hides a layer.
func (d *Document) SetLayerVisible(id string, visible bool) bool {
	l, ok := d.Layer(id)
	if !ok {
		return false
	}
	l.Visible = visible
	d.Touch()
	return true
}

// SetLayerLocked locks or unlocks a layer. Locked layers are read-only to tools.
func (d *Document) SetLayerLocked(id string, locked bool) bool {
	l, ok := d.Layer(id)
	if !ok {
		return false
	}
	l.Locked = locked
	return true
}

// RemoveBone deletes a bone together with its bindings and animation tracks.
func (d *Document) RemoveBone(id string) bool {
	if !d.Rig.RemoveBone(id) {
		return false
	}
	d.Animations.RemoveBone(id, "")
	return true
}

// RemoveBonePoint deletes a bone point together with its bindings and tracks.
func (d *Document) RemoveBonePoint(boneID, pointID string) bool {
	if !d.Rig.RemovePoint(boneID, pointID) {
		return false
	}
	d.Animations.RemoveBone(boneID, pointID)
	return true
}

// NewAnimation adds an empty animation.
func (d *Document) NewAnimation(name string, fps, length int) *animation.Animation {
	a := animation.New(name, fps, length)
	d.Animations.Add(a)
	return a
}

func newLayer(name string, w, h int) *Layer {
	return &Layer{
		ID:      typeid.NewLayerID(),
		Name:    name,
		Visible: true,
		Opacity: 1,
		Pixels:  pixel.NewBuffer(w, h),
	}
}
