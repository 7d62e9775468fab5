package document

import (
	"time"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
	"github.com/inamate/pixelkit/internal/typeid"
)

// MaxHistory is the number of snapshots kept in memory.
const MaxHistory = 50

// Snapshot is a labeled copy of the layers and selection.
type Snapshot struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"projectId"`
	Label         string           `json:"label"`
	CreatedAt     string           `json:"createdAt"`
	PixelsVersion int              `json:"pixelsVersion"`
	ActiveLayer   string           `json:"activeLayer"`
	Selection     region.Selection `json:"selection"`
	Layers        []*Layer         `json:"layers"`
}

// The methods below make *Document a transform canvas.

func (d *Document) Size() (int, int) {
	return d.Project.Width, d.Project.Height
}

func (d *Document) Selection() region.Selection {
	return d.CurrentSelection
}

func (d *Document) SetSelection(sel region.Selection) {
	d.CurrentSelection = sel
}

func (d *Document) ActiveLayerID() string {
	return d.ActiveLayer
}

// LayerBuffer returns the pixels of an unlocked layer, nil otherwise.
func (d *Document) LayerBuffer(id string) *pixel.Buffer {
	l, ok := d.Layer(id)
	if !ok || l.Locked {
		return nil
	}
	return l.Pixels
}

// AddLayer inserts a layer above the active one (or on top when there is none).
// The active layer is not changed.
func (d *Document) AddLayer(name string) (string, *pixel.Buffer) {
	l := newLayer(name, d.Project.Width, d.Project.Height)
	i := d.layerIndex(d.ActiveLayer)
	if i < 0 {
		d.Layers = append(d.Layers, l)
	} else {
		d.Layers = append(d.Layers[:i+1], append([]*Layer{l}, d.Layers[i+1:]...)...)
	}
	return l.ID, l.Pixels
}

// Touch records a pixel mutation.
func (d *Document) Touch() {
	d.PixelsVersion++
	d.Project.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// SaveSnapshot stores a labeled copy of the layers, trimming the oldest beyond
// MaxHistory, and hands it to the snapshot hook if one is set.
func (d *Document) SaveSnapshot(label string) {
	s := Snapshot{
		ID:            typeid.NewSnapshotID(),
		ProjectID:     d.Project.ID,
		Label:         label,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		PixelsVersion: d.PixelsVersion,
		ActiveLayer:   d.ActiveLayer,
		Selection:     d.CurrentSelection,
		Layers:        make([]*Layer, len(d.Layers)),
	}
	for i, l := range d.Layers {
		s.Layers[i] = l.clone()
	}
	d.history = append(d.history, s)
	if n := len(d.history); n > MaxHistory {
		d.history = append([]Snapshot(nil), d.history[n-MaxHistory:]...)
	}
	if d.onSnapshot != nil {
		d.onSnapshot(s)
	}
}

// OnSnapshot registers fn to receive every saved snapshot.
func (d *Document) OnSnapshot(fn func(Snapshot)) {
	d.onSnapshot = fn
}

// History returns the snapshot labels, oldest first.
func (d *Document) History() []string {
	out := make([]string, len(d.history))
	for i, s := range d.history {
		out[i] = s.Label
	}
	return out
}

// Snapshots returns the in-memory snapshots, oldest first.
func (d *Document) Snapshots() []Snapshot {
	return append([]Snapshot(nil), d.history...)
}

// Restore replaces the layers and selection with those of a snapshot. Bindings to
// layers that no longer exist are dropped.
func (d *Document) Restore(s Snapshot) bool {
	if len(s.Layers) == 0 {
		return false
	}
	w, h := d.Size()
	layers := make([]*Layer, 0, len(s.Layers))
	for _, l := range s.Layers {
		if l == nil || l.Pixels == nil || l.Pixels.Width != w || l.Pixels.Height != h {
			return false
		}
		layers = append(layers, l.clone())
	}

	d.Layers = layers
	d.CurrentSelection = s.Selection
	d.ActiveLayer = s.ActiveLayer
	if _, ok := d.Layer(d.ActiveLayer); !ok {
		d.ActiveLayer = d.Layers[0].ID
	}
	for _, id := range d.boundLayers() {
		if _, ok := d.Layer(id); !ok {
			d.Rig.RemoveLayer(id)
		}
	}
	d.Touch()
	return true
}

// RestoreID restores an in-memory snapshot by id.
func (d *Document) RestoreID(id string) bool {
	for _, s := range d.history {
		if s.ID == id {
			return d.Restore(s)
		}
	}
	return false
}

func (d *Document) boundLayers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range d.Rig.Bindings {
		if !seen[b.LayerID] {
			seen[b.LayerID] = true
			out = append(out, b.LayerID)
		}
	}
	return out
}
