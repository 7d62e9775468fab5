package smartselect

import (
	"image"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

// DefaultSampleLimit is the number of recent pointer samples a drag re-fills from.
const DefaultSampleLimit = 8

// Tracker grows a selection while the pointer is dragged. The pointer-down sample
// applies the caller's mode; later samples keep extending the running mask (add) or
// keep carving it (subtract).
type Tracker struct {
	opts    Options
	limit   int
	samples []image.Point
	running region.PixelSet
}

// Begin starts a drag at seed.
func Begin(buf *pixel.Buffer, seed image.Point, existing region.PixelSet, opts Options, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	t := &Tracker{
		opts:    opts,
		limit:   limit,
		samples: []image.Point{seed},
		running: Select(buf, seed, existing, opts),
	}
	if t.opts.Mode == ModeNormal || t.opts.Mode == "" {
		t.opts.Mode = ModeAdd
	}
	return t
}

// Move records a pointer sample and folds the fills of the most recent samples into
// the running mask.
func (t *Tracker) Move(buf *pixel.Buffer, p image.Point) region.PixelSet {
	if n := len(t.samples); n > 0 && t.samples[n-1] == p {
		return t.running
	}
	t.samples = append(t.samples, p)
	if len(t.samples) > t.limit {
		t.samples = t.samples[len(t.samples)-t.limit:]
	}
	t.running = Expand(buf, t.samples, t.running, t.opts)
	return t.running
}

// Samples returns the retained pointer samples, oldest first.
func (t *Tracker) Samples() []image.Point {
	return append([]image.Point(nil), t.samples...)
}

// Mask returns the running selection.
func (t *Tracker) Mask() region.PixelSet {
	return t.running
}
