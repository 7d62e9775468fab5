package transform

import "github.com/inamate/pixelkit/internal/pixel"

const (
	// DefaultHandleRadius is the handle hit radius in screen pixels at zoom 1.
	DefaultHandleRadius       = 8.0
	DefaultSnapAngle          = 15.0
	DefaultPuppetRadiusFactor = 0.15

	// rotateHandleOffset is the screen distance of the rotate handle above the top edge.
	rotateHandleOffset = 20.0
)

// Options are the tunables shared by the transform tools.
type Options struct {
	Filter             pixel.Filter
	HandleRadius       float64
	SnapAngle          float64
	PuppetRadiusFactor float64
}

// DefaultOptions returns the stock tunables with nearest-neighbor sampling.
func DefaultOptions() Options {
	return Options{
		Filter:             pixel.Nearest,
		HandleRadius:       DefaultHandleRadius,
		SnapAngle:          DefaultSnapAngle,
		PuppetRadiusFactor: DefaultPuppetRadiusFactor,
	}
}

// hitRadius converts the screen-space handle radius to canvas units.
func (o Options) hitRadius(zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	r := o.HandleRadius
	if r <= 0 {
		r = DefaultHandleRadius
	}
	return r / zoom
}
