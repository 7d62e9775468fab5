package animation

import "math"

type Easing string

const (
	EasingLinear     Easing = "linear"
	EasingEaseIn     Easing = "easeIn"
	EasingEaseOut    Easing = "easeOut"
	EasingEaseInOut  Easing = "easeInOut"
	EasingCubicIn    Easing = "cubicIn"
	EasingCubicOut   Easing = "cubicOut"
	EasingCubicInOut Easing = "cubicInOut"
	EasingBackIn     Easing = "backIn"
	EasingBackOut    Easing = "backOut"
	EasingBackInOut  Easing = "backInOut"
	EasingElasticOut Easing = "elasticOut"
	EasingBounceOut  Easing = "bounceOut"
)

// Valid reports whether e names a known curve. The empty easing is linear.
func (e Easing) Valid() bool {
	switch e {
	case "", EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut,
		EasingCubicIn, EasingCubicOut, EasingCubicInOut,
		EasingBackIn, EasingBackOut, EasingBackInOut,
		EasingElasticOut, EasingBounceOut:
		return true
	}
	return false
}

// Ease maps t in [0,1] through the curve. Unknown curves are linear.
func Ease(t float64, e Easing) float64 {
	switch e {
	case EasingEaseIn:
		return t * t

	case EasingEaseOut:
		return t * (2 - t)

	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EasingCubicIn:
		return t * t * t

	case EasingCubicOut:
		u := 1 - t
		return 1 - u*u*u

	case EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := -2*t + 2
		return 1 - u*u*u/2

	case EasingBackIn:
		const c1 = 1.70158
		const c3 = c1 + 1
		return c3*t*t*t - c1*t*t

	case EasingBackOut:
		const c1 = 1.70158
		const c3 = c1 + 1
		u := t - 1
		return 1 + c3*u*u*u + c1*u*u

	case EasingBackInOut:
		const c2 = 1.70158 * 1.525
		if t < 0.5 {
			return (math.Pow(2*t, 2) * ((c2+1)*2*t - c2)) / 2
		}
		return (math.Pow(2*t-2, 2)*((c2+1)*(t*2-2)+c2) + 2) / 2

	case EasingElasticOut:
		if t == 0 || t == 1 {
			return t
		}
		const c4 = (2 * math.Pi) / 3
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1

	case EasingBounceOut:
		return bounceOut(t)

	default:
		return t
	}
}

func bounceOut(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
