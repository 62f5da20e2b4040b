package sched

import "time"

// Easing maps linear progress in [0,1] to eased progress.
type Easing string

const (
	EaseLinear     Easing = "linear"
	EaseOutQuad    Easing = "easeOutQuad"
	EaseInOutCubic Easing = "easeInOutCubic"
)

// Apply evaluates the easing at p, clamping p to [0,1].
func (e Easing) Apply(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	switch e {
	case EaseOutQuad:
		return 1 - (1-p)*(1-p)
	case EaseInOutCubic:
		if p < 0.5 {
			return 4 * p * p * p
		}
		f := -2*p + 2
		return 1 - f*f*f/2
	default:
		return p
	}
}

// Tween moves a value from a start to a target over a fixed duration. It is
// advanced explicitly with Tick and holds no reference to a scheduler.
type Tween struct {
	from, to float64
	duration time.Duration
	elapsed  time.Duration
	easing   Easing
	value    float64
}

// NewTween starts a tween at from.
func NewTween(from, to float64, duration time.Duration, easing Easing) *Tween {
	t := &Tween{from: from, to: to, duration: duration, easing: easing, value: from}
	if duration <= 0 {
		t.value = to
	}
	return t
}

// Retarget restarts the tween from its current value toward a new target.
func (t *Tween) Retarget(to float64, duration time.Duration) {
	t.from = t.value
	t.to = to
	t.duration = duration
	t.elapsed = 0
	if duration <= 0 {
		t.value = to
	}
}

// Tick advances the tween and returns the current value.
func (t *Tween) Tick(dt time.Duration) float64 {
	if t.Done() {
		t.value = t.to
		return t.value
	}
	t.elapsed += dt
	p := float64(t.elapsed) / float64(t.duration)
	t.value = t.from + (t.to-t.from)*t.easing.Apply(p)
	return t.value
}

// Value returns the current value.
func (t *Tween) Value() float64 { return t.value }

// Done reports whether the tween reached its target.
func (t *Tween) Done() bool { return t.duration <= 0 || t.elapsed >= t.duration }
