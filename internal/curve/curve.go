// Package curve evaluates keyframed 1-D curves.
package curve

import "sort"

// Keyframe is a curve control point with Hermite tangents.
type Keyframe struct {
	Time       float64 `yaml:"time" json:"time"`
	Value      float64 `yaml:"value" json:"value"`
	InTangent  float64 `yaml:"in" json:"in"`
	OutTangent float64 `yaml:"out" json:"out"`
}

// Curve is a sequence of keyframes sorted by time.
type Curve struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

// New sorts the keyframes and builds a curve.
func New(keys ...Keyframe) Curve {
	c := Curve{Keys: append([]Keyframe(nil), keys...)}
	c.Sort()
	return c
}

// Linear builds a piecewise-linear curve through (time, value) pairs.
func Linear(points ...[2]float64) Curve {
	keys := make([]Keyframe, len(points))
	for i, p := range points {
		keys[i] = Keyframe{Time: p[0], Value: p[1]}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	for i := 0; i+1 < len(keys); i++ {
		dt := keys[i+1].Time - keys[i].Time
		if dt == 0 {
			continue
		}
		slope := (keys[i+1].Value - keys[i].Value) / dt
		keys[i].OutTangent = slope
		keys[i+1].InTangent = slope
	}
	return Curve{Keys: keys}
}

// Sort orders keyframes by time. Decoded curves are sorted before use.
func (c *Curve) Sort() {
	sort.SliceStable(c.Keys, func(i, j int) bool { return c.Keys[i].Time < c.Keys[j].Time })
}

// Evaluate samples the curve at t. Outside the key range the nearest end
// value is returned; an empty curve is 0 everywhere.
func (c Curve) Evaluate(t float64) float64 {
	n := len(c.Keys)
	switch {
	case n == 0:
		return 0
	case n == 1 || t <= c.Keys[0].Time:
		return c.Keys[0].Value
	case t >= c.Keys[n-1].Time:
		return c.Keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.Keys[i].Time > t }) - 1
	k0, k1 := c.Keys[i], c.Keys[i+1]
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}
	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}

// Empty reports whether the curve has no keyframes.
func (c Curve) Empty() bool { return len(c.Keys) == 0 }

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp interpolates from a to b with t clamped to [0,1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp01(t)
}

// Approach moves current toward target by rate*dt of the remaining distance.
func Approach(current, target, rate, dt float64) float64 {
	return Lerp(current, target, rate*dt)
}
