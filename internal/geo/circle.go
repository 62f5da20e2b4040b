package geo

import "math"

func circlePoint(frac float64) (float64, float64) {
	theta := 2 * math.Pi * frac
	return math.Cos(theta), math.Sin(theta)
}
