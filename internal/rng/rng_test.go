package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeeded_Reproducible(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestInUnitCircle(t *testing.T) {
	src := NewSeeded(7)
	for i := 0; i < 1000; i++ {
		x, y := InUnitCircle(src)
		assert.LessOrEqual(t, x*x+y*y, 1.0+1e-12)
	}
}

func TestDefault_Range(t *testing.T) {
	src := Default()
	for i := 0; i < 100; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestFixed(t *testing.T) {
	x, y := InUnitCircle(Fixed(0))
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}
