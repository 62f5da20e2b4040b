package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEvaluate_Empty(t *testing.T) {
	var c Curve
	assert.Equal(t, 0.0, c.Evaluate(0.5))
	assert.True(t, c.Empty())
}

func TestEvaluate_ClampsOutsideRange(t *testing.T) {
	c := Linear([2]float64{0, 1}, [2]float64{1, 3})
	assert.Equal(t, 1.0, c.Evaluate(-5))
	assert.Equal(t, 3.0, c.Evaluate(5))
}

func TestLinear_Midpoints(t *testing.T) {
	c := Linear([2]float64{1, 10}, [2]float64{0, 0}, [2]float64{0.5, 5})

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 0},
		{0.25, 2.5},
		{0.5, 5},
		{0.75, 7.5},
		{1, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.Evaluate(tt.at), 1e-9, "t=%v", tt.at)
	}
}

func TestEvaluate_FlatTangentsEaseBetweenKeys(t *testing.T) {
	c := New(Keyframe{Time: 1, Value: 1}, Keyframe{Time: 0, Value: 0})
	assert.InDelta(t, 0.5, c.Evaluate(0.5), 1e-9)
	// smoothstep shape: slower than linear near the start
	assert.Less(t, c.Evaluate(0.1), 0.1)
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := Linear([2]float64{0, 0}, [2]float64{0.3, 2}, [2]float64{1, -1})
	for p := 0.0; p <= 1.0; p += 0.05 {
		assert.Equal(t, c.Evaluate(p), c.Evaluate(p))
	}
}

func TestLerpAndApproach(t *testing.T) {
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
	assert.Equal(t, 10.0, Lerp(0, 10, 3))
	assert.Equal(t, 0.0, Lerp(0, 10, -1))

	assert.InDelta(t, 2.0, Approach(0, 10, 2, 0.1), 1e-9)
	assert.Equal(t, 10.0, Approach(0, 10, 100, 1))
}

func TestUnmarshalYAML(t *testing.T) {
	var doc struct {
		Short Curve `yaml:"short"`
		Full  Curve `yaml:"full"`
	}
	src := `
short: [[0, 0], [1, 4]]
full:
  keys:
    - {time: 1, value: 2}
    - {time: 0, value: 0, out: 1}
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	assert.InDelta(t, 2.0, doc.Short.Evaluate(0.5), 1e-9)
	require.Len(t, doc.Full.Keys, 2)
	assert.Equal(t, 0.0, doc.Full.Keys[0].Time)
	assert.Equal(t, 1.0, doc.Full.Keys[0].OutTangent)

	var bad Curve
	assert.Error(t, yaml.Unmarshal([]byte(`[["a"]]`), &bad))
}
