package curve

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a list of [time, value] pairs, decoded as a
// linear curve, or a mapping with explicit keys and tangents.
func (c *Curve) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var points [][2]float64
		if err := node.Decode(&points); err != nil {
			return fmt.Errorf("curve points: %w", err)
		}
		*c = Linear(points...)
		return nil
	}

	type plain Curve
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Curve(p)
	c.Sort()
	return nil
}
