package sim

import (
	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/pkg/core"
)

// TargetSpec describes a damageable target.
type TargetSpec struct {
	Name     string
	Position core.Vec3
	Radius   float64
	Health   float64
	Turret   *TurretSpec
}

// Target is a live damageable entity.
type Target struct {
	Transform uint32
	Name      string
	Health    float64
	MaxHealth float64
	Position  core.Vec3
	Alive     bool
	ZoneID    string
	collider  physics.ColliderID
	turret    *turret
}

// Armed reports whether the target is a turret.
func (t *Target) Armed() bool { return t.turret != nil }

func (s *Session) spawnTarget(spec TargetSpec, at core.Vec3, zoneID string) *Target {
	s.nextTransform++
	radius := spec.Radius
	if radius <= 0 {
		radius = 0.5
	}
	health := spec.Health
	if health <= 0 {
		health = 100
	}
	t := &Target{
		Transform: s.nextTransform,
		Name:      spec.Name,
		Health:    health,
		MaxHealth: health,
		Position:  at,
		Alive:     true,
		ZoneID:    zoneID,
	}
	t.collider = s.world.Add(physics.Collider{
		Transform: t.Transform,
		Shape:     physics.Sphere,
		Center:    at,
		Radius:    radius,
		Layer:     physics.LayerTarget,
	})
	s.targets[t.Transform] = t
	if spec.Turret != nil {
		s.arm(t, *spec.Turret)
	}
	s.rec.RecordTarget(core.TargetEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		TargetID:     t.Transform,
		Name:         t.Name,
		MaxHealth:    t.MaxHealth,
		Position:     at,
		ZoneID:       zoneID,
	})
	return t
}

// Targets returns every target ever spawned, alive or not.
func (s *Session) Targets() []*Target {
	out := make([]*Target, 0, len(s.targets))
	for i := uint32(1); i <= s.nextTransform; i++ {
		if t, ok := s.targets[i]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TargetsAlive counts living targets.
func (s *Session) TargetsAlive() int {
	n := 0
	for _, t := range s.targets {
		if t.Alive {
			n++
		}
	}
	return n
}
