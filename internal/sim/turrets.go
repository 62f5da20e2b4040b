package sim

import (
	"time"

	"github.com/OCAP2/skirmish/internal/sched"
	"github.com/OCAP2/skirmish/pkg/core"
)

// TurretSpec arms a target. A turret fires at the player's eye whenever it
// has line of sight within Range and its cooldown has elapsed. The first shot
// waits one Interval after spawning.
type TurretSpec struct {
	Range    float64
	Interval time.Duration
	Damage   float64
	// Shake is the camera kick applied to the player on a hit.
	Shake float64
}

type turret struct {
	spec     TurretSpec
	ready    bool
	cooldown *sched.Routine
}

func (s *Session) arm(t *Target, spec TurretSpec) {
	t.turret = &turret{spec: spec}
	s.rearm(t)
	s.turrets = append(s.turrets, t)
}

// rearm stops any running cooldown before starting the next one.
func (s *Session) rearm(t *Target) {
	tr := t.turret
	tr.ready = false
	tr.cooldown.Stop()
	tr.cooldown = s.sched.After(tr.spec.Interval, func() { tr.ready = true })
}

func (s *Session) disarm(t *Target) {
	if t.turret == nil {
		return
	}
	t.turret.cooldown.Stop()
	t.turret.ready = false
}

// tickTurrets lets every ready turret with line of sight take one shot, in
// spawn order.
func (s *Session) tickTurrets() {
	if s.down || len(s.turrets) == 0 {
		return
	}
	eye, _ := s.motor.Camera(0, 0)

	live := s.turrets[:0]
	for _, t := range s.turrets {
		if !t.Alive {
			continue
		}
		live = append(live, t)
		if s.down || !t.turret.ready {
			continue
		}

		to := eye.Sub(t.Position)
		dist := to.Len()
		if dist == 0 || dist > t.turret.spec.Range {
			continue
		}
		dir := to.Scale(1 / dist)
		if _, blocked := s.world.Raycast(t.Position, dir, dist, t.collider); blocked {
			continue
		}

		s.rearm(t)
		s.damagePlayer(t, dist)
	}
	s.turrets = live
}

func (s *Session) damagePlayer(t *Target, dist float64) {
	spec := t.turret.spec
	s.health -= spec.Damage
	if s.health < 0 {
		s.health = 0
	}
	s.camfx.Shake(spec.Shake)
	s.rec.RecordGeneralEvent(core.GeneralEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		Name:         "player_hit",
		Message:      t.Name,
		ExtraData: map[string]any{
			"turret":   t.Transform,
			"damage":   spec.Damage,
			"distance": dist,
			"health":   s.health,
		},
	})
	if s.health > 0 {
		return
	}

	s.down = true
	for _, other := range s.turrets {
		s.disarm(other)
	}
	s.log.Info("player down", "turret", t.Name)
	s.rec.RecordGeneralEvent(core.GeneralEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		Name:         "player_down",
		Message:      t.Name,
	})
}

// PlayerHealth returns the player's remaining health.
func (s *Session) PlayerHealth() float64 { return s.health }

// Failed reports whether turrets brought the player down.
func (s *Session) Failed() bool { return s.down }
