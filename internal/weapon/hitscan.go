package weapon

import (
	"time"

	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/internal/rng"
	"github.com/OCAP2/skirmish/internal/sched"
	"github.com/OCAP2/skirmish/pkg/core"
)

// CameraFunc returns the eye position and view direction used for rays.
type CameraFunc func() (origin, forward core.Vec3)

// ShootStyle is a firing strategy.
type ShootStyle interface {
	// Shoot starts a firing sequence. It returns false while the fire-rate
	// cooldown is active.
	Shoot(spread, damageMultiplier, shakeMultiplier float64) bool
	// Ready reports whether Shoot would start a sequence.
	Ready() bool
	// Cancel stops pellets still waiting to fire.
	Cancel()
}

// Hitscan resolves each pellet instantly with a raycast.
type Hitscan struct {
	rt     *Runtime
	sched  *sched.Scheduler
	world  *physics.World
	camera CameraFunc
	random rng.Source
	topics *Topics

	canShoot bool
	pellets  []*sched.Routine
}

// NewHitscan builds a hitscan shoot style for one weapon instance.
func NewHitscan(rt *Runtime, s *sched.Scheduler, world *physics.World, camera CameraFunc, random rng.Source, topics *Topics) *Hitscan {
	return &Hitscan{
		rt:       rt,
		sched:    s,
		world:    world,
		camera:   camera,
		random:   random,
		topics:   topics,
		canShoot: true,
	}
}

// Ready reports whether the cooldown gate is open.
func (h *Hitscan) Ready() bool { return h.canShoot }

// Shoot fires bulletsPerFire pellets spaced by timeBetweenShots. Pellets
// with no delay, the first one always, fire before Shoot returns.
func (h *Hitscan) Shoot(spread, damageMultiplier, shakeMultiplier float64) bool {
	if !h.canShoot {
		return false
	}
	h.canShoot = false
	h.sched.After(h.rt.Def.FireInterval(), func() {
		h.canShoot = true
	})

	live := h.pellets[:0]
	for _, r := range h.pellets {
		if r.Active() {
			live = append(live, r)
		}
	}
	h.pellets = live

	n := max(h.rt.Def.BulletsPerFire, 1)
	for i := 0; i < n; i++ {
		pellet := i
		delay := time.Duration(i) * h.rt.Def.PelletInterval()
		if delay <= 0 {
			h.firePellet(pellet, spread, damageMultiplier, shakeMultiplier)
			continue
		}
		h.pellets = append(h.pellets, h.sched.After(delay, func() {
			h.firePellet(pellet, spread, damageMultiplier, shakeMultiplier)
		}))
	}
	return true
}

// Cancel stops pending pellets. The cooldown keeps running.
func (h *Hitscan) Cancel() {
	for _, r := range h.pellets {
		r.Stop()
	}
	h.pellets = h.pellets[:0]
}

func (h *Hitscan) firePellet(pellet int, spread, damageMultiplier, shakeMultiplier float64) {
	if !h.rt.consume() {
		return
	}
	def := h.rt.Def

	origin, forward := h.camera()
	dir := spreadDirection(forward, spread, h.random)

	hit, ok := h.world.Raycast(origin, dir, def.Range)
	end := origin.Add(dir.Scale(def.Range))
	if ok {
		end = hit.Point
	}

	h.topics.Fired.Publish(ShotFired{
		Weapon:    def.Name,
		Pellet:    pellet,
		Origin:    origin,
		Direction: dir,
		End:       end,
		Hit:       ok,
	})
	if def.FireSound != "" {
		h.topics.Effects.Publish(Effect{Kind: EffectSound, Weapon: def.Name, Sound: def.FireSound})
	}
	h.topics.Effects.Publish(Effect{Kind: EffectMuzzleFlash, Weapon: def.Name})
	if def.ShakeAmount > 0 {
		h.topics.Effects.Publish(Effect{Kind: EffectShake, Weapon: def.Name, Amount: def.ShakeAmount * shakeMultiplier})
	}

	if !ok {
		return
	}

	damage := def.Damage * damageMultiplier
	h.topics.Damage.Publish(Damage{
		Weapon:    def.Name,
		Collider:  hit.Collider,
		Transform: hit.Transform,
		Layer:     hit.Layer,
		Amount:    damage,
		Point:     hit.Point,
		Distance:  hit.Distance,
	})

	if def.PenetrationAmount <= 0 {
		return
	}
	second, ok := h.world.Raycast(hit.Point, dir, def.PenetrationAmount, hit.Collider)
	if !ok || second.Transform == hit.Transform {
		return
	}
	h.topics.Damage.Publish(Damage{
		Weapon:      def.Name,
		Collider:    second.Collider,
		Transform:   second.Transform,
		Layer:       second.Layer,
		Amount:      damage * def.PenetrationDamageMultiplier,
		Point:       second.Point,
		Distance:    hit.Distance + second.Distance,
		Penetration: true,
	})
}

// spreadDirection perturbs forward inside a cone whose tangent radius is
// spread.
func spreadDirection(forward core.Vec3, spread float64, random rng.Source) core.Vec3 {
	forward = forward.Normalize()
	if spread <= 0 || random == nil {
		return forward
	}
	side := forward.Cross(core.Up).Normalize()
	if side.IsZero() {
		side = core.Vec3{X: 1}
	}
	up := side.Cross(forward)

	x, y := rng.InUnitCircle(random)
	return forward.Add(side.Scale(x * spread)).Add(up.Scale(y * spread)).Normalize()
}
