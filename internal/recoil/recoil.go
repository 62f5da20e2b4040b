// Package recoil accumulates camera kick from consecutive shots.
//
// Progress runs from 0 to 1 over one full magazine. While the player keeps
// firing, the pitch and yaw offsets chase targets sampled from the weapon's
// recoil curves at the current progress; otherwise they relax back to zero.
package recoil

import (
	"time"

	"github.com/OCAP2/skirmish/internal/curve"
)

// Profile is the recoil configuration of the equipped weapon.
type Profile struct {
	Pitch         curve.Curve
	Yaw           curve.Curve
	HipMultiplier float64
	AimMultiplier float64
	RelaxSpeed    float64
}

// Context is what the model needs to know about the player each tick.
type Context struct {
	HasWeapon bool
	Empty     bool
	Enabled   bool
	Firing    bool
	Aiming    bool
	Profile   Profile
}

// applies reports whether recoil should be driven toward the curve targets.
func (c Context) applies() bool {
	return c.HasWeapon && !c.Empty && c.Enabled && c.Firing
}

// Model holds recoil progress and the live offsets.
type Model struct {
	relaxSpeed float64

	progress float64
	pitch    float64
	yaw      float64
}

// New creates a model. relaxSpeed is used when the weapon does not set one.
func New(relaxSpeed float64) *Model {
	return &Model{relaxSpeed: relaxSpeed}
}

// OnShot advances progress by one round of a magazine of the given size.
func (m *Model) OnShot(magazineSize int) {
	if magazineSize <= 0 {
		return
	}
	m.progress += 1 / float64(magazineSize)
	if m.progress > 1 {
		m.progress = 1
	}
}

// Tick moves the offsets toward their targets.
func (m *Model) Tick(dt time.Duration, ctx Context) {
	rate := ctx.Profile.RelaxSpeed
	if rate <= 0 {
		rate = m.relaxSpeed
	}
	sec := dt.Seconds()

	if !ctx.Firing {
		m.progress = 0
	}
	targetPitch, targetYaw := 0.0, 0.0
	if ctx.applies() {
		targetPitch, targetYaw = Target(ctx.Profile, m.progress, ctx.Aiming)
	}
	m.pitch = curve.Approach(m.pitch, targetPitch, rate, sec)
	m.yaw = curve.Approach(m.yaw, targetYaw, rate, sec)
}

// Target samples the recoil curves at progress p.
func Target(p Profile, progress float64, aiming bool) (pitch, yaw float64) {
	mult := p.HipMultiplier
	if aiming {
		mult = p.AimMultiplier
	}
	return p.Pitch.Evaluate(progress) * mult, p.Yaw.Evaluate(progress) * mult
}

// Offsets returns the live pitch and yaw offsets in degrees.
func (m *Model) Offsets() (pitch, yaw float64) { return m.pitch, m.yaw }

// Progress returns the curve evaluation position in [0,1].
func (m *Model) Progress() float64 { return m.progress }

// Reset zeroes progress and offsets.
func (m *Model) Reset() {
	m.progress, m.pitch, m.yaw = 0, 0, 0
}
