package player

import (
	"math"
	"time"

	"github.com/OCAP2/skirmish/internal/sched"
)

// CameraSettings tune view effects. A zero TiltAngle disables strafe tilt.
type CameraSettings struct {
	TiltAngle      float64 `yaml:"tiltAngle" json:"tiltAngle"` // roll at full strafe, degrees
	TiltTime       float64 `yaml:"tiltTime" json:"tiltTime"`   // seconds
	ShakeAttack    float64 `yaml:"shakeAttack" json:"shakeAttack"`
	ShakeDecay     float64 `yaml:"shakeDecay" json:"shakeDecay"`
	ShakeFrequency float64 `yaml:"shakeFrequency" json:"shakeFrequency"` // Hz
}

// DefaultCameraSettings returns a subtle lean and a short shake.
func DefaultCameraSettings() CameraSettings {
	return CameraSettings{
		TiltAngle:      3,
		TiltTime:       0.15,
		ShakeAttack:    0.03,
		ShakeDecay:     0.25,
		ShakeFrequency: 18,
	}
}

// CameraEffects layers shake and strafe tilt over the view. They are visual
// only: rays still follow Motor.Camera.
//
// Each effect owns one tween. A new request retargets the running tween from
// its current value, and the shake stops its pending decay routine before
// scheduling the next one, so overlapping kicks never run side by side.
type CameraEffects struct {
	s     CameraSettings
	sched *sched.Scheduler

	tilt       *sched.Tween
	tiltTarget float64

	shake   *sched.Tween
	decay   *sched.Routine
	elapsed time.Duration
}

// NewCameraEffects creates effects at rest. Decay routines run on s.
func NewCameraEffects(cs CameraSettings, s *sched.Scheduler) *CameraEffects {
	return &CameraEffects{
		s:     cs,
		sched: s,
		tilt:  sched.NewTween(0, 0, 0, sched.EaseOutQuad),
		shake: sched.NewTween(0, 0, 0, sched.EaseLinear),
	}
}

// Shake kicks the camera to amount, or keeps the current amplitude if it is
// already higher, then decays to rest after the attack.
func (fx *CameraEffects) Shake(amount float64) {
	if amount <= 0 {
		return
	}
	fx.decay.Stop()

	peak := math.Max(amount, fx.shake.Value())
	attack := seconds(fx.s.ShakeAttack)
	fx.shake.Retarget(peak, attack)
	fx.decay = fx.sched.After(attack, func() {
		// routines run before the frame's Tick, so land the attack first
		fx.shake.Tick(attack)
		fx.shake.Retarget(0, seconds(fx.s.ShakeDecay))
	})
}

// Lean sets the tilt target from strafe input in [-1,1]. Strafing right rolls
// the view left.
func (fx *CameraEffects) Lean(strafe float64) {
	strafe = math.Max(-1, math.Min(1, strafe))
	target := -strafe * fx.s.TiltAngle
	if target == fx.tiltTarget {
		return
	}
	fx.tiltTarget = target
	fx.tilt.Retarget(target, seconds(fx.s.TiltTime))
}

// Tick advances both tweens.
func (fx *CameraEffects) Tick(dt time.Duration) {
	fx.elapsed += dt
	fx.tilt.Tick(dt)
	fx.shake.Tick(dt)
}

// Offsets returns the shake jitter (pitch, yaw) and the tilt roll, in degrees.
func (fx *CameraEffects) Offsets() (pitch, yaw, roll float64) {
	if amp := fx.shake.Value(); amp != 0 {
		phase := fx.elapsed.Seconds() * 2 * math.Pi * fx.s.ShakeFrequency
		pitch = amp * math.Sin(phase)
		yaw = amp * math.Cos(phase*1.3)
	}
	return pitch, yaw, fx.tilt.Value()
}

// Amplitude returns the current shake strength.
func (fx *CameraEffects) Amplitude() float64 { return fx.shake.Value() }

// Roll returns the current tilt.
func (fx *CameraEffects) Roll() float64 { return fx.tilt.Value() }

// Shaking reports whether a shake is still rising or decaying.
func (fx *CameraEffects) Shaking() bool {
	return fx.decay.Active() || !fx.shake.Done() || fx.shake.Value() != 0
}

// Reset snaps both effects to rest and cancels the pending decay.
func (fx *CameraEffects) Reset() {
	fx.decay.Stop()
	fx.decay = nil
	fx.shake.Retarget(0, 0)
	fx.tilt.Retarget(0, 0)
	fx.tiltTarget = 0
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
