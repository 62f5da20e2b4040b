// Package player integrates first-person movement and view direction.
package player

import (
	"math"
	"time"

	"github.com/OCAP2/skirmish/internal/curve"
	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/pkg/core"
)

const maxPitch = 89.0

// Settings configure the motor.
type Settings struct {
	WalkSpeed    float64   `yaml:"walkSpeed" json:"walkSpeed"`
	RunSpeed     float64   `yaml:"runSpeed" json:"runSpeed"`
	Acceleration float64   `yaml:"acceleration" json:"acceleration"`
	EyeHeight    float64   `yaml:"eyeHeight" json:"eyeHeight"`
	Sensitivity  float64   `yaml:"sensitivity" json:"sensitivity"`
	Spawn        core.Vec3 `yaml:"-" json:"spawn"`
	Yaw          float64   `yaml:"yaw" json:"yaw"`
	Health       float64   `yaml:"health" json:"health"`

	Camera CameraSettings `yaml:"camera" json:"camera"`
}

// DefaultSettings returns a human-scale motor.
func DefaultSettings() Settings {
	return Settings{
		WalkSpeed:    4,
		RunSpeed:     7,
		Acceleration: 10,
		EyeHeight:    1.7,
		Sensitivity:  1,
		Health:       100,
		Camera:       DefaultCameraSettings(),
	}
}

// Motor moves the player on the ground plane. Yaw 0 faces +Z and positive
// pitch looks up. Angles are in degrees.
type Motor struct {
	s        Settings
	position core.Vec3
	speed    float64
	yaw      float64
	pitch    float64
}

// NewMotor places a motor at the spawn position.
func NewMotor(s Settings) *Motor {
	if s.Sensitivity == 0 {
		s.Sensitivity = 1
	}
	return &Motor{s: s, position: s.Spawn, yaw: s.Yaw}
}

// FixedTick integrates speed and position for one physics step.
func (m *Motor) FixedTick(dt time.Duration, snap input.Snapshot) {
	sec := dt.Seconds()

	move := core.Vec3{X: snap.MoveX, Z: snap.MoveY}
	if l := move.Len(); l > 1 {
		move = move.Scale(1 / l)
	}
	target := 0.0
	if !move.IsZero() {
		target = m.s.WalkSpeed
		if snap.Held.Has(input.Run) {
			target = m.s.RunSpeed
		}
		target *= move.Len()
	}
	if m.s.Acceleration > 0 {
		m.speed = approachLinear(m.speed, target, m.s.Acceleration*sec)
	} else {
		m.speed = target
	}
	if m.speed == 0 || move.IsZero() {
		return
	}

	fwd, right := m.groundAxes()
	dir := fwd.Scale(move.Z).Add(right.Scale(move.X)).Normalize()
	m.position = m.position.Add(dir.Scale(m.speed * sec))
}

// Look turns the view. Pitch is clamped to ±89°.
func (m *Motor) Look(dx, dy float64) {
	m.yaw = math.Mod(m.yaw+dx*m.s.Sensitivity, 360)
	m.pitch = math.Max(-maxPitch, math.Min(maxPitch, m.pitch+dy*m.s.Sensitivity))
}

// Camera returns the eye position and view direction with recoil applied on
// top of the player's own aim.
func (m *Motor) Camera(recoilPitch, recoilYaw float64) (origin, forward core.Vec3) {
	origin = m.position.Add(core.Vec3{Y: m.s.EyeHeight})
	pitch := curve.Lerp(-maxPitch, maxPitch, (m.pitch+recoilPitch+maxPitch)/(2*maxPitch))
	forward = direction(m.yaw+recoilYaw, pitch)
	return origin, forward
}

// Speed returns the current ground speed.
func (m *Motor) Speed() float64 { return m.speed }

// RunSpeed returns the configured sprint speed.
func (m *Motor) RunSpeed() float64 { return m.s.RunSpeed }

// Position returns the feet position.
func (m *Motor) Position() core.Vec3 { return m.position }

// Angles returns yaw and pitch in degrees.
func (m *Motor) Angles() (yaw, pitch float64) { return m.yaw, m.pitch }

// Teleport moves the player without affecting speed.
func (m *Motor) Teleport(p core.Vec3) { m.position = p }

func (m *Motor) groundAxes() (forward, right core.Vec3) {
	rad := m.yaw * math.Pi / 180
	forward = core.Vec3{X: math.Sin(rad), Z: math.Cos(rad)}
	right = core.Vec3{X: math.Cos(rad), Z: -math.Sin(rad)}
	return forward, right
}

func direction(yawDeg, pitchDeg float64) core.Vec3 {
	yaw := yawDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180
	return core.Vec3{
		X: math.Sin(yaw) * math.Cos(pitch),
		Y: math.Sin(pitch),
		Z: math.Cos(yaw) * math.Cos(pitch),
	}
}

func approachLinear(current, target, step float64) float64 {
	if current < target {
		return math.Min(current+step, target)
	}
	return math.Max(current-step, target)
}
