// pkg/core/events.go
package core

import (
	"time"
)

// ShotEvent represents a single round leaving a weapon.
type ShotEvent struct {
	Time         time.Time
	CaptureFrame uint
	Weapon       string
	Pellet       int
	Origin       Vec3
	Direction    Vec3
	EndPos       Vec3 // impact point, or origin+direction*range on a miss
	Hit          bool
}

// TargetEvent records a damageable target entering the arena.
type TargetEvent struct {
	Time         time.Time
	CaptureFrame uint
	TargetID     uint32
	Name         string
	MaxHealth    float64
	Position     Vec3
	ZoneID       string // spawning zone, empty for scenario targets
}

// HitEvent represents damage applied to a target.
type HitEvent struct {
	ID           uint
	Time         time.Time
	CaptureFrame uint
	TargetID     uint32 // transform that received the damage
	ColliderID   uint32
	Weapon       string
	Damage       float64
	Penetration  bool
	Melee        bool
	Distance     float64
	Position     Vec3
}

// KillEvent represents a target being destroyed
type KillEvent struct {
	ID           uint
	Time         time.Time
	CaptureFrame uint
	TargetID     uint32
	TargetName   string
	Weapon       string
	Distance     float64
}

// WeaponStateEvent records a weapon state machine transition
type WeaponStateEvent struct {
	Time         time.Time
	CaptureFrame uint
	Weapon       string
	From         string
	To           string
	BulletsLeft  int
	Reserve      int
	Heat         float64
}

// ZoneEvent records a zone lifecycle transition and the aggregate mission progress.
type ZoneEvent struct {
	ID              uint
	Time            time.Time
	CaptureFrame    uint
	ZoneID          string
	From            string
	To              string
	CaptureProgress float64
	PillarHealth    float64
	Cleansed        int
	Total           int
}

// GeneralEvent is a generic event
type GeneralEvent struct {
	ID           uint
	Time         time.Time
	CaptureFrame uint
	Name         string
	Message      string
	ExtraData    map[string]any
}

// TelemetryEvent is a periodic snapshot of simulation health.
type TelemetryEvent struct {
	Time         time.Time
	CaptureFrame uint

	TickDuration   time.Duration
	FixedSteps     int
	ShotsFired     int
	TargetsAlive   int
	ZoneProgress   float64
	WeaponState    string
	BulletsLeft    int
	RecoilProgress float64
	RecoilPitch    float64
	RecoilYaw      float64
	CameraShake    float64
	CameraRoll     float64
	PlayerHealth   float64
}
