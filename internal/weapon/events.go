package weapon

import (
	"github.com/OCAP2/skirmish/internal/eventbus"
	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/pkg/core"
)

// StateChange is published on every machine transition, including re-entry
// of Default after a weapon swap.
type StateChange struct {
	Weapon      string
	From        StateTag
	To          StateTag
	BulletsLeft int
	Reserve     int
	Heat        float64
}

// ShotFired is published once per round actually fired.
type ShotFired struct {
	Weapon    string
	Pellet    int
	Origin    core.Vec3
	Direction core.Vec3
	End       core.Vec3
	Hit       bool
}

// Damage is a damage request against a collider.
type Damage struct {
	Weapon      string
	Collider    physics.ColliderID
	Transform   uint32
	Layer       physics.Layer
	Amount      float64
	Point       core.Vec3
	Distance    float64
	Penetration bool
	Melee       bool
}

// EffectKind classifies presentation side effects.
type EffectKind uint8

const (
	EffectSound EffectKind = iota
	EffectShake
	EffectMuzzleFlash
)

// Effect is a request for a presentation layer. The simulation never plays
// anything itself.
type Effect struct {
	Kind   EffectKind
	Weapon string
	Sound  string
	Amount float64
}

// Topics are the notifications a weapon machine publishes.
type Topics struct {
	StateChanged eventbus.Topic[StateChange]
	Fired        eventbus.Topic[ShotFired]
	Damage       eventbus.Topic[Damage]
	Effects      eventbus.Topic[Effect]
	Swapped      eventbus.Topic[string]
}
