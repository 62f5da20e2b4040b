package weapon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/internal/rng"
	"github.com/OCAP2/skirmish/internal/sched"
)

// Mover exposes the player's movement to the Inspect state.
type Mover interface {
	Speed() float64
	RunSpeed() float64
}

// Config wires a Machine to the rest of the session.
type Config struct {
	Scheduler *sched.Scheduler
	Router    *input.Router
	World     *physics.World
	Camera    CameraFunc
	Mover     Mover
	Random    rng.Source
	Logger    *slog.Logger
}

// Weapon is one inventory slot.
type Weapon struct {
	Def     *Definition
	Runtime *Runtime
	Style   ShootStyle
}

// State is one node of the weapon state machine. Enter attaches the input
// listeners the state needs and Exit detaches all of them.
type State interface {
	Tag() StateTag
	Enter(m *Machine)
	Exit(m *Machine)
	Tick(m *Machine, dt time.Duration)
}

// Machine runs the weapon state machine for an inventory of weapons. Exactly
// one state is active at a time. It must only be used from the simulation
// goroutine.
type Machine struct {
	Topics

	cfg       Config
	inventory []*Weapon
	current   int
	states    map[StateTag]State
	state     State

	// latches survive state changes and clear when shoot is released
	triggerSpent bool
	emptyClicked bool
}

// NewMachine equips the loadout and enters Default with the first weapon.
func NewMachine(cfg Config, loadout ...*Definition) (*Machine, error) {
	if len(loadout) == 0 {
		return nil, fmt.Errorf("equip loadout: %w", ErrNoWeapon)
	}
	if cfg.Scheduler == nil || cfg.Router == nil || cfg.World == nil || cfg.Camera == nil {
		return nil, fmt.Errorf("weapon machine: scheduler, router, world and camera are required")
	}
	if cfg.Random == nil {
		cfg.Random = rng.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	m := &Machine{cfg: cfg}
	for _, def := range loadout {
		if def == nil {
			return nil, fmt.Errorf("equip loadout: %w", ErrNoWeapon)
		}
		rt := NewRuntime(def)
		m.inventory = append(m.inventory, &Weapon{
			Def:     def,
			Runtime: rt,
			Style:   NewHitscan(rt, cfg.Scheduler, cfg.World, cfg.Camera, cfg.Random, &m.Topics),
		})
	}

	m.states = map[StateTag]State{
		StateDefault: &defaultState{},
		StateShoot:   &shootState{},
		StateReload:  &reloadState{},
		StateInspect: &inspectState{},
		StateMelee:   &meleeState{},
	}
	m.state = m.states[StateDefault]
	m.state.Enter(m)
	return m, nil
}

// Current returns the equipped weapon.
func (m *Machine) Current() *Weapon { return m.inventory[m.current] }

// Inventory returns every weapon slot.
func (m *Machine) Inventory() []*Weapon { return m.inventory }

// State returns the active state tag.
func (m *Machine) State() StateTag { return m.state.Tag() }

// Aiming reports whether the aim action is held.
func (m *Machine) Aiming() bool { return m.cfg.Router.Tracker().Held(input.Aim) }

// Firing reports whether the machine is in Shoot.
func (m *Machine) Firing() bool { return m.state.Tag() == StateShoot }

// Transition exits the active state and enters to. Re-entering the active
// state is allowed and rebinds its listeners.
func (m *Machine) Transition(to StateTag) {
	next, ok := m.states[to]
	if !ok {
		m.cfg.Logger.Debug("unknown weapon state", "state", to)
		return
	}
	prev := m.state
	prev.Exit(m)
	m.state = next

	w := m.Current()
	w.Runtime.State = to
	m.StateChanged.Publish(StateChange{
		Weapon:      w.Def.Name,
		From:        prev.Tag(),
		To:          to,
		BulletsLeft: w.Runtime.BulletsLeft,
		Reserve:     w.Runtime.Reserve,
		Heat:        w.Runtime.Heat,
	})
	next.Enter(m)
}

// Update advances the active state. Input edges must already have been
// dispatched for this tick.
func (m *Machine) Update(dt time.Duration) {
	if !m.cfg.Router.Tracker().Held(input.Shoot) {
		m.triggerSpent = false
		m.emptyClicked = false
	}
	m.state.Tick(m, dt)
}

// Swap equips the next weapon. It is a no-op with a single weapon.
func (m *Machine) Swap() bool {
	if len(m.inventory) < 2 {
		return false
	}
	m.Current().Style.Cancel()
	m.current = (m.current + 1) % len(m.inventory)
	m.Swapped.Publish(m.Current().Def.Name)
	m.Transition(StateDefault)
	return true
}

// fire pulls the trigger once with the current aim-dependent modifiers.
func (m *Machine) fire() {
	w := m.Current()
	spread, damage, shake := w.Def.HipSpread, 1.0, w.Def.Recoil.HipMultiplier
	if m.Aiming() {
		spread, damage, shake = w.Def.AimSpread, w.Def.AimDamageMultiplier, w.Def.Recoil.AimMultiplier
	}
	if w.Style.Shoot(spread, damage, shake) && w.Def.FireMode == FireSemi {
		m.triggerSpent = true
	}
}

// resolveMelee casts a short ray straight ahead.
func (m *Machine) resolveMelee() {
	def := m.Current().Def
	origin, forward := m.cfg.Camera()
	hit, ok := m.cfg.World.Raycast(origin, forward, def.Melee.Range)
	if !ok {
		return
	}
	m.Damage.Publish(Damage{
		Weapon:    def.Name,
		Collider:  hit.Collider,
		Transform: hit.Transform,
		Layer:     hit.Layer,
		Amount:    def.Melee.Damage,
		Point:     hit.Point,
		Distance:  hit.Distance,
		Melee:     true,
	})
}
