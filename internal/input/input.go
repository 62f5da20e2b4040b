// Package input turns per-tick control reads into edge events.
package input

import (
	"fmt"
	"strings"

	"github.com/OCAP2/skirmish/internal/eventbus"
)

// Action is a digital control.
type Action uint8

const (
	Shoot Action = iota
	Aim
	Reload
	Inspect
	Melee
	Run
	NextWeapon

	actionCount
)

var actionNames = [actionCount]string{
	Shoot:      "shoot",
	Aim:        "aim",
	Reload:     "reload",
	Inspect:    "inspect",
	Melee:      "melee",
	Run:        "run",
	NextWeapon: "nextWeapon",
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction resolves an action name, case-insensitively.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if strings.EqualFold(n, name) {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown input action %q", name)
}

// Actions lists every action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// ActionSet is a bitset of held actions.
type ActionSet uint16

// Has reports whether a is in the set.
func (s ActionSet) Has(a Action) bool { return s&(1<<a) != 0 }

// With returns the set with a added.
func (s ActionSet) With(a Action) ActionSet { return s | 1<<a }

// Without returns the set with a removed.
func (s ActionSet) Without(a Action) ActionSet { return s &^ (1 << a) }

// Snapshot is everything read from the controls in one tick.
type Snapshot struct {
	Held  ActionSet
	MoveX float64 // strafe, [-1,1]
	MoveY float64 // forward, [-1,1]
	LookX float64 // yaw delta, degrees
	LookY float64 // pitch delta, degrees
}

// Tracker derives rising and falling edges from consecutive snapshots.
type Tracker struct {
	prev, cur ActionSet
}

// Update records the snapshot for the current tick.
func (t *Tracker) Update(s Snapshot) {
	t.prev = t.cur
	t.cur = s.Held
}

// Held reports whether a is down this tick.
func (t *Tracker) Held(a Action) bool { return t.cur.Has(a) }

// Pressed reports a rising edge this tick.
func (t *Tracker) Pressed(a Action) bool { return t.cur.Has(a) && !t.prev.Has(a) }

// Released reports a falling edge this tick.
func (t *Tracker) Released(a Action) bool { return !t.cur.Has(a) && t.prev.Has(a) }

// Router publishes action edges to per-action topics.
type Router struct {
	tracker  Tracker
	last     Snapshot
	pressed  [actionCount]eventbus.Topic[Action]
	released [actionCount]eventbus.Topic[Action]
}

// NewRouter creates a router with no listeners.
func NewRouter() *Router {
	return &Router{}
}

// Pressed returns the rising-edge topic for a.
func (r *Router) Pressed(a Action) *eventbus.Topic[Action] { return &r.pressed[a] }

// Released returns the falling-edge topic for a.
func (r *Router) Released(a Action) *eventbus.Topic[Action] { return &r.released[a] }

// Dispatch updates edge state and publishes every edge of this tick. Press
// edges are published before release edges, each in action order.
func (r *Router) Dispatch(s Snapshot) {
	r.tracker.Update(s)
	r.last = s
	for a := Action(0); a < actionCount; a++ {
		if r.tracker.Pressed(a) {
			r.pressed[a].Publish(a)
		}
	}
	for a := Action(0); a < actionCount; a++ {
		if r.tracker.Released(a) {
			r.released[a].Publish(a)
		}
	}
}

// Tracker exposes the edge state of the last dispatched snapshot.
func (r *Router) Tracker() *Tracker { return &r.tracker }

// Last returns the last dispatched snapshot.
func (r *Router) Last() Snapshot { return r.last }

// ListenerCount returns the number of handlers attached across all topics.
func (r *Router) ListenerCount() int {
	n := 0
	for i := range r.pressed {
		n += r.pressed[i].Len() + r.released[i].Len()
	}
	return n
}
