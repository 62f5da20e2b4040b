package weapon

import (
	"time"

	"github.com/OCAP2/skirmish/internal/eventbus"
	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/sched"
)

type defaultState struct {
	subs eventbus.Group
}

func (s *defaultState) Tag() StateTag { return StateDefault }

func (s *defaultState) Enter(m *Machine) {
	r := m.cfg.Router
	eventbus.Add(&s.subs, r.Pressed(input.Reload), func(input.Action) {
		if m.Current().Runtime.CanReload() {
			m.Transition(StateReload)
		}
	})
	eventbus.Add(&s.subs, r.Pressed(input.Inspect), func(input.Action) {
		if m.Current().Def.Inspect.Allowed {
			m.Transition(StateInspect)
		}
	})
	eventbus.Add(&s.subs, r.Pressed(input.Melee), func(input.Action) {
		if m.Current().Def.Melee.Enabled {
			m.Transition(StateMelee)
		}
	})
	eventbus.Add(&s.subs, r.Pressed(input.NextWeapon), func(input.Action) {
		m.Swap()
	})
}

func (s *defaultState) Exit(*Machine) { s.subs.Release() }

func (s *defaultState) Tick(m *Machine, dt time.Duration) {
	w := m.Current()
	rt := w.Runtime

	if rt.overheat() && rt.Heat >= 1 {
		m.Transition(StateReload)
		return
	}
	if w.Def.AutoReload && !rt.CanFire() && rt.CanReload() {
		m.Transition(StateReload)
		return
	}

	if m.cfg.Router.Tracker().Held(input.Shoot) {
		if rt.CanFire() {
			if !m.triggerSpent {
				m.Transition(StateShoot)
			}
			return
		}
		if w.Def.EmptyMagSound != "" && !m.emptyClicked {
			m.emptyClicked = true
			m.Effects.Publish(Effect{Kind: EffectSound, Weapon: w.Def.Name, Sound: w.Def.EmptyMagSound})
		}
		return
	}
	rt.cool(dt.Seconds())
}

type shootState struct {
	subs eventbus.Group
}

func (s *shootState) Tag() StateTag { return StateShoot }

func (s *shootState) Enter(m *Machine) {
	eventbus.Add(&s.subs, m.cfg.Router.Released(input.Shoot), func(input.Action) {
		m.Transition(StateDefault)
	})
	m.fire()
}

func (s *shootState) Exit(*Machine) { s.subs.Release() }

func (s *shootState) Tick(m *Machine, _ time.Duration) {
	if !m.cfg.Router.Tracker().Held(input.Shoot) || !m.Current().Runtime.CanFire() || m.triggerSpent {
		m.Transition(StateDefault)
		return
	}
	m.fire()
}

type reloadState struct {
	routine *sched.Routine
}

func (s *reloadState) Tag() StateTag { return StateReload }

func (s *reloadState) Enter(m *Machine) {
	w := m.Current()
	s.routine = m.cfg.Scheduler.After(w.Def.ReloadDuration(), func() {
		w.Runtime.completeReload()
		m.Transition(StateDefault)
	})
}

func (s *reloadState) Exit(*Machine) {
	s.routine.Stop()
	s.routine = nil
}

func (s *reloadState) Tick(*Machine, time.Duration) {}

type inspectState struct {
	subs    eventbus.Group
	entered time.Duration
}

func (s *inspectState) Tag() StateTag { return StateInspect }

func (s *inspectState) Enter(m *Machine) {
	s.entered = m.cfg.Scheduler.Now()
	eventbus.Add(&s.subs, m.cfg.Router.Pressed(input.Shoot), func(input.Action) {
		if s.minTimeElapsed(m) && !m.Current().Def.Inspect.RealtimeCustomization {
			// the press that ends inspection does not fire
			m.triggerSpent = true
			m.Transition(StateDefault)
		}
	})
}

func (s *inspectState) Exit(*Machine) { s.subs.Release() }

func (s *inspectState) Tick(m *Machine, _ time.Duration) {
	if m.cfg.Mover == nil || !s.minTimeElapsed(m) {
		return
	}
	if run := m.cfg.Mover.RunSpeed(); run > 0 && m.cfg.Mover.Speed() >= run {
		m.Transition(StateDefault)
	}
}

func (s *inspectState) minTimeElapsed(m *Machine) bool {
	return m.cfg.Scheduler.Now()-s.entered >= seconds(m.Current().Def.Inspect.MinTime)
}

type meleeState struct {
	hit  *sched.Routine
	done *sched.Routine
}

func (s *meleeState) Tag() StateTag { return StateMelee }

func (s *meleeState) Enter(m *Machine) {
	def := m.Current().Def
	s.hit = m.cfg.Scheduler.After(seconds(def.Melee.HitDelay), m.resolveMelee)
	s.done = m.cfg.Scheduler.After(seconds(def.Melee.Duration), func() {
		m.Transition(StateDefault)
	})
}

func (s *meleeState) Exit(*Machine) {
	s.hit.Stop()
	s.done.Stop()
}

func (s *meleeState) Tick(*Machine, time.Duration) {}
