package weapon

// StateTag names a machine state.
type StateTag string

const (
	StateDefault StateTag = "default"
	StateShoot   StateTag = "shoot"
	StateReload  StateTag = "reload"
	StateInspect StateTag = "inspect"
	StateMelee   StateTag = "melee"
)

// Runtime is the mutable ammunition state of one weapon instance. It changes
// only through firing, reload completion and cooling.
type Runtime struct {
	Def         *Definition
	BulletsLeft int
	Reserve     int
	Heat        float64
	State       StateTag
}

// NewRuntime returns a weapon with a full magazine and full reserve.
func NewRuntime(def *Definition) *Runtime {
	return &Runtime{
		Def:         def,
		BulletsLeft: def.MagazineSize,
		Reserve:     def.MaxReserve,
		State:       StateDefault,
	}
}

func (r *Runtime) overheat() bool { return r.Def.ReloadStyle == ReloadOverheat }

// CanFire reports whether a round can be fired now.
func (r *Runtime) CanFire() bool {
	if r.overheat() {
		return r.Heat < 1
	}
	return r.BulletsLeft > 0
}

// Empty reports whether the weapon has nothing left to fire before a reload.
func (r *Runtime) Empty() bool { return !r.CanFire() }

// MagazineFull reports whether a reload would change nothing.
func (r *Runtime) MagazineFull() bool {
	if r.overheat() {
		return r.Heat <= 0
	}
	return r.BulletsLeft >= r.Def.MagazineSize
}

// CanReload reports whether a reload would do anything.
func (r *Runtime) CanReload() bool {
	if r.MagazineFull() {
		return false
	}
	return r.overheat() || r.Reserve > 0
}

// consume spends one round. It reports false when nothing could be fired.
func (r *Runtime) consume() bool {
	if !r.CanFire() {
		return false
	}
	if r.overheat() {
		r.Heat += r.Def.HeatPerShot
		if r.Heat > 1 {
			r.Heat = 1
		}
		return true
	}
	r.BulletsLeft--
	return true
}

// completeReload moves min(missing, reserve) rounds into the magazine, or
// vents all heat for overheat weapons.
func (r *Runtime) completeReload() {
	if r.overheat() {
		r.Heat = 0
		return
	}
	missing := r.Def.MagazineSize - r.BulletsLeft
	if missing <= 0 {
		return
	}
	n := min(missing, r.Reserve)
	r.BulletsLeft += n
	r.Reserve -= n
}

func (r *Runtime) cool(dtSeconds float64) {
	if !r.overheat() || r.Heat <= 0 {
		return
	}
	r.Heat -= r.Def.CoolSpeed * dtSeconds
	if r.Heat < 0 {
		r.Heat = 0
	}
}
