// Package zone sequences capturable zones and tracks mission completion.
package zone

import (
	"time"

	"github.com/OCAP2/skirmish/internal/geo"
	"github.com/OCAP2/skirmish/pkg/core"
)

// State is a zone lifecycle stage. Cleansed is terminal.
type State uint8

const (
	Locked State = iota
	Active
	Capturing
	PillarVulnerable
	Cleansed
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Active:
		return "active"
	case Capturing:
		return "capturing"
	case PillarVulnerable:
		return "pillar_vulnerable"
	case Cleansed:
		return "cleansed"
	default:
		return "unknown"
	}
}

// SpawnTable describes enemies a zone sends while it is being captured.
type SpawnTable struct {
	Target   string
	Position core.Vec3
	Interval time.Duration
	Count    int
	// Waves caps how many times the table fires. Zero means no limit.
	Waves int
}

// Spec is the static description of a zone.
type Spec struct {
	ID              string
	Order           int
	CaptureDuration time.Duration
	PillarMaxHealth float64
	Pillar          core.Vec3
	Area            geo.Area
	Spawns          []SpawnTable
}

// Change is published on every zone state transition.
type Change struct {
	ZoneID          string
	From            State
	To              State
	CaptureProgress float64
	PillarHealth    float64
}

// SpawnRequest asks the session to create enemies for a zone.
type SpawnRequest struct {
	ZoneID   string
	Target   string
	Position core.Vec3
	Count    int
	Wave     int
}

type spawnTimer struct {
	table   SpawnTable
	elapsed time.Duration
	waves   int
}

// Zone is one capturable objective.
type Zone struct {
	spec         Spec
	state        State
	progress     float64
	pillarHealth float64
	timers       []spawnTimer

	onChange func(Change)
	onSpawn  func(SpawnRequest)
}

// New creates a locked zone.
func New(spec Spec) *Zone {
	z := &Zone{spec: spec}
	for _, t := range spec.Spawns {
		z.timers = append(z.timers, spawnTimer{table: t})
	}
	return z
}

// ID returns the zone identifier.
func (z *Zone) ID() string { return z.spec.ID }

// Order returns the declared sort rank.
func (z *Zone) Order() int { return z.spec.Order }

// Spec returns the static description.
func (z *Zone) Spec() Spec { return z.spec }

// State returns the lifecycle stage.
func (z *Zone) State() State { return z.state }

// CaptureProgress returns capture completion in [0,1].
func (z *Zone) CaptureProgress() float64 { return z.progress }

// PillarHealth returns the remaining pillar health.
func (z *Zone) PillarHealth() float64 { return z.pillarHealth }

// Activate unlocks the zone. Only a locked zone can be activated.
func (z *Zone) Activate() bool {
	if z.state != Locked {
		return false
	}
	z.set(Active)
	return true
}

// Tick advances capture while the player stands in the area. Leaving the area
// pauses capture without losing progress.
func (z *Zone) Tick(dt time.Duration, player core.Vec3) {
	inside := z.spec.Area.Contains(player.X, player.Z)

	switch z.state {
	case Active:
		if inside {
			z.set(Capturing)
			z.capture(dt, inside)
		}
	case Capturing:
		z.capture(dt, inside)
	}
}

func (z *Zone) capture(dt time.Duration, inside bool) {
	z.tickSpawns(dt)
	if !inside {
		return
	}
	if z.spec.CaptureDuration <= 0 {
		z.progress = 1
	} else {
		z.progress += float64(dt) / float64(z.spec.CaptureDuration)
	}
	if z.progress < 1 {
		return
	}
	z.progress = 1
	if z.spec.PillarMaxHealth <= 0 {
		z.set(PillarVulnerable)
		z.set(Cleansed)
		return
	}
	z.pillarHealth = z.spec.PillarMaxHealth
	z.set(PillarVulnerable)
}

func (z *Zone) tickSpawns(dt time.Duration) {
	for i := range z.timers {
		t := &z.timers[i]
		if t.table.Interval <= 0 || (t.table.Waves > 0 && t.waves >= t.table.Waves) {
			continue
		}
		t.elapsed += dt
		for t.elapsed >= t.table.Interval {
			t.elapsed -= t.table.Interval
			t.waves++
			if z.onSpawn != nil {
				z.onSpawn(SpawnRequest{
					ZoneID:   z.spec.ID,
					Target:   t.table.Target,
					Position: t.table.Position,
					Count:    max(t.table.Count, 1),
					Wave:     t.waves,
				})
			}
			if t.table.Waves > 0 && t.waves >= t.table.Waves {
				break
			}
		}
	}
}

// DamagePillar applies damage while the pillar is vulnerable. It reports
// whether the damage was applied.
func (z *Zone) DamagePillar(amount float64) bool {
	if z.state != PillarVulnerable || amount <= 0 {
		return false
	}
	z.pillarHealth -= amount
	if z.pillarHealth <= 0 {
		z.pillarHealth = 0
		z.set(Cleansed)
	}
	return true
}

func (z *Zone) set(to State) {
	from := z.state
	z.state = to
	if z.onChange != nil {
		z.onChange(Change{
			ZoneID:          z.spec.ID,
			From:            from,
			To:              to,
			CaptureProgress: z.progress,
			PillarHealth:    z.pillarHealth,
		})
	}
}
