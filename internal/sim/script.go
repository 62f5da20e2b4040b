package sim

import (
	"sort"
	"time"

	"github.com/OCAP2/skirmish/internal/input"
)

// Step holds actions and axes for a span of simulated time. Look values are
// rates in degrees per second.
type Step struct {
	At       time.Duration
	Duration time.Duration
	Held     input.ActionSet
	MoveX    float64
	MoveY    float64
	LookX    float64
	LookY    float64
}

func (s Step) activeAt(now time.Duration) bool {
	return now >= s.At && now < s.At+s.Duration
}

// Script replays a fixed input timeline.
type Script struct {
	steps []Step
}

// NewScript orders steps by start time.
func NewScript(steps ...Step) *Script {
	out := append([]Step(nil), steps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return &Script{steps: out}
}

// Snapshot merges every step active at now. Held actions are combined, axes
// are summed and clamped to [-1,1], look rates are integrated over dt.
func (s *Script) Snapshot(now, dt time.Duration) input.Snapshot {
	var snap input.Snapshot
	for _, st := range s.steps {
		if st.At > now {
			break
		}
		if !st.activeAt(now) {
			continue
		}
		snap.Held |= st.Held
		snap.MoveX += st.MoveX
		snap.MoveY += st.MoveY
		snap.LookX += st.LookX * dt.Seconds()
		snap.LookY += st.LookY * dt.Seconds()
	}
	snap.MoveX = clampAxis(snap.MoveX)
	snap.MoveY = clampAxis(snap.MoveY)
	return snap
}

// End returns when the last step finishes.
func (s *Script) End() time.Duration {
	var end time.Duration
	for _, st := range s.steps {
		end = max(end, st.At+st.Duration)
	}
	return end
}

// Len returns the number of steps.
func (s *Script) Len() int { return len(s.steps) }

func clampAxis(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
