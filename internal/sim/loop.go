package sim

import (
	"context"
	"time"
)

// LoopConfig controls frame pacing.
type LoopConfig struct {
	TickRate      int
	FixedTickRate int
	MaxFrameSkip  int
	Realtime      bool
	// Duration caps the run. Zero runs until the script ends or every zone is
	// cleansed.
	Duration time.Duration
	// StopOnComplete ends the run once every zone is cleansed or the player
	// is down.
	StopOnComplete bool
}

// Stats summarises a finished run.
type Stats struct {
	Frames     int
	FixedSteps int
	Dropped    int
	SimTime    time.Duration
	Completed  bool
	Failed     bool
}

// Loop drives a Session with a variable frame step and a fixed physics step.
type Loop struct {
	cfg     LoopConfig
	session *Session
	script  *Script
}

// NewLoop applies defaults for unset rates.
func NewLoop(cfg LoopConfig, session *Session, script *Script) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.FixedTickRate <= 0 {
		cfg.FixedTickRate = 50
	}
	if cfg.MaxFrameSkip <= 0 {
		cfg.MaxFrameSkip = 5
	}
	if script == nil {
		script = NewScript()
	}
	return &Loop{cfg: cfg, session: session, script: script}
}

func (l *Loop) limit() time.Duration {
	if l.cfg.Duration > 0 {
		return l.cfg.Duration
	}
	return l.script.End()
}

// Run advances the session until the time limit, completion (when
// StopOnComplete is set) or ctx cancellation. In realtime mode frames are
// paced by a wall-clock ticker.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	frameDt := time.Second / time.Duration(l.cfg.TickRate)
	fixedDt := time.Second / time.Duration(l.cfg.FixedTickRate)
	limit := l.limit()

	var ticker *time.Ticker
	if l.cfg.Realtime {
		ticker = time.NewTicker(frameDt)
		defer ticker.Stop()
	}

	var (
		stats Stats
		acc   time.Duration
	)
	for l.session.Elapsed() < limit {
		if l.cfg.StopOnComplete && (l.session.Complete() || l.session.Failed()) {
			break
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return l.finish(stats), ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return l.finish(stats), err
		}

		acc += frameDt
		steps := 0
		for acc >= fixedDt && steps < l.cfg.MaxFrameSkip {
			l.session.FixedUpdate(fixedDt)
			acc -= fixedDt
			steps++
		}
		if acc >= fixedDt {
			// spiral of death guard
			stats.Dropped += int(acc / fixedDt)
			acc %= fixedDt
		}
		stats.FixedSteps += steps

		snap := l.script.Snapshot(l.session.Elapsed()+frameDt, frameDt)
		l.session.Update(frameDt, snap)
		stats.Frames++
	}
	return l.finish(stats), nil
}

func (l *Loop) finish(stats Stats) Stats {
	stats.SimTime = l.session.Elapsed()
	stats.Completed = l.session.Complete()
	stats.Failed = l.session.Failed()
	return stats
}
