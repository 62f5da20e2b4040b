package worker

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/OCAP2/skirmish/internal/dispatcher"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/pkg/core"
)

// RegisterHandlers registers all recording handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Target registration - sync (cache before hits and kills arrive)
	d.Register(CmdTarget, m.handleTarget, dispatcher.Logged())

	// High-volume combat records - buffered
	d.Register(CmdShot, m.handleShot, dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(CmdHit, m.handleHit, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(CmdKill, m.handleKill, dispatcher.Buffered(2000), dispatcher.Logged())

	// State transitions - buffered, never dropped
	d.Register(CmdWeaponState, m.handleWeaponState, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdZoneState, m.handleZoneState, dispatcher.Buffered(500), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdGeneralEvent, m.handleGeneralEvent, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())

	// Telemetry - buffered, drops under pressure
	d.Register(CmdTelemetry, m.handleTelemetry, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleTarget(e dispatcher.Event) (any, error) {
	obj, err := payload[core.TargetEvent](CmdTarget, e.Payload)
	if err != nil {
		return nil, err
	}
	m.deps.EntityCache.AddTarget(obj)
	if err := m.backend.AddTarget(&obj); err != nil {
		return nil, fmt.Errorf("failed to add target: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleShot(e dispatcher.Event) (any, error) {
	obj, err := payload[core.ShotEvent](CmdShot, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordShotEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record shot: %w", err)
	}
	m.shots.Inc()
	return nil, nil
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	obj, err := payload[core.HitEvent](CmdHit, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordHitEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record hit: %w", err)
	}
	m.hits.Inc()
	return nil, nil
}

func (m *Manager) handleKill(e dispatcher.Event) (any, error) {
	obj, err := payload[core.KillEvent](CmdKill, e.Payload)
	if err != nil {
		return nil, err
	}
	// fill the victim name from the spawn record
	if obj.TargetName == "" {
		obj.TargetName = m.deps.EntityCache.TargetName(obj.TargetID)
	}
	if err := m.backend.RecordKillEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record kill: %w", err)
	}
	m.kills.Inc()
	return nil, nil
}

func (m *Manager) handleWeaponState(e dispatcher.Event) (any, error) {
	obj, err := payload[core.WeaponStateEvent](CmdWeaponState, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordWeaponStateEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record weapon state: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleZoneState(e dispatcher.Event) (any, error) {
	obj, err := payload[core.ZoneEvent](CmdZoneState, e.Payload)
	if err != nil {
		return nil, err
	}
	m.deps.ZoneCache.Set(obj)
	if err := m.backend.RecordZoneEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record zone state: %w", err)
	}
	if sink := m.deps.Telemetry; sink != nil {
		if err := sink.WriteZone(m.missionName(), obj); err != nil {
			m.deps.LogManager.Logger().Warn("Failed to write zone point", "error", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleGeneralEvent(e dispatcher.Event) (any, error) {
	obj, err := payload[core.GeneralEvent](CmdGeneralEvent, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordGeneralEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record general event: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleTelemetry(e dispatcher.Event) (any, error) {
	obj, err := payload[core.TelemetryEvent](CmdTelemetry, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.backend.RecordTelemetryEvent(&obj); err != nil {
		return nil, fmt.Errorf("failed to record telemetry: %w", err)
	}
	m.telemetryMu.Lock()
	m.lastTelemetry = &obj
	m.telemetryMu.Unlock()
	if sink := m.deps.Telemetry; sink != nil {
		if err := sink.WriteTelemetry(m.missionName(), obj); err != nil {
			m.deps.LogManager.Logger().Warn("Failed to write telemetry point", "error", err)
		}
	}
	return nil, nil
}

func (m *Manager) missionName() string {
	return m.deps.MissionContext.GetMission().MissionName
}

// Recorder forwards simulation events into the dispatcher. It satisfies
// sim.Recorder and is called from the simulation goroutine only.
type Recorder struct {
	d       *dispatcher.Dispatcher
	mc      *mission.Context
	log     *slog.Logger
	dropped atomic.Uint64
}

// NewRecorder creates a recorder that tags the mission context with the
// frame of every record it forwards.
func NewRecorder(d *dispatcher.Dispatcher, mc *mission.Context, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{d: d, mc: mc, log: log}
}

// Dropped returns how many records could not be dispatched.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) send(cmd string, frame uint, ev dispatcher.Event) {
	if r.mc != nil {
		r.mc.SetFrame(frame)
	}
	ev.Command = cmd
	if _, err := r.d.Dispatch(ev); err != nil {
		r.dropped.Add(1)
		r.log.Debug("record not dispatched", "command", cmd, "error", err)
	}
}

func (r *Recorder) RecordTarget(e core.TargetEvent) {
	r.send(CmdTarget, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordShot(e core.ShotEvent) {
	r.send(CmdShot, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordHit(e core.HitEvent) {
	r.send(CmdHit, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordKill(e core.KillEvent) {
	r.send(CmdKill, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordWeaponState(e core.WeaponStateEvent) {
	r.send(CmdWeaponState, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordZoneState(e core.ZoneEvent) {
	r.send(CmdZoneState, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordGeneralEvent(e core.GeneralEvent) {
	r.send(CmdGeneralEvent, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}

func (r *Recorder) RecordTelemetry(e core.TelemetryEvent) {
	r.send(CmdTelemetry, e.CaptureFrame, dispatcher.Event{Payload: e, Timestamp: e.Time})
}
