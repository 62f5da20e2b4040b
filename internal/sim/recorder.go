package sim

import "github.com/OCAP2/skirmish/pkg/core"

// Recorder receives every observable simulation event. Implementations must
// not retain pointers into simulation state; events are passed by value.
type Recorder interface {
	RecordTarget(core.TargetEvent)
	RecordShot(core.ShotEvent)
	RecordHit(core.HitEvent)
	RecordKill(core.KillEvent)
	RecordWeaponState(core.WeaponStateEvent)
	RecordZoneState(core.ZoneEvent)
	RecordGeneralEvent(core.GeneralEvent)
	RecordTelemetry(core.TelemetryEvent)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordTarget(core.TargetEvent)           {}
func (NopRecorder) RecordShot(core.ShotEvent)               {}
func (NopRecorder) RecordHit(core.HitEvent)                 {}
func (NopRecorder) RecordKill(core.KillEvent)               {}
func (NopRecorder) RecordWeaponState(core.WeaponStateEvent) {}
func (NopRecorder) RecordZoneState(core.ZoneEvent)          {}
func (NopRecorder) RecordGeneralEvent(core.GeneralEvent)    {}
func (NopRecorder) RecordTelemetry(core.TelemetryEvent)     {}
