// internal/storage/storage.go
package storage

import "github.com/OCAP2/skirmish/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Mission management
	StartMission(mission *core.Mission, world *core.World) error
	EndMission() error

	// Entity registration
	AddTarget(t *core.TargetEvent) error

	// Event recording
	RecordShotEvent(e *core.ShotEvent) error
	RecordHitEvent(e *core.HitEvent) error
	RecordKillEvent(e *core.KillEvent) error
	RecordWeaponStateEvent(e *core.WeaponStateEvent) error
	RecordZoneEvent(e *core.ZoneEvent) error
	RecordGeneralEvent(e *core.GeneralEvent) error
	RecordTelemetryEvent(e *core.TelemetryEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the recording server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
