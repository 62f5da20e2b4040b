// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// vec3ToPoint converts a core.Vec3 to a geom.Point with Z
func vec3ToPoint(v core.Vec3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Y}, Z: v.Z, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// traceToLineString converts a shot trace to a two point geom.LineString
func traceToLineString(from, to core.Vec3) geom.LineString {
	seq := geom.NewSequence([]float64{from.X, from.Y, from.Z, to.X, to.Y, to.Z}, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// extraDataToJSON converts event extra data to datatypes.JSON for DB storage.
func extraDataToJSON(extra map[string]any) datatypes.JSON {
	if len(extra) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToWorld converts a core.World to a GORM model.World.
func CoreToWorld(w core.World) model.World {
	out := model.World{
		DisplayName: w.DisplayName,
		WorldName:   w.WorldName,
		WorldSize:   w.WorldSize,
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
		Location:    vec3ToPoint(w.Location),
	}
	out.ID = w.ID
	return out
}

// CoreToMission converts a core.Mission to a GORM model.Mission.
func CoreToMission(m core.Mission) model.Mission {
	out := model.Mission{
		UUID:             m.UUID,
		MissionName:      m.MissionName,
		Author:           m.Author,
		Tag:              m.Tag,
		ScenarioFile:     m.ScenarioFile,
		StartTime:        m.StartTime,
		WorldID:          m.WorldID,
		CaptureDelay:     m.CaptureDelay,
		ExtensionVersion: m.ExtensionVersion,
	}
	out.ID = m.ID
	return out
}

// CoreToTarget converts a core.TargetEvent to a GORM model.Target.
// TargetID maps to ObjectID.
func CoreToTarget(t core.TargetEvent, missionID uint) model.Target {
	return model.Target{
		Time:         t.Time,
		MissionID:    missionID,
		CaptureFrame: t.CaptureFrame,
		ObjectID:     t.TargetID,
		Name:         t.Name,
		ZoneID:       t.ZoneID,
		MaxHealth:    float32(t.MaxHealth),
		Position:     vec3ToPoint(t.Position),
	}
}

// CoreToShotEvent converts a core.ShotEvent to a GORM model.ShotEvent.
func CoreToShotEvent(e core.ShotEvent, missionID uint) model.ShotEvent {
	return model.ShotEvent{
		Time:         e.Time,
		MissionID:    missionID,
		CaptureFrame: e.CaptureFrame,
		Weapon:       e.Weapon,
		Pellet:       uint8(e.Pellet),
		Trace:        traceToLineString(e.Origin, e.EndPos),
		Hit:          e.Hit,
	}
}

// CoreToHitEvent converts a core.HitEvent to a GORM model.HitEvent.
func CoreToHitEvent(e core.HitEvent, missionID uint) model.HitEvent {
	return model.HitEvent{
		Time:         e.Time,
		MissionID:    missionID,
		CaptureFrame: e.CaptureFrame,
		VictimID:     e.TargetID,
		ColliderID:   e.ColliderID,
		Weapon:       e.Weapon,
		Damage:       float32(e.Damage),
		Distance:     float32(e.Distance),
		Penetration:  e.Penetration,
		Melee:        e.Melee,
		Position:     vec3ToPoint(e.Position),
	}
}

// CoreToKillEvent converts a core.KillEvent to a GORM model.KillEvent.
func CoreToKillEvent(e core.KillEvent, missionID uint) model.KillEvent {
	return model.KillEvent{
		Time:         e.Time,
		MissionID:    missionID,
		CaptureFrame: e.CaptureFrame,
		VictimID:     e.TargetID,
		VictimName:   e.TargetName,
		Weapon:       e.Weapon,
		Distance:     float32(e.Distance),
	}
}

// CoreToWeaponStateEvent converts a core.WeaponStateEvent to a GORM model.
func CoreToWeaponStateEvent(e core.WeaponStateEvent, missionID uint) model.WeaponStateEvent {
	return model.WeaponStateEvent{
		Time:         e.Time,
		MissionID:    missionID,
		CaptureFrame: e.CaptureFrame,
		Weapon:       e.Weapon,
		FromState:    e.From,
		ToState:      e.To,
		BulletsLeft:  e.BulletsLeft,
		Reserve:      e.Reserve,
		Heat:         float32(e.Heat),
	}
}

// CoreToZoneEvent converts a core.ZoneEvent to a GORM model.ZoneEvent.
func CoreToZoneEvent(e core.ZoneEvent, missionID uint) model.ZoneEvent {
	return model.ZoneEvent{
		Time:            e.Time,
		MissionID:       missionID,
		CaptureFrame:    e.CaptureFrame,
		ZoneID:          e.ZoneID,
		FromState:       e.From,
		ToState:         e.To,
		CaptureProgress: float32(e.CaptureProgress),
		PillarHealth:    float32(e.PillarHealth),
		Cleansed:        e.Cleansed,
		Total:           e.Total,
	}
}

// CoreToGeneralEvent converts a core.GeneralEvent to a GORM model.GeneralEvent.
func CoreToGeneralEvent(e core.GeneralEvent, missionID uint) model.GeneralEvent {
	return model.GeneralEvent{
		Time:         e.Time,
		MissionID:    missionID,
		CaptureFrame: e.CaptureFrame,
		Name:         e.Name,
		Message:      e.Message,
		ExtraData:    extraDataToJSON(e.ExtraData),
	}
}

// CoreToTelemetryEvent converts a core.TelemetryEvent to a GORM model.
func CoreToTelemetryEvent(e core.TelemetryEvent, missionID uint) model.TelemetryEvent {
	return model.TelemetryEvent{
		Time:           e.Time,
		MissionID:      missionID,
		CaptureFrame:   e.CaptureFrame,
		TickMs:         float32(e.TickDuration.Microseconds()) / 1000,
		FixedSteps:     e.FixedSteps,
		ShotsFired:     e.ShotsFired,
		TargetsAlive:   e.TargetsAlive,
		ZoneProgress:   float32(e.ZoneProgress),
		WeaponState:    e.WeaponState,
		BulletsLeft:    e.BulletsLeft,
		RecoilProgress: float32(e.RecoilProgress),
		RecoilPitch:    float32(e.RecoilPitch),
		RecoilYaw:      float32(e.RecoilYaw),
		CameraShake:    float32(e.CameraShake),
		CameraRoll:     float32(e.CameraRoll),
		PlayerHealth:   float32(e.PlayerHealth),
	}
}
