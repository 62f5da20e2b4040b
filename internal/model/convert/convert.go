package convert

import (
	"encoding/json"

	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToVec3 converts a geom.Point back to a core.Vec3. Empty points map to
// the origin.
func pointToVec3(p geom.Point) core.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{X: c.X, Y: c.Y, Z: c.Z}
}

// lineStringEnds returns the first and last vertex of a trace.
func lineStringEnds(ls geom.LineString) (from, to core.Vec3) {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return
	}
	a, b := seq.Get(0), seq.Get(n-1)
	return core.Vec3{X: a.X, Y: a.Y, Z: a.Z}, core.Vec3{X: b.X, Y: b.Y, Z: b.Z}
}

// WorldToCore converts a GORM model.World to a core.World.
func WorldToCore(w model.World) core.World {
	return core.World{
		ID:          w.ID,
		WorldName:   w.WorldName,
		DisplayName: w.DisplayName,
		WorldSize:   w.WorldSize,
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
		Location:    pointToVec3(w.Location),
	}
}

// MissionToCore converts a GORM model.Mission to a core.Mission.
func MissionToCore(m model.Mission) core.Mission {
	return core.Mission{
		ID:               m.ID,
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
}

// TargetToCore converts a GORM model.Target to a core.TargetEvent.
func TargetToCore(t model.Target) core.TargetEvent {
	return core.TargetEvent{
		Time:         t.Time,
		CaptureFrame: t.CaptureFrame,
		TargetID:     t.ObjectID,
		Name:         t.Name,
		ZoneID:       t.ZoneID,
		MaxHealth:    float64(t.MaxHealth),
		Position:     pointToVec3(t.Position),
	}
}

// ShotEventToCore converts a GORM model.ShotEvent to a core.ShotEvent. The
// direction is not stored and is rebuilt from the trace.
func ShotEventToCore(e model.ShotEvent) core.ShotEvent {
	from, to := lineStringEnds(e.Trace)
	return core.ShotEvent{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		Weapon:       e.Weapon,
		Pellet:       int(e.Pellet),
		Origin:       from,
		Direction:    to.Sub(from).Normalize(),
		EndPos:       to,
		Hit:          e.Hit,
	}
}

// KillEventToCore converts a GORM model.KillEvent to a core.KillEvent.
func KillEventToCore(e model.KillEvent) core.KillEvent {
	return core.KillEvent{
		ID:           e.ID,
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		TargetID:     e.VictimID,
		TargetName:   e.VictimName,
		Weapon:       e.Weapon,
		Distance:     float64(e.Distance),
	}
}

// GeneralEventToCore converts a GORM model.GeneralEvent to a core.GeneralEvent.
func GeneralEventToCore(e model.GeneralEvent) core.GeneralEvent {
	out := core.GeneralEvent{
		ID:           e.ID,
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		Name:         e.Name,
		Message:      e.Message,
	}
	if len(e.ExtraData) > 0 {
		_ = json.Unmarshal(e.ExtraData, &out.ExtraData)
	}
	return out
}
