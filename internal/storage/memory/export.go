// internal/storage/memory/export.go
package memory

import (
	"cmp"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/OCAP2/skirmish/pkg/core"
)

// FormatVersion identifies the export layout.
const FormatVersion = 1

// Export is the root JSON structure
type Export struct {
	FormatVersion    int          `json:"formatVersion"`
	ExtensionVersion string       `json:"extensionVersion"`
	MissionName      string       `json:"missionName"`
	MissionAuthor    string       `json:"missionAuthor"`
	Tag              string       `json:"tag,omitempty"`
	WorldName        string       `json:"worldName"`
	Origin           [3]float64   `json:"origin"` // arena origin, EPSG:3857
	StartTime        time.Time    `json:"startTime"`
	EndFrame         uint         `json:"endFrame"`
	CaptureDelay     float32      `json:"captureDelay"`
	Targets          []TargetJSON `json:"targets"`
	Shots            [][]any      `json:"shots"`
	Events           [][]any      `json:"events"`
	Telemetry        [][]any      `json:"telemetry"`
}

// TargetJSON represents a target and its damage history
type TargetJSON struct {
	ID          uint32     `json:"id"`
	Name        string     `json:"name"`
	Zone        string     `json:"zone,omitempty"`
	MaxHealth   float64    `json:"maxHealth"`
	Position    [3]float64 `json:"position"`
	SpawnFrame  uint       `json:"spawnFrame"`
	KilledFrame int        `json:"killedFrame"` // -1 while alive
	DamageTaken float64    `json:"damageTaken"`
}

func vec(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// exportJSON writes the mission data to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	outputPath := filepath.Join(b.cfg.OutputDir, exportFilename(b.mission, b.cfg.CompressOutput))

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func exportFilename(m *core.Mission, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_").Replace(m.MissionName)
	timestamp := m.StartTime.Format("20060102_150405")
	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

func (b *Backend) buildExport() Export {
	export := Export{
		FormatVersion:    FormatVersion,
		ExtensionVersion: b.mission.ExtensionVersion,
		MissionName:      b.mission.MissionName,
		MissionAuthor:    b.mission.Author,
		Tag:              b.mission.Tag,
		StartTime:        b.mission.StartTime,
		CaptureDelay:     b.mission.CaptureDelay,
		Targets:          make([]TargetJSON, 0, len(b.targets)),
		Shots:            make([][]any, 0, len(b.shotEvents)),
		Events:           make([][]any, 0),
		Telemetry:        make([][]any, 0, len(b.telemetry)),
	}
	if b.world != nil {
		export.WorldName = b.world.WorldName
		export.Origin = vec(b.world.Location)
	}

	var maxFrame uint
	seen := func(frame uint) {
		maxFrame = max(maxFrame, frame)
	}

	// Targets, in spawn order
	for _, record := range b.targets {
		t := TargetJSON{
			ID:          record.Target.TargetID,
			Name:        record.Target.Name,
			Zone:        record.Target.ZoneID,
			MaxHealth:   record.Target.MaxHealth,
			Position:    vec(record.Target.Position),
			SpawnFrame:  record.Target.CaptureFrame,
			KilledFrame: -1,
		}
		for _, h := range record.Hits {
			t.DamageTaken += h.Damage
		}
		if record.Kill != nil {
			t.KilledFrame = int(record.Kill.CaptureFrame)
		}
		seen(t.SpawnFrame)
		export.Targets = append(export.Targets, t)
	}
	slices.SortFunc(export.Targets, func(a, b TargetJSON) int { return cmp.Compare(a.ID, b.ID) })

	// Format: [frame, weapon, pellet, [origin], [end], hit]
	for _, e := range b.shotEvents {
		seen(e.CaptureFrame)
		export.Shots = append(export.Shots, []any{
			e.CaptureFrame,
			e.Weapon,
			e.Pellet,
			vec(e.Origin),
			vec(e.EndPos),
			boolToInt(e.Hit),
		})
	}

	// Events are [frame, type, ...]
	for _, e := range b.hitEvents {
		seen(e.CaptureFrame)
		export.Events = append(export.Events, []any{
			e.CaptureFrame,
			"hit",
			e.TargetID,
			e.Weapon,
			e.Damage,
			e.Distance,
			boolToInt(e.Penetration),
			boolToInt(e.Melee),
		})
	}
	for _, e := range b.killEvents {
		seen(e.CaptureFrame)
		export.Events = append(export.Events, []any{
			e.CaptureFrame,
			"killed",
			e.TargetID,
			e.Weapon,
			e.Distance,
		})
	}
	for _, e := range b.weaponEvents {
		seen(e.CaptureFrame)
		export.Events = append(export.Events, []any{
			e.CaptureFrame,
			"weapon",
			e.Weapon,
			e.From,
			e.To,
			e.BulletsLeft,
			e.Reserve,
		})
	}
	for _, e := range b.zoneEvents {
		seen(e.CaptureFrame)
		export.Events = append(export.Events, []any{
			e.CaptureFrame,
			"zone",
			e.ZoneID,
			e.From,
			e.To,
			[]int{e.Cleansed, e.Total},
		})
	}
	for _, e := range b.generalEvents {
		seen(e.CaptureFrame)
		evt := []any{e.CaptureFrame, "general", e.Name, e.Message}
		if len(e.ExtraData) > 0 {
			evt = append(evt, e.ExtraData)
		}
		export.Events = append(export.Events, evt)
	}
	// stable so same-frame events keep their kind order
	slices.SortStableFunc(export.Events, func(a, b []any) int {
		return cmp.Compare(a[0].(uint), b[0].(uint))
	})

	// Format: [frame, tickMs, shotsFired, targetsAlive, zoneProgress, recoilProgress]
	for _, e := range b.telemetry {
		seen(e.CaptureFrame)
		export.Telemetry = append(export.Telemetry, []any{
			e.CaptureFrame,
			float64(e.TickDuration.Microseconds()) / 1000,
			e.ShotsFired,
			e.TargetsAlive,
			e.ZoneProgress,
			e.RecoilProgress,
		})
	}

	export.EndFrame = maxFrame
	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := core.UploadMetadata{}
	if b.mission == nil {
		return meta
	}
	meta.MissionName = b.mission.MissionName
	meta.Tag = b.mission.Tag
	if b.world != nil {
		meta.WorldName = b.world.WorldName
	}
	var maxFrame uint
	for _, e := range b.telemetry {
		maxFrame = max(maxFrame, e.CaptureFrame)
	}
	for _, e := range b.generalEvents {
		maxFrame = max(maxFrame, e.CaptureFrame)
	}
	meta.MissionDuration = float64(maxFrame) * float64(b.mission.CaptureDelay)
	return meta
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
