// pkg/core/mission.go
package core

import "time"

// World represents the arena a mission is played in
type World struct {
	ID          uint
	WorldName   string
	DisplayName string
	WorldSize   float32
	Latitude    float32
	Longitude   float32
	Location    Vec3 // arena origin in EPSG:3857
}

// Mission represents one recorded simulation run
type Mission struct {
	ID               uint
	UUID             string
	MissionName      string
	Author           string
	Tag              string
	ScenarioFile     string
	StartTime        time.Time
	WorldID          uint
	CaptureDelay     float32 // seconds between capture frames
	ExtensionVersion string
}

// UploadMetadata describes an exported recording for the web frontend.
type UploadMetadata struct {
	WorldName       string
	MissionName     string
	MissionDuration float64
	Tag             string
}
