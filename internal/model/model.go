package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&World{},
	&Mission{},
	&Target{},
	&ShotEvent{},
	&HitEvent{},
	&KillEvent{},
	&WeaponStateEvent{},
	&ZoneEvent{},
	&GeneralEvent{},
	&TelemetryEvent{},
	&RecorderPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderPerformance samples the recording pipeline itself
type RecorderPerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_recorderperformance_time"`
	MissionID           uint              `json:"missionId" gorm:"index:idx_recorderperformance_mission_id"`
	Mission             Mission           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	BufferLengths       BufferLengths     `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RecorderPerformance) TableName() string {
	return "recorder_performances"
}

// BufferLengths are the dispatcher queue lengths per command
type BufferLengths struct {
	Targets     uint16 `json:"targets"`
	Shots       uint16 `json:"shots"`
	Hits        uint16 `json:"hits"`
	Kills       uint16 `json:"kills"`
	WeaponState uint16 `json:"weaponState"`
	ZoneState   uint16 `json:"zoneState"`
	General     uint16 `json:"general"`
	Telemetry   uint16 `json:"telemetry"`
}

// WriteQueueLengths are the pending database writes per table
type WriteQueueLengths struct {
	Targets     uint16 `json:"targets"`
	Shots       uint16 `json:"shots"`
	Hits        uint16 `json:"hits"`
	Kills       uint16 `json:"kills"`
	WeaponState uint16 `json:"weaponState"`
	ZoneState   uint16 `json:"zoneState"`
	General     uint16 `json:"general"`
	Telemetry   uint16 `json:"telemetry"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// World is the arena a mission runs in
type World struct {
	gorm.Model
	DisplayName string     `json:"displayName" gorm:"size:127"`
	WorldName   string     `json:"worldName" gorm:"size:127;index:idx_world_name"`
	WorldSize   float32    `json:"worldSize"`
	Latitude    float32    `json:"latitude"`
	Longitude   float32    `json:"longitude"`
	Location    geom.Point `json:"location"` // arena origin, EPSG:3857
	Missions    []Mission
}

func (*World) TableName() string {
	return "worlds"
}

// GetOrInsert loads the world with the same name, creating it when missing.
func (w *World) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existingWorld World
	err = db.Where("world_name = ?", w.WorldName).First(&existingWorld).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(w).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*w = existingWorld
	return false, nil
}

// Mission is one recorded simulation run
type Mission struct {
	gorm.Model
	UUID             string    `json:"uuid" gorm:"size:36;uniqueIndex"`
	MissionName      string    `json:"missionName" gorm:"size:200"`
	Author           string    `json:"author" gorm:"size:200"`
	Tag              string    `json:"tag" gorm:"size:127"`
	ScenarioFile     string    `json:"scenarioFile" gorm:"size:255"`
	StartTime        time.Time `json:"missionStart" gorm:"index:idx_mission_start"`
	WorldID          uint
	World            World   `gorm:"foreignkey:WorldID"`
	CaptureDelay     float32 `json:"-" gorm:"default:0.02"`
	ExtensionVersion string  `json:"extensionVersion" gorm:"size:64"`

	Targets           []Target
	ShotEvents        []ShotEvent
	HitEvents         []HitEvent
	KillEvents        []KillEvent
	WeaponStateEvents []WeaponStateEvent
	ZoneEvents        []ZoneEvent
	GeneralEvents     []GeneralEvent
}

func (*Mission) TableName() string {
	return "missions"
}

// Target is a damageable entity spawned in the arena
type Target struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time"`
	MissionID    uint       `json:"missionId" gorm:"index:idx_target_mission_id"`
	Mission      Mission    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint       `json:"captureFrame"`
	ObjectID     uint32     `json:"objectId" gorm:"index:idx_target_object_id"` // simulation transform
	Name         string     `json:"name" gorm:"size:64"`
	ZoneID       string     `json:"zoneId" gorm:"size:64"`
	MaxHealth    float32    `json:"maxHealth"`
	Position     geom.Point `json:"position"`
}

func (*Target) TableName() string {
	return "targets"
}

// ShotEvent is a single pellet trace
//
// Command: :SHOT:
type ShotEvent struct {
	ID           uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time       `json:"time"`
	MissionID    uint            `json:"missionId" gorm:"index:idx_shotevent_mission_id"`
	Mission      Mission         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint            `json:"captureFrame" gorm:"index:idx_shotevent_capture_frame;"`
	Weapon       string          `json:"weapon" gorm:"size:64"`
	Pellet       uint8           `json:"pellet"`
	Trace        geom.LineString `json:"trace"` // origin to impact, XYZ
	Hit          bool            `json:"hit"`
}

func (*ShotEvent) TableName() string {
	return "shot_events"
}

// HitEvent is damage applied to a target
//
// Command: :HIT:
type HitEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time"`
	MissionID    uint       `json:"missionId" gorm:"index:idx_hitevent_mission_id"`
	Mission      Mission    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint       `json:"captureFrame" gorm:"index:idx_hitevent_capture_frame;"`
	VictimID     uint32     `json:"victimId" gorm:"index:idx_hitevent_victim"`
	ColliderID   uint32     `json:"colliderId"`
	Weapon       string     `json:"weapon" gorm:"size:64"`
	Damage       float32    `json:"damage"`
	Distance     float32    `json:"distance"`
	Penetration  bool       `json:"penetration"`
	Melee        bool       `json:"melee"`
	Position     geom.Point `json:"position"`
}

func (*HitEvent) TableName() string {
	return "hit_events"
}

// KillEvent is a target being destroyed
//
// Command: :KILL:
type KillEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time"`
	MissionID    uint      `json:"missionId" gorm:"index:idx_killevent_mission_id"`
	Mission      Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_killevent_capture_frame;"`
	VictimID     uint32    `json:"victimId" gorm:"index:idx_killevent_victim"`
	VictimName   string    `json:"victimName" gorm:"size:64"`
	Weapon       string    `json:"weapon" gorm:"size:64"`
	Distance     float32   `json:"distance"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

// WeaponStateEvent is a weapon state machine transition
//
// Command: :WEAPON:STATE:
type WeaponStateEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time"`
	MissionID    uint      `json:"missionId" gorm:"index:idx_weaponstateevent_mission_id"`
	Mission      Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint      `json:"captureFrame"`
	Weapon       string    `json:"weapon" gorm:"size:64"`
	FromState    string    `json:"from" gorm:"size:16"`
	ToState      string    `json:"to" gorm:"size:16"`
	BulletsLeft  int       `json:"bulletsLeft"`
	Reserve      int       `json:"reserve"`
	Heat         float32   `json:"heat"`
}

func (*WeaponStateEvent) TableName() string {
	return "weapon_state_events"
}

// ZoneEvent is a zone lifecycle transition
//
// Command: :ZONE:STATE:
type ZoneEvent struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time `json:"time"`
	MissionID       uint      `json:"missionId" gorm:"index:idx_zoneevent_mission_id"`
	Mission         Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame    uint      `json:"captureFrame"`
	ZoneID          string    `json:"zoneId" gorm:"size:64;index:idx_zoneevent_zone"`
	FromState       string    `json:"from" gorm:"size:32"`
	ToState         string    `json:"to" gorm:"size:32"`
	CaptureProgress float32   `json:"captureProgress"`
	PillarHealth    float32   `json:"pillarHealth"`
	Cleansed        int       `json:"cleansed"`
	Total           int       `json:"total"`
}

func (*ZoneEvent) TableName() string {
	return "zone_events"
}

// GeneralEvent is a mission lifecycle or custom event
//
// Command: :EVENT:
type GeneralEvent struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time      `json:"time"`
	MissionID    uint           `json:"missionId" gorm:"index:idx_generalevent_mission_id"`
	Mission      Mission        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame uint           `json:"captureFrame" gorm:"index:idx_generalevent_capture_frame;"`
	Name         string         `json:"name" gorm:"size:64"`
	Message      string         `json:"message"`
	ExtraData    datatypes.JSON `json:"extraData"`
}

func (*GeneralEvent) TableName() string {
	return "general_events"
}

// TelemetryEvent is a periodic simulation health sample
//
// Command: :TELEMETRY:
type TelemetryEvent struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_telemetryevent_time"`
	MissionID      uint      `json:"missionId" gorm:"index:idx_telemetryevent_mission_id"`
	Mission        Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	CaptureFrame   uint      `json:"captureFrame"`
	TickMs         float32   `json:"tickMs"`
	FixedSteps     int       `json:"fixedSteps"`
	ShotsFired     int       `json:"shotsFired"`
	TargetsAlive   int       `json:"targetsAlive"`
	ZoneProgress   float32   `json:"zoneProgress"`
	WeaponState    string    `json:"weaponState" gorm:"size:16"`
	BulletsLeft    int       `json:"bulletsLeft"`
	RecoilProgress float32   `json:"recoilProgress"`
	RecoilPitch    float32   `json:"recoilPitch"`
	RecoilYaw      float32   `json:"recoilYaw"`
	CameraShake    float32   `json:"cameraShake"`
	CameraRoll     float32   `json:"cameraRoll"`
	PlayerHealth   float32   `json:"playerHealth"`
}

func (*TelemetryEvent) TableName() string {
	return "telemetry_events"
}
