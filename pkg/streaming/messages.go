// Package streaming defines the envelope protocol used to stream a live
// recording over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/skirmish/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMission = "start_mission"
	TypeEndMission   = "end_mission"
	TypeAddTarget    = "add_target"
	TypeShotEvent    = "shot_event"
	TypeHitEvent     = "hit_event"
	TypeKillEvent    = "kill_event"
	TypeWeaponState  = "weapon_state"
	TypeZoneState    = "zone_state"
	TypeGeneralEvent = "general_event"
	TypeTelemetry    = "telemetry"
)

// TypeAck is the type of every server acknowledgement.
const TypeAck = "ack"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMissionPayload carries mission and world data.
type StartMissionPayload struct {
	Mission *core.Mission `json:"mission"`
	World   *core.World   `json:"world"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
