package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRoomCreated
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeMatchStart
	EventTypeHit
	EventTypeGameOver
	EventTypeRoomClosed
)

// EventVersion for backwards compatibility when reading old logs
const EventVersion uint8 = 1

// Event is one line of the match event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"-"`
	Name      string          `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	Room      string          `json:"room"`
	PlayerID  string          `json:"playerId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeRoomCreated:
		return "room_created"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeHit:
		return "hit"
	case EventTypeGameOver:
		return "game_over"
	case EventTypeRoomClosed:
		return "room_closed"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// PlayerJoinPayload records a seat being taken.
type PlayerJoinPayload struct {
	Color  string  `json:"color"`
	IsHost bool    `json:"isHost"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerLeavePayload records why a seat was vacated.
type PlayerLeavePayload struct {
	Reason string `json:"reason"` // LeaveDisconnect, LeaveExit or "kicked"
}

// Reasons a player leaves on its own.
const (
	LeaveDisconnect = "disconnect"
	LeaveExit       = "exit"
)

// HitPayload records one landed attack.
type HitPayload struct {
	AttackerID string `json:"attackerId"`
	VictimID   string `json:"victimId"`
	Damage     int    `json:"damage"`
	VictimHP   int    `json:"victimHp"`
}

// GameOverPayload records the end of a match.
type GameOverPayload struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// RoomClosedPayload records a teardown.
type RoomClosedPayload struct {
	Reason string `json:"reason"` // "host_left" or "empty"
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, room, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		Room:      room,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
