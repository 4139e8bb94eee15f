// Package protocol defines the named events exchanged with browser clients.
//
// Inbound frames are decoded into a closed set of Message types and
// validated here, so the game package only ever sees well-formed input.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Client -> Server events
const (
	EventHost          = "host"
	EventJoin          = "join"
	EventStart         = "start"
	EventKick          = "kick"
	EventExit          = "exitGame"
	EventKeyDown       = "keydown"
	EventKeyUp         = "keyup"
	EventAim           = "aim"
	EventAngle         = "angle" // alias of aim
	EventAttack        = "attack"
	EventReadyForVoice = "readyForVoice"
)

// Server -> Client events
const (
	EventInit              = "init"
	EventInvalidCode       = "invalidCode"
	EventFull              = "full"
	EventPlayerJoined      = "playerJoined"
	EventPlayerJoinedVoice = "playerJoinedVoice"
	EventStartGame         = "startGame"
	EventKicked            = "kicked"
	EventState             = "state"
	EventGameOver          = "gameOver"
)

// Voice signalling events travel in both directions unchanged.
const (
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
)

const (
	// DefaultColor is used when a client sends no colour.
	DefaultColor = "#ff4757"

	maxColorLen = 32
	maxKeyLen   = 32
	maxCodeLen  = 16
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownEvent = errors.New("unknown event")
	ErrInvalidCode  = errors.New("invalid room code")
)

// Envelope wraps every outgoing event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// InEnvelope is used for incoming frames; Data is decoded per event.
type InEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is one validated inbound event.
type Message interface {
	EventName() string
}

// Host asks to create a room.
type Host struct {
	Color string
}

// Join asks to enter an existing room. Code is passed through unchecked
// beyond its length: a code that names no room is answered with invalidCode.
type Join struct {
	Color string
	Code  string
}

// RoomCommand covers events whose only payload is the room code:
// start, kick, exitGame, attack and readyForVoice.
type RoomCommand struct {
	Event string
	Code  string
}

// Key is a keydown or keyup. An empty Key on keyup releases every key.
type Key struct {
	Down bool
	Key  string
	Code string
}

// Aim sets the facing angle in radians.
type Aim struct {
	Code  string
	Angle float64
}

// Signal is an opaque voice signalling payload addressed to a peer.
type Signal struct {
	Event  string
	To     string
	Fields map[string]json.RawMessage // everything except "to"
}

func (Host) EventName() string          { return EventHost }
func (Join) EventName() string          { return EventJoin }
func (m RoomCommand) EventName() string { return m.Event }
func (m Aim) EventName() string         { return EventAim }
func (m Signal) EventName() string      { return m.Event }

func (m Key) EventName() string {
	if m.Down {
		return EventKeyDown
	}
	return EventKeyUp
}

// Outbound payloads

// InitMsg acknowledges host or join.
type InitMsg struct {
	ID      string      `json:"id"`
	IsHost  bool        `json:"isHost"`
	Code    string      `json:"code"`
	Players interface{} `json:"players,omitempty"`
}

// GameOverMsg announces the end of a match.
type GameOverMsg struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser,omitempty"`
}

type colorPayload struct {
	Color string `json:"color"`
	Code  string `json:"code"`
}

type codePayload struct {
	Code string `json:"code"`
}

type keyPayload struct {
	Key  *string `json:"key"`
	Code string  `json:"code"`
}

type aimPayload struct {
	Code  string   `json:"code"`
	Angle *float64 `json:"angle"`
}

// Decode parses and validates one inbound frame.
func Decode(raw []byte) (Message, error) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case EventHost:
		var p colorPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		color, err := normalizeColor(p.Color)
		if err != nil {
			return nil, err
		}
		return Host{Color: color}, nil

	case EventJoin:
		var p colorPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		color, err := normalizeColor(p.Color)
		if err != nil {
			return nil, err
		}
		if len(p.Code) > maxCodeLen {
			return nil, fmt.Errorf("%w: code too long", ErrMalformed)
		}
		return Join{Color: color, Code: p.Code}, nil

	case EventStart, EventKick, EventExit, EventAttack, EventReadyForVoice:
		var p codePayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		if !ValidCode(p.Code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, p.Code)
		}
		return RoomCommand{Event: env.Event, Code: p.Code}, nil

	case EventKeyDown, EventKeyUp:
		var p keyPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		if !ValidCode(p.Code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, p.Code)
		}
		down := env.Event == EventKeyDown
		key := ""
		if p.Key != nil {
			key = strings.ToLower(*p.Key)
		}
		if len(key) > maxKeyLen || (down && key == "") {
			return nil, fmt.Errorf("%w: bad key", ErrMalformed)
		}
		return Key{Down: down, Key: key, Code: p.Code}, nil

	case EventAim, EventAngle:
		var p aimPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		if !ValidCode(p.Code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, p.Code)
		}
		if p.Angle == nil || math.IsNaN(*p.Angle) || math.IsInf(*p.Angle, 0) {
			return nil, fmt.Errorf("%w: bad angle", ErrMalformed)
		}
		return Aim{Code: p.Code, Angle: *p.Angle}, nil

	case EventOffer, EventAnswer, EventICECandidate:
		var fields map[string]json.RawMessage
		if err := decodeData(env.Data, &fields); err != nil {
			return nil, err
		}
		var to string
		if err := json.Unmarshal(fields["to"], &to); err != nil || to == "" {
			return nil, fmt.Errorf("%w: missing recipient", ErrMalformed)
		}
		delete(fields, "to")
		delete(fields, "from")
		return Signal{Event: env.Event, To: to, Fields: fields}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

// ValidCode reports whether code is a 4-digit room code in 1000-9999.
func ValidCode(code string) bool {
	if len(code) != 4 || code[0] == '0' {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultColor, nil
	}
	if len(color) > maxColorLen {
		return "", fmt.Errorf("%w: color too long", ErrMalformed)
	}
	return color, nil
}
