package protocol

import (
	"encoding/json"
	"testing"
)

type testPlayer struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Health int     `json:"health"`
}

func TestParseEncoding(t *testing.T) {
	if enc, err := ParseEncoding(""); err != nil || enc != EncodingJSON {
		t.Errorf("Empty encoding should default to json, got %q (%v)", enc, err)
	}
	if enc, err := ParseEncoding("msgpack"); err != nil || enc != EncodingMsgpack {
		t.Errorf("Expected msgpack, got %q (%v)", enc, err)
	}
	if _, err := ParseEncoding("xml"); err == nil {
		t.Error("Unknown encoding should fail")
	}
}

func TestEncodeJSONEnvelope(t *testing.T) {
	enc := NewEncoder(EncodingJSON)

	frame, err := enc.Encode(EventGameOver, GameOverMsg{Winner: "a", Loser: "b"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame.Binary {
		t.Error("JSON frames should be text")
	}

	var got struct {
		Event string      `json:"event"`
		Data  GameOverMsg `json:"data"`
	}
	if err := json.Unmarshal(frame.Data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Event != EventGameOver || got.Data.Winner != "a" || got.Data.Loser != "b" {
		t.Errorf("Unexpected envelope %+v", got)
	}
}

func TestEncodeEventWithoutData(t *testing.T) {
	frame, err := NewEncoder(EncodingJSON).Encode(EventKicked, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(frame.Data) != `{"event":"kicked"}` {
		t.Errorf("Unexpected frame %s", frame.Data)
	}
}

func TestEncodeMsgpackState(t *testing.T) {
	enc := NewEncoder(EncodingMsgpack)
	state := map[string]testPlayer{
		"p1": {ID: "p1", X: 12.5, Health: 90},
		"p2": {ID: "p2", X: 0, Health: 0},
	}

	frame, err := enc.Encode(EventState, state)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !frame.Binary {
		t.Fatal("State frames should be binary with msgpack encoding")
	}

	var got struct {
		Event string                `json:"event"`
		Data  map[string]testPlayer `json:"data"`
	}
	if err := UnmarshalMsgpack(frame.Data, &got); err != nil {
		t.Fatalf("UnmarshalMsgpack failed: %v", err)
	}
	if got.Event != EventState {
		t.Errorf("Expected state event, got %q", got.Event)
	}
	if got.Data["p1"] != state["p1"] {
		t.Errorf("p1 mismatch: %+v", got.Data["p1"])
	}
	// Zero values must survive; a dead player reports health 0
	if p2, ok := got.Data["p2"]; !ok || p2.Health != 0 || p2.ID != "p2" {
		t.Errorf("p2 mismatch: %+v", p2)
	}
}

func TestEncodeMsgpackOnlyForState(t *testing.T) {
	frame, err := NewEncoder(EncodingMsgpack).Encode(EventStartGame, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame.Binary {
		t.Error("Control events should stay JSON text")
	}
}
