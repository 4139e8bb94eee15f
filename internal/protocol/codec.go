package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how per-tick state frames are serialized.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding validates a configured encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	}
	return "", fmt.Errorf("unknown state encoding %q", s)
}

// Frame is one encoded outgoing message.
type Frame struct {
	Binary bool
	Data   []byte
}

// Encoder turns events into frames. Only state events honour the
// configured encoding; control events are always JSON text because
// signalling payloads are carried as raw JSON.
type Encoder struct {
	state Encoding
}

// NewEncoder creates an encoder for the given state encoding.
func NewEncoder(state Encoding) *Encoder {
	return &Encoder{state: state}
}

// StateEncoding returns the configured state encoding.
func (e *Encoder) StateEncoding() Encoding {
	return e.state
}

// Encode wraps data in an Envelope and serializes it.
func (e *Encoder) Encode(event string, data interface{}) (Frame, error) {
	env := Envelope{Event: event, Data: data}

	if event == EventState && e.state == EncodingMsgpack {
		b, err := marshalMsgpack(env)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s: %w", event, err)
		}
		return Frame{Binary: true, Data: b}, nil
	}

	b, err := json.Marshal(env)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", event, err)
	}
	return Frame{Data: b}, nil
}

// marshalMsgpack reuses the json struct tags so both encodings share
// field names.
func marshalMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes a binary frame produced by Encode.
func UnmarshalMsgpack(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
