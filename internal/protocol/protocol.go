// Package protocol is the JSON envelope spoken over the websocket.
//
// Every frame is a text message of the form {"event": "<name>", "data": <payload>}.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"pong-arena/internal/game"
)

// Inbound events.
const (
	EventJoin       = "join"
	EventPaddleMove = "paddleMove"
)

// Outbound events.
const (
	EventJoined     = "joined"
	EventState      = "state"
	EventStarted    = "started"
	EventPlayerLeft = "playerLeft"
	EventFull       = "full"
	EventError      = "error"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed frame")

// Envelope is the outer frame. Data is left raw until the event is known.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Joined is sent to a player once seated.
type Joined struct {
	PlayerID string    `json:"playerId"`
	RoomID   string    `json:"roomId"`
	Side     game.Side `json:"side"`
}

// Notice carries a human readable message for full and error events.
type Notice struct {
	Message string `json:"message"`
}

// Decode parses an inbound frame. An empty event name is malformed.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}

// DecodeDirection extracts a paddle direction from a paddleMove payload.
func DecodeDirection(data json.RawMessage) (game.Direction, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("%w: direction: %v", ErrMalformed, err)
	}
	dir, ok := game.ParseDirection(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown direction %q", ErrMalformed, raw)
	}
	return dir, nil
}

// Encode builds an outbound frame. A nil data omits the field.
func Encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

var statePrefix = []byte(`{"event":"` + EventState + `"`)

// IsState reports whether frame is an outbound state snapshot built by Encode.
// State frames supersede each other and may be dropped under backpressure.
func IsState(frame []byte) bool {
	return bytes.HasPrefix(frame, statePrefix)
}
