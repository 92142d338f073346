package domain

import (
	"dot-catcher/errors"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DotEvent describes a spawned dot. The bridge never reads its fields.
type DotEvent struct {
	Payload json.RawMessage
}

func DecodeDotEvent(data []byte) (DotEvent, error) {
	if !json.Valid(data) {
		return DotEvent{}, fmt.Errorf("%w: dot payload is not valid JSON", errors.ErrDecode)
	}
	// Relayed in websocket text frames, which must be UTF-8.
	if !utf8.Valid(data) {
		return DotEvent{}, fmt.Errorf("%w: dot payload is not valid UTF-8", errors.ErrDecode)
	}
	payload := make(json.RawMessage, len(data))
	copy(payload, data)
	return DotEvent{Payload: payload}, nil
}
