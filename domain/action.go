package domain

import (
	"dot-catcher/errors"
	"encoding/json"
	"fmt"
)

type EventType string

const (
	DotCaught EventType = "dot_caught"
	DotMissed EventType = "dot_missed"
)

func (t EventType) IsKnown() bool {
	return t == DotCaught || t == DotMissed
}

// ActionEvent is the record carried by the actions topic.
// Position and Timestamp are kept as raw JSON and travel unchanged.
type ActionEvent struct {
	EventType EventType       `json:"event_type"`
	Position  json.RawMessage `json:"position"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func NewCatchEvent(position, timestamp json.RawMessage) ActionEvent {
	return ActionEvent{
		EventType: DotCaught,
		Position:  position,
		Timestamp: timestamp,
	}
}

// DecodeActionEvent parses an actions delivery. An unknown tag is not a decode
// error: it is reported later when the event is applied.
func DecodeActionEvent(data []byte) (ActionEvent, error) {
	var evt ActionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return ActionEvent{}, fmt.Errorf("%w: %w", errors.ErrDecode, err)
	}
	return evt, nil
}
