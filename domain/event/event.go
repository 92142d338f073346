package event

import (
	"dot-catcher/domain"
	"encoding/json"
	"time"
)

type Name string

const (
	GameStateUpdateName Name = "game_state_update"
	DotAppearedName     Name = "dot_appeared"
	ActionRejectedName  Name = "action_rejected"
	CatchDotName        Name = "catch_dot"
)

// DomainEvent is a message pushed to clients.
type DomainEvent interface {
	Name() Name
	Payload() any
}

type DotAppeared struct {
	Dot domain.DotEvent
	At  time.Time
}

func (d DotAppeared) Name() Name { return DotAppearedName }

func (d DotAppeared) Payload() any { return d.Dot.Payload }

type GameStateUpdated struct {
	State domain.GameState
	At    time.Time
}

func (g GameStateUpdated) Name() Name { return GameStateUpdateName }

func (g GameStateUpdated) Payload() any { return g.State }

// ActionRejected is only sent to the session whose action failed.
type ActionRejected struct {
	Code   string `json:"code"`
	Reason string `json:"error"`
}

func (a ActionRejected) Name() Name { return ActionRejectedName }

func (a ActionRejected) Payload() any { return a }

// Envelope is the JSON frame exchanged with clients in both directions.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func Encode(e DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: data})
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(frame, &env)
	return env, err
}
