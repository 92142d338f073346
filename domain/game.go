package domain

import (
	"dot-catcher/errors"
	"fmt"
)

type GameState struct {
	Score    int  `json:"score"`
	Misses   int  `json:"misses"`
	GameOver bool `json:"game_over"`
}

// Rules drives the game over transition. MaxMisses <= 0 disables it.
type Rules struct {
	MaxMisses int
}

// Apply folds one action event into a copy of the state.
// Counters keep folding after game over, so they always match the events seen.
func (s GameState) Apply(evt ActionEvent, rules Rules) (GameState, error) {
	next := s
	switch evt.EventType {
	case DotCaught:
		next.Score++
	case DotMissed:
		next.Misses++
	default:
		return s, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, evt.EventType)
	}
	next.GameOver = s.GameOver || (rules.MaxMisses > 0 && next.Misses >= rules.MaxMisses)
	return next, nil
}
