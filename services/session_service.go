package services

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain/event"
	"dot-catcher/observability"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	CodeInvalidAction    = "invalid_action"
	CodePublishFailed    = "publish_failed"
	CodeUnsupportedEvent = "unsupported_event"
)

type ISessionService interface {
	OnConnect(session contract.Session)
	OnDisconnect(session contract.Session)
	OnClientAction(ctx context.Context, session contract.Session, data json.RawMessage) error
	Reject(session contract.Session, code, reason string)
}

// SessionService is the realtime session manager: it registers sessions,
// greets them with the current state and forwards their actions to the log.
// It never mutates the game state.
type SessionService struct {
	log       *slog.Logger
	registry  contract.IRegistry
	state     contract.StateReader
	publisher contract.Publisher
	stats     *observability.Stats
}

func NewSessionService(log *slog.Logger, registry contract.IRegistry, state contract.StateReader,
	publisher contract.Publisher, stats *observability.Stats) *SessionService {
	return &SessionService{
		log:       log,
		registry:  registry,
		state:     state,
		publisher: publisher,
		stats:     stats,
	}
}

// OnConnect registers the session and sends it the current state.
// The snapshot is taken under the registry lock so it can't arrive after a newer broadcast.
func (s *SessionService) OnConnect(session contract.Session) {
	s.registry.Subscribe(session, func(joined contract.Session) {
		update := event.GameStateUpdated{State: s.state.Snapshot(), At: time.Now().UTC()}
		if err := joined.Consume(context.Background(), update); err != nil {
			s.log.Debug("Failed to greet session", "session", joined.ID(), "err", err)
		}
	})
	s.log.Info("Client connected", "session", session.ID(), "sessions", s.registry.Count())
}

func (s *SessionService) OnDisconnect(session contract.Session) {
	if s.registry.Unsubscribe(session.ID()) {
		s.log.Info("Client disconnected", "session", session.ID(), "sessions", s.registry.Count())
	}
}

// OnClientAction validates a catch_dot payload and publishes it.
// The state is not touched here: the update comes back through the actions topic.
// On failure the session alone gets an action_rejected message.
func (s *SessionService) OnClientAction(ctx context.Context, session contract.Session, data json.RawMessage) error {
	req, err := ParseCatchDot(data)
	if err != nil {
		s.stats.IncrActionsRejected()
		s.log.Debug("Rejected client action", "session", session.ID(), "err", err)
		s.Reject(session, CodeInvalidAction, "position and timestamp are required")
		return err
	}

	if err := s.publisher.Publish(ctx, req.Position, req.Timestamp); err != nil {
		s.stats.IncrPublishFailures()
		s.log.Warn("Failed to publish client action", "session", session.ID(), "err", err)
		s.Reject(session, CodePublishFailed, err.Error())
		return err
	}
	return nil
}

func (s *SessionService) Reject(session contract.Session, code, reason string) {
	if err := session.Consume(context.Background(), event.ActionRejected{Code: code, Reason: reason}); err != nil {
		s.log.Debug("Failed to notify session", "session", session.ID(), "err", err)
	}
}
