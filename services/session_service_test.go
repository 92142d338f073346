package services

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/domain/event"
	"dot-catcher/errors"
	"dot-catcher/mocks"
	"dot-catcher/observability"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sessionFixture struct {
	registry  *mocks.MockIRegistry
	state     *mocks.MockStateReader
	publisher *mocks.MockPublisher
	session   *mocks.MockSession
	stats     *observability.Stats
	service   *SessionService
}

func newSessionFixture(t *testing.T) sessionFixture {
	ctrl := gomock.NewController(t)
	f := sessionFixture{
		registry:  mocks.NewMockIRegistry(ctrl),
		state:     mocks.NewMockStateReader(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		session:   mocks.NewMockSession(ctrl),
		stats:     observability.NewStats(),
	}
	f.session.EXPECT().ID().Return("session-1").AnyTimes()
	f.service = NewSessionService(logs.GetLoggerFromLevel(slog.LevelDebug),
		f.registry, f.state, f.publisher, f.stats)
	return f
}

func rejection(code string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		rejected, ok := x.(event.ActionRejected)
		return ok && rejected.Code == code
	})
}

func TestSessionService_OnConnect_Sends_Current_State(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	current := domain.GameState{Score: 4, Misses: 2}

	// Given a registry running the greeting while registering
	f.registry.EXPECT().Subscribe(f.session, gomock.Any()).Do(func(s contract.Session, onJoin func(contract.Session)) {
		onJoin(s)
	})
	f.registry.EXPECT().Count().Return(1)
	f.state.EXPECT().Snapshot().Return(current)

	// Then the session gets a game_state_update with the snapshot
	f.session.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
		update, ok := e.(event.GameStateUpdated)
		req.True(ok)
		req.Equal(current, update.State)
		return nil
	})

	f.service.OnConnect(f.session)
}

func TestSessionService_OnDisconnect(t *testing.T) {
	f := newSessionFixture(t)

	f.registry.EXPECT().Unsubscribe("session-1").Return(true)
	f.registry.EXPECT().Count().Return(0)
	f.service.OnDisconnect(f.session)

	// Second disconnect is silent
	f.registry.EXPECT().Unsubscribe("session-1").Return(false)
	f.service.OnDisconnect(f.session)
}

func TestSessionService_OnClientAction_Publishes(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	// Then the action goes to the publisher only: no state read, no broadcast
	f.publisher.EXPECT().
		Publish(gomock.Any(), json.RawMessage(`[2,3]`), json.RawMessage(`42`)).
		Return(nil).
		Times(1)

	err := f.service.OnClientAction(context.Background(), f.session, json.RawMessage(`{"position":[2,3],"timestamp":42}`))

	req.NoError(err)
}

func TestSessionService_OnClientAction_Invalid(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	// Then only this session is told, nothing is published
	f.session.EXPECT().Consume(gomock.Any(), rejection(CodeInvalidAction)).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := f.service.OnClientAction(context.Background(), f.session, json.RawMessage(`{"position":[2,3]}`))

	req.ErrorIs(err, errors.ErrInvalidAction)
	req.Equal(uint64(1), f.stats.Snapshot().ActionsRejected)
}

func TestSessionService_OnClientAction_Publish_Failure(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.ErrPublisherNotReady)
	f.session.EXPECT().Consume(gomock.Any(), rejection(CodePublishFailed)).Return(nil)

	err := f.service.OnClientAction(context.Background(), f.session, json.RawMessage(`{"position":[2,3],"timestamp":1}`))

	req.ErrorIs(err, errors.ErrPublisherNotReady)
	req.Equal(uint64(1), f.stats.Snapshot().PublishFailures)
}
