package workers

import (
	"context"
	"dot-catcher/domain"
	"dot-catcher/domain/event"
	"dot-catcher/errors"
	"dot-catcher/infrastructure/eventlog"
	"dot-catcher/mocks"
	"dot-catcher/observability"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event.DomainEvent
	hook   func(e event.DomainEvent)
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, e event.DomainEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

func (r *recordingBroadcaster) received() []event.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.DomainEvent(nil), r.events...)
}

// stateCell is the smallest StateWriter: the real fold, no concurrency.
type stateCell struct {
	mu    sync.Mutex
	state domain.GameState
	rules domain.Rules
}

func (c *stateCell) Snapshot() domain.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *stateCell) Apply(evt domain.ActionEvent) (domain.GameState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.state.Apply(evt, c.rules)
	if err != nil {
		return c.state, err
	}
	c.state = next
	return next, nil
}

// runWorker starts run in the background and returns a stop func waiting for it.
func runWorker(t *testing.T, run func(ctx context.Context) error) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-errChan:
			return err
		case <-time.After(waitFor):
			t.Fatal("worker did not stop")
			return nil
		}
	}
}

func TestDotsConsumer_Relays_Payload_And_Skips_Undecodable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	memory := eventlog.NewMemoryLog()
	broadcaster := &recordingBroadcaster{}
	stats := observability.NewStats()

	consumer := NewDotsConsumer(log, memory, "dots", broadcaster, stats)
	stop := runWorker(t, consumer.Run)
	req.Eventually(func() bool { return memory.Subscriptions("dots") == 1 }, waitFor, tick)

	// Given a valid dot, garbage, a non UTF-8 payload, then another valid dot
	req.NoError(memory.Write(ctx, "dots", nil, []byte(`{"id":"d1","x":10,"y":20}`)))
	req.NoError(memory.Write(ctx, "dots", nil, []byte(`{"id":`)))
	req.NoError(memory.Write(ctx, "dots", nil, []byte("{\"id\":\"\xff\"}")))
	req.NoError(memory.Write(ctx, "dots", nil, []byte(`{"id":"d2"}`)))

	// Then both valid dots are relayed in order and all four acknowledged
	req.Eventually(func() bool {
		committed, _ := memory.Committed("dots")
		return committed == 4
	}, waitFor, tick)
	req.NoError(stop())

	events := broadcaster.received()
	req.Len(events, 2)
	req.Equal(json.RawMessage(`{"id":"d1","x":10,"y":20}`), events[0].(event.DotAppeared).Dot.Payload)
	req.Equal(json.RawMessage(`{"id":"d2"}`), events[1].(event.DotAppeared).Dot.Payload)

	snapshot := stats.Snapshot()
	req.Equal(uint64(2), snapshot.DotsRelayed)
	req.Equal(uint64(2), snapshot.DecodeErrors)
}

func TestActionsConsumer_Folds_In_Delivery_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	memory := eventlog.NewMemoryLog()
	broadcaster := &recordingBroadcaster{}
	store := &stateCell{}
	stats := observability.NewStats()

	consumer := NewActionsConsumer(log, memory, "actions", store, broadcaster, stats)
	stop := runWorker(t, consumer.Run)
	req.Eventually(func() bool { return memory.Subscriptions("actions") == 1 }, waitFor, tick)

	for _, value := range []string{
		`{"event_type":"dot_caught","position":[0,0],"timestamp":1}`,
		`{"event_type":"dot_unknown"}`,
		`not json`,
		`{"event_type":"dot_missed","position":[0,0],"timestamp":2}`,
		`{"event_type":"dot_caught"}`,
	} {
		req.NoError(memory.Write(ctx, "actions", nil, []byte(value)))
	}

	req.Eventually(func() bool {
		committed, _ := memory.Committed("actions")
		return committed == 5
	}, waitFor, tick)
	req.NoError(stop())

	// The unknown tag still yields an update with the unchanged state
	var states []domain.GameState
	for _, e := range broadcaster.received() {
		states = append(states, e.(event.GameStateUpdated).State)
	}
	req.Equal([]domain.GameState{
		{Score: 1},
		{Score: 1},
		{Score: 1, Misses: 1},
		{Score: 2, Misses: 1},
	}, states)
	req.Equal(domain.GameState{Score: 2, Misses: 1}, store.Snapshot())

	snapshot := stats.Snapshot()
	req.Equal(uint64(3), snapshot.ActionsApplied)
	req.Equal(uint64(1), snapshot.UnknownTags)
	req.Equal(uint64(1), snapshot.DecodeErrors)
}

func TestConsumer_Finishes_Inflight_Delivery_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := mocks.NewMockSubscriber(ctrl)
	subscription := mocks.NewMockSubscription(ctrl)
	delivery := domain.Delivery{Topic: "dots", Offset: 7, Value: []byte(`{"id":"d1"}`)}

	subscriber.EXPECT().Subscribe(gomock.Any(), "dots").Return(subscription, nil)
	subscription.EXPECT().Next(gomock.Any()).Return(delivery, nil).Times(1)
	// Given shutdown starts while the delivery is being broadcast
	broadcaster := &recordingBroadcaster{hook: func(event.DomainEvent) { cancel() }}
	// Then the delivery is still acknowledged with a live context
	subscription.EXPECT().Ack(gomock.Any(), delivery).DoAndReturn(func(ackCtx context.Context, _ domain.Delivery) error {
		req.NoError(ackCtx.Err())
		return nil
	})
	subscription.EXPECT().Close().Return(nil)

	err := NewDotsConsumer(log, subscriber, "dots", broadcaster, nil).Run(ctx)

	// And the loop ends cleanly without reading further
	req.NoError(err)
	req.Len(broadcaster.received(), 1)
}

func TestConsumer_Returns_Error_When_Subscription_Breaks(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	subscriber := mocks.NewMockSubscriber(ctrl)
	subscription := mocks.NewMockSubscription(ctrl)
	subscriber.EXPECT().Subscribe(gomock.Any(), "actions").Return(subscription, nil)
	subscription.EXPECT().Next(gomock.Any()).Return(domain.Delivery{}, errors.ErrSubscriptionClosed)
	subscription.EXPECT().Close().Return(nil)

	err := NewActionsConsumer(log, subscriber, "actions", &stateCell{}, &recordingBroadcaster{}, nil).
		Run(context.Background())

	// The supervisor restarts on this error, which resubscribes
	req.ErrorIs(err, errors.ErrSubscriptionClosed)
}

func TestConsumer_Returns_Error_When_Subscribe_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	subscriber := mocks.NewMockSubscriber(ctrl)
	subscriber.EXPECT().Subscribe(gomock.Any(), "dots").Return(nil, fmt.Errorf("no broker"))

	err := NewDotsConsumer(log, subscriber, "dots", &recordingBroadcaster{}, nil).Run(context.Background())

	req.ErrorContains(err, "subscribe to dots")
}

func TestConsumer_Returns_Error_When_Ack_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	subscriber := mocks.NewMockSubscriber(ctrl)
	subscription := mocks.NewMockSubscription(ctrl)
	delivery := domain.Delivery{Topic: "dots", Offset: 3, Value: []byte(`{}`)}
	subscriber.EXPECT().Subscribe(gomock.Any(), "dots").Return(subscription, nil)
	subscription.EXPECT().Next(gomock.Any()).Return(delivery, nil)
	subscription.EXPECT().Ack(gomock.Any(), delivery).Return(fmt.Errorf("coordinator moved"))
	subscription.EXPECT().Close().Return(nil)

	err := NewDotsConsumer(log, subscriber, "dots", &recordingBroadcaster{}, nil).Run(context.Background())

	req.ErrorContains(err, "ack dots offset 3")
}

// A broken subscription is resubscribed by the supervisor and consumption resumes.
func TestConsumer_Resubscribes_Under_Supervisor(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	broken := mocks.NewMockSubscription(ctrl)
	broken.EXPECT().Next(gomock.Any()).Return(domain.Delivery{}, fmt.Errorf("connection reset"))
	broken.EXPECT().Close().Return(nil)

	memory := eventlog.NewMemoryLog()
	subscriber := mocks.NewMockSubscriber(ctrl)
	gomock.InOrder(
		subscriber.EXPECT().Subscribe(gomock.Any(), "dots").Return(broken, nil),
		subscriber.EXPECT().Subscribe(gomock.Any(), "dots").DoAndReturn(memory.Subscribe),
	)

	broadcaster := &recordingBroadcaster{}
	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(NewDotsConsumer(log, subscriber, "dots", broadcaster, nil))
	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	req.Eventually(func() bool { return memory.Subscriptions("dots") == 1 }, waitFor, tick)
	req.NoError(memory.Write(context.Background(), "dots", nil, []byte(`{"id":"after"}`)))
	req.Eventually(func() bool { return len(broadcaster.received()) == 1 }, waitFor, tick)

	sup.Stop()
	<-done
}
