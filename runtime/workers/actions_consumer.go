package workers

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/domain/event"
	"dot-catcher/observability"
	"log/slog"
	"time"
)

var _ contract.Worker = (*ActionsConsumer)(nil)

// ActionsConsumer folds the actions topic into the game state.
// It is the only writer of the state store; every delivery that decodes ends
// with a game_state_update broadcast, in delivery order.
type ActionsConsumer struct {
	log         *slog.Logger
	subscriber  contract.Subscriber
	topic       string
	store       contract.StateWriter
	broadcaster contract.Broadcaster
	stats       *observability.Stats
}

func NewActionsConsumer(log *slog.Logger, subscriber contract.Subscriber, topic string,
	store contract.StateWriter, broadcaster contract.Broadcaster, stats *observability.Stats) *ActionsConsumer {
	return &ActionsConsumer{
		log:         log.With("worker", "actions"),
		subscriber:  subscriber,
		topic:       topic,
		store:       store,
		broadcaster: broadcaster,
		stats:       stats,
	}
}

func (w *ActionsConsumer) Run(ctx context.Context) error {
	return consume(ctx, w.log, w.subscriber, w.topic, w.handle)
}

func (w *ActionsConsumer) handle(ctx context.Context, delivery domain.Delivery) {
	evt, err := domain.DecodeActionEvent(delivery.Value)
	if err != nil {
		w.stats.IncrDecodeErrors()
		w.log.Warn("Skipping action delivery", "offset", delivery.Offset, "err", err)
		return
	}

	state, err := w.store.Apply(evt)
	if err != nil {
		// Unknown tag: state unchanged, still surfaced.
		w.stats.IncrUnknownTags()
		w.log.Warn("Action left state unchanged", "offset", delivery.Offset,
			"event_type", evt.EventType, "err", err)
	} else {
		w.stats.IncrActionsApplied()
		w.log.Debug("Action applied", "offset", delivery.Offset, "event_type", evt.EventType,
			"score", state.Score, "misses", state.Misses, "game_over", state.GameOver)
	}

	w.broadcaster.Broadcast(ctx, event.GameStateUpdated{State: state, At: time.Now().UTC()})
}
