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

var _ contract.Worker = (*DotsConsumer)(nil)

// DotsConsumer relays every dots delivery to all sessions as dot_appeared.
type DotsConsumer struct {
	log         *slog.Logger
	subscriber  contract.Subscriber
	topic       string
	broadcaster contract.Broadcaster
	stats       *observability.Stats
}

func NewDotsConsumer(log *slog.Logger, subscriber contract.Subscriber, topic string,
	broadcaster contract.Broadcaster, stats *observability.Stats) *DotsConsumer {
	return &DotsConsumer{
		log:         log.With("worker", "dots"),
		subscriber:  subscriber,
		topic:       topic,
		broadcaster: broadcaster,
		stats:       stats,
	}
}

func (w *DotsConsumer) Run(ctx context.Context) error {
	return consume(ctx, w.log, w.subscriber, w.topic, w.handle)
}

func (w *DotsConsumer) handle(ctx context.Context, delivery domain.Delivery) {
	dot, err := domain.DecodeDotEvent(delivery.Value)
	if err != nil {
		w.stats.IncrDecodeErrors()
		w.log.Warn("Skipping dot delivery", "offset", delivery.Offset, "err", err)
		return
	}
	w.log.Debug("Dot received", "offset", delivery.Offset)
	w.broadcaster.Broadcast(ctx, event.DotAppeared{Dot: dot, At: time.Now().UTC()})
	w.stats.IncrDotsRelayed()
}
