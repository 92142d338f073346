package runtime

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain/event"
	"log/slog"
	"time"
)

var _ contract.Broadcaster = (*EventFanout)(nil)

// EventFanout delivers one event to every connected session and to the
// permanent sinks (journal).
//
// Session sinks only enqueue, so Broadcast never waits on a slow client.
// Permanent sinks get sinkTimeout each. Broadcast is called from the consumer
// goroutines, one event at a time, which keeps per-topic delivery order.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	sinkTimeout time.Duration, permanentSinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		permanentSinks: permanentSinks,
		sinkTimeout:    sinkTimeout,
	}
}

func (f *EventFanout) Broadcast(ctx context.Context, e event.DomainEvent) {
	for _, sink := range f.registry.Sinks() {
		if err := sink.Consume(ctx, e); err != nil {
			// Session went away between the snapshot and now.
			f.log.Debug("Skipping session", "event", e.Name(), "err", err)
		}
	}

	for _, sink := range f.permanentSinks {
		f.consumeWithTimeout(ctx, sink, e)
	}
}

func (f *EventFanout) consumeWithTimeout(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, e); err != nil {
		f.log.Warn("Permanent sink failed", "event", e.Name(), "err", err)
	}
}
