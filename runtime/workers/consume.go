package workers

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"fmt"
	"log/slog"
	"time"
)

const ackTimeout = 5 * time.Second

type deliveryHandler func(ctx context.Context, delivery domain.Delivery)

// consume subscribes to topic and hands every delivery to handle, in order,
// until ctx is cancelled (returns nil) or the subscription breaks (returns an
// error so the supervisor resubscribes).
//
// A delivery that was fetched is always handled and acknowledged, even when
// shutdown starts in the middle of it.
func consume(ctx context.Context, log *slog.Logger, subscriber contract.Subscriber,
	topic string, handle deliveryHandler) error {
	sub, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn("Failed to close subscription", "topic", topic, "err", err)
		}
	}()
	log.Info("Subscribed", "topic", topic)

	for {
		if ctx.Err() != nil {
			log.Info("Unsubscribing", "topic", topic)
			return nil
		}

		delivery, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Unsubscribing", "topic", topic)
				return nil
			}
			return fmt.Errorf("read from %s: %w", topic, err)
		}

		inflight := context.WithoutCancel(ctx)
		handle(inflight, delivery)

		if err := ack(inflight, sub, delivery); err != nil {
			return fmt.Errorf("ack %s offset %d: %w", topic, delivery.Offset, err)
		}
	}
}

func ack(ctx context.Context, sub contract.Subscription, delivery domain.Delivery) error {
	ackCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	return sub.Ack(ackCtx, delivery)
}
