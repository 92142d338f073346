package services

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/errors"
	"encoding/json"
	"fmt"
	"log/slog"
)

var _ contract.Publisher = (*ActionPublisher)(nil)

// ActionKey keys every action record. With a hash balancer all actions land on
// one partition, so the actions loop folds them in append order.
var ActionKey = []byte("game")

// ActionPublisher turns a client catch into a dot_caught event on the actions topic.
type ActionPublisher struct {
	log    *slog.Logger
	writer contract.LogWriter
	topic  string
}

func NewActionPublisher(log *slog.Logger, writer contract.LogWriter, topic string) *ActionPublisher {
	return &ActionPublisher{log: log, writer: writer, topic: topic}
}

// Publish returns once the log acknowledged the append.
// Without a writer it fails with ErrPublisherNotReady instead of dropping the action.
func (p *ActionPublisher) Publish(ctx context.Context, position, timestamp json.RawMessage) error {
	if p == nil || p.writer == nil {
		return errors.ErrPublisherNotReady
	}

	value, err := json.Marshal(domain.NewCatchEvent(position, timestamp))
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPublishFailed, err)
	}
	if err := p.writer.Write(ctx, p.topic, ActionKey, value); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPublishFailed, err)
	}
	p.log.Debug("Action published", "topic", p.topic, "event_type", domain.DotCaught)
	return nil
}
