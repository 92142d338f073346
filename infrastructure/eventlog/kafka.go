// Package eventlog adapts Kafka to the subscriber and writer contracts used by
// the consumption loops and the action publisher.
package eventlog

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	minFetchBytes = 1
	maxFetchBytes = 10e6
	maxFetchWait  = 500 * time.Millisecond
	writeBatch    = 10 * time.Millisecond
)

var (
	_ contract.Subscriber   = (*KafkaSubscriber)(nil)
	_ contract.Subscription = (*kafkaSubscription)(nil)
	_ contract.LogWriter    = (*KafkaWriter)(nil)
)

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// DefaultGroupID gives each bridge process its own consumer group, so every
// instance sees the whole stream starting from the latest offset.
func DefaultGroupID() string {
	return "dot-catcher-" + uuid.NewString()
}

// KafkaSubscriber opens one consumer group reader per topic.
// Offsets are committed after a delivery is handled, so a resubscribe after a
// failure resumes right after the last handled delivery (at-least-once).
type KafkaSubscriber struct {
	log     *slog.Logger
	brokers []string
	groupID string
}

func NewKafkaSubscriber(log *slog.Logger, brokers []string, groupID string) *KafkaSubscriber {
	if groupID == "" {
		groupID = DefaultGroupID()
	}
	return &KafkaSubscriber{log: log, brokers: brokers, groupID: groupID}
}

func (s *KafkaSubscriber) Subscribe(_ context.Context, topic string) (contract.Subscription, error) {
	if len(s.brokers) == 0 {
		return nil, fmt.Errorf("no kafka broker configured for topic %s", topic)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.brokers,
		GroupID:     s.groupID + "-" + topic,
		Topic:       topic,
		MinBytes:    minFetchBytes,
		MaxBytes:    maxFetchBytes,
		MaxWait:     maxFetchWait,
		StartOffset: kafka.LastOffset,
		ErrorLogger: kafkaLogger(s.log, slog.LevelWarn),
	})
	return &kafkaSubscription{reader: reader}, nil
}

type kafkaSubscription struct {
	reader *kafka.Reader
}

func (k *kafkaSubscription) Next(ctx context.Context) (domain.Delivery, error) {
	msg, err := k.reader.FetchMessage(ctx)
	if err != nil {
		if err == io.EOF {
			return domain.Delivery{}, fmt.Errorf("%w: %w", errors.ErrSubscriptionClosed, err)
		}
		return domain.Delivery{}, err
	}
	return toDelivery(msg), nil
}

func (k *kafkaSubscription) Ack(ctx context.Context, delivery domain.Delivery) error {
	return k.reader.CommitMessages(ctx, fromDelivery(delivery))
}

func (k *kafkaSubscription) Close() error {
	return k.reader.Close()
}

// KafkaWriter appends synchronously: Write returns once every in-sync replica
// acknowledged the message. Messages are routed by key hash, so records sharing
// a key keep their relative order.
type KafkaWriter struct {
	writer *kafka.Writer
}

func NewKafkaWriter(log *slog.Logger, brokers []string) *KafkaWriter {
	return &KafkaWriter{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		BatchTimeout:           writeBatch,
		AllowAutoTopicCreation: true,
		ErrorLogger:            kafkaLogger(log, slog.LevelWarn),
	}}
}

func (w *KafkaWriter) Write(ctx context.Context, topic string, key, value []byte) error {
	return w.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: value})
}

func (w *KafkaWriter) Close() error {
	return w.writer.Close()
}

func toDelivery(msg kafka.Message) domain.Delivery {
	return domain.Delivery{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
	}
}

func fromDelivery(d domain.Delivery) kafka.Message {
	return kafka.Message{
		Topic:     d.Topic,
		Partition: d.Partition,
		Offset:    d.Offset,
	}
}

func kafkaLogger(log *slog.Logger, level slog.Level) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		log.Log(context.Background(), level, fmt.Sprintf(msg, args...), "component", "kafka")
	}
}
