package eventlog

import (
	"bytes"
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/errors"
	"fmt"
	"sync"
)

var (
	_ contract.Subscriber   = (*MemoryLog)(nil)
	_ contract.LogWriter    = (*MemoryLog)(nil)
	_ contract.Subscription = (*memorySubscription)(nil)
)

// MemoryLog is a single process event log used for local runs without a broker
// and in tests. It behaves like one consumer group: a new subscription starts
// after the last acknowledged offset of its topic, or at the end of the topic
// when nothing was acknowledged yet.
type MemoryLog struct {
	mu        sync.Mutex
	topics    map[string][]domain.Delivery
	committed map[string]int64
	active    map[string]int
	notify    chan struct{} // closed and replaced on every write
	closed    bool
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		topics:    make(map[string][]domain.Delivery),
		committed: make(map[string]int64),
		active:    make(map[string]int),
		notify:    make(chan struct{}),
	}
}

func (m *MemoryLog) Write(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("write to %s: %w", topic, errors.ErrSubscriptionClosed)
	}

	m.topics[topic] = append(m.topics[topic], domain.Delivery{
		Topic:  topic,
		Offset: int64(len(m.topics[topic])),
		Key:    bytes.Clone(key),
		Value:  bytes.Clone(value),
	})
	close(m.notify)
	m.notify = make(chan struct{})
	return nil
}

func (m *MemoryLog) Subscribe(_ context.Context, topic string) (contract.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, errors.ErrSubscriptionClosed)
	}

	next, ok := m.committed[topic]
	if !ok {
		next = int64(len(m.topics[topic]))
	}
	m.active[topic]++
	return &memorySubscription{log: m, topic: topic, next: next, done: make(chan struct{})}, nil
}

// Messages returns a copy of everything written to topic.
func (m *MemoryLog) Messages(topic string) []domain.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Delivery(nil), m.topics[topic]...)
}

// Committed returns the next offset to read for topic and whether anything was acknowledged.
func (m *MemoryLog) Committed(topic string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset, ok := m.committed[topic]
	return offset, ok
}

// Subscriptions returns how many subscriptions on topic are open.
func (m *MemoryLog) Subscriptions(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[topic]
}

// Close wakes every pending Next with ErrSubscriptionClosed.
func (m *MemoryLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.notify)
	}
	return nil
}

type memorySubscription struct {
	log       *MemoryLog
	topic     string
	next      int64
	done      chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscription) Next(ctx context.Context) (domain.Delivery, error) {
	for {
		s.log.mu.Lock()
		entries := s.log.topics[s.topic]
		if s.next < int64(len(entries)) {
			delivery := entries[s.next]
			s.next++
			s.log.mu.Unlock()
			return delivery, nil
		}
		wait, closed := s.log.notify, s.log.closed
		s.log.mu.Unlock()

		if closed {
			return domain.Delivery{}, errors.ErrSubscriptionClosed
		}
		select {
		case <-ctx.Done():
			return domain.Delivery{}, ctx.Err()
		case <-s.done:
			return domain.Delivery{}, errors.ErrSubscriptionClosed
		case <-wait:
		}
	}
}

func (s *memorySubscription) Ack(_ context.Context, delivery domain.Delivery) error {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	if next := delivery.Offset + 1; next > s.log.committed[s.topic] {
		s.log.committed[s.topic] = next
	}
	return nil
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.log.mu.Lock()
		s.log.active[s.topic]--
		s.log.mu.Unlock()
	})
	return nil
}
