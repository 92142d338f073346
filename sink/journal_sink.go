package sink

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain/event"
	"dot-catcher/repositories"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultJournalBuffer = 256

var (
	_ contract.EventSink = (*JournalSink)(nil)
	_ contract.Worker    = (*JournalSink)(nil)
)

// JournalSink records broadcast events in the journal.
//
// Consume only queues the entry; Run does the writes on its own goroutine, so a
// slow journal never holds a consumption loop longer than the ctx it was given.
type JournalSink struct {
	repository repositories.IJournalRepository
	log        *slog.Logger
	entries    chan repositories.JournalEntry
}

func NewJournalSink(repository repositories.IJournalRepository, log *slog.Logger, bufferSize int) *JournalSink {
	if bufferSize <= 0 {
		bufferSize = defaultJournalBuffer
	}
	return &JournalSink{
		repository: repository,
		log:        log,
		entries:    make(chan repositories.JournalEntry, bufferSize),
	}
}

// Consume waits for room in the queue at most until ctx is done.
func (j *JournalSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return err
	}
	entry := repositories.JournalEntry{
		ID:      uuid.New(),
		Name:    string(e.Name()),
		Payload: payload,
		At:      occurredAt(e),
	}

	select {
	case j.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run appends queued entries until ctx is done, then writes what is still queued.
func (j *JournalSink) Run(ctx context.Context) error {
	for {
		select {
		case entry := <-j.entries:
			j.append(entry)
		case <-ctx.Done():
			j.drain()
			j.log.Debug("Context done, stopping journal writes")
			return nil
		}
	}
}

func (j *JournalSink) drain() {
	for {
		select {
		case entry := <-j.entries:
			j.append(entry)
		default:
			return
		}
	}
}

func (j *JournalSink) append(entry repositories.JournalEntry) {
	if err := j.repository.Append(entry); err != nil {
		j.log.Warn("Failed to journal event", "event", entry.Name, "err", err)
	}
}

func occurredAt(e event.DomainEvent) time.Time {
	var at time.Time
	switch evt := e.(type) {
	case event.DotAppeared:
		at = evt.At
	case event.GameStateUpdated:
		at = evt.At
	}
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
