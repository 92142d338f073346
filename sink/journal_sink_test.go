package sink

import (
	"context"
	"dot-catcher/domain"
	"dot-catcher/domain/event"
	"dot-catcher/mocks"
	"dot-catcher/repositories"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// runSink starts the journal writer and returns a func stopping it.
func runSink(t *testing.T, s *JournalSink) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestJournalSink_Consume_Records_Broadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	appended := make(chan repositories.JournalEntry, 1)

	repository.EXPECT().Append(gomock.Any()).DoAndReturn(func(entry repositories.JournalEntry) error {
		appended <- entry
		return nil
	})

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	stop := runSink(t, s)
	defer stop()

	err := s.Consume(context.Background(), event.GameStateUpdated{State: domain.GameState{Score: 2, Misses: 1}, At: at})
	req.NoError(err)

	// Then the entry carries the event name, its client payload and its time
	select {
	case entry := <-appended:
		req.Equal("game_state_update", entry.Name)
		req.JSONEq(`{"score":2,"misses":1,"game_over":false}`, string(entry.Payload))
		req.Equal(at, entry.At)
		req.NotZero(entry.ID)
	case <-time.After(time.Second):
		req.Fail("entry was never written")
	}
}

func TestJournalSink_Consume_Dot_Without_Time(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)
	before := time.Now().UTC()

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	err := s.Consume(context.Background(), event.DotAppeared{Dot: domain.DotEvent{Payload: json.RawMessage(`{"id":"d1"}`)}})
	req.NoError(err)

	entry := <-s.entries
	req.Equal("dot_appeared", entry.Name)
	req.JSONEq(`{"id":"d1"}`, string(entry.Payload))
	req.False(entry.At.Before(before))
}

func TestJournalSink_Consume_Cancelled(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	err := s.Consume(ctx, event.DotAppeared{})

	req.ErrorIs(err, context.Canceled)
	req.Empty(s.entries)
}

// A journal slower than the caller's deadline never holds the caller past it.
func TestJournalSink_Consume_Returns_Within_Deadline_When_Journal_Is_Slow(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)
	repository.EXPECT().Append(gomock.Any()).DoAndReturn(func(repositories.JournalEntry) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	}).AnyTimes()

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 1)
	stop := runSink(t, s)
	defer stop()

	// Given the writer busy on a first entry and the queue holding a second one
	req.NoError(s.Consume(context.Background(), event.DotAppeared{}))
	req.Eventually(func() bool { return len(s.entries) == 0 }, time.Second, time.Millisecond)
	req.NoError(s.Consume(context.Background(), event.DotAppeared{}))

	// When a third one arrives with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := s.Consume(ctx, event.DotAppeared{})

	// Then it gives up at the deadline
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Less(time.Since(start), 150*time.Millisecond)
}

func TestJournalSink_Run_Survives_Repository_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)
	written := make(chan struct{})

	gomock.InOrder(
		repository.EXPECT().Append(gomock.Any()).Return(fmt.Errorf("disk full")),
		repository.EXPECT().Append(gomock.Any()).DoAndReturn(func(repositories.JournalEntry) error {
			close(written)
			return nil
		}),
	)

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	stop := runSink(t, s)
	defer stop()

	req.NoError(s.Consume(context.Background(), event.ActionRejected{Code: "invalid_action"}))
	req.NoError(s.Consume(context.Background(), event.DotAppeared{}))

	select {
	case <-written:
	case <-time.After(time.Second):
		req.Fail("writer stopped after a failed append")
	}
}

func TestJournalSink_Run_Flushes_Queue_On_Stop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIJournalRepository(ctrl)
	repository.EXPECT().Append(gomock.Any()).Return(nil).Times(3)

	s := NewJournalSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
	for i := 0; i < 3; i++ {
		req.NoError(s.Consume(context.Background(), event.DotAppeared{}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(s.Run(ctx))
	req.Empty(s.entries)
}
