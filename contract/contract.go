//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"dot-catcher/domain"
	"dot-catcher/domain/event"
	"encoding/json"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker is a long-running unit started and restarted by the supervisor.
// Returning nil means done for good, returning an error asks for a restart.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging by the supervisor.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Session is a connected client seen from the runtime.
type Session interface {
	EventSink
	ID() string
}

type IRegistry interface {
	Subscribe(session Session, onJoin func(Session))
	Unsubscribe(sessionID string) bool
	Sinks() []EventSink
	Count() int
}

type Broadcaster interface {
	Broadcast(ctx context.Context, e event.DomainEvent)
}

type StateReader interface {
	Snapshot() domain.GameState
}

// StateWriter is only handed to the actions consumer.
type StateWriter interface {
	StateReader
	Apply(evt domain.ActionEvent) (domain.GameState, error)
}

type Subscription interface {
	Next(ctx context.Context) (domain.Delivery, error)
	Ack(ctx context.Context, delivery domain.Delivery) error
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

type LogWriter interface {
	Write(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, position, timestamp json.RawMessage) error
}
