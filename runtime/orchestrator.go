// Package runtime wires the consumption loops, the aggregate state and the
// broadcast path together. It holds no game rule itself.
package runtime

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/observability"
	"dot-catcher/runtime/workers"
	"log/slog"
	"sync"
)

type Topics struct {
	Dots    string
	Actions string
}

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	subscriber contract.Subscriber
	store      *StateStore
	fanout     *EventFanout
	topics     Topics
	stats      *observability.Stats
	extra      []contract.Worker
	done       chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, subscriber contract.Subscriber,
	store *StateStore, fanout *EventFanout, topics Topics, stats *observability.Stats) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		subscriber: subscriber,
		store:      store,
		fanout:     fanout,
		topics:     topics,
		stats:      stats,
	}
}

// Add registers side workers (health, monitoring) started along the consumers.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, worker...)
}

// Start launches both consumption loops and the side workers under the
// supervisor, in the background. It returns immediately.
func (o *Orchestrator) Start(ctx context.Context) {
	dots := workers.NewDotsConsumer(o.log, o.subscriber, o.topics.Dots, o.fanout, o.stats)
	actions := workers.NewActionsConsumer(o.log, o.subscriber, o.topics.Actions, o.store, o.fanout, o.stats)

	o.mu.Lock()
	o.supervisor.Add(dots, actions)
	o.supervisor.Add(o.extra...)
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers",
		"dots_topic", o.topics.Dots, "actions_topic", o.topics.Actions)
	go func() {
		defer close(done)
		o.supervisor.Run(ctx)
	}()
}

// Stop cancels the workers and waits for them. In-flight deliveries finish first.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
	o.log.Info("Orchestrator stopped")
}
