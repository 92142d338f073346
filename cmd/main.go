package main

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain"
	"dot-catcher/infrastructure/eventlog"
	"dot-catcher/infrastructure/realtime"
	"dot-catcher/internal"
	"dot-catcher/observability"
	"dot-catcher/repositories"
	"dot-catcher/runtime"
	"dot-catcher/runtime/workers"
	"dot-catcher/services"
	"dot-catcher/sink"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run builds every component, serves clients until a signal arrives and
// shuts down in reverse order so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Journal (BadgerDB, in memory when no path is given)
	db, err := badger.Open(journalOptions(config.JournalPath))
	if err != nil {
		return fmt.Errorf("journal opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing journal...")
		_ = db.Close()
	}()

	// 3. Event log producer, established before anything consumes or serves
	writer, subscriber, err := openEventLog(log, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn("Failed to close event log writer", "err", err)
		}
	}()
	publisher := services.NewActionPublisher(log, writer, config.ActionsTopic)

	// 4. Runtime: state, registry, fan-out and the supervised loops
	stats := observability.NewStats()
	store := runtime.NewStateStore(domain.Rules{MaxMisses: config.MaxMisses})
	registry := runtime.NewRegistry()
	journal := repositories.NewJournalRepository(db, log, config.JournalTTL)
	journalSink := sink.NewJournalSink(journal, log, config.JournalBufferSize)
	fanout := runtime.NewEventFanout(log, registry, config.SinkTimeout, journalSink)

	orchestrator := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, config.RestartInterval),
		subscriber, store, fanout,
		runtime.Topics{Dots: config.DotsTopic, Actions: config.ActionsTopic},
		stats,
	)
	orchestrator.Add(journalSink, workers.NewHealthMonitoringWorker(log, stats, config.MetricInterval))
	if config.ReportInterval > 0 {
		orchestrator.Add(workers.NewReporterWorker(log, stats, store, registry, config.ReportInterval))
	}
	if config.GRPCHealthPort > 0 {
		orchestrator.Add(workers.NewHealthServerWorker(log, fmt.Sprintf("%s:%d", config.Host, config.GRPCHealthPort)))
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator.Start(ctx)

	// 6. Client surface
	sessions := services.NewSessionService(log, registry, store, publisher, stats)
	statsProvider := func() map[string]any {
		return map[string]any{
			"state":    store.Snapshot(),
			"sessions": registry.Count(),
			"counters": stats.Snapshot(),
		}
	}
	server := realtime.NewServer(log, sessions, statsProvider, config.SessionBufferSize, config.PublishTimeout)

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.Handle("/inspect", internal.NewInspectHandler(log, journal, statsProvider))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting realtime server", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case serveErr = <-errChan:
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "err", err)
	}
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return serveErr
}

// openEventLog returns the writer and subscriber for EVENT_LOG.
// "memory" keeps both topics inside the process, for local runs without a broker.
func openEventLog(log *slog.Logger, config Config) (contract.LogWriter, contract.Subscriber, error) {
	switch config.EventLog {
	case "kafka":
		brokers := eventlog.ParseBrokers(config.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, nil, fmt.Errorf("config error: KAFKA_BROKERS is empty")
		}
		return eventlog.NewKafkaWriter(log, brokers), eventlog.NewKafkaSubscriber(log, brokers, config.KafkaGroupID), nil
	case "memory":
		log.Warn("Using the in-memory event log, nothing is shared with other processes")
		memory := eventlog.NewMemoryLog()
		return memory, memory, nil
	default:
		return nil, nil, fmt.Errorf("config error: unknown EVENT_LOG %q", config.EventLog)
	}
}

func journalOptions(path string) badger.Options {
	if path == "" {
		return badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	return badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
}
