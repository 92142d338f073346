// Spawner is a local development producer for the dots topic.
// It emits one dot at a random cell of the grid on every tick.
package main

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/infrastructure/eventlog"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type dot struct {
	ID        string    `json:"id"`
	Position  [2]int    `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	writer := eventlog.NewKafkaWriter(log, eventlog.ParseBrokers(config.KafkaBrokers))
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Spawning dots", "topic", config.DotsTopic, "interval", config.Interval, "grid", config.GridSize)
	spawn(ctx, log, writer, config, rand.New(rand.NewSource(time.Now().UnixNano())))
	log.Info("Spawner stopped")
	return nil
}

// spawn writes one dot per tick until ctx is done.
func spawn(ctx context.Context, log *slog.Logger, writer contract.LogWriter, config Config, rng *rand.Rand) {
	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d := dot{
				ID:        uuid.NewString(),
				Position:  [2]int{rng.Intn(config.GridSize), rng.Intn(config.GridSize)},
				Timestamp: time.Now().UTC(),
			}
			value, err := json.Marshal(d)
			if err != nil {
				log.Warn("Failed to marshal dot", "err", err)
				continue
			}
			if err := writer.Write(ctx, config.DotsTopic, []byte(d.ID), value); err != nil {
				log.Warn("Failed to produce dot", "err", err)
				continue
			}
			log.Debug("Dot produced", "id", d.ID, "position", d.Position)
		}
	}
}
