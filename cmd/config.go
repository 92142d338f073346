package main

import (
	"fmt"
	"time"
)

type Config struct {
	EventLog          string        `env:"EVENT_LOG,default=kafka"`
	KafkaBrokers      string        `env:"KAFKA_BROKERS,default=localhost:9092"`
	KafkaGroupID      string        `env:"KAFKA_GROUP_ID"`
	DotsTopic         string        `env:"DOTS_TOPIC,default=dots"`
	ActionsTopic      string        `env:"ACTIONS_TOPIC,default=actions"`
	MaxMisses         int           `env:"MAX_MISSES,default=0"`
	SessionBufferSize int           `env:"SESSION_BUFFER_SIZE,default=64"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=500ms"`
	PublishTimeout    time.Duration `env:"PUBLISH_TIMEOUT,default=10s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=2s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ReportInterval    time.Duration `env:"REPORT_INTERVAL,default=1m"`
	JournalPath       string        `env:"JOURNAL_PATH"`
	JournalTTL        time.Duration `env:"JOURNAL_TTL,default=10m"`
	JournalBufferSize int           `env:"JOURNAL_BUFFER_SIZE,default=256"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=5001"`
	GRPCHealthPort    int           `env:"GRPC_HEALTH_PORT,default=0"`
}

// Validate rejects values the bridge cannot run with.
func (c Config) Validate() error {
	if c.SessionBufferSize <= 0 {
		return fmt.Errorf("SESSION_BUFFER_SIZE must be > 0, got %d", c.SessionBufferSize)
	}
	if c.JournalBufferSize <= 0 {
		return fmt.Errorf("JOURNAL_BUFFER_SIZE must be > 0, got %d", c.JournalBufferSize)
	}
	if c.MaxMisses < 0 {
		return fmt.Errorf("MAX_MISSES must be >= 0, got %d", c.MaxMisses)
	}
	if c.SinkTimeout <= 0 || c.PublishTimeout <= 0 {
		return fmt.Errorf("SINK_TIMEOUT and PUBLISH_TIMEOUT must be > 0")
	}
	return nil
}
