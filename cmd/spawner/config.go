package main

import (
	"fmt"
	"time"
)

type Config struct {
	KafkaBrokers string        `env:"KAFKA_BROKERS,default=localhost:9092"`
	DotsTopic    string        `env:"DOTS_TOPIC,default=dots"`
	Interval     time.Duration `env:"SPAWN_INTERVAL,default=1s"`
	GridSize     int           `env:"GRID_SIZE,default=5"`
	LogLevel     string        `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("SPAWN_INTERVAL must be > 0, got %s", c.Interval)
	}
	if c.GridSize <= 0 {
		return fmt.Errorf("GRID_SIZE must be > 0, got %d", c.GridSize)
	}
	return nil
}
