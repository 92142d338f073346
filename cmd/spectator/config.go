package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"SPECTATOR_URL" default:"ws://localhost:5001/ws"`
	// SPECTATOR_AUTO_CATCH answers every dot_appeared with a catch_dot
	AutoCatch bool `envconfig:"SPECTATOR_AUTO_CATCH" default:"false"`
	// SPECTATOR_COLOURS enables colorized output
	Colours bool `envconfig:"SPECTATOR_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
