// Package config loads settings for both binaries from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server configures givegram-server.
type Server struct {
	Addr            string        `env:"GIVEGRAM_ADDR"             envDefault:":8080"`
	SessionTTL      time.Duration `env:"GIVEGRAM_SESSION_TTL"      envDefault:"30m"`
	CleanupSchedule string        `env:"GIVEGRAM_CLEANUP_SCHEDULE" envDefault:"@every 5m"`
	FixturePath     string        `env:"GIVEGRAM_FIXTURE_PATH"     envDefault:"./fixtures.yaml"`
	Verbose         bool          `env:"GIVEGRAM_VERBOSE"`
}

// Client configures the givegram terminal client.
type Client struct {
	APIURL         string        `env:"GIVEGRAM_API_URL"         envDefault:"http://localhost:8080"`
	DBPath         string        `env:"GIVEGRAM_DB_PATH"         envDefault:"./givegram.db"`
	Ephemeral      bool          `env:"GIVEGRAM_EPHEMERAL"`
	LogPath        string        `env:"GIVEGRAM_LOG_PATH"        envDefault:"./givegram.log"`
	RequestTimeout time.Duration `env:"GIVEGRAM_REQUEST_TIMEOUT" envDefault:"60s"`
	Countdown      int           `env:"GIVEGRAM_COUNTDOWN"       envDefault:"3"`
	RevealHold     time.Duration `env:"GIVEGRAM_REVEAL_HOLD"     envDefault:"2s"`
	Verbose        bool          `env:"GIVEGRAM_VERBOSE"`
}

// LoadServer parses Server settings from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Server{}, fmt.Errorf("GIVEGRAM_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}

// LoadClient parses Client settings from the environment.
func LoadClient() (Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return Client{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Countdown < 1 {
		return Client{}, fmt.Errorf("GIVEGRAM_COUNTDOWN must be at least 1, got %d", cfg.Countdown)
	}
	return cfg, nil
}
