package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/logging"
)

// Config is the process configuration. Empty datastream and modbus paths
// disable that component.
type Config struct {
	Scenario         string         `json:"Scenario"`
	Log              logging.Config `json:"Log"`
	TickMilliseconds int            `json:"TickMilliseconds"`
	Listen           string         `json:"Listen"`
	Datastreams      StreamConfigs  `json:"Datastreams"`
	Modbus           string         `json:"Modbus"`
}

// StreamConfigs are the config paths of the optional datastream handlers.
type StreamConfigs struct {
	NATS    string `json:"NATS"`
	MQTT    string `json:"MQTT"`
	MongoDB string `json:"MongoDB"`
	SQL     string `json:"SQL"`
	Webhook string `json:"Webhook"`
}

// TickRate is the real time between controller advances.
func (c Config) TickRate() time.Duration {
	return time.Duration(c.TickMilliseconds) * time.Millisecond
}

func loadConfig(path string) (Config, error) {
	cfg := Config{
		TickMilliseconds: 100,
		Listen:           ":8080",
		Log:              logging.Config{Level: "info", Format: "text"},
	}
	if err := datastreams.ReadConfig(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if cfg.Scenario == "" {
		return Config{}, fmt.Errorf("%w: no scenario configured", ecc.ErrInvalidConfig)
	}
	if cfg.TickMilliseconds <= 0 {
		return Config{}, fmt.Errorf("%w: TickMilliseconds must be positive", ecc.ErrInvalidConfig)
	}
	return cfg, nil
}

// loadEnv reads a dotenv file into the environment. A missing file is not an error.
func loadEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// applyEnv overrides file settings with ECC_* variables.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("ECC_SCENARIO"); v != "" {
		cfg.Scenario = v
	}
	if v := getenv("ECC_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := getenv("ECC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("ECC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := getenv("ECC_TICK_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ECC_TICK_MS: %w", err)
		}
		cfg.TickMilliseconds = ms
	}
	return nil
}
