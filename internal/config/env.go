package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment. Flags
// override these in the CLI.
type Env struct {
	DB       string `env:"STORYLET_DB"        envDefault:"storylet.db"`
	LogLevel string `env:"STORYLET_LOG_LEVEL" envDefault:"info"`
	Seed     int64  `env:"STORYLET_SEED"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Level maps LogLevel to a slog level. Unknown names fall back to info.
func (e Env) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(e.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
