package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// RunnerConfig drives the local bot-runner stand-in.
type RunnerConfig struct {
	Addr           string        `env:"RUNNER_ADDR" envDefault:":4000"`
	SocketPath     string        `env:"SOCKET_PATH" envDefault:"/socket.io/"`
	EmitInterval   time.Duration `env:"RUNNER_EMIT_INTERVAL" envDefault:"2s"`
	InitialBalance float64       `env:"RUNNER_INITIAL_BALANCE" envDefault:"1000"`
	// When set, placed bets are also written to bet history.
	PostgresDSN string `env:"POSTGRES_DSN"`
}

func LoadRunner() (RunnerConfig, error) {
	var cfg RunnerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
