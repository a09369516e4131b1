package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Applied at startup when set.
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// Base address of the bot-runner control API.
	BotManagerURL  string        `env:"BOTMANAGER_URL" envDefault:"http://localhost:4000"`
	ControlTimeout time.Duration `env:"CONTROL_TIMEOUT" envDefault:"10s"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
