package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// MonitorConfig drives the live telemetry view of a single bot instance.
type MonitorConfig struct {
	BotManagerURL     string        `env:"BOTMANAGER_URL" envDefault:"http://localhost:4000"`
	SocketPath        string        `env:"SOCKET_PATH" envDefault:"/socket.io/"`
	BalanceInterval   time.Duration `env:"BALANCE_INTERVAL" envDefault:"60s"`
	BetPollInterval   time.Duration `env:"BET_POLL_INTERVAL" envDefault:"3s"`
	BetHistoryLimit   int           `env:"BET_HISTORY_LIMIT" envDefault:"50"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY" envDefault:"1s"`
	ReconnectDelayMax time.Duration `env:"RECONNECT_DELAY_MAX" envDefault:"5s"`
}

func LoadMonitor() (MonitorConfig, error) {
	var cfg MonitorConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// ClientConfig is used by the terminal monitor to reach the dashboard API.
type ClientConfig struct {
	DashboardURL string `env:"DASHBOARD_URL" envDefault:"http://localhost:8080"`
	UserID       string `env:"DASHBOARD_USER_ID"`
	UserRole     string `env:"DASHBOARD_USER_ROLE" envDefault:"user"`
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	err := env.Parse(&cfg)
	return cfg, err
}
