// Package telemetry holds the entities streamed from the bot-runner for one
// bot instance, the normalisation of their loosely-shaped wire records, and
// the bounded buffers that keep the most recent of each.
package telemetry

import "time"

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

type BetStatus string

const (
	BetSuccess BetStatus = "SUCCESS"
	BetFailed  BetStatus = "FAILED"
)

const (
	MaxLogs = 100
	MaxBets = 20
	MaxTips = 10
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
}

// BetEntry is the canonical shape of a placed bet, whichever source produced it.
// Tip holds the stored (possibly encoded) tip text; it is decoded only for display.
type BetEntry struct {
	ID          string    `json:"_id"`
	CreatedAt   time.Time `json:"createdAt"`
	InstanceID  string    `json:"botInstanceId,omitempty"`
	TipID       string    `json:"tip_id,omitempty"`
	Tip         string    `json:"tip,omitempty"`
	Stake       float64   `json:"stake"`
	FailedCount int       `json:"failedCount"`
	Status      BetStatus `json:"status"`
}

type TipEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Source    string `json:"source"`
}
