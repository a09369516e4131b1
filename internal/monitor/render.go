package monitor

import (
	"time"

	"botdash/internal/telemetry"

	"github.com/shopspring/decimal"
)

type LogLine struct {
	Timestamp string          `json:"timestamp"`
	Level     telemetry.Level `json:"level"`
	Message   string          `json:"message"`
}

type BetRow struct {
	ID          string              `json:"id"`
	Time        string              `json:"time"`
	Tip         string              `json:"tip"`
	Stake       string              `json:"stake"`
	FailedCount int                 `json:"failedCount"`
	Status      telemetry.BetStatus `json:"status"`
}

type TipCard struct {
	ID      string `json:"id"`
	Clock   string `json:"clock"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// View is the display model of a State. Free text is decoded here and only
// here; State always keeps the stored form.
type View struct {
	InstanceID  string    `json:"instanceId"`
	Connected   bool      `json:"connected"`
	BalanceText string    `json:"balance"`
	Logs        []LogLine `json:"logs"`
	Bets        []BetRow  `json:"bets"`
	Tips        []TipCard `json:"tips"`
	Version     uint64    `json:"version"`
}

const (
	betTimeLayout  = "2006-01-02 15:04:05"
	tipClockLayout = "15:04:05"
)

// Render builds the display model. Times are shown in loc, or UTC when loc
// is nil.
func Render(s State, loc *time.Location) View {
	if loc == nil {
		loc = time.UTC
	}
	v := View{
		InstanceID:  s.InstanceID,
		Connected:   s.Connected,
		BalanceText: FormatMoney(s.Balance),
		Logs:        make([]LogLine, 0, len(s.Logs)),
		Bets:        make([]BetRow, 0, len(s.Bets)),
		Tips:        make([]TipCard, 0, len(s.Tips)),
		Version:     s.Version,
	}
	for _, e := range s.Logs {
		v.Logs = append(v.Logs, LogLine{Timestamp: e.Timestamp, Level: e.Level, Message: e.Message})
	}
	for _, b := range s.Bets {
		tip := b.Tip
		if tip == "" {
			tip = b.TipID
		}
		row := BetRow{
			ID:          b.ID,
			Tip:         telemetry.DecodeTipMessage(tip),
			Stake:       FormatMoney(b.Stake),
			FailedCount: b.FailedCount,
			Status:      b.Status,
		}
		if !b.CreatedAt.IsZero() {
			row.Time = b.CreatedAt.In(loc).Format(betTimeLayout)
		}
		v.Bets = append(v.Bets, row)
	}
	for _, t := range s.Tips {
		v.Tips = append(v.Tips, TipCard{
			ID:      t.ID,
			Clock:   clock(t.Timestamp, loc),
			Message: telemetry.DecodeTipMessage(t.Message),
			Source:  t.Source,
		})
	}
	return v
}

// FormatMoney renders an amount with two decimals and a dollar sign.
func FormatMoney(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func clock(ts string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.In(loc).Format(tipClockLayout)
}
