package telemetry

import (
	"strings"
	"time"

	"botdash/internal/ids"
)

// NormalizeBetEvent maps a pushed bet event. Missing id and timestamp are
// generated, stake falls back to "amount", and a missing status is derived
// from "result" (WIN is a success, anything else a failure).
func NormalizeBetEvent(r Record, now time.Time) BetEntry {
	id := r.String("_id", "id")
	if id == "" {
		id = ids.New()
	}
	createdAt, ok := r.Time("createdAt")
	if !ok {
		createdAt = now
	}
	return BetEntry{
		ID:          id,
		CreatedAt:   createdAt,
		InstanceID:  r.String("botInstanceId", "botInstance"),
		TipID:       r.String("tip_id"),
		Tip:         r.String("tip"),
		Stake:       r.Number("stake", "amount"),
		FailedCount: failedCount(r),
		Status:      betStatus(r),
	}
}

// NormalizeHistoryRecord maps one stored bet history row.
func NormalizeHistoryRecord(r Record) BetEntry {
	createdAt, _ := r.Time("createdAt")
	status := parseStatus(r.String("status"))
	if status == "" {
		status = BetSuccess
	}
	return BetEntry{
		ID:          r.String("_id", "id"),
		CreatedAt:   createdAt,
		InstanceID:  r.String("botInstanceId", "botInstance"),
		TipID:       r.String("tip_id"),
		Tip:         r.String("tip"),
		Stake:       r.Number("stake"),
		FailedCount: failedCount(r),
		Status:      status,
	}
}

func failedCount(r Record) int {
	n := int(r.Number("failedCount"))
	if n < 0 {
		return 0
	}
	return n
}

func betStatus(r Record) BetStatus {
	if s := parseStatus(r.String("status")); s != "" {
		return s
	}
	if strings.EqualFold(r.String("result"), "WIN") {
		return BetSuccess
	}
	return BetFailed
}

func parseStatus(s string) BetStatus {
	switch BetStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case BetSuccess:
		return BetSuccess
	case BetFailed:
		return BetFailed
	}
	return ""
}

// ParseLevel maps free-form levels onto the three known ones.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR", "ERR", "FATAL":
		return LevelError
	default:
		return LevelInfo
	}
}

// NormalizeLogEvent maps a pushed log line, stamping it with now when the
// producer left the timestamp out.
func NormalizeLogEvent(r Record, now time.Time) LogEntry {
	ts := r.String("timestamp", "createdAt")
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339Nano)
	}
	return LogEntry{
		Timestamp: ts,
		Level:     ParseLevel(r.String("level")),
		Message:   r.String("message", "msg"),
	}
}

// NormalizeTipEvent maps a pushed tip. A tip without an id gets a fresh one,
// so it can never displace another anonymous tip.
func NormalizeTipEvent(r Record, now time.Time) TipEntry {
	id := r.String("id", "_id")
	if id == "" {
		id = ids.New()
	}
	ts := r.String("timestamp", "createdAt")
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339Nano)
	}
	return TipEntry{
		ID:        id,
		Timestamp: ts,
		Message:   r.String("message"),
		Source:    r.String("source"),
	}
}
