package store

import (
	"encoding/json"
	"time"
)

const (
	BotTypeChat     = "CHAT"
	BotTypeTrading  = "TRADING"
	BotTypeCrawler  = "CRAWLER"
	InstanceStopped = "STOPPED"
	InstanceRunning = "RUNNING"
)

type Bot struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	DefaultConfig json.RawMessage `json:"defaultConfig"`
	Version       string          `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type BotInstance struct {
	ID            string          `json:"_id"`
	BotID         string          `json:"botId"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	Config        json.RawMessage `json:"config"`
	Status        string          `json:"status"`
	LastHeartbeat *time.Time      `json:"lastHeartbeat,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Bot           *Bot            `json:"bot,omitempty"`
}

// InstancePatch carries the fields a PATCH may change. Nil fields are kept.
type InstancePatch struct {
	Name   *string
	Config json.RawMessage
	Status *string
}

type Bet struct {
	ID            string    `json:"_id"`
	BotInstanceID string    `json:"botInstanceId"`
	TipID         string    `json:"tip_id"`
	Tip           string    `json:"tip"`
	Stake         float64   `json:"stake"`
	FailedCount   int       `json:"failedCount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// User is a directory entry. The id is the subject the identity proxy sends
// in X-User-ID; credentials live with the identity provider.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserPatch struct {
	Name  *string
	Email *string
	Role  *string
}
