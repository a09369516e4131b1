package instances

import (
	"encoding/json"
	"strings"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Caller is the identity the request was made under.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return strings.EqualFold(c.Role, RoleAdmin)
}

type CreateBotRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	DefaultConfig json.RawMessage `json:"defaultConfig"`
	Version       string          `json:"version"`
}

type CreateInstanceRequest struct {
	BotID  string          `json:"botId"`
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type UpdateInstanceRequest struct {
	Name   *string         `json:"name"`
	Config json.RawMessage `json:"config"`
	Status *string         `json:"status"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

var botTypes = map[string]bool{"CHAT": true, "TRADING": true, "CRAWLER": true}

var instanceStatuses = map[string]bool{
	"STOPPED":  true,
	"STARTING": true,
	"RUNNING":  true,
	"ERROR":    true,
	"STOPPING": true,
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)
