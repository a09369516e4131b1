package instances

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"botdash/internal/store"
	"botdash/internal/telemetry"

	"github.com/rs/zerolog/log"
)

type Repository interface {
	ListBots(ctx context.Context) ([]store.Bot, error)
	CreateBot(ctx context.Context, name, description, botType, version string, defaultConfig json.RawMessage) (*store.Bot, error)
	ListInstancesByUser(ctx context.Context, userID string) ([]store.BotInstance, error)
	ListAllInstances(ctx context.Context) ([]store.BotInstance, error)
	GetInstance(ctx context.Context, id, userID string) (*store.BotInstance, error)
	CreateInstance(ctx context.Context, userID, botID, name string, config []byte) (*store.BotInstance, error)
	UpdateInstance(ctx context.Context, id, userID string, patch store.InstancePatch) (*store.BotInstance, error)
	DeleteInstance(ctx context.Context, id, userID string) error
	ListBetHistory(ctx context.Context, instanceID string, limit int) ([]store.Bet, error)
}

// Controller starts and stops instances on the bot-runner.
type Controller interface {
	Start(ctx context.Context, instanceID string) error
	Stop(ctx context.Context, instanceID string) error
}

type Service struct {
	repo    Repository
	control Controller
}

func NewService(repo Repository, control Controller) *Service {
	return &Service{repo: repo, control: control}
}

func (s *Service) Bots(ctx context.Context) ([]store.Bot, error) {
	return s.repo.ListBots(ctx)
}

func (s *Service) CreateBot(ctx context.Context, caller Caller, req CreateBotRequest) (*store.Bot, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if req.Name == "" || !botTypes[req.Type] || !validJSONObject(req.DefaultConfig) {
		return nil, ErrInvalidRequest
	}
	b, err := s.repo.CreateBot(ctx, req.Name, req.Description, req.Type, req.Version, req.DefaultConfig)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrBotExists
	}
	return b, err
}

func (s *Service) Instances(ctx context.Context, caller Caller) ([]store.BotInstance, error) {
	return s.repo.ListInstancesByUser(ctx, caller.UserID)
}

func (s *Service) AllInstances(ctx context.Context, caller Caller) ([]store.BotInstance, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.ListAllInstances(ctx)
}

func (s *Service) Instance(ctx context.Context, caller Caller, id string) (*store.BotInstance, error) {
	in, err := s.repo.GetInstance(ctx, id, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInstanceNotFound
	}
	return in, err
}

func (s *Service) CreateInstance(ctx context.Context, caller Caller, req CreateInstanceRequest) (*store.BotInstance, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.BotID == "" || !validJSONObject(req.Config) {
		return nil, ErrInvalidRequest
	}
	in, err := s.repo.CreateInstance(ctx, caller.UserID, req.BotID, req.Name, req.Config)
	if errors.Is(err, store.ErrBadReference) {
		return nil, ErrBotNotFound
	}
	return in, err
}

// UpdateInstance applies the patch. A status of RUNNING or STOPPED is also
// forwarded to the bot-runner as a start or stop command.
func (s *Service) UpdateInstance(ctx context.Context, caller Caller, id string, req UpdateInstanceRequest) (*store.BotInstance, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidRequest
		}
		req.Name = &name
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !instanceStatuses[status] {
			return nil, ErrInvalidRequest
		}
		req.Status = &status
	}
	if !validJSONObject(req.Config) {
		return nil, ErrInvalidRequest
	}

	in, err := s.repo.UpdateInstance(ctx, id, caller.UserID, store.InstancePatch{
		Name:   req.Name,
		Config: req.Config,
		Status: req.Status,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.Status == nil || s.control == nil {
		return in, nil
	}

	var cmdErr error
	switch *req.Status {
	case store.InstanceRunning:
		cmdErr = s.control.Start(ctx, id)
	case store.InstanceStopped:
		cmdErr = s.control.Stop(ctx, id)
	default:
		return in, nil
	}
	if cmdErr != nil {
		log.Warn().Err(cmdErr).Str("instance_id", id).Str("status", *req.Status).Msg("bot-runner command failed")
		return nil, fmt.Errorf("%w: %v", ErrControlFailed, cmdErr)
	}
	return in, nil
}

func (s *Service) DeleteInstance(ctx context.Context, caller Caller, id string) (*DeleteResponse, error) {
	err := s.repo.DeleteInstance(ctx, id, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &DeleteResponse{Message: "Bot instance deleted successfully"}, nil
}

// Authorize checks that caller may watch the telemetry of an instance: the
// owner may, and admins may watch any id.
func (s *Service) Authorize(ctx context.Context, caller Caller, instanceID string) error {
	if caller.IsAdmin() {
		return nil
	}
	if _, err := s.repo.GetInstance(ctx, instanceID, caller.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInstanceNotFound
		}
		return err
	}
	return nil
}

// BetHistory returns recent bets of an instance, newest first.
func (s *Service) BetHistory(ctx context.Context, caller Caller, instanceID string, limit int) ([]store.Bet, error) {
	if err := s.Authorize(ctx, caller, instanceID); err != nil {
		return nil, err
	}
	return s.repo.ListBetHistory(ctx, instanceID, clampHistoryLimit(limit))
}

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func validJSONObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// HistorySource reads bet history straight from the database on behalf of
// one caller, for monitors running inside the dashboard process.
type HistorySource struct {
	svc    *Service
	caller Caller
}

func (s *Service) HistorySource(caller Caller) *HistorySource {
	return &HistorySource{svc: s, caller: caller}
}

func (h *HistorySource) RecentBets(ctx context.Context, instanceID string, limit int) ([]telemetry.BetEntry, error) {
	rows, err := h.svc.BetHistory(ctx, h.caller, instanceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]telemetry.BetEntry, 0, len(rows))
	for _, b := range rows {
		out = append(out, BetEntry(b))
	}
	return out, nil
}

// BetEntry converts a stored bet into its telemetry form.
func BetEntry(b store.Bet) telemetry.BetEntry {
	status := telemetry.BetStatus(b.Status)
	if status != telemetry.BetFailed {
		status = telemetry.BetSuccess
	}
	return telemetry.BetEntry{
		ID:          b.ID,
		CreatedAt:   b.CreatedAt,
		InstanceID:  b.BotInstanceID,
		TipID:       b.TipID,
		Tip:         b.Tip,
		Stake:       b.Stake,
		FailedCount: b.FailedCount,
		Status:      status,
	}
}
