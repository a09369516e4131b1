package store

import (
	"context"

	"botdash/internal/ids"

	"github.com/jackc/pgx/v5/pgtype"
)

const instanceSelect = `
SELECT i.id, i.bot_id, i.user_id, i.name, i.config, i.status, i.last_heartbeat, i.created_at, i.updated_at,
       b.id, b.name, b.description, b.type, b.default_config, b.version, b.created_at, b.updated_at
FROM bot_instances i
JOIN bots b ON b.id = i.bot_id`

func scanInstance(row interface{ Scan(...any) error }) (BotInstance, error) {
	var (
		in        BotInstance
		b         Bot
		cfg       []byte
		botCfg    []byte
		heartbeat pgtype.Timestamptz
	)
	err := row.Scan(
		&in.ID, &in.BotID, &in.UserID, &in.Name, &cfg, &in.Status, &heartbeat, &in.CreatedAt, &in.UpdatedAt,
		&b.ID, &b.Name, &b.Description, &b.Type, &botCfg, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return BotInstance{}, err
	}
	in.Config = jsonVal(cfg)
	in.LastHeartbeat = timePtrVal(heartbeat)
	b.DefaultConfig = jsonVal(botCfg)
	in.Bot = &b
	return in, nil
}

func (s *Store) listInstances(ctx context.Context, query string, args ...any) ([]BotInstance, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BotInstance{}
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) ListInstancesByUser(ctx context.Context, userID string) ([]BotInstance, error) {
	return s.listInstances(ctx, instanceSelect+` WHERE i.user_id = $1 ORDER BY i.created_at DESC, i.id DESC`, userID)
}

func (s *Store) ListAllInstances(ctx context.Context) ([]BotInstance, error) {
	return s.listInstances(ctx, instanceSelect+` ORDER BY i.created_at DESC, i.id DESC`)
}

// GetInstance returns the instance only when userID owns it.
func (s *Store) GetInstance(ctx context.Context, id, userID string) (*BotInstance, error) {
	in, err := scanInstance(s.Pool.QueryRow(ctx, instanceSelect+` WHERE i.id = $1 AND i.user_id = $2`, id, userID))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &in, nil
}

func (s *Store) GetInstanceByID(ctx context.Context, id string) (*BotInstance, error) {
	in, err := scanInstance(s.Pool.QueryRow(ctx, instanceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &in, nil
}

func (s *Store) CreateInstance(ctx context.Context, userID, botID, name string, config []byte) (*BotInstance, error) {
	id := ids.New()
	_, err := s.Pool.Exec(ctx, `
INSERT INTO bot_instances (id, bot_id, user_id, name, config)
VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb))`,
		id, botID, userID, name, jsonParam(config))
	if err != nil {
		return nil, mapConstraint(err)
	}
	return s.GetInstance(ctx, id, userID)
}

// UpdateInstance applies patch to an instance owned by userID.
func (s *Store) UpdateInstance(ctx context.Context, id, userID string, patch InstancePatch) (*BotInstance, error) {
	tag, err := s.Pool.Exec(ctx, `
UPDATE bot_instances SET
  name = COALESCE($3, name),
  config = COALESCE($4::jsonb, config),
  status = COALESCE($5, status),
  updated_at = now()
WHERE id = $1 AND user_id = $2`,
		id, userID, patch.Name, jsonParam(patch.Config), patch.Status)
	if err != nil {
		return nil, mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetInstance(ctx, id, userID)
}

func (s *Store) DeleteInstance(ctx context.Context, id, userID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM bot_instances WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
