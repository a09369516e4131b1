package store

import (
	"context"
	"encoding/json"

	"botdash/internal/ids"
)

const botColumns = `id, name, description, type, default_config, version, created_at, updated_at`

func scanBot(row interface{ Scan(...any) error }) (Bot, error) {
	var (
		b   Bot
		cfg []byte
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Type, &cfg, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Bot{}, err
	}
	b.DefaultConfig = jsonVal(cfg)
	return b, nil
}

func (s *Store) ListBots(ctx context.Context) ([]Bot, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+botColumns+` FROM bots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Bot{}
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBot(ctx context.Context, id string) (*Bot, error) {
	b, err := scanBot(s.Pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &b, nil
}

func (s *Store) CreateBot(ctx context.Context, name, description, botType, version string, defaultConfig json.RawMessage) (*Bot, error) {
	if version == "" {
		version = "1.0.0"
	}
	b, err := scanBot(s.Pool.QueryRow(ctx, `
INSERT INTO bots (id, name, description, type, default_config, version)
VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb), $6)
RETURNING `+botColumns,
		ids.New(), name, description, botType, jsonParam(defaultConfig), version))
	if err != nil {
		return nil, mapConstraint(err)
	}
	return &b, nil
}
