package store

import (
	"context"

	"botdash/internal/ids"
)

const betColumns = `id, bot_instance_id, tip_id, tip, stake, failed_count, status, created_at, updated_at`

// ListBetHistory returns up to limit bets of an instance, newest first.
func (s *Store) ListBetHistory(ctx context.Context, instanceID string, limit int) ([]Bet, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+betColumns+` FROM bet_history
WHERE bot_instance_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, instanceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Bet{}
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.BotInstanceID, &b.TipID, &b.Tip, &b.Stake, &b.FailedCount, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBet records one placed bet. A zero CreatedAt uses the database clock.
func (s *Store) InsertBet(ctx context.Context, b Bet) (string, error) {
	if b.ID == "" {
		b.ID = ids.New()
	}
	if b.Status == "" {
		b.Status = "SUCCESS"
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO bet_history (id, bot_instance_id, tip_id, tip, stake, failed_count, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))`,
		b.ID, b.BotInstanceID, b.TipID, b.Tip, b.Stake, b.FailedCount, b.Status, timestamptzParam(b.CreatedAt))
	if err != nil {
		return "", mapConstraint(err)
	}
	return b.ID, nil
}
