package store

import (
	"context"

	"botdash/internal/ids"
)

const userColumns = `id, name, email, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

// CreateUser inserts a user. An empty id gets a generated one.
func (s *Store) CreateUser(ctx context.Context, id, name, email, role string) (*User, error) {
	if id == "" {
		id = ids.New()
	}
	u, err := scanUser(s.Pool.QueryRow(ctx, `
INSERT INTO users (id, name, email, role)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns, id, name, email, role))
	if err != nil {
		return nil, mapConstraint(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `
UPDATE users SET
  name = COALESCE($2, name),
  email = COALESCE($3, email),
  role = COALESCE($4, role),
  updated_at = now()
WHERE id = $1
RETURNING `+userColumns, id, patch.Name, patch.Email, patch.Role))
	if err != nil {
		return nil, mapConstraint(mapNotFound(err))
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
