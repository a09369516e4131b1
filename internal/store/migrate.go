package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const upSuffix = ".up.sql"

// Migration is one forward schema step read from `<version>_<name>.up.sql`.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// LoadMigrations reads the forward migrations in dir, ordered by version.
func LoadMigrations(dir string) ([]Migration, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+upSuffix))
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(paths))
	seen := map[string]string{}
	for _, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), upSuffix)
		version, name, ok := strings.Cut(base, "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("migration %s: want <version>_<name>%s", filepath.Base(p), upSuffix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %s used by %s and %s", version, prev, filepath.Base(p))
		}
		seen[version] = filepath.Base(p)
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// FindMigrationsDir looks for a migrations directory in the working
// directory and its parents.
func FindMigrationsDir() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := start
	for {
		p := filepath.Join(dir, "migrations")
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found from %s", start)
		}
		dir = parent
	}
}

// Migrate applies the migrations not yet recorded in schema_migrations, each
// in its own transaction, and returns the versions it applied.
func (s *Store) Migrate(ctx context.Context, migrations []Migration) ([]string, error) {
	if _, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return nil, err
	}
	applied := []string{}
	for _, m := range migrations {
		done, err := s.applyMigration(ctx, m)
		if err != nil {
			return applied, fmt.Errorf("migration %s_%s: %w", m.Version, m.Name, err)
		}
		if done {
			log.Info().Str("version", m.Version).Str("name", m.Name).Msg("migration applied")
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) (bool, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := tx.Exec(ctx, m.SQL, pgx.QueryExecModeSimpleProtocol); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
