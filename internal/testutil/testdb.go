// Package testutil provides a Postgres-backed store for tests that need a
// real database. Tests skip when TEST_POSTGRES_DSN is unset.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"botdash/internal/config"
	"botdash/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// OpenTestStore returns a store bound to a fresh schema with every migration
// applied. The schema is dropped by the returned cleanup.
func OpenTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx := context.Background()
	schema := strings.ToLower(fmt.Sprintf("%s_%d", cfg.SchemaPrefix, time.Now().UnixNano()))
	if err := execSchemaDDL(ctx, cfg.TestPostgresDSN, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	drop := func() { _ = execSchemaDDL(ctx, cfg.TestPostgresDSN, "DROP SCHEMA %s CASCADE", schema) }

	st, err := store.New(WithSearchPath(cfg.TestPostgresDSN, schema))
	if err != nil {
		drop()
		t.Fatalf("open store: %v", err)
	}
	dir, err := store.FindMigrationsDir()
	if err == nil {
		var migrations []store.Migration
		if migrations, err = store.LoadMigrations(dir); err == nil {
			_, err = st.Migrate(ctx, migrations)
		}
	}
	if err != nil {
		st.Close()
		drop()
		t.Fatalf("migrate %s: %v", schema, err)
	}
	return st, func() {
		st.Close()
		drop()
	}
}

// WithSearchPath pins every pooled connection of dsn to schema.
func WithSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func execSchemaDDL(ctx context.Context, dsn, format, schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("schema %q does not match %s", schema, schemaNamePattern)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}

// SeedInstance creates a bot template and one instance owned by userID, plus
// the given number of bets spaced a minute apart, oldest first.
func SeedInstance(t *testing.T, st *store.Store, userID string, bets int) *store.BotInstance {
	t.Helper()
	ctx := context.Background()
	bot, err := st.CreateBot(ctx, "bot-"+userID, "seeded", store.BotTypeTrading, "", nil)
	if err != nil {
		t.Fatalf("seed bot: %v", err)
	}
	in, err := st.CreateInstance(ctx, userID, bot.ID, "seeded", nil)
	if err != nil {
		t.Fatalf("seed instance: %v", err)
	}
	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < bets; i++ {
		_, err := st.InsertBet(ctx, store.Bet{
			BotInstanceID: in.ID,
			TipID:         fmt.Sprintf("tip-%d", i),
			Tip:           fmt.Sprintf("Bet%%20%d", i),
			Stake:         float64(i + 1),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed bet: %v", err)
		}
	}
	return in
}

// SeedUser inserts a directory entry for id with the given role.
func SeedUser(t *testing.T, st *store.Store, id, role string) *store.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), id, "User "+id, id+"@example.com", role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
