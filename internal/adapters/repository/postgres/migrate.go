package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every up migration in name order. The statements are
// idempotent, so running it against an up to date database is harmless.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := execMigration(ctx, db, name); err != nil {
			return err
		}
	}
	return nil
}

// MigrateOne applies the single migration file whose name ends in
// "<name>.sql", e.g. "create_polls.up" or "000002_create_voters.down".
func MigrateOne(ctx context.Context, db *sql.DB, name string) (string, error) {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(name)))
	if err != nil {
		return "", fmt.Errorf("invalid migration name: %w", err)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return "", fmt.Errorf("failed to read migrations: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !pattern.MatchString(e.Name()) {
			continue
		}
		return e.Name(), execMigration(ctx, db, "migrations/"+e.Name())
	}
	return "", fmt.Errorf("migration file not found: %s", name)
}

func execMigration(ctx context.Context, db *sql.DB, path string) error {
	content, err := migrations.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", strings.TrimPrefix(path, "migrations/"), err)
	}
	return nil
}
