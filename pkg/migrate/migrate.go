package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `create` writes new files; they are embedded at build time.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration files: the embedded set when dir is empty,
// otherwise the files on disk under dir.
func Source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes one of up, down or status against db.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		_, err = provider.Up(ctx)
	case "down":
		_, err = provider.Down(ctx)
	case "status":
		var statuses []*goose.MigrationStatus
		statuses, err = provider.Status(ctx)
		for _, s := range statuses {
			fmt.Printf("%-8s %d %s\n", s.State, s.Source.Version, s.Source.Path)
		}
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if _, err := provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if _, err := provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
