package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/pkg/logger"
)

//go:embed sql
var files embed.FS

// Migrator applies the embedded schema of one dialect and performs destructive resets.
type Migrator struct {
	dialect  string
	exec     func(ctx context.Context, query string, args ...any) error
	exists   func(ctx context.Context, version string) (bool, error)
	dropStmt func(table string) string
}

// NewPostgresMigrator creates a migrator running on a pgx pool
func NewPostgresMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{
		dialect: "postgres",
		exec: func(ctx context.Context, query string, args ...any) error {
			_, err := pool.Exec(ctx, query, args...)
			return err
		},
		exists: func(ctx context.Context, version string) (bool, error) {
			var exists bool
			err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
			return exists, err
		},
		dropStmt: func(table string) string {
			return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		},
	}
}

// NewSQLiteMigrator creates a migrator running on a database/sql sqlite handle
func NewSQLiteMigrator(db *sql.DB) *Migrator {
	return &Migrator{
		dialect: "sqlite",
		exec: func(ctx context.Context, query string, args ...any) error {
			_, err := db.ExecContext(ctx, query, args...)
			return err
		},
		exists: func(ctx context.Context, version string) (bool, error) {
			var n int
			err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&n)
			return n > 0, err
		},
		dropStmt: func(table string) string {
			return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		},
	}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	err := m.exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

func (m *Migrator) recordMigration(ctx context.Context, version string) error {
	query := `INSERT INTO schema_migrations (version) VALUES ($1)`
	if m.dialect == "sqlite" {
		query = `INSERT INTO schema_migrations (version) VALUES (?)`
	}
	if err := m.exec(ctx, query, version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// Apply executes every embedded migration of the dialect that has not been applied yet.
func (m *Migrator) Apply(ctx context.Context) error {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return err
	}

	dir := path.Join("sql", m.dialect)
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		// "001_init.sql" => "001"
		version := strings.Split(name, "_")[0]

		applied, err := m.exists(ctx, version)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			logger.Debug().Str("migration", name).Msg("Migration already applied, skipping")
			continue
		}

		content, err := files.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		if err := m.exec(ctx, string(content)); err != nil {
			return fmt.Errorf("error occurred during SQL migration %s: %w", name, err)
		}
		if err := m.recordMigration(ctx, version); err != nil {
			return err
		}
		logger.Info().Str("migration", name).Str("dialect", m.dialect).Msg("Migration applied")
	}
	return nil
}

// Reset drops every entity table, children first, then re-applies the schema.
func (m *Migrator) Reset(ctx context.Context) error {
	order, err := models.TopologicalOrder(models.Dependencies)
	if err != nil {
		return err
	}
	for i := len(order) - 1; i >= 0; i-- {
		if err := m.exec(ctx, m.dropStmt(order[i].Table())); err != nil {
			return fmt.Errorf("drop %s: %w", order[i].Table(), err)
		}
	}
	if err := m.exec(ctx, m.dropStmt("schema_migrations")); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	logger.Warn().Str("dialect", m.dialect).Msg("Store of record reset")
	return m.Apply(ctx)
}
