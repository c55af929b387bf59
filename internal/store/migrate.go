// migrate.go -- embedded SQL migrations, applied at startup.
package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

// Migrate applies every pending *.sql file in migrationsFS, in filename order.
// Each file runs in its own transaction together with its schema_migrations row,
// so a failed file leaves no trace. Files already recorded are skipped.
func (s *PostgresStore) Migrate(ctx context.Context, migrationsFS fs.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	files, err := fs.Glob(migrationsFS, "*.sql")
	if err != nil {
		return fmt.Errorf("listing migration files: %w", err)
	}
	sort.Strings(files)

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, name := range files {
		if applied[name] {
			slog.Debug("migration already applied, skipping", "version", name)
			continue
		}
		if err := s.applyMigration(ctx, migrationsFS, name); err != nil {
			return err
		}
		slog.Info("migration applied", "version", name)
	}

	return nil
}

// appliedMigrations returns the set of versions recorded in schema_migrations.
func (s *PostgresStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// applyMigration runs one file and records it, atomically.
func (s *PostgresStore) applyMigration(ctx context.Context, migrationsFS fs.FS, name string) error {
	sql, err := fs.ReadFile(migrationsFS, name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", name, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", name, err)
	}
	// No-op after a successful Commit
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("executing migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return fmt.Errorf("recording migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %s: %w", name, err)
	}
	return nil
}
