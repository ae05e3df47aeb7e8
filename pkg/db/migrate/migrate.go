// Package migrate manages the audit database schema.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/refgate/refgate/pkg/db"
)

// MigrateFunc is a function that executes a migration.
type MigrateFunc func(ctx context.Context, tx *db.Tx) error //nolint:revive

// Migration is a struct that contains the name of the migration and the
// function to execute it.
type Migration struct {
	Version  int64
	Name     string
	Migrate  MigrateFunc
	Rollback MigrateFunc
}

// Migrations is a database model to store migrations.
type Migrations struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Version int64  `db:"version"`
}

func (Migrations) schema(driverName string) string {
	switch driverName {
	case "sqlite", "sqlite3":
		return `CREATE TABLE IF NOT EXISTS migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				version INTEGER NOT NULL UNIQUE
			);
		`
	case "postgres":
		return `CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			version INTEGER NOT NULL UNIQUE
		);
	`
	default:
		panic("unknown driver")
	}
}

// Migrate runs the migrations that have not been applied yet.
func Migrate(ctx context.Context, d *db.DB) error {
	return d.TransactionContext(ctx, func(tx *db.Tx) error {
		if _, err := tx.ExecContext(ctx, Migrations{}.schema(d.DriverName())); err != nil {
			return fmt.Errorf("create migrations table: %w", err)
		}

		var current Migrations
		if err := tx.GetContext(ctx, &current,
			tx.Rebind("SELECT * FROM migrations ORDER BY version DESC LIMIT 1"),
		); err != nil && !errors.Is(db.WrapError(err), db.ErrRecordNotFound) {
			return err
		}

		for _, m := range migrations {
			if m.Version <= current.Version {
				continue
			}
			if err := m.Migrate(ctx, tx); err != nil {
				return fmt.Errorf("migration %q: %w", m.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				tx.Rebind("INSERT INTO migrations (name, version) VALUES (?, ?)"),
				m.Name, m.Version,
			); err != nil {
				return err
			}
		}

		return nil
	})
}
