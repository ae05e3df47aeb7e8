package migrate

import (
	"context"

	"github.com/refgate/refgate/pkg/db"
)

const (
	createTablesName    = "create tables"
	createTablesVersion = 1
)

var createTables = Migration{
	Name:    createTablesName,
	Version: createTablesVersion,
	Migrate: func(ctx context.Context, tx *db.Tx) error {
		var schema string
		switch tx.DriverName() {
		case "sqlite", "sqlite3":
			schema = `
CREATE TABLE IF NOT EXISTS ref_updates (
	id TEXT PRIMARY KEY,
	repo TEXT NOT NULL,
	ref_name TEXT NOT NULL,
	old_rev TEXT NOT NULL,
	new_rev TEXT NOT NULL,
	ref_kind TEXT NOT NULL,
	pusher TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ref_updates_repo ON ref_updates (repo, created_at);

CREATE TABLE IF NOT EXISTS deliveries (
	id TEXT PRIMARY KEY,
	ref_update_id TEXT NOT NULL REFERENCES ref_updates (id),
	kind TEXT NOT NULL,
	destination TEXT NOT NULL,
	success INTEGER NOT NULL,
	detail TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_ref_update ON deliveries (ref_update_id);
`
		case "postgres":
			schema = `
CREATE TABLE IF NOT EXISTS ref_updates (
	id UUID PRIMARY KEY,
	repo TEXT NOT NULL,
	ref_name TEXT NOT NULL,
	old_rev TEXT NOT NULL,
	new_rev TEXT NOT NULL,
	ref_kind TEXT NOT NULL,
	pusher TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ref_updates_repo ON ref_updates (repo, created_at);

CREATE TABLE IF NOT EXISTS deliveries (
	id UUID PRIMARY KEY,
	ref_update_id UUID NOT NULL REFERENCES ref_updates (id),
	kind TEXT NOT NULL,
	destination TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	detail TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_ref_update ON deliveries (ref_update_id);
`
		}
		_, err := tx.ExecContext(ctx, schema)
		return err
	},
	Rollback: func(ctx context.Context, tx *db.Tx) error {
		_, err := tx.ExecContext(ctx, `
DROP TABLE IF EXISTS deliveries;
DROP TABLE IF EXISTS ref_updates;
`)
		return err
	},
}
