package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Handler runs queries against either a database or an open
// transaction. All access goes through the context variants so
// callers stay cancelable.
type Handler interface {
	Rebind(string) string

	SelectContext(context.Context, interface{}, string, ...interface{}) error
	GetContext(context.Context, interface{}, string, ...interface{}) error
	QueryxContext(context.Context, string, ...interface{}) (*sqlx.Rows, error)
	QueryRowxContext(context.Context, string, ...interface{}) *sqlx.Row
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

var (
	_ Handler = (*DB)(nil)
	_ Handler = (*Tx)(nil)
)
