// Package sqlc holds the SQL statements of the images table and the typed
// wrappers around them, in the shape sqlc generates for the rest of the codebase.
package sqlc

import (
	"context"
	"database/sql"
)

// DBTX is the single statement-execution contract shared by *sql.DB and *sql.Tx.
// All statements use positional ? parameters.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}
