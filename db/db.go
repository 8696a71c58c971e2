// Package db opens the relational store behind the menu service and hides the
// differences between the PostgreSQL and SQLite drivers behind one small interface.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing, whatever the driver.
var ErrNoRows = errors.New("db: no rows in result set")

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is satisfied by both the pool and an open transaction.
// SQL uses $1..$n placeholders, numbered in order of first appearance.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

type DB interface {
	Querier
	// InTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
	Dialect() string
	Close()
}

// Open picks the driver from the connection string: sqlite://path and file:path open
// SQLite, anything else is handed to pgx.
func Open(ctx context.Context, connStr string) (DB, error) {
	var path string
	switch {
	case connStr == "":
		return nil, fmt.Errorf("empty connection string")
	case strings.HasPrefix(connStr, "sqlite://"):
		path = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "file:"):
		path = connStr
	default:
		pg, err := OpenPostgres(ctx, connStr)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return lite, nil
}
