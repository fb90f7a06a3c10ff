package db

import (
	"context"
	"database/sql"
	"time"
)

// Database is the subset of a SQL handle the repositories depend on.
type Database interface {
	Querier
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
	BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error)
	Ping(ctx context.Context) error
	Close() error
	Stats() Stats
}

// Transaction is a Querier bound to one database transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Rows iterates over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an Exec.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// TxOptions mirrors sql.TxOptions without leaking database/sql into callers.
type TxOptions struct {
	ReadOnly       bool
	Serializable   bool
	ReadCommitted  bool
	RepeatableRead bool
}

// Stats reports connection pool usage.
type Stats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// ConvertTxOptions maps TxOptions onto database/sql options.
func ConvertTxOptions(opts *TxOptions) *sql.TxOptions {
	if opts == nil {
		return nil
	}
	out := &sql.TxOptions{ReadOnly: opts.ReadOnly}
	switch {
	case opts.Serializable:
		out.Isolation = sql.LevelSerializable
	case opts.RepeatableRead:
		out.Isolation = sql.LevelRepeatableRead
	case opts.ReadCommitted:
		out.Isolation = sql.LevelReadCommitted
	}
	return out
}

// ConvertSQLStats maps sql.DBStats onto Stats.
func ConvertSQLStats(s sql.DBStats) Stats {
	return Stats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}
}
