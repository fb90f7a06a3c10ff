package db

import (
	"context"
	"database/sql"
	"errors"
)

// Querier is the statement surface shared by Database and Transaction.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
}

// GetQuerier prefers tx over database.
func GetQuerier(database Database, tx Transaction) Querier {
	if tx != nil {
		return tx
	}
	return database
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ExpectAffected returns notFound when an update matched no row.
func ExpectAffected(res Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// NullableString maps "" to SQL NULL.
func NullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
