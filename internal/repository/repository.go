package repository

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// queryable returns tx when the caller runs inside a transaction, db otherwise.
func queryable(db *sqlx.DB, tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return db
}

func affected(n int64, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// ErrNotFound is returned by services when a referenced row does not exist.
var ErrNotFound = errors.New("not found")
