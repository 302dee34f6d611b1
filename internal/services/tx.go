package services

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// inTx runs fn inside a transaction, rolling back on error or panic.
func inTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// timestamps are stored as RFC3339 UTC strings so SQL range comparisons stay
// plain string comparisons.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intDecimal(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
