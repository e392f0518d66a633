package db

import (
	"database/sql"
	"fmt"
	"time"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func RecordEvent(db *sql.DB, kind, value, source string, at time.Time) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := RecordEventWithTx(tx, kind, value, source, at); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func RecordEventWithTx(tx *sql.Tx, kind, value, source string, at time.Time) error {
	_, err := tx.Exec(`INSERT INTO events (kind, value, source, created_at) VALUES (?, ?, ?, ?)`,
		kind, value, source, at.UTC().Format(TimeLayout))
	if err != nil {
		return fmt.Errorf("insert %s event: %w", kind, err)
	}
	return nil
}

// PruneEvents deletes events older than before and returns how many went.
func PruneEvents(db *sql.DB, before time.Time) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM events WHERE created_at < ?`, before.UTC().Format(TimeLayout))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune events: %w", err)
	}
	if err := CommitTransaction(tx); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
