package db

import (
	"database/sql"
	"fmt"

	"github.com/thatsimonsguy/light-controller/internal/model"
)

// RecentEvents returns up to limit events, newest first. An empty kind matches every kind.
func RecentEvents(db *sql.DB, kind string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = db.Query(`SELECT id, kind, value, source, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = db.Query(`SELECT id, kind, value, source, created_at FROM events WHERE kind = ? ORDER BY id DESC LIMIT ?`, kind, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.Value, &e.Source, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
