package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const (
	EventLightMode = "light_mode"
	EventTurnMode  = "turn_mode"
)

// TimeLayout has fixed-width fractions so created_at sorts as text.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	value TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at);
`

// OpenDB opens the journal at path and applies the schema. ":memory:" works for tests.
func OpenDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serialises writers anyway; one connection also keeps :memory: databases shared
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Event journal opened")
	return conn, nil
}
