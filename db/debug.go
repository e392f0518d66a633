package db

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

func ListEventsCLI(dbPath, kind string, limit int, w io.Writer) error {
	conn, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, err := RecentEvents(conn, kind, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

func PruneEventsCLI(dbPath string, olderThan time.Duration) (int64, error) {
	conn, err := OpenDB(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	return PruneEvents(conn, time.Now().Add(-olderThan))
}
