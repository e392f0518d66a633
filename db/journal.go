package db

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/internal/model"
)

// Journal records every accepted mode change. It is an audit trail only; nothing reads the
// outputs back from it.
type Journal struct {
	db     *sql.DB
	source string
	now    func() time.Time
}

func NewJournal(db *sql.DB, source string) *Journal {
	return &Journal{db: db, source: source, now: time.Now}
}

func (j *Journal) LightModeChanged(mode model.LightMode) {
	j.record(EventLightMode, mode.String())
}

func (j *Journal) TurnModeChanged(mode model.TurnMode) {
	j.record(EventTurnMode, mode.String())
}

func (j *Journal) record(kind, value string) {
	if err := RecordEvent(j.db, kind, value, j.source, j.now()); err != nil {
		log.Error().Err(err).Str("kind", kind).Str("value", value).Msg("Failed to journal mode change")
	}
}
