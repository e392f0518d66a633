package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init points the global logger at path, or at a console writer on stderr when path is empty.
func Init(level zerolog.Level, path string) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		out = zerolog.MultiLevelWriter(logFile)
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
}
