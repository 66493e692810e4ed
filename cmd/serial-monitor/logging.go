package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging points the global logger at stderr and, when logFile is set,
// a rotating file. The returned func closes the file.
func setupLogging(stderr io.Writer, logFile string, debug bool) func() {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}}

	var rotator *lumberjack.Logger
	if logFile != "" {
		rotator = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    1,
			MaxBackups: 2,
		}
		writers = append(writers, rotator)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	return func() {
		if rotator != nil {
			_ = rotator.Close()
		}
	}
}
