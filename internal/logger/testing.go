package logger

import (
	"io"
	"log/slog"
	"time"
)

// NewTestLogger returns a logger writing text records at every level to w.
func NewTestLogger(w io.Writer) Logger {
	return &moduleLogger{
		module: "test",
		logger: slog.New(newTextHandler(w, traceLevelValue, time.UTC)),
		level:  traceLevelValue,
	}
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return NewTestLogger(io.Discard)
}
