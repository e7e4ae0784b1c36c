package main

import (
	"fmt"
	"log/slog"
	"os"
)

var logger *slog.Logger

// ResolveLogLevel parses a level name as slog does: debug, info, warn or
// error in any case, optionally with an offset such as warn+2.
func ResolveLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
	return l, nil
}

// InitLogger installs a text logger on stderr as the process default, so
// library packages logging through slog share its level.
func InitLogger(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
