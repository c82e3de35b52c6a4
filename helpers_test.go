//go:build unit_test

package main

import (
	"log/slog"
)

var testLogger *slog.Logger

func newTestLogger() *slog.Logger {
	if testLogger == nil {
		testLogger = NewLogger(slog.LevelDebug, true)
	}
	return testLogger
}
