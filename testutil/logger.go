package testutil

import (
	"testing"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/slogtest"

	"github.com/nitpickhq/nitpick/nitpickd/database"
)

// Logger returns a "standard" testing logger, with debug level and common
// flaky errors ignored.
func Logger(t testing.TB) slog.Logger {
	return slogtest.Make(
		t, &slogtest.Options{IgnoreErrorFn: IgnoreLoggedError},
	).Leveled(slog.LevelDebug)
}

func IgnoreLoggedError(entry slog.SinkEntry) bool {
	err, ok := slogtest.FindFirstError(entry)
	if !ok {
		return false
	}
	// Canceled queries usually happen while tests shut down; ignoring them
	// reduces flakiness.
	return database.IsQueryCanceledError(err)
}
