package testutil_test

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"cdr.dev/slog"

	"github.com/nitpickhq/nitpick/testutil"
)

func TestIgnoreLoggedError(t *testing.T) {
	t.Parallel()

	entry := func(err error) slog.SinkEntry {
		return slog.SinkEntry{
			Fields: slog.M(slog.Error(err)),
		}
	}

	require.True(t, testutil.IgnoreLoggedError(entry(context.Canceled)))
	require.True(t, testutil.IgnoreLoggedError(entry(context.DeadlineExceeded)))
	// Postgres reports canceled queries with its own error code rather
	// than wrapping context.Canceled.
	require.True(t, testutil.IgnoreLoggedError(entry(xerrors.Errorf("get bug: %w", &pq.Error{Code: "57014"}))))

	require.False(t, testutil.IgnoreLoggedError(entry(xerrors.New("connection refused"))))
	require.False(t, testutil.IgnoreLoggedError(slog.SinkEntry{}))
}
