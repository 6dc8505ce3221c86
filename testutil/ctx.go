package testutil

import (
	"context"
	"testing"
	"time"
)

// Context returns a context that cancels when the timeout elapses or the
// test ends, whichever comes first.
func Context(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
