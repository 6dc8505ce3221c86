package testutil

import "time"

// Constants for timing out operations in tests. Balance opposing goals of
// not slowing tests down needlessly and avoiding flakes on slow CI runners.
const (
	WaitShort  = 10 * time.Second
	WaitMedium = 15 * time.Second
	WaitLong   = 25 * time.Second
)
