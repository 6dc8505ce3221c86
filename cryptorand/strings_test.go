package cryptorand_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nitpickhq/nitpick/cryptorand"
)

func TestString(t *testing.T) {
	t.Parallel()

	rs, err := cryptorand.String(10)
	require.NoError(t, err)
	require.Len(t, rs, 10)

	// Zero size is valid and returns an empty string.
	rs, err = cryptorand.String(0)
	require.NoError(t, err)
	require.Empty(t, rs)
}

func TestStringCharset(t *testing.T) {
	t.Parallel()

	rs, err := cryptorand.StringCharset(cryptorand.Numeric, 20)
	require.NoError(t, err)
	require.Len(t, rs, 20)
	for _, c := range rs {
		require.True(t, strings.ContainsRune(cryptorand.Numeric, c))
	}

	_, err = cryptorand.StringCharset("", 5)
	require.Error(t, err)
}
