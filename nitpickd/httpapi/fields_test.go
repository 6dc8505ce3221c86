package httpapi_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
)

func TestParseFields(t *testing.T) {
	t.Parallel()

	t.Run("Absent", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/", nil)
		fields, ok := httpapi.ParseFields(r)
		require.False(t, ok)
		require.Nil(t, fields)
	})

	t.Run("Single", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/?fields=id", nil)
		fields, ok := httpapi.ParseFields(r)
		require.True(t, ok)
		require.Equal(t, []string{"id"}, fields)
	})

	t.Run("Multiple", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/?fields=id,%20last_visit_ts", nil)
		fields, ok := httpapi.ParseFields(r)
		require.True(t, ok)
		require.Equal(t, []string{"id", "last_visit_ts"}, fields)
	})
}

func TestProjectFields(t *testing.T) {
	t.Parallel()

	type record struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	t.Run("Subset", func(t *testing.T) {
		t.Parallel()
		projected, err := httpapi.ProjectFields(record{ID: 7, Name: "x"}, []string{"id"})
		require.NoError(t, err)
		require.Len(t, projected, 1)
		require.JSONEq(t, "7", string(projected["id"]))
	})

	t.Run("UnknownIgnored", func(t *testing.T) {
		t.Parallel()
		projected, err := httpapi.ProjectFields(record{ID: 7}, []string{"id", "bogus"})
		require.NoError(t, err)
		require.Len(t, projected, 1)
		_, found := projected["bogus"]
		require.False(t, found)
	})
}
