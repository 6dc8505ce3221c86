package nitpickd_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nitpickhq/nitpick/nitpickd/database/dbmem"
	"github.com/nitpickhq/nitpick/nitpickd/nitpickdtest"
	"github.com/nitpickhq/nitpick/nitpicksdk"
	"github.com/nitpickhq/nitpick/testutil"
)

func TestCreateBug(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		user := nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title:       "renderer crashes on resize",
			Description: "only reproduces on wayland",
		})
		require.NoError(t, err)
		require.NotZero(t, bug.ID)
		require.Equal(t, user.ID, bug.ReporterID)
	})

	t.Run("MissingTitle", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode())
	})
}

func TestGetBug(t *testing.T) {
	t.Parallel()

	t.Run("Reporter", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		created, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title:   "private to reporter",
			Private: true,
		})
		require.NoError(t, err)

		bug, err := client.Bug(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, bug.ID)
	})

	t.Run("PrivateHidden", func(t *testing.T) {
		t.Parallel()
		db := dbmem.New()
		client := nitpickdtest.New(t, &nitpickdtest.Options{Database: db})
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		created, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title:   "secret",
			Private: true,
		})
		require.NoError(t, err)

		other, _ := nitpickdtest.CreateAnotherUser(t, client, db)
		_, err = other.Bug(ctx, created.ID)
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		// Private bugs are indistinguishable from missing ones.
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode())
	})

	t.Run("PrivateVisibleToWatcher", func(t *testing.T) {
		t.Parallel()
		db := dbmem.New()
		client := nitpickdtest.New(t, &nitpickdtest.Options{Database: db})
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		other, otherUser := nitpickdtest.CreateAnotherUser(t, client, db)
		created, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title:      "secret but watched",
			Private:    true,
			WatcherIDs: []uuid.UUID{otherUser.ID},
		})
		require.NoError(t, err)

		bug, err := other.Bug(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, bug.ID)
	})

	t.Run("PublicVisibleToAnyone", func(t *testing.T) {
		t.Parallel()
		db := dbmem.New()
		client := nitpickdtest.New(t, &nitpickdtest.Options{Database: db})
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		created, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "public",
		})
		require.NoError(t, err)

		other, _ := nitpickdtest.CreateAnotherUser(t, client, db)
		bug, err := other.Bug(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, bug.ID)
	})
}
