package nitpickd_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coder/quartz"

	"github.com/nitpickhq/nitpick/nitpickd/database/dbmem"
	"github.com/nitpickhq/nitpick/nitpickd/nitpickdtest"
	"github.com/nitpickhq/nitpick/nitpicksdk"
	"github.com/nitpickhq/nitpick/testutil"
)

func TestUpdateBugUserLastVisits(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		ids := make([]int64, 0, 3)
		for i := 0; i < 3; i++ {
			bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
				Title: "flaky test",
			})
			require.NoError(t, err)
			ids = append(ids, bug.ID)
		}

		visits, err := client.UpdateBugUserLastVisits(ctx, ids)
		require.NoError(t, err)
		require.Len(t, visits, len(ids))
		for i, visit := range visits {
			require.Equal(t, ids[i], visit.BugID)
			require.NotNil(t, visit.LastVisitTS)
			// Every record in one batch carries the same timestamp.
			require.Equal(t, *visits[0].LastVisitTS, *visit.LastVisitTS)
		}

		got, err := client.BugUserLastVisits(ctx, ids)
		require.NoError(t, err)
		require.Len(t, got, len(ids))
		for i, visit := range got {
			require.Equal(t, ids[i], visit.BugID)
			require.NotNil(t, visit.LastVisitTS)
			require.Equal(t, *visits[i].LastVisitTS, *visit.LastVisitTS)
		}
	})

	t.Run("EmptyIDs", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.UpdateBugUserLastVisits(ctx, nil)
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode())
		require.NotEmpty(t, apiErr.Validations)
		require.Equal(t, "ids", apiErr.Validations[0].Field)
	})

	t.Run("NotFound", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "exists",
		})
		require.NoError(t, err)

		_, err = client.UpdateBugUserLastVisits(ctx, []int64{bug.ID, 999999})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode())

		// The whole batch rolled back, including the bug that exists.
		got, err := client.BugUserLastVisits(ctx, []int64{bug.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Nil(t, got[0].LastVisitTS)
	})

	t.Run("NotInvolved", func(t *testing.T) {
		t.Parallel()
		db := dbmem.New()
		client := nitpickdtest.New(t, &nitpickdtest.Options{Database: db})
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		other, otherUser := nitpickdtest.CreateAnotherUser(t, client, db)

		watched, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title:      "watched by other",
			WatcherIDs: []uuid.UUID{otherUser.ID},
		})
		require.NoError(t, err)
		unrelated, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "not theirs",
		})
		require.NoError(t, err)

		_, err = other.UpdateBugUserLastVisits(ctx, []int64{watched.ID, unrelated.ID})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode())

		// Atomicity: the watched bug processed before the failing one must
		// not have a visit recorded either.
		got, err := other.BugUserLastVisits(ctx, []int64{watched.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Nil(t, got[0].LastVisitTS)
	})

	t.Run("Overwrite", func(t *testing.T) {
		t.Parallel()
		clock := quartz.NewMock(t)
		client := nitpickdtest.New(t, &nitpickdtest.Options{Clock: clock})
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "visited twice",
		})
		require.NoError(t, err)

		first, err := client.UpdateBugUserLastVisit(ctx, bug.ID)
		require.NoError(t, err)
		require.Len(t, first, 1)

		clock.Advance(time.Minute)

		second, err := client.UpdateBugUserLastVisit(ctx, bug.ID)
		require.NoError(t, err)
		require.Len(t, second, 1)
		require.NotEqual(t, *first[0].LastVisitTS, *second[0].LastVisitTS)

		// Only the most recent timestamp survives.
		got, err := client.BugUserLastVisit(ctx, bug.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, *second[0].LastVisitTS, *got[0].LastVisitTS)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.UpdateBugUserLastVisits(ctx, []int64{1})
		apiErr, ok := nitpicksdk.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	})
}

func TestGetBugUserLastVisits(t *testing.T) {
	t.Parallel()

	t.Run("AllVisits", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		var visited []int64
		for i := 0; i < 3; i++ {
			bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
				Title: "bug",
			})
			require.NoError(t, err)
			// Leave the middle bug unvisited.
			if i == 1 {
				continue
			}
			visited = append(visited, bug.ID)
		}
		_, err := client.UpdateBugUserLastVisits(ctx, visited)
		require.NoError(t, err)

		got, err := client.BugUserLastVisits(ctx, nil)
		require.NoError(t, err)
		require.Len(t, got, len(visited))
		for i, visit := range got {
			require.Equal(t, visited[i], visit.BugID)
			require.NotNil(t, visit.LastVisitTS)
		}
	})

	t.Run("AbsentTimestamp", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "never opened",
		})
		require.NoError(t, err)

		got, err := client.BugUserLastVisits(ctx, []int64{bug.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, bug.ID, got[0].BugID)
		require.Nil(t, got[0].LastVisitTS)
	})

	t.Run("InputOrder", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		ids := make([]int64, 0, 3)
		for i := 0; i < 3; i++ {
			bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
				Title: "bug",
			})
			require.NoError(t, err)
			ids = append(ids, bug.ID)
		}
		_, err := client.UpdateBugUserLastVisits(ctx, ids)
		require.NoError(t, err)

		// Request in reverse and expect the response to match.
		reversed := []int64{ids[2], ids[0], ids[1]}
		got, err := client.BugUserLastVisits(ctx, reversed)
		require.NoError(t, err)
		require.Len(t, got, len(reversed))
		for i, visit := range got {
			require.Equal(t, reversed[i], visit.BugID)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.BugUserLastVisits(ctx, []int64{1})
		apiErr, ok := nitpicksdk.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	})
}

func TestBugUserLastVisitFields(t *testing.T) {
	t.Parallel()

	t.Run("IDOnly", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "projected",
		})
		require.NoError(t, err)

		visits, err := client.UpdateBugUserLastVisits(ctx, []int64{bug.ID}, "id")
		require.NoError(t, err)
		require.Len(t, visits, 1)
		require.Equal(t, bug.ID, visits[0].BugID)
		require.Nil(t, visits[0].LastVisitTS)

		got, err := client.BugUserLastVisits(ctx, []int64{bug.ID}, "id")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, bug.ID, got[0].BugID)
		require.Nil(t, got[0].LastVisitTS)
	})

	t.Run("TimestampOnly", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
			Title: "projected",
		})
		require.NoError(t, err)

		visits, err := client.UpdateBugUserLastVisits(ctx, []int64{bug.ID}, "last_visit_ts")
		require.NoError(t, err)
		require.Len(t, visits, 1)
		require.Zero(t, visits[0].BugID)
		require.NotNil(t, visits[0].LastVisitTS)
	})
}

func TestBugUserLastVisitSingleRoute(t *testing.T) {
	t.Parallel()

	client := nitpickdtest.New(t, nil)
	_ = nitpickdtest.CreateFirstUser(t, client)
	ctx := testutil.Context(t, testutil.WaitShort)

	bug, err := client.CreateBug(ctx, nitpicksdk.CreateBugRequest{
		Title: "single",
	})
	require.NoError(t, err)

	// Before any visit, the point lookup reports an absent timestamp.
	got, err := client.BugUserLastVisit(ctx, bug.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, bug.ID, got[0].BugID)
	require.Nil(t, got[0].LastVisitTS)

	visits, err := client.UpdateBugUserLastVisit(ctx, bug.ID)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.Equal(t, bug.ID, visits[0].BugID)

	got, err = client.BugUserLastVisit(ctx, bug.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, *visits[0].LastVisitTS, *got[0].LastVisitTS)

	_, err = client.UpdateBugUserLastVisit(ctx, 424242)
	apiErr, ok := nitpicksdk.AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode())
}
