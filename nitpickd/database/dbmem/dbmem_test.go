package dbmem_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbmem"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/testutil"
)

func TestInTxRollback(t *testing.T) {
	t.Parallel()

	db := dbmem.New()
	ctx := testutil.Context(t, testutil.WaitShort)
	userID := uuid.New()

	bug, err := db.InsertBug(ctx, database.InsertBugParams{
		Title:      "bug",
		ReporterID: userID,
	})
	require.NoError(t, err)

	failure := xerrors.New("boom")
	err = db.InTx(func(tx database.Store) error {
		_, err := tx.UpsertBugUserLastVisit(ctx, database.UpsertBugUserLastVisitParams{
			UserID:      userID,
			BugID:       bug.ID,
			LastVisitAt: dbtime.Now(),
		})
		require.NoError(t, err)
		return failure
	}, nil)
	require.ErrorIs(t, err, failure)

	// The write inside the failed transaction must not be observable.
	_, err = db.GetBugUserLastVisit(ctx, database.GetBugUserLastVisitParams{
		UserID: userID,
		BugID:  bug.ID,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInTxCommit(t *testing.T) {
	t.Parallel()

	db := dbmem.New()
	ctx := testutil.Context(t, testutil.WaitShort)
	userID := uuid.New()

	bug, err := db.InsertBug(ctx, database.InsertBugParams{
		Title:      "bug",
		ReporterID: userID,
	})
	require.NoError(t, err)

	now := dbtime.Now()
	err = db.InTx(func(tx database.Store) error {
		_, err := tx.UpsertBugUserLastVisit(ctx, database.UpsertBugUserLastVisitParams{
			UserID:      userID,
			BugID:       bug.ID,
			LastVisitAt: now,
		})
		return err
	}, nil)
	require.NoError(t, err)

	visit, err := db.GetBugUserLastVisit(ctx, database.GetBugUserLastVisitParams{
		UserID: userID,
		BugID:  bug.ID,
	})
	require.NoError(t, err)
	require.True(t, visit.LastVisitAt.Equal(now))
}

func TestUpsertOverwrites(t *testing.T) {
	t.Parallel()

	db := dbmem.New()
	ctx := testutil.Context(t, testutil.WaitShort)
	userID := uuid.New()

	bug, err := db.InsertBug(ctx, database.InsertBugParams{
		Title:      "bug",
		ReporterID: userID,
	})
	require.NoError(t, err)

	first := dbtime.Now()
	_, err = db.UpsertBugUserLastVisit(ctx, database.UpsertBugUserLastVisitParams{
		UserID:      userID,
		BugID:       bug.ID,
		LastVisitAt: first,
	})
	require.NoError(t, err)

	second := first.Add(time.Minute)
	_, err = db.UpsertBugUserLastVisit(ctx, database.UpsertBugUserLastVisitParams{
		UserID:      userID,
		BugID:       bug.ID,
		LastVisitAt: second,
	})
	require.NoError(t, err)

	visits, err := db.GetBugUserLastVisitsByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.True(t, visits[0].LastVisitAt.Equal(second))
}

func TestInsertUserUniqueEmail(t *testing.T) {
	t.Parallel()

	db := dbmem.New()
	ctx := testutil.Context(t, testutil.WaitShort)

	_, err := db.InsertUser(ctx, database.InsertUserParams{
		ID:    uuid.New(),
		Email: "dup@example.com",
	})
	require.NoError(t, err)

	_, err = db.InsertUser(ctx, database.InsertUserParams{
		ID:    uuid.New(),
		Email: "DUP@example.com",
	})
	require.True(t, database.IsUniqueViolation(err))
}
