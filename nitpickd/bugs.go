package nitpickd

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nitpickhq/nitpick/nitpickd/authz"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpickd/httpmw"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

func (api *API) postBug(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := httpmw.User(r)

	var req nitpicksdk.CreateBugRequest
	if !httpapi.Read(ctx, rw, r, &req) {
		return
	}

	now := dbtime.Now()
	var bug database.Bug
	var watchers []database.BugWatcher
	err := api.Database.InTx(func(tx database.Store) error {
		var err error
		bug, err = tx.InsertBug(ctx, database.InsertBugParams{
			Title:       req.Title,
			Description: req.Description,
			ReporterID:  user.ID,
			AssigneeID: uuid.NullUUID{
				UUID:  uuidOrNil(req.AssigneeID),
				Valid: req.AssigneeID != nil,
			},
			Private:   req.Private,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		for _, watcherID := range req.WatcherIDs {
			watcher, err := tx.InsertBugWatcher(ctx, database.InsertBugWatcherParams{
				BugID:  bug.ID,
				UserID: watcherID,
			})
			if err != nil {
				return err
			}
			watchers = append(watchers, watcher)
		}
		return nil
	}, nil)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusInternalServerError, nitpicksdk.Response{
			Message: "Failed to create bug.",
			Detail:  err.Error(),
		})
		return
	}

	httpapi.Write(ctx, rw, http.StatusCreated, convertBug(bug, watchers))
}

func (api *API) getBug(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := httpmw.User(r)
	bug := httpmw.BugParam(r)

	cache := authz.NewVisibilityCache(api.Database)
	err := cache.Prime(ctx, user.ID, []int64{bug.ID})
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}
	if !cache.Visible(bug.ID) {
		// Not revealing whether the bug exists.
		httpapi.ResourceNotFound(rw)
		return
	}

	watchers, err := api.Database.GetBugWatchers(ctx, bug.ID)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusInternalServerError, nitpicksdk.Response{
			Message: "Failed to get bug watchers.",
			Detail:  err.Error(),
		})
		return
	}

	httpapi.Write(ctx, rw, http.StatusOK, convertBug(bug, watchers))
}

func uuidOrNil(u *uuid.UUID) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return *u
}

func convertBug(bug database.Bug, watchers []database.BugWatcher) nitpicksdk.Bug {
	sdkBug := nitpicksdk.Bug{
		ID:          bug.ID,
		Title:       bug.Title,
		Description: bug.Description,
		ReporterID:  bug.ReporterID,
		Private:     bug.Private,
		CreatedAt:   bug.CreatedAt,
		UpdatedAt:   bug.UpdatedAt,
	}
	if bug.AssigneeID.Valid {
		assignee := bug.AssigneeID.UUID
		sdkBug.AssigneeID = &assignee
	}
	for _, watcher := range watchers {
		sdkBug.WatcherIDs = append(sdkBug.WatcherIDs, watcher.UserID)
	}
	return sdkBug
}
