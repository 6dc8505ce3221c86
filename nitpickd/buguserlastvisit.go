package nitpickd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/xerrors"

	"github.com/nitpickhq/nitpick/nitpickd/authz"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpickd/httpmw"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

// bugNotFoundError aborts a visit batch when an id does not resolve.
type bugNotFoundError struct {
	bugID int64
}

func (e bugNotFoundError) Error() string {
	return fmt.Sprintf("bug %d does not exist", e.bugID)
}

// notInvolvedError aborts a visit batch when the user holds no role on one
// of the bugs.
type notInvolvedError struct {
	bugID int64
}

func (e notInvolvedError) Error() string {
	return fmt.Sprintf("user is not involved in bug %d", e.bugID)
}

// postBugUserLastVisits marks a batch of bugs as visited now. The batch is
// all-or-nothing: every bug must resolve and the user must be involved in
// each one, otherwise the transaction rolls back and nothing is recorded.
func (api *API) postBugUserLastVisits(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nitpicksdk.UpdateBugUserLastVisitRequest
	if !httpapi.Read(ctx, rw, r, &req) {
		return
	}

	api.updateBugUserLastVisits(rw, r, req.IDs)
}

// postBugUserLastVisit is the single-bug route. The path id becomes the
// sole element of the batch.
func (api *API) postBugUserLastVisit(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bugID, err := strconv.ParseInt(chi.URLParam(r, "bug"), 10, 64)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusBadRequest, nitpicksdk.Response{
			Message: "Invalid bug ID.",
			Detail:  err.Error(),
		})
		return
	}

	api.updateBugUserLastVisits(rw, r, []int64{bugID})
}

func (api *API) updateBugUserLastVisits(rw http.ResponseWriter, r *http.Request, ids []int64) {
	ctx := r.Context()
	user := httpmw.User(r)

	cache := authz.NewVisibilityCache(api.Database)
	err := cache.Prime(ctx, user.ID, ids)
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	// One timestamp for the whole batch, so every record in the response
	// reports the identical visit time.
	now := dbtime.Time(api.Clock.Now().UTC())

	visits := make([]database.BugUserLastVisit, 0, len(ids))
	err = api.Database.InTx(func(tx database.Store) error {
		for _, id := range ids {
			bug, err := tx.GetBugByID(ctx, id)
			if xerrors.Is(err, sql.ErrNoRows) {
				return bugNotFoundError{bugID: id}
			}
			if err != nil {
				return xerrors.Errorf("get bug %d: %w", id, err)
			}
			watchers, err := tx.GetBugWatchers(ctx, bug.ID)
			if err != nil {
				return xerrors.Errorf("get bug %d watchers: %w", id, err)
			}
			if !authz.Involved(bug, watchers, user.ID) {
				return notInvolvedError{bugID: id}
			}
			visit, err := tx.UpsertBugUserLastVisit(ctx, database.UpsertBugUserLastVisitParams{
				UserID:      user.ID,
				BugID:       bug.ID,
				LastVisitAt: now,
			})
			if err != nil {
				return xerrors.Errorf("upsert last visit for bug %d: %w", id, err)
			}
			visits = append(visits, visit)
		}
		return nil
	}, nil)

	var notFound bugNotFoundError
	if xerrors.As(err, &notFound) {
		httpapi.Write(ctx, rw, http.StatusNotFound, nitpicksdk.Response{
			Message: "Bug does not exist.",
			Detail:  notFound.Error(),
		})
		return
	}
	var notInvolved notInvolvedError
	if xerrors.As(err, &notInvolved) {
		httpapi.Write(ctx, rw, http.StatusForbidden, nitpicksdk.Response{
			Message: "User is not involved in the bug.",
			Detail:  notInvolved.Error(),
		})
		return
	}
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusInternalServerError, nitpicksdk.Response{
			Message: "Failed to update last visits.",
			Detail:  err.Error(),
		})
		return
	}

	records := make([]nitpicksdk.BugUserLastVisit, 0, len(visits))
	for _, visit := range visits {
		records = append(records, convertVisit(visit))
	}
	api.writeVisitRecords(rw, r, records)
}

// getBugUserLastVisits resolves last-visit timestamps. With an "ids" query
// parameter, one record per id is returned in input order, with the
// timestamp absent for bugs never visited. Without ids, every recorded
// visit for the user is returned in store order.
func (api *API) getBugUserLastVisits(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := httpmw.User(r)

	ids, ok, err := parseIDsParam(r)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusBadRequest, nitpicksdk.Response{
			Message: "Invalid ids query parameter.",
			Detail:  err.Error(),
		})
		return
	}
	if !ok {
		visits, err := api.Database.GetBugUserLastVisitsByUserID(ctx, user.ID)
		if err != nil {
			httpapi.InternalServerError(rw, err)
			return
		}
		records := make([]nitpicksdk.BugUserLastVisit, 0, len(visits))
		for _, visit := range visits {
			records = append(records, convertVisit(visit))
		}
		api.writeVisitRecords(rw, r, records)
		return
	}

	api.readBugUserLastVisits(rw, r, ids)
}

// getBugUserLastVisit is the single-bug route of getBugUserLastVisits. It
// uses the point lookup instead of the batch query.
func (api *API) getBugUserLastVisit(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := httpmw.User(r)

	bugID, err := strconv.ParseInt(chi.URLParam(r, "bug"), 10, 64)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusBadRequest, nitpicksdk.Response{
			Message: "Invalid bug ID.",
			Detail:  err.Error(),
		})
		return
	}

	cache := authz.NewVisibilityCache(api.Database)
	err = cache.Prime(ctx, user.ID, []int64{bugID})
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	visit, err := api.Database.GetBugUserLastVisit(ctx, database.GetBugUserLastVisitParams{
		UserID: user.ID,
		BugID:  bugID,
	})
	if xerrors.Is(err, sql.ErrNoRows) {
		// Never visited: absent timestamp, not an error.
		api.writeVisitRecords(rw, r, []nitpicksdk.BugUserLastVisit{{BugID: bugID}})
		return
	}
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	api.writeVisitRecords(rw, r, []nitpicksdk.BugUserLastVisit{convertVisit(visit)})
}

func (api *API) readBugUserLastVisits(rw http.ResponseWriter, r *http.Request, ids []int64) {
	ctx := r.Context()
	user := httpmw.User(r)

	// Prime visibility in one query so downstream per-bug checks don't
	// fan out. The lookup below is scoped to the user's own records, so
	// it never returns another user's visits.
	cache := authz.NewVisibilityCache(api.Database)
	err := cache.Prime(ctx, user.ID, ids)
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	visits, err := api.Database.GetBugUserLastVisits(ctx, database.GetBugUserLastVisitsParams{
		UserID: user.ID,
		BugIDs: ids,
	})
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}
	byBugID := make(map[int64]database.BugUserLastVisit, len(visits))
	for _, visit := range visits {
		byBugID[visit.BugID] = visit
	}

	// One record per requested id, in input order. Bugs never visited get
	// an absent timestamp rather than an error.
	records := make([]nitpicksdk.BugUserLastVisit, 0, len(ids))
	for _, id := range ids {
		if visit, found := byBugID[id]; found {
			records = append(records, convertVisit(visit))
			continue
		}
		records = append(records, nitpicksdk.BugUserLastVisit{BugID: id})
	}
	api.writeVisitRecords(rw, r, records)
}

// writeVisitRecords renders visit records, narrowing each one to the
// caller-requested field subset when the "fields" parameter is present.
func (api *API) writeVisitRecords(rw http.ResponseWriter, r *http.Request, records []nitpicksdk.BugUserLastVisit) {
	ctx := r.Context()

	fields, ok := httpapi.ParseFields(r)
	if !ok {
		httpapi.Write(ctx, rw, http.StatusOK, records)
		return
	}

	projected := make([]map[string]json.RawMessage, 0, len(records))
	for _, record := range records {
		p, err := httpapi.ProjectFields(record, fields)
		if err != nil {
			httpapi.InternalServerError(rw, err)
			return
		}
		projected = append(projected, p)
	}
	httpapi.Write(ctx, rw, http.StatusOK, projected)
}

func parseIDsParam(r *http.Request) ([]int64, bool, error) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil, false, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false, xerrors.Errorf("parse id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func convertVisit(visit database.BugUserLastVisit) nitpicksdk.BugUserLastVisit {
	ts := visit.LastVisitAt.UTC().Format(nitpicksdk.LastVisitTimeFormat)
	return nitpicksdk.BugUserLastVisit{
		BugID:       visit.BugID,
		LastVisitTS: &ts,
	}
}
