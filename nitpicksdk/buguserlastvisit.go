package nitpicksdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// LastVisitTimeFormat is the wire format for last-visit timestamps.
const LastVisitTimeFormat = time.RFC3339

// BugUserLastVisit is the per-bug visit record for the authenticated user.
// LastVisitTS is nil when no visit has been recorded, and fields are
// omitted entirely when the caller restricts the response with the
// "fields" query parameter.
type BugUserLastVisit struct {
	BugID       int64   `json:"id,omitempty"`
	LastVisitTS *string `json:"last_visit_ts,omitempty"`
}

// LastVisit parses LastVisitTS. The zero time is returned when no visit
// has been recorded.
func (v BugUserLastVisit) LastVisit() (time.Time, error) {
	if v.LastVisitTS == nil {
		return time.Time{}, nil
	}
	return time.Parse(LastVisitTimeFormat, *v.LastVisitTS)
}

type UpdateBugUserLastVisitRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func fieldsParam(fields []string) RequestOption {
	return WithQueryParam("fields", strings.Join(fields, ","))
}

// UpdateBugUserLastVisits marks every given bug as visited now. The whole
// batch fails if the user is not involved in any one of the bugs; on
// success every record carries the same timestamp, in input order.
func (c *Client) UpdateBugUserLastVisits(ctx context.Context, ids []int64, fields ...string) ([]BugUserLastVisit, error) {
	res, err := c.Request(ctx, http.MethodPost, "/api/v2/bug_user_last_visit",
		UpdateBugUserLastVisitRequest{IDs: ids}, fieldsParam(fields))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, ReadBodyAsError(res)
	}
	var visits []BugUserLastVisit
	return visits, json.NewDecoder(res.Body).Decode(&visits)
}

// UpdateBugUserLastVisit is the single-bug form of UpdateBugUserLastVisits.
func (c *Client) UpdateBugUserLastVisit(ctx context.Context, bugID int64, fields ...string) ([]BugUserLastVisit, error) {
	res, err := c.Request(ctx, http.MethodPost,
		fmt.Sprintf("/api/v2/bug_user_last_visit/%d", bugID), nil, fieldsParam(fields))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, ReadBodyAsError(res)
	}
	var visits []BugUserLastVisit
	return visits, json.NewDecoder(res.Body).Decode(&visits)
}

// BugUserLastVisits returns visit records. With ids, one record per id is
// returned in input order, with LastVisitTS nil for bugs never visited.
// Without ids, every recorded visit for the user is returned.
func (c *Client) BugUserLastVisits(ctx context.Context, ids []int64, fields ...string) ([]BugUserLastVisit, error) {
	idStrs := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrs = append(idStrs, strconv.FormatInt(id, 10))
	}
	res, err := c.Request(ctx, http.MethodGet, "/api/v2/bug_user_last_visit", nil,
		WithQueryParam("ids", strings.Join(idStrs, ",")), fieldsParam(fields))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, ReadBodyAsError(res)
	}
	var visits []BugUserLastVisit
	return visits, json.NewDecoder(res.Body).Decode(&visits)
}

// BugUserLastVisit is the single-bug form of BugUserLastVisits.
func (c *Client) BugUserLastVisit(ctx context.Context, bugID int64, fields ...string) ([]BugUserLastVisit, error) {
	res, err := c.Request(ctx, http.MethodGet,
		fmt.Sprintf("/api/v2/bug_user_last_visit/%d", bugID), nil, fieldsParam(fields))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, ReadBodyAsError(res)
	}
	var visits []BugUserLastVisit
	return visits, json.NewDecoder(res.Body).Decode(&visits)
}
