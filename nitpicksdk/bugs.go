package nitpicksdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Bug struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ReporterID  uuid.UUID   `json:"reporter_id" format:"uuid"`
	AssigneeID  *uuid.UUID  `json:"assignee_id,omitempty" format:"uuid"`
	WatcherIDs  []uuid.UUID `json:"watcher_ids,omitempty"`
	Private     bool        `json:"private"`
	CreatedAt   time.Time   `json:"created_at" format:"date-time"`
	UpdatedAt   time.Time   `json:"updated_at" format:"date-time"`
}

type CreateBugRequest struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	AssigneeID  *uuid.UUID  `json:"assignee_id,omitempty" format:"uuid"`
	WatcherIDs  []uuid.UUID `json:"watcher_ids,omitempty"`
	Private     bool        `json:"private"`
}

// CreateBug files a new bug reported by the authenticated user.
func (c *Client) CreateBug(ctx context.Context, req CreateBugRequest) (Bug, error) {
	res, err := c.Request(ctx, http.MethodPost, "/api/v2/bugs", req)
	if err != nil {
		return Bug{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		return Bug{}, ReadBodyAsError(res)
	}
	var bug Bug
	return bug, json.NewDecoder(res.Body).Decode(&bug)
}

// Bug returns a bug by ID if it is visible to the authenticated user.
func (c *Client) Bug(ctx context.Context, id int64) (Bug, error) {
	res, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/api/v2/bugs/%d", id), nil)
	if err != nil {
		return Bug{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Bug{}, ReadBodyAsError(res)
	}
	var bug Bug
	return bug, json.NewDecoder(res.Body).Decode(&bug)
}
