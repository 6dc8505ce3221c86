// Package authz decides what a user may see and touch. Visibility is the
// weaker relation (may view the bug at all); involvement is the stronger
// one (holds a role on the bug) and is required to record a visit.
package authz

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/nitpickhq/nitpick/nitpickd/database"
)

// Involved reports whether the user holds a role on the bug: reporter,
// assignee, or watcher. Pure predicate, no queries.
func Involved(bug database.Bug, watchers []database.BugWatcher, userID uuid.UUID) bool {
	if bug.ReporterID == userID {
		return true
	}
	if bug.AssigneeID.Valid && bug.AssigneeID.UUID == userID {
		return true
	}
	for _, watcher := range watchers {
		if watcher.UserID == userID {
			return true
		}
	}
	return false
}

// VisibilityCache answers per-bug visibility questions for a single user
// within a single request. Prime must be called first so the answers come
// from one batched query instead of one query per bug.
type VisibilityCache struct {
	db      database.Store
	visible map[int64]bool
}

func NewVisibilityCache(db database.Store) *VisibilityCache {
	return &VisibilityCache{
		db:      db,
		visible: map[int64]bool{},
	}
}

// Prime fetches visibility decisions for every given bug id in one query
// and caches them. Priming with no ids is a no-op. Ids that do not resolve
// to a bug are cached as not visible.
func (c *VisibilityCache) Prime(ctx context.Context, userID uuid.UUID, bugIDs []int64) error {
	if len(bugIDs) == 0 {
		return nil
	}
	for _, id := range bugIDs {
		c.visible[id] = false
	}
	ids, err := c.db.GetVisibleBugIDs(ctx, database.GetVisibleBugIDsParams{
		UserID: userID,
		BugIDs: bugIDs,
	})
	if err != nil {
		return xerrors.Errorf("get visible bug ids: %w", err)
	}
	for _, id := range ids {
		c.visible[id] = true
	}
	return nil
}

// Visible answers from the cache only. Bugs never primed are not visible.
func (c *VisibilityCache) Visible(bugID int64) bool {
	return c.visible[bugID]
}

// Primed reports whether a decision for the bug has been cached.
func (c *VisibilityCache) Primed(bugID int64) bool {
	_, ok := c.visible[bugID]
	return ok
}
