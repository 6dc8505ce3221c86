// Package dbmem provides an in-memory implementation of database.Store for
// tests and the --in-memory server mode.
package dbmem

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nitpickhq/nitpick/nitpickd/database"
)

// New returns an in-memory store.
func New() database.Store {
	return &memQuerier{
		mutex: &sync.RWMutex{},
		data:  &data{},
	}
}

var errUniqueViolation = &pq.Error{
	Code:    "23505",
	Message: "duplicate key value violates unique constraint",
}

type rwMutex interface {
	Lock()
	RLock()
	Unlock()
	RUnlock()
}

// inTxMutex is a no op, since inside a transaction we are already locked.
type inTxMutex struct{}

func (inTxMutex) Lock()    {}
func (inTxMutex) RLock()   {}
func (inTxMutex) Unlock()  {}
func (inTxMutex) RUnlock() {}

type memQuerier struct {
	mutex rwMutex
	*data
}

type data struct {
	users             []database.User
	apiKeys           []database.APIKey
	bugs              []database.Bug
	bugWatchers       []database.BugWatcher
	bugUserLastVisits []database.BugUserLastVisit

	lastBugID int64
}

func (d *data) clone() *data {
	return &data{
		users:             append([]database.User(nil), d.users...),
		apiKeys:           append([]database.APIKey(nil), d.apiKeys...),
		bugs:              append([]database.Bug(nil), d.bugs...),
		bugWatchers:       append([]database.BugWatcher(nil), d.bugWatchers...),
		bugUserLastVisits: append([]database.BugUserLastVisit(nil), d.bugUserLastVisits...),
		lastBugID:         d.lastBugID,
	}
}

func (q *memQuerier) Ping(_ context.Context) (time.Duration, error) {
	return 0, nil
}

// InTx mimics transactional semantics by snapshotting the data before the
// function runs and restoring the snapshot if it fails. Batch writes stay
// all-or-nothing, matching Postgres rollback behavior.
func (q *memQuerier) InTx(fn func(database.Store) error, _ *database.TxOptions) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	snapshot := q.data.clone()
	err := fn(&memQuerier{mutex: inTxMutex{}, data: q.data})
	if err != nil {
		*q.data = *snapshot
		return err
	}
	return nil
}

func (q *memQuerier) GetAPIKeyByID(_ context.Context, id string) (database.APIKey, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	for _, key := range q.apiKeys {
		if key.ID == id {
			return key, nil
		}
	}
	return database.APIKey{}, sql.ErrNoRows
}

func (q *memQuerier) GetBugByID(_ context.Context, id int64) (database.Bug, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	for _, bug := range q.bugs {
		if bug.ID == id {
			return bug, nil
		}
	}
	return database.Bug{}, sql.ErrNoRows
}

func (q *memQuerier) GetBugUserLastVisit(_ context.Context, arg database.GetBugUserLastVisitParams) (database.BugUserLastVisit, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	for _, visit := range q.bugUserLastVisits {
		if visit.UserID == arg.UserID && visit.BugID == arg.BugID {
			return visit, nil
		}
	}
	return database.BugUserLastVisit{}, sql.ErrNoRows
}

func (q *memQuerier) GetBugUserLastVisits(_ context.Context, arg database.GetBugUserLastVisitsParams) ([]database.BugUserLastVisit, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	var visits []database.BugUserLastVisit
	for _, visit := range q.bugUserLastVisits {
		if visit.UserID != arg.UserID {
			continue
		}
		for _, id := range arg.BugIDs {
			if visit.BugID == id {
				visits = append(visits, visit)
				break
			}
		}
	}
	return visits, nil
}

func (q *memQuerier) GetBugUserLastVisitsByUserID(_ context.Context, userID uuid.UUID) ([]database.BugUserLastVisit, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	var visits []database.BugUserLastVisit
	for _, visit := range q.bugUserLastVisits {
		if visit.UserID == userID {
			visits = append(visits, visit)
		}
	}
	sort.Slice(visits, func(i, j int) bool {
		return visits[i].BugID < visits[j].BugID
	})
	return visits, nil
}

func (q *memQuerier) GetBugWatchers(_ context.Context, bugID int64) ([]database.BugWatcher, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	var watchers []database.BugWatcher
	for _, watcher := range q.bugWatchers {
		if watcher.BugID == bugID {
			watchers = append(watchers, watcher)
		}
	}
	return watchers, nil
}

func (q *memQuerier) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	for _, user := range q.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return database.User{}, sql.ErrNoRows
}

func (q *memQuerier) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	for _, user := range q.users {
		if user.ID == id {
			return user, nil
		}
	}
	return database.User{}, sql.ErrNoRows
}

func (q *memQuerier) GetUserCount(_ context.Context) (int64, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	return int64(len(q.users)), nil
}

func (q *memQuerier) GetVisibleBugIDs(_ context.Context, arg database.GetVisibleBugIDsParams) ([]int64, error) {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	var ids []int64
	for _, bug := range q.bugs {
		requested := false
		for _, id := range arg.BugIDs {
			if bug.ID == id {
				requested = true
				break
			}
		}
		if !requested {
			continue
		}
		if !bug.Private || bug.ReporterID == arg.UserID ||
			(bug.AssigneeID.Valid && bug.AssigneeID.UUID == arg.UserID) ||
			q.isWatcherLocked(bug.ID, arg.UserID) {
			ids = append(ids, bug.ID)
		}
	}
	return ids, nil
}

// isWatcherLocked must be called with at least a read lock held.
func (q *memQuerier) isWatcherLocked(bugID int64, userID uuid.UUID) bool {
	for _, watcher := range q.bugWatchers {
		if watcher.BugID == bugID && watcher.UserID == userID {
			return true
		}
	}
	return false
}

func (q *memQuerier) InsertAPIKey(_ context.Context, arg database.InsertAPIKeyParams) (database.APIKey, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for _, key := range q.apiKeys {
		if key.ID == arg.ID {
			return database.APIKey{}, errUniqueViolation
		}
	}
	key := database.APIKey{
		ID:           arg.ID,
		HashedSecret: arg.HashedSecret,
		UserID:       arg.UserID,
		LastUsed:     arg.LastUsed,
		ExpiresAt:    arg.ExpiresAt,
		CreatedAt:    arg.CreatedAt,
	}
	q.apiKeys = append(q.apiKeys, key)
	return key, nil
}

func (q *memQuerier) InsertBug(_ context.Context, arg database.InsertBugParams) (database.Bug, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.lastBugID++
	bug := database.Bug{
		ID:          q.lastBugID,
		Title:       arg.Title,
		Description: arg.Description,
		ReporterID:  arg.ReporterID,
		AssigneeID:  arg.AssigneeID,
		Private:     arg.Private,
		CreatedAt:   arg.CreatedAt,
		UpdatedAt:   arg.UpdatedAt,
	}
	q.bugs = append(q.bugs, bug)
	return bug, nil
}

func (q *memQuerier) InsertBugWatcher(_ context.Context, arg database.InsertBugWatcherParams) (database.BugWatcher, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	watcher := database.BugWatcher{BugID: arg.BugID, UserID: arg.UserID}
	if q.isWatcherLocked(arg.BugID, arg.UserID) {
		return watcher, nil
	}
	q.bugWatchers = append(q.bugWatchers, watcher)
	return watcher, nil
}

func (q *memQuerier) InsertUser(_ context.Context, arg database.InsertUserParams) (database.User, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for _, user := range q.users {
		if strings.EqualFold(user.Email, arg.Email) {
			return database.User{}, errUniqueViolation
		}
	}
	user := database.User{
		ID:             arg.ID,
		Email:          arg.Email,
		Username:       arg.Username,
		HashedPassword: arg.HashedPassword,
		CreatedAt:      arg.CreatedAt,
		UpdatedAt:      arg.UpdatedAt,
	}
	q.users = append(q.users, user)
	return user, nil
}

func (q *memQuerier) UpdateAPIKeyLastUsed(_ context.Context, arg database.UpdateAPIKeyLastUsedParams) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for i, key := range q.apiKeys {
		if key.ID == arg.ID {
			q.apiKeys[i].LastUsed = arg.LastUsed
			return nil
		}
	}
	return sql.ErrNoRows
}

func (q *memQuerier) UpsertBugUserLastVisit(_ context.Context, arg database.UpsertBugUserLastVisitParams) (database.BugUserLastVisit, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	visit := database.BugUserLastVisit{
		UserID:      arg.UserID,
		BugID:       arg.BugID,
		LastVisitAt: arg.LastVisitAt,
	}
	for i, existing := range q.bugUserLastVisits {
		if existing.UserID == arg.UserID && existing.BugID == arg.BugID {
			q.bugUserLastVisits[i] = visit
			return visit, nil
		}
	}
	q.bugUserLastVisits = append(q.bugUserLastVisits, visit)
	return visit, nil
}
