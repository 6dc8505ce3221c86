package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// querier lists every query the store supports. Method signatures follow
// sqlc conventions: one Params struct per multi-argument query.
type querier interface {
	GetAPIKeyByID(ctx context.Context, id string) (APIKey, error)
	GetBugByID(ctx context.Context, id int64) (Bug, error)
	GetBugUserLastVisit(ctx context.Context, arg GetBugUserLastVisitParams) (BugUserLastVisit, error)
	GetBugUserLastVisits(ctx context.Context, arg GetBugUserLastVisitsParams) ([]BugUserLastVisit, error)
	GetBugUserLastVisitsByUserID(ctx context.Context, userID uuid.UUID) ([]BugUserLastVisit, error)
	GetBugWatchers(ctx context.Context, bugID int64) ([]BugWatcher, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserCount(ctx context.Context) (int64, error)
	GetVisibleBugIDs(ctx context.Context, arg GetVisibleBugIDsParams) ([]int64, error)
	InsertAPIKey(ctx context.Context, arg InsertAPIKeyParams) (APIKey, error)
	InsertBug(ctx context.Context, arg InsertBugParams) (Bug, error)
	InsertBugWatcher(ctx context.Context, arg InsertBugWatcherParams) (BugWatcher, error)
	InsertUser(ctx context.Context, arg InsertUserParams) (User, error)
	UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error
	UpsertBugUserLastVisit(ctx context.Context, arg UpsertBugUserLastVisitParams) (BugUserLastVisit, error)
}

var _ querier = (*sqlQuerier)(nil)

const getAPIKeyByID = `-- name: GetAPIKeyByID :one
SELECT id, hashed_secret, user_id, last_used, expires_at, created_at
FROM api_keys
WHERE id = $1
`

func (q *sqlQuerier) GetAPIKeyByID(ctx context.Context, id string) (APIKey, error) {
	row := q.db.QueryRowContext(ctx, getAPIKeyByID, id)
	var i APIKey
	err := row.Scan(
		&i.ID,
		&i.HashedSecret,
		&i.UserID,
		&i.LastUsed,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const getBugByID = `-- name: GetBugByID :one
SELECT id, title, description, reporter_id, assignee_id, private, created_at, updated_at
FROM bugs
WHERE id = $1
`

func (q *sqlQuerier) GetBugByID(ctx context.Context, id int64) (Bug, error) {
	row := q.db.QueryRowContext(ctx, getBugByID, id)
	var i Bug
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.ReporterID,
		&i.AssigneeID,
		&i.Private,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type GetBugUserLastVisitParams struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	BugID  int64     `db:"bug_id" json:"bug_id"`
}

const getBugUserLastVisit = `-- name: GetBugUserLastVisit :one
SELECT user_id, bug_id, last_visit_at
FROM bug_user_last_visits
WHERE user_id = $1 AND bug_id = $2
`

func (q *sqlQuerier) GetBugUserLastVisit(ctx context.Context, arg GetBugUserLastVisitParams) (BugUserLastVisit, error) {
	row := q.db.QueryRowContext(ctx, getBugUserLastVisit, arg.UserID, arg.BugID)
	var i BugUserLastVisit
	err := row.Scan(&i.UserID, &i.BugID, &i.LastVisitAt)
	return i, err
}

type GetBugUserLastVisitsParams struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	BugIDs []int64   `db:"bug_ids" json:"bug_ids"`
}

const getBugUserLastVisits = `-- name: GetBugUserLastVisits :many
SELECT user_id, bug_id, last_visit_at
FROM bug_user_last_visits
WHERE user_id = $1 AND bug_id = ANY($2 :: bigint [ ])
`

func (q *sqlQuerier) GetBugUserLastVisits(ctx context.Context, arg GetBugUserLastVisitsParams) ([]BugUserLastVisit, error) {
	rows, err := q.db.QueryContext(ctx, getBugUserLastVisits, arg.UserID, pq.Array(arg.BugIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BugUserLastVisit
	for rows.Next() {
		var i BugUserLastVisit
		if err := rows.Scan(&i.UserID, &i.BugID, &i.LastVisitAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getBugUserLastVisitsByUserID = `-- name: GetBugUserLastVisitsByUserID :many
SELECT user_id, bug_id, last_visit_at
FROM bug_user_last_visits
WHERE user_id = $1
ORDER BY bug_id ASC
`

func (q *sqlQuerier) GetBugUserLastVisitsByUserID(ctx context.Context, userID uuid.UUID) ([]BugUserLastVisit, error) {
	rows, err := q.db.QueryContext(ctx, getBugUserLastVisitsByUserID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BugUserLastVisit
	for rows.Next() {
		var i BugUserLastVisit
		if err := rows.Scan(&i.UserID, &i.BugID, &i.LastVisitAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getBugWatchers = `-- name: GetBugWatchers :many
SELECT bug_id, user_id
FROM bug_watchers
WHERE bug_id = $1
`

func (q *sqlQuerier) GetBugWatchers(ctx context.Context, bugID int64) ([]BugWatcher, error) {
	rows, err := q.db.QueryContext(ctx, getBugWatchers, bugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BugWatcher
	for rows.Next() {
		var i BugWatcher
		if err := rows.Scan(&i.BugID, &i.UserID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, username, hashed_password, created_at, updated_at
FROM users
WHERE LOWER(email) = LOWER($1)
`

func (q *sqlQuerier) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.HashedPassword,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, username, hashed_password, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *sqlQuerier) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.HashedPassword,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserCount = `-- name: GetUserCount :one
SELECT COUNT(*) FROM users
`

func (q *sqlQuerier) GetUserCount(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getUserCount)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type GetVisibleBugIDsParams struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	BugIDs []int64   `db:"bug_ids" json:"bug_ids"`
}

const getVisibleBugIDs = `-- name: GetVisibleBugIDs :many
SELECT bugs.id
FROM bugs
WHERE bugs.id = ANY($2 :: bigint [ ])
  AND (
    NOT bugs.private
    OR bugs.reporter_id = $1
    OR bugs.assignee_id = $1
    OR EXISTS (
      SELECT 1 FROM bug_watchers
      WHERE bug_watchers.bug_id = bugs.id AND bug_watchers.user_id = $1
    )
  )
`

// GetVisibleBugIDs returns the subset of the given bug ids the user is
// permitted to view, in one round trip.
func (q *sqlQuerier) GetVisibleBugIDs(ctx context.Context, arg GetVisibleBugIDsParams) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, getVisibleBugIDs, arg.UserID, pq.Array(arg.BugIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type InsertAPIKeyParams struct {
	ID           string    `db:"id" json:"id"`
	HashedSecret []byte    `db:"hashed_secret" json:"hashed_secret"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	LastUsed     time.Time `db:"last_used" json:"last_used"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const insertAPIKey = `-- name: InsertAPIKey :one
INSERT INTO api_keys (id, hashed_secret, user_id, last_used, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, hashed_secret, user_id, last_used, expires_at, created_at
`

func (q *sqlQuerier) InsertAPIKey(ctx context.Context, arg InsertAPIKeyParams) (APIKey, error) {
	row := q.db.QueryRowContext(ctx, insertAPIKey,
		arg.ID,
		arg.HashedSecret,
		arg.UserID,
		arg.LastUsed,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	var i APIKey
	err := row.Scan(
		&i.ID,
		&i.HashedSecret,
		&i.UserID,
		&i.LastUsed,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

type InsertBugParams struct {
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	ReporterID  uuid.UUID     `db:"reporter_id" json:"reporter_id"`
	AssigneeID  uuid.NullUUID `db:"assignee_id" json:"assignee_id"`
	Private     bool          `db:"private" json:"private"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

const insertBug = `-- name: InsertBug :one
INSERT INTO bugs (title, description, reporter_id, assignee_id, private, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, title, description, reporter_id, assignee_id, private, created_at, updated_at
`

func (q *sqlQuerier) InsertBug(ctx context.Context, arg InsertBugParams) (Bug, error) {
	row := q.db.QueryRowContext(ctx, insertBug,
		arg.Title,
		arg.Description,
		arg.ReporterID,
		arg.AssigneeID,
		arg.Private,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Bug
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.ReporterID,
		&i.AssigneeID,
		&i.Private,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type InsertBugWatcherParams struct {
	BugID  int64     `db:"bug_id" json:"bug_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
}

const insertBugWatcher = `-- name: InsertBugWatcher :one
INSERT INTO bug_watchers (bug_id, user_id)
VALUES ($1, $2)
ON CONFLICT (bug_id, user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING bug_id, user_id
`

func (q *sqlQuerier) InsertBugWatcher(ctx context.Context, arg InsertBugWatcherParams) (BugWatcher, error) {
	row := q.db.QueryRowContext(ctx, insertBugWatcher, arg.BugID, arg.UserID)
	var i BugWatcher
	err := row.Scan(&i.BugID, &i.UserID)
	return i, err
}

type InsertUserParams struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"hashed_password"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const insertUser = `-- name: InsertUser :one
INSERT INTO users (id, email, username, hashed_password, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, email, username, hashed_password, created_at, updated_at
`

func (q *sqlQuerier) InsertUser(ctx context.Context, arg InsertUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, insertUser,
		arg.ID,
		arg.Email,
		arg.Username,
		arg.HashedPassword,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.HashedPassword,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type UpdateAPIKeyLastUsedParams struct {
	ID       string    `db:"id" json:"id"`
	LastUsed time.Time `db:"last_used" json:"last_used"`
}

const updateAPIKeyLastUsed = `-- name: UpdateAPIKeyLastUsed :exec
UPDATE api_keys
SET last_used = $2
WHERE id = $1
`

func (q *sqlQuerier) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx, updateAPIKeyLastUsed, arg.ID, arg.LastUsed)
	return err
}

type UpsertBugUserLastVisitParams struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	BugID       int64     `db:"bug_id" json:"bug_id"`
	LastVisitAt time.Time `db:"last_visit_at" json:"last_visit_at"`
}

const upsertBugUserLastVisit = `-- name: UpsertBugUserLastVisit :one
INSERT INTO bug_user_last_visits (user_id, bug_id, last_visit_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, bug_id) DO UPDATE SET last_visit_at = $3
RETURNING user_id, bug_id, last_visit_at
`

// UpsertBugUserLastVisit records a visit, overwriting any previous
// timestamp for the (user, bug) pair.
func (q *sqlQuerier) UpsertBugUserLastVisit(ctx context.Context, arg UpsertBugUserLastVisitParams) (BugUserLastVisit, error) {
	row := q.db.QueryRowContext(ctx, upsertBugUserLastVisit, arg.UserID, arg.BugID, arg.LastVisitAt)
	var i BugUserLastVisit
	err := row.Scan(&i.UserID, &i.BugID, &i.LastVisitAt)
	return i, err
}
