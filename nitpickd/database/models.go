package database

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// APIKey is a record of an active session token. The secret is stored
// hashed; the wire token is "<id>-<secret>".
type APIKey struct {
	ID           string    `db:"id" json:"id"`
	HashedSecret []byte    `db:"hashed_secret" json:"-"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	LastUsed     time.Time `db:"last_used" json:"last_used"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Bug struct {
	ID          int64         `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	ReporterID  uuid.UUID     `db:"reporter_id" json:"reporter_id"`
	AssigneeID  uuid.NullUUID `db:"assignee_id" json:"assignee_id"`
	Private     bool          `db:"private" json:"private"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

type BugWatcher struct {
	BugID  int64     `db:"bug_id" json:"bug_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
}

// BugUserLastVisit records the last time a user viewed a bug. There is at
// most one row per (user, bug) pair; writes overwrite, never append.
type BugUserLastVisit struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	BugID       int64     `db:"bug_id" json:"bug_id"`
	LastVisitAt time.Time `db:"last_visit_at" json:"last_visit_at"`
}
