package database

import (
	"context"
	"errors"

	"github.com/lib/pq"
)

// UniqueConstraint names a unique constraint in the schema.
type UniqueConstraint string

const (
	UniqueUsersEmailKey            UniqueConstraint = "users_email_key"
	UniqueBugUserLastVisitsPkey    UniqueConstraint = "bug_user_last_visits_pkey"
	UniqueBugWatchersPkey          UniqueConstraint = "bug_watchers_pkey"
	UniqueAPIKeysPkey              UniqueConstraint = "api_keys_pkey"
	UniqueUsersUsernameLowerUnique UniqueConstraint = "users_username_lower_unique"
)

// IsUniqueViolation checks if the error is due to a unique violation.
// If one or more specific unique constraints are given as arguments,
// the error must be caused by one of them. If no constraints are given,
// this function returns true for any unique violation.
func IsUniqueViolation(err error, uniqueConstraints ...UniqueConstraint) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Name() == "unique_violation" {
			if len(uniqueConstraints) == 0 {
				return true
			}
			for _, uc := range uniqueConstraints {
				if pqErr.Constraint == string(uc) {
					return true
				}
			}
		}
	}

	return false
}

// IsQueryCanceledError checks if the error is due to a query being canceled.
func IsQueryCanceledError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "57014" // query_canceled
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}
