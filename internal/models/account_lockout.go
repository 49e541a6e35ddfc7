package models

import "time"

// Lock origins
const (
	LockedBySystem = "system"
	LockedByAdmin  = "admin"
)

// AccountLockout is the per-identity lock state. There is at most one row per email.
type AccountLockout struct {
	Email          string     `db:"email" json:"email"`
	IsLocked       bool       `db:"is_locked" json:"is_locked"`
	LockedAt       time.Time  `db:"locked_at" json:"locked_at"`
	UnlockAt       time.Time  `db:"unlock_at" json:"unlock_at"`
	FailedAttempts int        `db:"failed_attempts" json:"failed_attempts"`
	LockedBy       string     `db:"locked_by" json:"locked_by"`
	UnlockedAt     *time.Time `db:"unlocked_at" json:"unlocked_at,omitempty"`
	UnlockedBy     *string    `db:"unlocked_by" json:"unlocked_by,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the lock is in force at now.
// A row whose unlock time has passed is stale and counts as unlocked even if
// the flag was never rewritten.
func (l *AccountLockout) IsActive(now time.Time) bool {
	if l == nil || !l.IsLocked {
		return false
	}
	return now.Before(l.UnlockAt)
}
