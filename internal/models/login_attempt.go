package models

import "time"

// Outcome values for a login attempt
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LoginAttempt is one login submission as reported by the identity provider.
// Rows are append-only; only the retention sweeper removes them.
type LoginAttempt struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	IPAddress     string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string    `db:"user_agent" json:"user_agent,omitempty"`
	Success       bool      `db:"success" json:"success"`
	FailureReason *string   `db:"failure_reason" json:"failure_reason,omitempty"`
	AttemptedAt   time.Time `db:"attempted_at" json:"attempted_at"`
}

// Outcome returns the attempt outcome as "success" or "failure"
func (a *LoginAttempt) Outcome() string {
	if a.Success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// LockDecision is the answer returned to the identity provider for one submission.
// When Allowed is false the login must be rejected regardless of credential validity.
type LockDecision struct {
	Allowed  bool       `json:"allowed"`
	UnlockAt *time.Time `json:"unlock_at,omitempty"`
}
