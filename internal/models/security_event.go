package models

import "time"

// EventType identifies a security notification template
type EventType string

const (
	EventFailedLogin   EventType = "failed_login"
	EventAccountLocked EventType = "account_locked"
	EventManualUnlock  EventType = "manual_unlock"
	EventTest          EventType = "test"
)

// SecurityEvent is a notification payload handed to the dispatcher
type SecurityEvent struct {
	Type           EventType
	Email          string
	IPAddress      string
	FailedAttempts int
	UnlockAt       *time.Time
	Details        string
	OccurredAt     time.Time
}
