package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Guard errors
	ErrStorageUnavailable        = errors.New("storage unavailable")
	ErrConfigMissing             = errors.New("security config missing")
	ErrDispatchFailure           = errors.New("notification dispatch failed")
	ErrNotificationNotConfigured = errors.New("notification channel not configured")
)

// ValidationError reports an admin-supplied value outside its allowed bound
type ValidationError struct {
	Field string
	Bound string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be %s (got %v)", e.Field, e.Bound, e.Value)
}
