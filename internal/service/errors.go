package service

import (
	"errors"
	"fmt"
)

var (
	ErrReportNotFound      = errors.New("report not found")
	ErrValidation          = errors.New("validation failed")
	ErrVersionConflict     = errors.New("report was modified by someone else, reload and retry")
	ErrForbidden           = errors.New("not allowed to act on this report")
	ErrTrackingIDCollision = errors.New("tracking id collision, please resubmit")
	ErrTeamNotFound        = errors.New("team not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrEmailTaken          = errors.New("email already registered")
)

// ValidationError names the offending field and the translation key of the
// message shown to the citizen.
type ValidationError struct {
	Field string
	Key   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Field, e.Key)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, key string) error {
	return &ValidationError{Field: field, Key: key}
}
