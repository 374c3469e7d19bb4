package provider

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("invalid meeting spec")
	ErrNotFound            = errors.New("not found")
	ErrCapacityExceeded    = errors.New("meeting is at capacity")
	ErrAlreadyJoined       = errors.New("participant already joined")
	ErrAlreadyLive         = errors.New("meeting is already live")
	ErrAlreadyEnded        = errors.New("meeting has already ended")
	ErrUnsupportedProvider = errors.New("unsupported meeting provider")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
