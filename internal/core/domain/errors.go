package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrNoRouteFound means no stored path connects the requested origin and destination.
	ErrNoRouteFound = errors.New("no routes found between specified locations")

	// ErrSegmentNotFound is returned when an obstacle names a segment that does not exist.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrObstacleTooFar is returned when no segment lies within the association radius of an obstacle.
	ErrObstacleTooFar = errors.New("no segment within range of obstacle")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
