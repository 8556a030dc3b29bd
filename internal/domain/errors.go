// Package domain holds the error taxonomy shared by the booking engine and its
// HTTP surface. Handlers map each type to a status code; callers match with
// errors.As through the Is* helpers.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed request. Field names the offending input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing bus, route, inventory or booking
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource != "" && e.ID != "":
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	case e.Resource != "":
		return fmt.Sprintf("%s not found", e.Resource)
	default:
		return "not found"
	}
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError reports seats that are no longer available or a booking that
// is already cancelled. Seats lists the conflicting seat codes, if any.
type ConflictError struct {
	Resource string
	Msg      string
	Seats    []string
	Err      error
}

func (e ConflictError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "conflict"
	}
	if e.Resource != "" {
		msg = fmt.Sprintf("%s conflict: %s", e.Resource, msg)
	}
	if len(e.Seats) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(e.Seats, ", "))
	}
	return msg
}

func (e ConflictError) Unwrap() error { return e.Err }

// NewSeatConflict builds the conflict returned when requested seats are taken
func NewSeatConflict(seats []string) ConflictError {
	return ConflictError{
		Resource: "seat",
		Msg:      "seats are no longer available",
		Seats:    seats,
	}
}

// AuthorizationError reports an acting user who does not own the resource
type AuthorizationError struct {
	Msg string
}

func (e AuthorizationError) Error() string {
	if e.Msg == "" {
		return "not authorized"
	}
	return e.Msg
}

// TransientStorageError is surfaced once storage retries are exhausted. The
// caller must not assume any part of the operation was applied.
type TransientStorageError struct {
	Op       string
	Attempts int
	Err      error
}

func (e TransientStorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed after %d attempts", e.Op, e.Attempts)
	}
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e TransientStorageError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

func IsTransientStorage(err error) bool {
	var target TransientStorageError
	return errors.As(err, &target)
}
