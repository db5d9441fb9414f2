package gateway

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error describes a failed backend call.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *Error) Cause() error { return e.Err }

// IsTransient reports whether err is a network failure or a server-side
// status that may succeed on a later attempt.
func IsTransient(err error) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Status == 0 || gerr.Status >= http.StatusInternalServerError || gerr.Status == http.StatusTooManyRequests
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status
	}
	return 0
}
