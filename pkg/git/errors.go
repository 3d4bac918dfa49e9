package git

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the hosting service rejects the
// credentials.
var ErrUnauthorized = errors.New("unauthorized: the repository host rejected the token")

// ErrDestinationExists is returned by a Cloner when the target directory
// already exists.
var ErrDestinationExists = errors.New("clone destination already exists")

// StatusError is returned for any non-success response other than
// 401 Unauthorized.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d", e.Code)
}

func checkStatus(code int) error {
	if code == 401 {
		return ErrUnauthorized
	}
	if code < 200 || code > 299 {
		return &StatusError{Code: code}
	}
	return nil
}
