package listenpg

import (
	"errors"
	"fmt"
)

// Error is a relay error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	// ErrCodeConnectFailed indicates the database or broker was
	// unreachable or refused authentication.
	ErrCodeConnectFailed = "CONNECT_FAILED"

	// ErrCodeNotFound indicates an operation referenced an exchange,
	// channel, or binding with no cached state.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodePublishFailed indicates the broker rejected or dropped a
	// publish.
	ErrCodePublishFailed = "PUBLISH_FAILED"

	// ErrCodeValidation indicates an exchange declaration failed
	// validation.
	ErrCodeValidation = "VALIDATION_ERROR"
)

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func hasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsConnectFailed reports whether err carries the CONNECT_FAILED code.
func IsConnectFailed(err error) bool { return hasCode(err, ErrCodeConnectFailed) }

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsPublishFailed reports whether err carries the PUBLISH_FAILED code.
func IsPublishFailed(err error) bool { return hasCode(err, ErrCodePublishFailed) }
