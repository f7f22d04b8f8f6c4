package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyURL indicates a request without a target address.
	ErrEmptyURL = errors.New("transport: url is required")
	// ErrUnexpectedStatus marks responses outside the success and validation
	// ranges.
	ErrUnexpectedStatus = errors.New("transport: unexpected status")
)

// Error describes a failed read or write.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransportError reports whether err carries a *Error.
func IsTransportError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}
