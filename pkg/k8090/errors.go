package k8090

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the session has been closed.
	ErrClosed = errors.New("session closed")
	// ErrCommandTimeout indicates no ack arrived within the configured
	// deadline; cached state is left unchanged.
	ErrCommandTimeout = errors.New("command timeout")
	// ErrInvalidIndex indicates a relay/button index outside 0-7.
	ErrInvalidIndex = errors.New("index out of range")
	// ErrInvalidMode indicates a button mode outside the enumerated set.
	ErrInvalidMode = errors.New("invalid button mode")
	// ErrInvalidDelay indicates a timer delay outside 0-65535 seconds.
	ErrInvalidDelay = errors.New("invalid timer delay")
)

// OpError wraps a failure of one board operation.
type OpError struct {
	Op  string // e.g. "relay.on", "button.mode"
	Err error
}

// Error implements error.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a command timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrCommandTimeout)
}
