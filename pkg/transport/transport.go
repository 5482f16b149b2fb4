// Package transport provides byte-level connections to the relay card.
package transport

import (
	"errors"
	"io"
	"time"
)

// Transport is the low-level connection to the board. Read must honor the
// configured read timeout by returning (0, nil) when it expires, matching
// serial port semantics, so callers can poll without blocking forever.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the read timeout duration.
	SetReadTimeout(timeout time.Duration) error

	// Flush discards any buffered input data.
	Flush() error
}

var (
	// ErrTimeout indicates no complete frame arrived within the deadline.
	ErrTimeout = errors.New("transport timeout")
	// ErrPortClosed indicates the connection was torn down mid-operation.
	ErrPortClosed = errors.New("port closed")
)
