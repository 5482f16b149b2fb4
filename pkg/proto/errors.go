package proto

import "errors"

var (
	// ErrBadLength indicates the byte count is not the fixed frame length.
	ErrBadLength = errors.New("bad frame length")
	// ErrBadMarker indicates the STX/ETX delimiters are wrong.
	ErrBadMarker = errors.New("bad frame marker")
	// ErrBadChecksum indicates the checksum byte does not verify.
	ErrBadChecksum = errors.New("bad checksum")
	// ErrUnknownCommand indicates the command byte is not in the known set.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadMask indicates a relay/button mask is not representable in 8 bits.
	ErrBadMask = errors.New("mask out of range")
)
