// Package proto implements the K8090/VM8090 serial frame protocol.
package proto

// The board speaks a fixed 7-byte frame format over the serial link:
//
//	STX (04h) | CMD | MASK | PARAM1 | PARAM2 | CHK | ETX (0Fh)
//
// CHK is the two's complement of the sum of all preceding bytes.
// MASK is usually a bit field selecting relays or buttons (bit 0 is
// relay/button 1) while the two parameter bytes are command specific.
//
// This package is pure: it encodes, decodes and scans byte streams but
// never touches board state.
//
// Producer/Consumer: the board firmware on one side, pkg/k8090 on the other.
