package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// BaudRate is fixed by the board firmware.
const BaudRate = 19200

// DefaultReadTimeout is used when no timeout is configured.
const DefaultReadTimeout = 100 * time.Millisecond

// Serial implements Transport over a hardware serial port.
type Serial struct {
	port     serial.Port
	portName string
	timeout  time.Duration
}

// OpenSerial opens the serial port the board is attached to. Baud rate and
// framing (8N1) are fixed by the board; only the read timeout is
// configurable, zero selects the default.
func OpenSerial(portName string, readTimeout time.Duration) (*Serial, error) {
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &Serial{port: port, portName: portName, timeout: readTimeout}, nil
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Close closes the underlying port, unblocking any pending Read.
func (s *Serial) Close() error {
	return s.port.Close()
}

// SetReadTimeout sets the read timeout duration.
func (s *Serial) SetReadTimeout(timeout time.Duration) error {
	s.timeout = timeout
	return s.port.SetReadTimeout(timeout)
}

// Flush discards whatever the board sent before we started listening.
func (s *Serial) Flush() error {
	return s.port.ResetInputBuffer()
}

// PortName returns the serial port path.
func (s *Serial) PortName() string {
	return s.portName
}
