package transport

import (
	"sync"
	"time"
)

// Mock implements Transport for tests. Reads are served from a script of
// chunks, writes are recorded, and both can be overridden with funcs for
// more involved scenarios.
type Mock struct {
	// ReadFunc overrides scripted reads when set.
	ReadFunc func(p []byte) (int, error)
	// WriteFunc overrides write recording when set.
	WriteFunc func(p []byte) (int, error)

	mu      sync.Mutex
	script  [][]byte
	written []byte
	closed  bool
	timeout time.Duration
}

// Script queues chunks to be returned by subsequent reads, one chunk per
// Read call.
func (m *Mock) Script(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, chunks...)
}

// Written returns a copy of everything written so far.
func (m *Mock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mock) Read(p []byte) (int, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if len(m.script) == 0 {
		m.mu.Unlock()
		// Behave like a serial port read timeout, pacing callers that
		// poll in a loop.
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, m.script[0])
	if n == len(m.script[0]) {
		m.script = m.script[1:]
	} else {
		m.script[0] = m.script[0][n:]
	}
	m.mu.Unlock()
	return n, nil
}

func (m *Mock) Write(p []byte) (int, error) {
	if m.WriteFunc != nil {
		return m.WriteFunc(p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mock) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Flush keeps staged script chunks, so replies can be queued before a
// session opens the transport.
func (m *Mock) Flush() error {
	return nil
}
