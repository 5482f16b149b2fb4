package k8090

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/relaykit/k8090.go/pkg/proto"
	"github.com/relaykit/k8090.go/pkg/transport"
)

// DefaultCommandTimeout is how long a command waits for its ack.
const DefaultCommandTimeout = time.Second

// eventBuffer bounds the unsolicited event queue; when observers fall
// behind, the oldest event is dropped so the reader never stalls a
// pending ack.
const eventBuffer = 32

// Config holds the options for opening a session.
type Config struct {
	// Port is the serial port path (e.g. "/dev/ttyUSB0").
	// Ignored if Transport is provided.
	Port string

	// Transport overrides the serial connection, mainly for tests.
	Transport transport.Transport

	// ReadTimeout is the serial read poll interval. Zero selects the
	// transport default.
	ReadTimeout time.Duration

	// CommandTimeout is the ack deadline per command. Zero selects
	// DefaultCommandTimeout.
	CommandTimeout time.Duration
}

// Session is one open connection to a board.
type Session struct {
	tr      transport.Transport
	timeout time.Duration

	// cmdLock serializes command issuance: the protocol is half-duplex
	// with one outstanding request awaiting one response.
	cmdLock sync.Mutex

	lock   sync.Mutex
	waiter *ackWaiter
	closed bool

	done   chan struct{}
	events chan Event
	state  *boardState
}

type ackWaiter struct {
	expect byte
	ch     chan proto.Frame
}

// Connect opens the board on the given serial port with defaults and
// populates the state with an initial full refresh.
func Connect(port string) (*Session, error) {
	return Open(Config{Port: port})
}

// Open opens a session with the given configuration. The returned session
// has a populated state snapshot; if the board does not answer the initial
// status query the port is closed and an error returned.
func Open(cfg Config) (*Session, error) {
	tr := cfg.Transport
	if tr == nil {
		if cfg.Port == "" {
			return nil, errors.New("either Transport or Port must be specified")
		}
		var err error
		tr, err = transport.OpenSerial(cfg.Port, cfg.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}

	tr.Flush()
	s := &Session{
		tr:      tr,
		timeout: cfg.CommandTimeout,
		done:    make(chan struct{}),
		events:  make(chan Event, eventBuffer),
		state:   newBoardState(),
	}
	go s.readLoop()

	if err := s.Refresh(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initial status query: %w", err)
	}
	return s, nil
}

// Close tears down the session: the port is closed, the reader stops, any
// blocked command fails with the port-closed error and the event channel
// is closed. Close is idempotent.
func (s *Session) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.lock.Unlock()
	return s.tr.Close()
}

// Events returns the unsolicited event channel. It is closed when the
// session closes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Relay returns the handle for relay index 0-7.
func (s *Session) Relay(index int) (*Relay, error) {
	if index < 0 || index >= ChannelCount {
		return nil, fmt.Errorf("%w: relay %d", ErrInvalidIndex, index)
	}
	return &Relay{session: s, index: index}, nil
}

// Button returns the handle for button index 0-7.
func (s *Session) Button(index int) (*Button, error) {
	if index < 0 || index >= ChannelCount {
		return nil, fmt.Errorf("%w: button %d", ErrInvalidIndex, index)
	}
	return &Button{session: s, index: index}, nil
}

// CardInfo returns the cached card metadata.
func (s *Session) CardInfo() CardInfo {
	return s.state.cardInfo()
}

// FirmwareVersion returns the cached firmware version ("YYYY.WW").
func (s *Session) FirmwareVersion() string {
	return s.state.cardInfo().Firmware
}

// JumperSet reports whether the event jumper is present. With the jumper
// set, buttons no longer drive the relays but events are still reported.
func (s *Session) JumperSet() bool {
	return s.state.cardInfo().Jumper
}

// Stale reports whether the cached state is suspect (after FactoryReset,
// before the next successful Refresh).
func (s *Session) Stale() bool {
	return s.state.isStale()
}

// Refresh queries a full relay+button+card snapshot and overwrites all
// cached state.
func (s *Session) Refresh() error {
	queries := []struct {
		cmd    byte
		mask   byte
		expect byte
	}{
		{proto.CmdQueryRelayStatus, 0, proto.EvtRelayState},
		{proto.CmdQueryButtonMode, 0, proto.EvtButtonMode},
		{proto.CmdQueryTimerDelay, 0xff, proto.EvtTimerDelay},
		{proto.CmdQueryJumper, 0, proto.EvtJumper},
		{proto.CmdQueryFirmware, 0, proto.EvtFirmware},
	}
	for _, q := range queries {
		f := proto.Frame{Cmd: q.cmd, Mask: q.mask}
		if _, err := s.do(f, q.expect); err != nil {
			return &OpError{Op: "refresh", Err: err}
		}
	}
	s.state.setStale(false)
	return nil
}

// FactoryReset resets the board to factory defaults: all buttons in toggle
// mode, all timer delays 5 seconds. The board sends no ack; all cached
// state is stale until the next successful Refresh, which is not issued
// automatically.
func (s *Session) FactoryReset() error {
	if err := s.send(proto.Frame{Cmd: proto.CmdFactoryReset}); err != nil {
		return &OpError{Op: "factory.reset", Err: err}
	}
	s.state.setStale(true)
	return nil
}

// send writes one frame without expecting a reply.
func (s *Session) send(f proto.Frame) error {
	s.cmdLock.Lock()
	defer s.cmdLock.Unlock()
	return s.write(f)
}

// do writes one frame and blocks until a frame with the expected command
// byte arrives, the timeout elapses, or the session closes. State changes
// are applied by the reader before the ack is delivered here.
func (s *Session) do(f proto.Frame, expect byte) (proto.Frame, error) {
	s.cmdLock.Lock()
	defer s.cmdLock.Unlock()

	w := &ackWaiter{expect: expect, ch: make(chan proto.Frame, 1)}
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return proto.Frame{}, ErrClosed
	}
	s.waiter = w
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		if s.waiter == w {
			s.waiter = nil
		}
		s.lock.Unlock()
	}()

	if err := s.write(f); err != nil {
		return proto.Frame{}, err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case ack := <-w.ch:
		return ack, nil
	case <-timer.C:
		return proto.Frame{}, ErrCommandTimeout
	case <-s.done:
		return proto.Frame{}, transport.ErrPortClosed
	}
}

func (s *Session) write(f proto.Frame) error {
	s.lock.Lock()
	closed := s.closed
	s.lock.Unlock()
	if closed {
		return ErrClosed
	}
	b := f.Bytes()
	glog.V(2).Infof("SND % x", b)
	if _, err := s.tr.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// readLoop continuously drains the transport, frames the byte stream and
// dispatches decoded frames. It exits when the transport errors out,
// which happens at the latest when Close closes the port.
func (s *Session) readLoop() {
	defer close(s.events)
	var sc proto.Scanner
	buf := make([]byte, 64)
	for {
		n, err := s.tr.Read(buf)
		if err != nil {
			glog.V(1).Infof("reader stopped: %v", err)
			return
		}
		if n == 0 {
			// Read timeout tick; check for shutdown and keep scanning.
			select {
			case <-s.done:
				return
			default:
			}
			continue
		}
		for _, b := range buf[:n] {
			f, ok, ferr := sc.Feed(b)
			if ferr != nil {
				// Corrupt frame: drop it and resume scanning for the
				// next start marker.
				glog.Warningf("dropped frame: %v", ferr)
				continue
			}
			if ok {
				s.dispatch(f)
			}
		}
	}
}

// dispatch applies one inbound frame to the board state, emits any
// unsolicited events and completes a matching pending command. Acks are
// told apart from unsolicited traffic by command byte, never by timing.
func (s *Session) dispatch(f proto.Frame) {
	glog.V(2).Infof("RCV cmd=0x%02x mask=0x%02x p1=0x%02x p2=0x%02x",
		f.Cmd, f.Mask, f.Param1, f.Param2)

	events := s.state.apply(f)

	s.lock.Lock()
	w := s.waiter
	if w != nil && w.expect == f.Cmd {
		s.waiter = nil
	} else {
		w = nil
	}
	s.lock.Unlock()
	if w != nil {
		w.ch <- f
	}

	for _, ev := range events {
		select {
		case s.events <- ev:
		default:
			// Observer fell behind; drop the oldest to keep draining.
			select {
			case <-s.events:
			default:
			}
			select {
			case s.events <- ev:
			default:
			}
		}
	}
}
