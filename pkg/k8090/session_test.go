package k8090

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaykit/k8090.go/pkg/proto"
	"github.com/relaykit/k8090.go/pkg/transport"
)

// fakeBoard emulates the card behind the Transport interface: frames
// written to it mutate an internal state and queue the responses a real
// board would send. Unsolicited frames can be injected at any time.
type fakeBoard struct {
	mu     sync.Mutex
	rbuf   []byte
	closed bool
	mute   bool // swallow commands without responding
	sc     proto.Scanner

	relays byte
	timers byte
	delays [8]uint16

	momentary, toggle, timed byte

	jumper         bool
	fwYear, fwWeek byte

	frames int // commands received
}

func newFakeBoard() *fakeBoard {
	b := &fakeBoard{toggle: 0xff, fwYear: 0x10, fwWeek: 0x30}
	for i := range b.delays {
		b.delays[i] = 5
	}
	return b
}

func (b *fakeBoard) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, transport.ErrPortClosed
	}
	if len(b.rbuf) == 0 {
		b.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, b.rbuf)
	b.rbuf = b.rbuf[n:]
	b.mu.Unlock()
	return n, nil
}

func (b *fakeBoard) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, transport.ErrPortClosed
	}
	for _, c := range p {
		f, ok, _ := b.sc.Feed(c)
		if ok {
			b.frames++
			if !b.mute {
				b.handle(f)
			}
		}
	}
	return len(p), nil
}

func (b *fakeBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBoard) SetReadTimeout(time.Duration) error { return nil }

func (b *fakeBoard) Flush() error { return nil }

func (b *fakeBoard) handle(f proto.Frame) {
	switch f.Cmd {
	case proto.CmdRelayOn:
		b.switchRelays(b.relays|f.Mask, b.timers)
	case proto.CmdRelayOff:
		b.switchRelays(b.relays&^f.Mask, b.timers&^f.Mask)
	case proto.CmdRelayToggle:
		b.switchRelays(b.relays^f.Mask, b.timers)
	case proto.CmdQueryRelayStatus:
		b.push(proto.Frame{Cmd: proto.EvtRelayState, Mask: b.relays, Param1: b.relays, Param2: b.timers})
	case proto.CmdSetButtonMode:
		b.momentary, b.toggle, b.timed = f.Mask, f.Param1, f.Param2
	case proto.CmdQueryButtonMode:
		b.push(proto.Frame{Cmd: proto.EvtButtonMode, Mask: b.momentary, Param1: b.toggle, Param2: b.timed})
	case proto.CmdStartTimer:
		// A running timer cannot be restarted; the command is ignored.
		if b.timers&f.Mask == 0 {
			b.switchRelays(b.relays|f.Mask, b.timers|f.Mask)
		}
	case proto.CmdSetTimerDelay:
		for i := 0; i < 8; i++ {
			if f.Mask&proto.MaskBit(i) != 0 {
				b.delays[i] = f.Delay()
			}
		}
	case proto.CmdQueryTimerDelay:
		for i := 0; i < 8; i++ {
			if bit := proto.MaskBit(i); f.Mask&bit != 0 {
				b.push(proto.Frame{Cmd: proto.EvtTimerDelay, Mask: bit,
					Param1: byte(b.delays[i] >> 8), Param2: byte(b.delays[i])})
			}
		}
	case proto.CmdFactoryReset:
		b.momentary, b.toggle, b.timed = 0, 0xff, 0
		for i := range b.delays {
			b.delays[i] = 5
		}
	case proto.CmdQueryJumper:
		var p byte
		if b.jumper {
			p = 1
		}
		b.push(proto.Frame{Cmd: proto.EvtJumper, Param1: p})
	case proto.CmdQueryFirmware:
		b.push(proto.Frame{Cmd: proto.EvtFirmware, Param1: b.fwYear, Param2: b.fwWeek})
	}
}

// switchRelays applies new relay and timer masks, answering with a status
// frame only when something actually changed, like the hardware does.
func (b *fakeBoard) switchRelays(relays, timers byte) {
	timers &= relays
	if relays == b.relays && timers == b.timers {
		return
	}
	prev := b.relays
	b.relays, b.timers = relays, timers
	b.push(proto.Frame{Cmd: proto.EvtRelayState, Mask: prev, Param1: relays, Param2: timers})
}

func (b *fakeBoard) push(f proto.Frame) {
	b.rbuf = append(b.rbuf, f.Bytes()...)
}

// inject queues raw bytes as unsolicited board traffic.
func (b *fakeBoard) inject(p []byte) {
	b.mu.Lock()
	b.rbuf = append(b.rbuf, p...)
	b.mu.Unlock()
}

func (b *fakeBoard) setMute(v bool) {
	b.mu.Lock()
	b.mute = v
	b.mu.Unlock()
}

func (b *fakeBoard) frameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

func (b *fakeBoard) modes() (momentary, toggle, timed byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.momentary, b.toggle, b.timed
}

func openTestSession(t *testing.T, board *fakeBoard) *Session {
	t.Helper()
	s, err := Open(Config{Transport: board, CommandTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func relay(t *testing.T, s *Session, index int) *Relay {
	t.Helper()
	r, err := s.Relay(index)
	require.NoError(t, err)
	return r
}

func button(t *testing.T, s *Session, index int) *Button {
	t.Helper()
	b, err := s.Button(index)
	require.NoError(t, err)
	return b
}

func TestOpenPopulatesState(t *testing.T) {
	board := newFakeBoard()
	board.relays = 0x05 // relays 0 and 2 on
	board.jumper = true
	board.momentary, board.toggle, board.timed = 0x01, 0xfc, 0x02
	board.delays[3] = 300

	s := openTestSession(t, board)

	require.True(t, relay(t, s, 0).Status())
	require.False(t, relay(t, s, 1).Status())
	require.True(t, relay(t, s, 2).Status())
	require.Equal(t, uint16(300), relay(t, s, 3).Delay())
	require.Equal(t, ModeMomentary, button(t, s, 0).Mode())
	require.Equal(t, ModeTimed, button(t, s, 1).Mode())
	require.Equal(t, ModeToggle, button(t, s, 7).Mode())
	require.Equal(t, "2016.48", s.FirmwareVersion())
	require.True(t, s.JumperSet())
	require.False(t, s.Stale())
}

func TestRelayOnAck(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	require.NoError(t, relay(t, s, 3).On())
	require.True(t, relay(t, s, 3).Status())
	for _, i := range []int{0, 1, 2, 4, 5, 6, 7} {
		require.False(t, relay(t, s, i).Status(), "relay %d", i)
	}

	require.NoError(t, relay(t, s, 3).Off())
	require.False(t, relay(t, s, 3).Status())
}

func TestRelayToggle(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	r := relay(t, s, 5)

	require.NoError(t, r.Toggle())
	require.True(t, r.Status())
	require.NoError(t, r.Toggle())
	require.False(t, r.Status())
}

func TestRelayOnAlreadyOn(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	r := relay(t, s, 3)

	require.NoError(t, r.On())
	require.True(t, r.Status())
	sent := board.frameCount()

	// The board stays silent on a no-op switch; no frame is written and
	// no timeout is reported.
	require.NoError(t, r.On())
	require.True(t, r.Status())
	require.Equal(t, sent, board.frameCount())

	require.NoError(t, r.Off())
	sent = board.frameCount()
	require.NoError(t, r.Off())
	require.False(t, r.Status())
	require.Equal(t, sent, board.frameCount())
}

func TestCommandTimeoutLeavesStateUnchanged(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	board.setMute(true)

	err := relay(t, s, 2).On()
	require.Error(t, err)
	require.True(t, IsTimeout(err))
	require.False(t, relay(t, s, 2).Status())
}

func TestStartTimerAndExpiry(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	r := relay(t, s, 2)

	require.NoError(t, r.StartTimer(5))
	require.True(t, r.Status())
	require.True(t, r.TimerActive())

	// The board turns the relay off autonomously and reports it.
	expiry := proto.Frame{Cmd: proto.EvtRelayState, Mask: 0x04, Param1: 0x00, Param2: 0x00}
	board.inject(expiry.Bytes())

	require.Eventually(t, func() bool {
		st := r.State()
		return !st.On && !st.TimerActive
	}, time.Second, 5*time.Millisecond)
}

func TestStartTimerOnLitRelay(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	r := relay(t, s, 4)

	require.NoError(t, r.On())
	require.NoError(t, r.StartTimer(10))
	require.True(t, r.Status())
	require.True(t, r.TimerActive())
}

func TestStartTimerWhileRunning(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	r := relay(t, s, 2)

	require.NoError(t, r.StartTimer(5))
	require.True(t, r.TimerActive())
	sent := board.frameCount()

	// A restart is ignored by the board while the timer runs.
	require.NoError(t, r.StartTimer(30))
	require.Equal(t, sent, board.frameCount())
}

func TestStartTimerBadDelay(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	err := relay(t, s, 0).StartTimer(0x10000)
	require.ErrorIs(t, err, ErrInvalidDelay)
}

func TestSetDelayConfirmed(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	require.NoError(t, relay(t, s, 1).SetDelay(300))
	require.Equal(t, uint16(300), relay(t, s, 1).Delay())
}

func TestUnsolicitedEvents(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	press := proto.Frame{Cmd: proto.EvtButtonState, Mask: 0x02, Param1: 0x02}
	board.inject(press.Bytes())

	select {
	case ev := <-s.Events():
		require.Equal(t, ButtonEvent{Index: 1, Pressed: true, Action: ActionPressed}, ev)
	case <-time.After(time.Second):
		t.Fatal("no button event")
	}
	require.True(t, button(t, s, 1).Pressed())

	release := proto.Frame{Cmd: proto.EvtButtonState, Mask: 0x00, Param2: 0x02}
	board.inject(release.Bytes())

	select {
	case ev := <-s.Events():
		require.Equal(t, ButtonEvent{Index: 1, Pressed: false, Action: ActionReleased}, ev)
	case <-time.After(time.Second):
		t.Fatal("no release event")
	}
	require.Equal(t, ActionReleased, button(t, s, 1).Action())
}

func TestRelayAckEmitsEvent(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	require.NoError(t, relay(t, s, 6).On())
	select {
	case ev := <-s.Events():
		require.Equal(t, RelayEvent{Index: 6, On: true}, ev)
	case <-time.After(time.Second):
		t.Fatal("no relay event")
	}
}

func TestSetButtonMode(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	require.NoError(t, button(t, s, 1).SetMode(ModeMomentary))
	require.Equal(t, ModeMomentary, button(t, s, 1).Mode())
	require.Equal(t, ModeToggle, button(t, s, 0).Mode())
	momentary, toggle, _ := board.modes()
	require.Equal(t, byte(0x02), momentary)
	require.Equal(t, byte(0xfd), toggle)
}

func TestSetButtonModeInvalidWritesNothing(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	before := board.frameCount()

	err := button(t, s, 1).SetMode(ButtonMode(7))
	require.ErrorIs(t, err, ErrInvalidMode)
	require.Equal(t, before, board.frameCount())
}

func TestIndexBounds(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	_, err := s.Relay(8)
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = s.Relay(-1)
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = s.Button(8)
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = s.Button(-1)
	require.ErrorIs(t, err, ErrInvalidIndex)
}

func TestFactoryResetMarksStale(t *testing.T) {
	board := newFakeBoard()
	board.momentary = 0x0f
	board.toggle = 0xf0
	s := openTestSession(t, board)

	require.NoError(t, s.FactoryReset())
	require.True(t, s.Stale())

	require.NoError(t, s.Refresh())
	require.False(t, s.Stale())
	require.Equal(t, ModeToggle, button(t, s, 0).Mode())
	require.Equal(t, uint16(5), relay(t, s, 0).Delay())
}

func TestCorruptFrameDropped(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)

	bad := proto.Frame{Cmd: proto.EvtRelayState, Mask: 0x00, Param1: 0xff}.Bytes()
	bad[5] ^= 0x01
	board.inject(bad)

	good := proto.Frame{Cmd: proto.EvtRelayState, Mask: 0x00, Param1: 0x01}
	board.inject(good.Bytes())

	require.Eventually(t, func() bool {
		return relay(t, s, 0).Status()
	}, time.Second, 5*time.Millisecond)
	// The corrupt frame claimed all relays on; only the valid one applied.
	require.False(t, relay(t, s, 7).Status())
}

func TestCloseUnblocksPendingCommand(t *testing.T) {
	board := newFakeBoard()
	s := openTestSession(t, board)
	board.setMute(true)

	r := relay(t, s, 0)
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.On()
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, transport.ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("command still blocked after close")
	}

	// Event channel drains and closes.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-s.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestOpenFailsWithoutBoard(t *testing.T) {
	mock := new(transport.Mock)
	_, err := Open(Config{Transport: mock, CommandTimeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.True(t, IsTimeout(err))

	// The first status query went out on the wire; the silent port was
	// closed again.
	query := proto.Frame{Cmd: proto.CmdQueryRelayStatus}
	require.Equal(t, query.Bytes(), mock.Written())
	require.True(t, mock.Closed())
}

func TestScriptedReplies(t *testing.T) {
	mock := new(transport.Mock)
	status := proto.Frame{Cmd: proto.EvtRelayState, Mask: 0x00, Param1: 0x05}.Bytes()
	mock.WriteFunc = func(p []byte) (int, error) {
		f, err := proto.Decode(p)
		if err != nil {
			return len(p), nil
		}
		switch f.Cmd {
		case proto.CmdQueryRelayStatus:
			// Split the reply mid-frame; the reader must reassemble it.
			mock.Script(status[:3], status[3:])
		case proto.CmdQueryButtonMode:
			mock.Script(proto.Frame{Cmd: proto.EvtButtonMode, Param1: 0xff}.Bytes())
		case proto.CmdQueryTimerDelay:
			mock.Script(proto.Frame{Cmd: proto.EvtTimerDelay, Mask: f.Mask, Param2: 5}.Bytes())
		case proto.CmdQueryJumper:
			mock.Script(proto.Frame{Cmd: proto.EvtJumper}.Bytes())
		case proto.CmdQueryFirmware:
			mock.Script(proto.Frame{Cmd: proto.EvtFirmware, Param1: 0x10, Param2: 0x30}.Bytes())
		}
		return len(p), nil
	}

	s, err := Open(Config{Transport: mock, CommandTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.True(t, relay(t, s, 0).Status())
	require.True(t, relay(t, s, 2).Status())
	require.Equal(t, uint16(5), relay(t, s, 0).Delay())
	require.Equal(t, "2016.48", s.FirmwareVersion())
}

func TestOpenRequiresPortOrTransport(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
