package k8090

import (
	"fmt"

	"github.com/relaykit/k8090.go/pkg/proto"
)

// Relay is an addressable view over one relay of the session's board.
type Relay struct {
	session *Session
	index   int
}

// Index returns the relay index (0-7).
func (r *Relay) Index() int {
	return r.index
}

// State returns the cached snapshot for this relay.
func (r *Relay) State() RelayState {
	return r.session.state.relay(r.index)
}

// Status reports whether the relay is currently on.
func (r *Relay) Status() bool {
	return r.State().On
}

// Delay returns the timer delay in seconds, as last reported.
func (r *Relay) Delay() uint16 {
	return r.State().Delay
}

// TimerActive reports whether the auto-off timer is running.
func (r *Relay) TimerActive() bool {
	return r.State().TimerActive
}

// On switches the relay on. The board acks with a relay status frame; the
// cached state is updated from the ack before On returns. A relay that is
// already on is left alone: the board stays silent when a switch command
// changes nothing.
func (r *Relay) On() error {
	return r.switchCmd("relay.on", proto.CmdRelayOn, true)
}

// Off switches the relay off.
func (r *Relay) Off() error {
	return r.switchCmd("relay.off", proto.CmdRelayOff, false)
}

// Toggle inverts the relay state.
func (r *Relay) Toggle() error {
	f := proto.Frame{Cmd: proto.CmdRelayToggle, Mask: proto.MaskBit(r.index)}
	if _, err := r.session.do(f, proto.EvtRelayState); err != nil {
		return &OpError{Op: "relay.toggle", Err: err}
	}
	return nil
}

func (r *Relay) switchCmd(op string, cmd byte, want bool) error {
	if r.Status() == want {
		return nil
	}
	f := proto.Frame{Cmd: cmd, Mask: proto.MaskBit(r.index)}
	if _, err := r.session.do(f, proto.EvtRelayState); err != nil {
		// An event can race the pre-check; a silent board with the relay
		// already in the requested state is not a failure.
		if IsTimeout(err) && r.Status() == want {
			return nil
		}
		return &OpError{Op: op, Err: err}
	}
	return nil
}

// StartTimer switches the relay on with an auto-off timer. A delay of 0
// uses the delay stored on the board. When the timer expires the board
// reports the relay off via an unsolicited status frame. The board ignores
// the command, silently, while the timer is already running.
func (r *Relay) StartTimer(seconds int) error {
	if seconds < 0 || seconds > 0xffff {
		return &OpError{Op: "relay.timer", Err: fmt.Errorf("%w: %d", ErrInvalidDelay, seconds)}
	}
	st := r.State()
	if st.On && st.TimerActive {
		return nil
	}
	f := proto.Frame{
		Cmd:    proto.CmdStartTimer,
		Mask:   proto.MaskBit(r.index),
		Param1: byte(seconds >> 8),
		Param2: byte(seconds),
	}
	if _, err := r.session.do(f, proto.EvtRelayState); err != nil {
		if st = r.State(); IsTimeout(err) && st.On && st.TimerActive {
			return nil
		}
		return &OpError{Op: "relay.timer", Err: err}
	}
	return nil
}

// SetDelay stores a new timer delay on the board and confirms it with a
// delay query, so the cached value reflects what the board accepted.
func (r *Relay) SetDelay(seconds int) error {
	if seconds < 0 || seconds > 0xffff {
		return &OpError{Op: "relay.delay", Err: fmt.Errorf("%w: %d", ErrInvalidDelay, seconds)}
	}
	set := proto.Frame{
		Cmd:    proto.CmdSetTimerDelay,
		Mask:   proto.MaskBit(r.index),
		Param1: byte(seconds >> 8),
		Param2: byte(seconds),
	}
	if err := r.session.send(set); err != nil {
		return &OpError{Op: "relay.delay", Err: err}
	}
	query := proto.Frame{Cmd: proto.CmdQueryTimerDelay, Mask: proto.MaskBit(r.index)}
	if _, err := r.session.do(query, proto.EvtTimerDelay); err != nil {
		return &OpError{Op: "relay.delay", Err: err}
	}
	return nil
}
