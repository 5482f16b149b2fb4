package k8090

import (
	"fmt"

	"github.com/relaykit/k8090.go/pkg/proto"
)

// Button is an addressable view over one button of the session's board.
// Buttons are board-controlled inputs: press state and actions change only
// through frames reported by the board.
type Button struct {
	session *Session
	index   int
}

// Index returns the button index (0-7).
func (b *Button) Index() int {
	return b.index
}

// State returns the cached snapshot for this button.
func (b *Button) State() ButtonState {
	return b.session.state.button(b.index)
}

// Pressed reports whether the button is currently held.
func (b *Button) Pressed() bool {
	return b.State().Pressed
}

// Action returns the last reported edge.
func (b *Button) Action() ButtonAction {
	return b.State().Action
}

// Mode returns the cached trigger mode.
func (b *Button) Mode() ButtonMode {
	return b.State().Mode
}

// SetMode reconfigures the trigger mode. The mode command carries the
// full bit field for all 8 buttons, so the cached modes of the others are
// folded in. An invalid mode fails before any bytes are written. The new
// configuration is confirmed with a mode query.
func (b *Button) SetMode(mode ButtonMode) error {
	if !mode.Valid() {
		return &OpError{Op: "button.mode", Err: fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))}
	}
	momentary, toggle, timed := b.session.state.modeMasks(b.index, mode)
	set := proto.Frame{
		Cmd:    proto.CmdSetButtonMode,
		Mask:   momentary,
		Param1: toggle,
		Param2: timed,
	}
	if err := b.session.send(set); err != nil {
		return &OpError{Op: "button.mode", Err: err}
	}
	query := proto.Frame{Cmd: proto.CmdQueryButtonMode}
	if _, err := b.session.do(query, proto.EvtButtonMode); err != nil {
		return &OpError{Op: "button.mode", Err: err}
	}
	return nil
}
