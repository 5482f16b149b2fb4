package k8090

import (
	"fmt"
	"sync"

	"github.com/relaykit/k8090.go/pkg/proto"
)

// ChannelCount is the number of relays and the number of buttons per board.
const ChannelCount = 8

// ButtonMode is the trigger mode of a button.
type ButtonMode int

// Button modes supported by the board.
const (
	ModeMomentary ButtonMode = iota
	ModeToggle
	ModeTimed
)

// Valid reports whether the mode is in the enumerated set.
func (m ButtonMode) Valid() bool {
	return m >= ModeMomentary && m <= ModeTimed
}

func (m ButtonMode) String() string {
	switch m {
	case ModeMomentary:
		return "momentary"
	case ModeToggle:
		return "toggle"
	case ModeTimed:
		return "timed"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ButtonAction is the last edge reported for a button.
type ButtonAction int

// Button actions.
const (
	ActionNone ButtonAction = iota
	ActionPressed
	ActionReleased
)

func (a ButtonAction) String() string {
	switch a {
	case ActionPressed:
		return "pressed"
	case ActionReleased:
		return "released"
	}
	return "none"
}

// RelayState is a snapshot of one relay.
type RelayState struct {
	Index       int
	On          bool
	Delay       uint16 // timer delay in seconds, as last reported
	TimerActive bool
}

// ButtonState is a snapshot of one button.
type ButtonState struct {
	Index   int
	Mode    ButtonMode
	Pressed bool
	Action  ButtonAction
}

// CardInfo is the card-level metadata, static until re-queried.
type CardInfo struct {
	Firmware string // "YYYY.WW", year/week the firmware was compiled
	Jumper   bool   // event jumper present: buttons no longer drive relays
}

// boardState holds the decoded state of one board. A status frame always
// overwrites all 8 channels of its kind inside one critical section, so
// readers never observe a mixed old/new snapshot.
type boardState struct {
	mu      sync.RWMutex
	relays  [ChannelCount]RelayState
	buttons [ChannelCount]ButtonState
	card    CardInfo
	stale   bool
}

func newBoardState() *boardState {
	s := &boardState{stale: true}
	for i := range s.relays {
		s.relays[i].Index = i
		s.buttons[i].Index = i
	}
	return s
}

// apply routes one inbound frame into the state. It returns events for the
// unsolicited observers; query-style reports return none.
func (s *boardState) apply(f proto.Frame) []Event {
	switch f.Cmd {
	case proto.EvtRelayState:
		return s.applyRelayState(f)
	case proto.EvtButtonState:
		return s.applyButtonState(f)
	case proto.EvtButtonMode:
		s.applyButtonMode(f)
	case proto.EvtTimerDelay:
		s.applyTimerDelay(f)
	case proto.EvtJumper:
		s.mu.Lock()
		s.card.Jumper = f.Param1 >= 1
		s.mu.Unlock()
	case proto.EvtFirmware:
		s.mu.Lock()
		s.card.Firmware = fmt.Sprintf("%d.%d", 2000+int(f.Param1), int(f.Param2))
		s.mu.Unlock()
	}
	return nil
}

// applyRelayState handles a 51h frame: MASK is the previous state, PARAM1
// the current state, PARAM2 the timer-active flags. All 8 relays are
// overwritten as one transition; edges derive from MASK vs PARAM1.
func (s *boardState) applyRelayState(f proto.Frame) []Event {
	var events []Event
	s.mu.Lock()
	for i := 0; i < ChannelCount; i++ {
		bit := proto.MaskBit(i)
		prev := f.Mask&bit != 0
		on := f.Param1&bit != 0
		active := f.Param2&bit != 0
		if prev != on {
			events = append(events, RelayEvent{Index: i, On: on, TimerActive: active})
		}
		s.relays[i].On = on
		s.relays[i].TimerActive = active
	}
	s.mu.Unlock()
	return events
}

// applyButtonState handles a 50h frame: MASK is the pressed-now bits,
// PARAM1 the just-pressed bits, PARAM2 the just-released bits.
func (s *boardState) applyButtonState(f proto.Frame) []Event {
	var events []Event
	s.mu.Lock()
	for i := 0; i < ChannelCount; i++ {
		bit := proto.MaskBit(i)
		s.buttons[i].Pressed = f.Mask&bit != 0
		switch {
		case f.Param1&bit != 0:
			s.buttons[i].Action = ActionPressed
			events = append(events, ButtonEvent{Index: i, Pressed: true, Action: ActionPressed})
		case f.Param2&bit != 0:
			s.buttons[i].Action = ActionReleased
			events = append(events, ButtonEvent{Index: i, Pressed: false, Action: ActionReleased})
		}
	}
	s.mu.Unlock()
	return events
}

// applyButtonMode handles a 22h report: MASK selects buttons in momentary
// mode, PARAM1 toggle, PARAM2 timed.
func (s *boardState) applyButtonMode(f proto.Frame) {
	s.mu.Lock()
	for i := 0; i < ChannelCount; i++ {
		bit := proto.MaskBit(i)
		switch {
		case f.Mask&bit != 0:
			s.buttons[i].Mode = ModeMomentary
		case f.Param1&bit != 0:
			s.buttons[i].Mode = ModeToggle
		case f.Param2&bit != 0:
			s.buttons[i].Mode = ModeTimed
		}
	}
	s.mu.Unlock()
}

// applyTimerDelay handles a 44h report; the board sends one frame per
// selected relay.
func (s *boardState) applyTimerDelay(f proto.Frame) {
	delay := f.Delay()
	s.mu.Lock()
	for i := 0; i < ChannelCount; i++ {
		if f.Mask&proto.MaskBit(i) != 0 {
			s.relays[i].Delay = delay
		}
	}
	s.mu.Unlock()
}

func (s *boardState) relay(index int) RelayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relays[index]
}

func (s *boardState) button(index int) ButtonState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buttons[index]
}

func (s *boardState) cardInfo() CardInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.card
}

// modeMasks folds the cached button modes into the three mode bit fields
// of a 21h command, with the button at index forced to mode.
func (s *boardState) modeMasks(index int, mode ButtonMode) (momentary, toggle, timed byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, b := range s.buttons {
		m := b.Mode
		if i == index {
			m = mode
		}
		bit := proto.MaskBit(i)
		switch m {
		case ModeMomentary:
			momentary |= bit
		case ModeToggle:
			toggle |= bit
		case ModeTimed:
			timed |= bit
		}
	}
	return
}

func (s *boardState) setStale(v bool) {
	s.mu.Lock()
	s.stale = v
	s.mu.Unlock()
}

func (s *boardState) isStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}
