package k8090

// Event is an unsolicited state change pushed by the board, delivered on
// Session.Events in arrival order.
type Event interface {
	event()
}

// RelayEvent reports one relay changing state, either from a command ack
// or autonomously (timer expired, button pressed).
type RelayEvent struct {
	Index       int
	On          bool
	TimerActive bool
}

func (RelayEvent) event() {}

// ButtonEvent reports one button edge.
type ButtonEvent struct {
	Index   int
	Pressed bool
	Action  ButtonAction
}

func (ButtonEvent) event() {}
