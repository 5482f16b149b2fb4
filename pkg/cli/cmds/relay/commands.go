package relay

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/relaykit/k8090.go/pkg/cli/sh"
	"github.com/relaykit/k8090.go/pkg/k8090"
)

func relayArg(c *ishell.Context) (*k8090.Relay, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("RELAY required"))
		return nil, false
	}
	index, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("Invalid RELAY: %v", err))
		return nil, false
	}
	r, err := sh.ShellFrom(c).Session.Relay(index)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	return r, true
}

func printState(c *ishell.Context, st k8090.RelayState) {
	sh.Print(c, st, func() string {
		status := "off"
		if st.On {
			status = "on"
		}
		out := fmt.Sprintf("relay %d: %s, delay %ds", st.Index, status, st.Delay)
		if st.TimerActive {
			out += " (timer running)"
		}
		return out
	})
}

var (
	// StatusCmd prints the state of one or all relays.
	StatusCmd = ishell.Cmd{
		Name:    "relay.status",
		Aliases: []string{"rs"},
		Help:    "[RELAY]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			session := sh.ShellFrom(c).Session
			if len(c.Args) > 0 {
				r, ok := relayArg(c)
				if !ok {
					return
				}
				printState(c, r.State())
				return
			}
			for i := 0; i < k8090.ChannelCount; i++ {
				r, _ := session.Relay(i)
				printState(c, r.State())
			}
		}),
	}

	// OnCmd switches a relay on.
	OnCmd = ishell.Cmd{
		Name:    "relay.on",
		Aliases: []string{"on"},
		Help:    "RELAY",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if r, ok := relayArg(c); ok {
				if err := r.On(); err != nil {
					c.Err(err)
				}
			}
		}),
	}

	// OffCmd switches a relay off.
	OffCmd = ishell.Cmd{
		Name:    "relay.off",
		Aliases: []string{"off"},
		Help:    "RELAY",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if r, ok := relayArg(c); ok {
				if err := r.Off(); err != nil {
					c.Err(err)
				}
			}
		}),
	}

	// ToggleCmd inverts a relay.
	ToggleCmd = ishell.Cmd{
		Name:    "relay.toggle",
		Aliases: []string{"t"},
		Help:    "RELAY",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if r, ok := relayArg(c); ok {
				if err := r.Toggle(); err != nil {
					c.Err(err)
				}
			}
		}),
	}

	// TimerCmd starts the auto-off timer of a relay.
	TimerCmd = ishell.Cmd{
		Name:    "relay.timer",
		Aliases: []string{"rt"},
		Help:    "RELAY [SECONDS]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			r, ok := relayArg(c)
			if !ok {
				return
			}
			seconds := 0 // 0 selects the delay stored on the board
			if len(c.Args) > 1 {
				val, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("Invalid SECONDS: %v", err))
					return
				}
				seconds = val
			}
			if err := r.StartTimer(seconds); err != nil {
				c.Err(err)
			}
		}),
	}

	// DelayCmd stores a new timer delay for a relay.
	DelayCmd = ishell.Cmd{
		Name:    "relay.delay",
		Aliases: []string{"rd"},
		Help:    "RELAY SECONDS",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			r, ok := relayArg(c)
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("SECONDS required"))
				return
			}
			seconds, err := strconv.Atoi(c.Args[1])
			if err != nil {
				c.Err(fmt.Errorf("Invalid SECONDS: %v", err))
				return
			}
			if err := r.SetDelay(seconds); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatusCmd,
		&OnCmd,
		&OffCmd,
		&ToggleCmd,
		&TimerCmd,
		&DelayCmd,
	)
}
