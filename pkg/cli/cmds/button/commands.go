package button

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/relaykit/k8090.go/pkg/cli/sh"
	"github.com/relaykit/k8090.go/pkg/k8090"
)

func buttonArg(c *ishell.Context) (*k8090.Button, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("BUTTON required"))
		return nil, false
	}
	index, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("Invalid BUTTON: %v", err))
		return nil, false
	}
	b, err := sh.ShellFrom(c).Session.Button(index)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	return b, true
}

func parseMode(s string) (k8090.ButtonMode, error) {
	switch s {
	case "momentary", "m":
		return k8090.ModeMomentary, nil
	case "toggle", "t":
		return k8090.ModeToggle, nil
	case "timed", "d":
		return k8090.ModeTimed, nil
	}
	if val, err := strconv.Atoi(s); err == nil {
		mode := k8090.ButtonMode(val)
		if mode.Valid() {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("Invalid MODE %q, want momentary|toggle|timed", s)
}

func printState(c *ishell.Context, st k8090.ButtonState) {
	sh.Print(c, st, func() string {
		status := "released"
		if st.Pressed {
			status = "pressed"
		}
		return fmt.Sprintf("button %d: %s, mode %s", st.Index, status, st.Mode)
	})
}

var (
	// StatusCmd prints the state of one or all buttons.
	StatusCmd = ishell.Cmd{
		Name:    "button.status",
		Aliases: []string{"bs"},
		Help:    "[BUTTON]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			session := sh.ShellFrom(c).Session
			if len(c.Args) > 0 {
				b, ok := buttonArg(c)
				if !ok {
					return
				}
				printState(c, b.State())
				return
			}
			for i := 0; i < k8090.ChannelCount; i++ {
				b, _ := session.Button(i)
				printState(c, b.State())
			}
		}),
	}

	// ModeCmd changes the mode of a button.
	ModeCmd = ishell.Cmd{
		Name:    "button.mode",
		Aliases: []string{"bm"},
		Help:    "BUTTON momentary|toggle|timed",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			b, ok := buttonArg(c)
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("MODE required"))
				return
			}
			mode, err := parseMode(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			if err := b.SetMode(mode); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatusCmd,
		&ModeCmd,
	)
}
