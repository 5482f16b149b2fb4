package card

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/relaykit/k8090.go/pkg/cli/sh"
)

var (
	// InfoCmd prints firmware and jumper info.
	InfoCmd = ishell.Cmd{
		Name:    "card.info",
		Aliases: []string{"i"},
		Help:    "print card info",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			info := sh.ShellFrom(c).Session.CardInfo()
			sh.Print(c, info, func() string {
				jumper := "off"
				if info.Jumper {
					jumper = "on"
				}
				return fmt.Sprintf("firmware %s, event jumper %s", info.Firmware, jumper)
			})
		}),
	}

	// RefreshCmd re-queries all state from the card.
	RefreshCmd = ishell.Cmd{
		Name:    "card.refresh",
		Aliases: []string{"r"},
		Help:    "re-query card state",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Session.Refresh(); err != nil {
				c.Err(err)
			}
		}),
	}

	// ResetCmd restores factory defaults.
	ResetCmd = ishell.Cmd{
		Name: "card.reset",
		Help: "restore factory defaults",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			session := sh.ShellFrom(c).Session
			if err := session.FactoryReset(); err != nil {
				c.Err(err)
				return
			}
			if err := session.Refresh(); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&InfoCmd,
		&RefreshCmd,
		&ResetCmd,
	)
}
