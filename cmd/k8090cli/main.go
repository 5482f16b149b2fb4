package main

import (
	"github.com/relaykit/k8090.go/pkg/cli/sh"

	_ "github.com/relaykit/k8090.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main()
}
