// Package all imports every command package for registration.
package all

import (
	_ "github.com/relaykit/k8090.go/pkg/cli/cmds/button"
	_ "github.com/relaykit/k8090.go/pkg/cli/cmds/card"
	_ "github.com/relaykit/k8090.go/pkg/cli/cmds/relay"
)
