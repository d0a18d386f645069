// Command replisync keeps a local document store in step with a sync gateway.
package main

import (
	"os"

	"github.com/custodia-labs/replisync/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
