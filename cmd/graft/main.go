// Command graft builds, applies, and rolls back binary patch bundles
// between directory trees.
package main

import (
	"os"

	"github.com/sam-mfb/graft/pkg/cli"
)

var version = "dev"

func main() {
	app := cli.NewApp("graft", version, "directory patch bundler and applier")
	err := app.Run(os.Args)
	os.Exit(cli.ExitCode(err))
}
