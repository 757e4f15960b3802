// Command nature compiles routing definitions, loads them into a
// definition store and resolves the missions an instance triggers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nature/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
