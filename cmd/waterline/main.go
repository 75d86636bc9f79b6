// Command waterline compiles vector programs for CKKS homomorphic
// encryption and runs them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/waterline/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
