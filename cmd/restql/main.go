// Command restql reads and writes database records and runs scripted
// transactions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/restql/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report through their formatter; only errors cobra
		// raises itself (bad flags, wrong arg counts) still need printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
