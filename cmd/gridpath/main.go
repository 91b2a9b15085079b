// Command gridpath composes capacity-expansion model modules, solves
// scenarios, and persists their results.
package main

import (
	"fmt"
	"os"

	"github.com/souissim/gridpath/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
