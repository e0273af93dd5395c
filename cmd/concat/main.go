// Command concat is the front-end binary for the concat evaluator: a
// thin wrapper over internal/vm + internal/parse via pkg/concat, built
// the way the teacher's cmd/dwscript wraps its own engine (spec §1: the
// CLI is an out-of-core-scope but summarized boundary, §6.1).
package main

import (
	"fmt"
	"os"

	"github.com/mikeagun/concat-sub000/cmd/concat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}
