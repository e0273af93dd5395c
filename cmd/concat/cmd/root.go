// Package cmd implements the concat command-line front end (spec §6.1):
// a thin, order-sensitive flag walk over pkg/concat's embeddable Machine,
// built the way the teacher's cmd/dwscript/cmd wraps its own engine in a
// cobra command tree (root.go/run.go/version.go).
package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
	"github.com/mikeagun/concat-sub000/internal/parse"
	"github.com/mikeagun/concat-sub000/internal/vm"
	"github.com/mikeagun/concat-sub000/pkg/concat"
)

var rootCmd = &cobra.Command{
	Use:   "concat [flags] [file...]",
	Short: "concat runs programs in the concat stack-based language",
	Long: `concat is the command-line front end for the concat evaluator: a
postfix, point-free stack language in the tradition of Joy/Forth/Factor,
where programs are compositions of words operating on an implicit stack.

Flags are processed strictly left to right, in the order given:

  -e EXPR   parse EXPR and append it to the pending work
  -f FILE   open FILE and append its contents to the pending work
  -x        evaluate everything queued so far, right now
  -d        run with opcode-dispatch tracing to stderr
  -de       trace-and-report an exception that escapes unhandled
  -         push stdin and enter interactive (line-at-a-time) mode
  --        stop processing flags; remaining args are file names

Trailing positional arguments are file names ("-" still means stdin).`,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE:               runMain,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command; main.go reports its error and exit
// code.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCodeFor maps an error returned by Execute to the process exit
// status spec §6.1 describes: 0 on success, the negated magnitude of a
// fatal error, or the opcode error kind's taxonomy index as a positive
// code otherwise. A *vm.QuitError (the `quit` opcode) carries its own
// requested code verbatim.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if qe, ok := err.(*vm.QuitError); ok {
		return int(qe.Code)
	}
	kind := verr.KindOf(err)
	if kind == verr.Fatal {
		return -1
	}
	if kind == verr.OK {
		return 1
	}
	return int(kind)
}

// cliState threads the one Machine built for this invocation through the
// left-to-right flag walk, tracking the handful of CLI-only modes (trace,
// trace-on-exception, interactive) spec §6.1 layers on top of it.
type cliState struct {
	m           *concat.Machine
	debugOnExc  bool
	interactive bool
}

func runMain(c *cobra.Command, args []string) error {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return c.Help()
		}
	}

	// -d/-de affect how the Machine itself is constructed (tracing), so
	// scan for them before building it; their position relative to -e/-f
	// doesn't change evaluation order, only whether tracing is live from
	// the first pushed unit onward.
	trace, debugOnExc := false, false
	for _, a := range args {
		switch a {
		case "-d":
			trace = true
		case "-de":
			trace, debugOnExc = true, true
		}
	}

	m, err := concat.New(concat.WithTrace(trace))
	if err != nil {
		return err
	}
	st := &cliState{m: m, debugOnExc: debugOnExc}

	stopFlags := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		if stopFlags {
			if err := st.pushFile(a); err != nil {
				return err
			}
			continue
		}
		switch a {
		case "--":
			stopFlags = true
		case "-d", "-de":
			// consumed by the pre-scan above; no stack effect here.
		case "-e":
			i++
			if i >= len(args) {
				return verr.New(verr.BadArgs, "-e requires an expression argument")
			}
			if err := st.pushExpr(args[i]); err != nil {
				return err
			}
		case "-f":
			i++
			if i >= len(args) {
				return verr.New(verr.BadArgs, "-f requires a file argument")
			}
			if err := st.pushFile(args[i]); err != nil {
				return err
			}
		case "-x":
			if err := st.runPending(); err != nil {
				return err
			}
		case "-":
			st.interactive = true
		default:
			if err := st.pushFile(a); err != nil {
				return err
			}
		}
	}

	if err := st.runPending(); err != nil {
		return err
	}
	if st.interactive {
		return st.repl()
	}
	return nil
}

// pushExpr parses src as one unit (spec §4.5) and appends it to the
// machine's pending work.
func (s *cliState) pushExpr(src string) error {
	prog, err := parse.ParseAll(strings.NewReader(src))
	if err != nil {
		return err
	}
	s.m.VM().PushWork(prog)
	return nil
}

// pushFile opens name (or treats "-" as stdin) and appends its contents
// to the machine's pending work as a single parsed unit.
func (s *cliState) pushFile(name string) error {
	if name == "-" {
		s.interactive = true
		return nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return verr.New(verr.IoError, "%v", err)
	}
	prog, perr := parse.ParseAll(bytes.NewReader(data))
	if perr != nil {
		return perr
	}
	s.m.VM().PushWork(prog)
	return nil
}

// runPending drains whatever work is currently queued (spec's -x, and
// the implicit final drain once argument processing finishes).
func (s *cliState) runPending() error {
	err := s.m.VM().Run()
	if err != nil && s.debugOnExc {
		fmt.Fprintf(os.Stderr, "# unhandled exception: %v\n", err)
	}
	return err
}

// repl implements the CLI-boundary equivalent of spec §4.9's
// catch_interactive: read one line at a time from stdin, run it against
// the machine's persistent stacks and dictionary, and on error print and
// keep going rather than exiting. This lives at the CLI boundary (spec
// §1 lists the interactive front end as an out-of-core-scope
// collaborator) rather than as a core dictionary sentinel.
//
// A line that leaves a ( or [ group open is not an error mid-entry: the
// reader buffers it and keeps appending lines until the group closes,
// so tokens typed inside an open quotation accumulate instead of
// evaluating — the observable behavior of the original's noeval mode,
// realized at the reader boundary instead of inside the dispatch loop.
func (s *cliState) repl() error {
	reader := bufio.NewReader(os.Stdin)
	pending := ""
	for {
		line, rerr := reader.ReadString('\n')
		pending += line
		if strings.TrimSpace(pending) != "" {
			unit, perr := parse.ParseAll(strings.NewReader(pending))
			switch {
			case verr.KindOf(perr) == verr.UnexpectedEOL && rerr == nil:
				// group still open; keep reading into the same unit.
			case perr != nil:
				fmt.Fprintln(os.Stderr, perr)
				pending = ""
			default:
				pending = ""
				s.m.VM().PushWork(unit)
				if err := s.m.VM().Run(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		} else {
			pending = ""
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return verr.New(verr.IoError, "%v", rerr)
		}
	}
}
