package vm

import (
	"fmt"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

// RuntimeError pairs an engine error with the word-call trace active when
// it was raised, adapted from the teacher's bytecode.RuntimeError (which
// paired a compiled-frame call trace with its error); here the trace is
// built from dictionary word names rather than compiled call frames,
// since concat has no separate compile step.
type RuntimeError struct {
	Err   error
	Trace verr.StackTrace
}

func (e *RuntimeError) Error() string {
	if len(e.Trace) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s\n%s", e.Err.Error(), e.Trace.String())
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Kind reports the underlying engine error kind for callers deciding how
// to report the failure (e.g. exit code selection in cmd/concat).
func (e *RuntimeError) Kind() verr.Kind { return verr.KindOf(e.Err) }
