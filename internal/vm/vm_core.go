package vm

import (
	"io"
	"os"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

// ContFrame is one continuation-stack entry: a saved exception-handler
// state (spec §4.9), restored when a throw unwinds to it. dataDepth/
// workDepth snapshot the depth the stacks should be trimmed back to;
// handler holds the catch quotation to run with the thrown value pushed.
type ContFrame struct {
	handler   Value
	dataDepth int
	workDepth int
	isCatch   bool
}

// VM is the evaluator: three stacks (data, work, cont) plus a scoped
// dictionary, the dictionary standing in as the fourth stack of the
// original four-stack design (spec §3, §4.7).
type VM struct {
	data []Value
	// work is a stack of pending top-level values; only the very top
	// entry is ever "run" (§4.7): if it is Code, its head element is
	// popped and dispatched each step; if it is a Stream, the next
	// parseable unit is read and spliced on top of it (see vm_exec.go).
	work []Value
	// frameNames runs parallel to work: frameNames[i] is the dictionary
	// word whose body work[i] is (or "" for an anonymous/literal
	// frame), used only to build a RuntimeError call trace when an error
	// escapes every continuation frame (spec §7 "the main loop, which may
	// print it").
	frameNames []string
	cont       []ContFrame
	dict       *Dict

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// stdinS/stdoutS/stderrS cache the Stream wrapping stdin/stdout/stderr
	// so repeated `stdin`/`stdout`/`stderr` opcode calls share one buffered
	// reader/writer instead of each minting its own (which would lose or
	// duplicate already-buffered bytes).
	stdinS  *Stream
	stdoutS *Stream
	stderrS *Stream

	trace bool

	// parseUnit reads the next top-level parseable unit from a Stream
	// value sitting at the top of work (see vm_exec.go). Supplied by
	// internal/parse via WithParser to avoid an import cycle.
	parseUnit ParseFunc

	// cancelled is set by an enclosing Sub-VM/thread join wanting to stop
	// a runaway evaluation (spec §4.8 vm cancellation).
	cancelled bool
}

// Option configures a VM at construction time, the same functional-
// options shape the teacher exposes as cobra-bound flags and that
// db47h-ngaro's vm.Option uses for its own VM constructor.
type Option func(*VM) error

// WithStdin overrides the VM's input stream (default os.Stdin).
func WithStdin(r io.Reader) Option {
	return func(v *VM) error { v.stdin = r; return nil }
}

// WithStdout overrides the VM's output stream (default os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(v *VM) error { v.stdout = w; return nil }
}

// WithStderr overrides the VM's error stream (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(v *VM) error { v.stderr = w; return nil }
}

// WithTrace enables per-opcode execution tracing to stderr, the engine's
// equivalent of the teacher's `--trace` cobra flag.
func WithTrace(on bool) Option {
	return func(v *VM) error { v.trace = on; return nil }
}

// WithParser wires in the top-level unit parser (internal/parse.ParseOne,
// adapted); without one, Stream values placed on work are simply dropped
// instead of streamed.
func WithParser(p ParseFunc) Option {
	return func(v *VM) error { v.parseUnit = p; return nil }
}

// New builds a VM with its dictionary pre-populated by InitDict.
func New(opts ...Option) *VM {
	v := &VM{
		dict:   NewDict(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		_ = opt(v)
	}
	InitDict(v.dict)
	return v
}

// Finished reports whether the work stack is empty (spec's vm_finished).
func (v *VM) Finished() bool { return len(v.work) == 0 }

// PushWork places prog (normally a Code value) onto work as a new top
// frame to run next.
func (v *VM) PushWork(prog Value) {
	v.pushWork(prog, "")
}

// errf wraps an errors.Kind as an EngineError convenience for opcode
// handlers in vm_ops_*.go.
func errf(kind verr.Kind, format string, args ...any) error {
	return verr.New(kind, format, args...)
}
