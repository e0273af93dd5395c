// Package concat is the embeddable entry point for the concatenative
// stack-based evaluator: the facade a host Go program (or the cmd/concat
// CLI front end) builds on instead of reaching into internal/vm
// directly, grounded on the teacher's pkg/dwscript facade (New(...Option),
// engine.Eval(src) (Result, error)).
package concat

import (
	"bytes"
	"io"

	"github.com/mikeagun/concat-sub000/internal/parse"
	"github.com/mikeagun/concat-sub000/internal/vm"
)

// Option configures a Machine at construction time.
type Option func(*config)

type config struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	trace  bool
}

// WithStdin overrides the machine's input stream (default os.Stdin).
func WithStdin(r io.Reader) Option { return func(c *config) { c.stdin = r } }

// WithOutput overrides the machine's stdout sink, the same role as the
// teacher's dwscript.WithOutput.
func WithOutput(w io.Writer) Option { return func(c *config) { c.stdout = w } }

// WithStderr overrides the machine's stderr sink.
func WithStderr(w io.Writer) Option { return func(c *config) { c.stderr = w } }

// WithTrace enables opcode-dispatch tracing to stderr (the engine's
// equivalent of the teacher's `--trace` flag).
func WithTrace(on bool) Option { return func(c *config) { c.trace = on } }

// Machine wraps a *vm.VM as the embeddable engine entry point. Unlike
// the teacher's DWScript (which separates Compile from Run because it
// has a real bytecode backend), concat's core has no compile step (spec
// §1 Non-goals: "Bytecode serialization (stubbed)") — Eval parses and
// runs in one call, repeatable against the same persistent dictionary
// and data stack the way successive REPL lines are.
type Machine struct {
	vm        *vm.VM
	ownOutput *bytes.Buffer
}

// New constructs a Machine with a fresh standard dictionary (spec §6.3)
// and the given options applied.
func New(opts ...Option) (*Machine, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	m := &Machine{}
	var vopts []vm.Option
	if cfg.stdin != nil {
		vopts = append(vopts, vm.WithStdin(cfg.stdin))
	}
	if cfg.stdout != nil {
		vopts = append(vopts, vm.WithStdout(cfg.stdout))
	} else {
		m.ownOutput = &bytes.Buffer{}
		vopts = append(vopts, vm.WithStdout(m.ownOutput))
	}
	if cfg.stderr != nil {
		vopts = append(vopts, vm.WithStderr(cfg.stderr))
	}
	vopts = append(vopts, vm.WithTrace(cfg.trace), vm.WithParser(parse.ParseOne))

	m.vm = vm.New(vopts...)
	return m, nil
}

// Result is the outcome of one Eval call.
type Result struct {
	// Output is captured stdout text, populated only when the Machine
	// was constructed without an explicit WithOutput sink.
	Output string
	// Stack holds the data stack's human-readable rendering after
	// evaluation, bottom first (spec §4.6 %v rendering).
	Stack []string
}

// Eval parses src as one top-level unit (spec §4.5) and runs it against
// the machine's persistent dictionary, data, work, and continuation
// stacks, then snapshots the result. An error returned here may be a
// parse error (internal/errors.EngineError of kind BadParse/
// UnexpectedEOL/UnexpectedEOC) or an unrecovered runtime error that
// escaped every continuation frame (spec §7); the latter is wrapped in a
// *vm.RuntimeError carrying the call trace when it was raised inside a
// named dictionary word, and returned bare otherwise.
func (m *Machine) Eval(src string) (Result, error) {
	prog, err := parse.ParseAll(bytesReader(src))
	if err != nil {
		return Result{}, err
	}
	m.vm.PushWork(prog)
	runErr := m.vm.Run()
	return m.snapshot(), runErr
}

// VM exposes the underlying evaluator for callers that need lower-level
// access (e.g. the CLI's -d/-de debugger wiring) beyond what Eval's
// parse-then-run-to-completion shape offers.
func (m *Machine) VM() *vm.VM { return m.vm }

func (m *Machine) snapshot() Result {
	var res Result
	if m.ownOutput != nil {
		res.Output = m.ownOutput.String()
		m.ownOutput.Reset()
	}
	stack := m.vm.Stack()
	res.Stack = make([]string, len(stack))
	for i, v := range stack {
		res.Stack[i] = v.Human()
		v.Destroy()
	}
	return res
}

func bytesReader(s string) *bytes.Reader { return bytes.NewReader([]byte(s)) }
