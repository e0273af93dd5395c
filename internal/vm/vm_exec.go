package vm

import (
	"fmt"
	"io"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

// ParseFunc reads one parseable top-level unit (a single Code value) from
// r, or returns io.EOF when the stream is exhausted. It is supplied by
// internal/parse via WithParser rather than imported directly, since the
// parser itself builds vm.Value Code quotations and importing it here
// would create internal/vm <-> internal/parse import cycle.
type ParseFunc func(r io.Reader) (Value, error)

// OpHandler implements one opcode against the VM's stacks.
type OpHandler func(*VM) error

var opTable [numOps]OpHandler

func registerOp(op Op, h OpHandler) { opTable[op] = h }

// Run drives the evaluator until the work stack empties or an
// unrecovered error unwinds past every continuation frame (spec §4.7).
// This is the trampoline described in DESIGN.md: only the top entry of
// work is ever "run"; Code frames are iterated one element at a time,
// nested Code/List literals encountered as elements are pushed as data,
// and dictionary words that resolve to Code are spliced on as a new top
// frame rather than recursed into.
func (v *VM) Run() error {
	return v.runUntil(0)
}

// runNested runs prog to completion — or until an escaping error unwinds
// past prog's own frame — before returning, sharing data/work with the
// caller. Used by guard (spec §4.4), whose body must finish, successfully
// or by error, before the cell's lock is released.
func (v *VM) runNested(prog Value) error {
	depth := len(v.work)
	v.pushWork(prog, "")
	return v.runUntil(depth)
}

// runUntil drives the evaluator the same way Run does, but stops once
// work has drained back to floor (0 for a top-level Run, or the saved
// depth for a nested runNested call) rather than requiring work to be
// completely empty.
func (v *VM) runUntil(floor int) error {
	for len(v.work) > floor {
		if v.cancelled {
			return errf(verr.VmCancelled, "vm cancelled")
		}
		top := &v.work[len(v.work)-1]
		switch top.Tag {
		case TagCode:
			if top.Lst.Len == 0 {
				top.Destroy()
				v.popWorkFrame()
				continue
			}
			el, _ := top.Lst.TakeHead()
			if top.Lst.Len == 0 {
				// tail-call: drop the now-empty frame before running el so a
				// self-recursive tail call doesn't grow work.
				top.Destroy()
				v.popWorkFrame()
			}
			if stop, rerr := v.step(el); stop {
				return rerr
			}
		case TagVM:
			// A sub-VM evaluated as a work frame runs to completion; its
			// final stack is pushed, or its exception propagates (§4.8).
			sub, ok := top.AsVM()
			v.popWorkFrame()
			if !ok {
				continue
			}
			if rerr := sub.Continue(); rerr != nil {
				if _, isQuit := rerr.(*QuitError); isQuit {
					return rerr
				}
				if verr.KindOf(rerr) == verr.Fatal {
					return rerr
				}
				if uerr := v.unwind(rerr); uerr != nil {
					return uerr
				}
				continue
			}
			for _, d := range sub.vm.data {
				v.Push(d)
			}
			sub.vm.data = nil
		case TagFile, TagFd:
			s, _ := top.AsStream()
			if v.parseUnit == nil {
				v.popWorkFrame()
				continue
			}
			unit, perr := v.parseUnit(&streamReader{s: s})
			if perr == io.EOF {
				s.release()
				v.popWorkFrame()
				continue
			}
			if perr != nil {
				if uerr := v.unwind(errf(verr.BadParse, "%v", perr)); uerr != nil {
					return uerr
				}
				continue
			}
			v.pushWork(unit, "")
		default:
			// A bare value frame (pushed directly, or seeded from a sub-VM's
			// work list) dispatches like a single code element: opcodes run,
			// identifiers resolve, push values push.
			el := *top
			v.popWorkFrame()
			if stop, rerr := v.step(el); stop {
				return rerr
			}
		}
	}
	return nil
}

// step dispatches one element, routing any raised error through the
// continuation stack. stop reports that evaluation must end now, with
// rerr as the terminal result (quit, fatal, or an error that escaped
// every continuation frame).
func (v *VM) step(el Value) (stop bool, rerr error) {
	if v.trace {
		fmt.Fprintf(v.stderr, "# %s\n", el.Human())
	}
	err := v.dispatchElement(el)
	if err == nil {
		return false, nil
	}
	if _, isQuit := err.(*QuitError); isQuit {
		return true, err
	}
	if verr.KindOf(err) == verr.Fatal {
		return true, err
	}
	trace := v.callTrace()
	if uerr := v.unwind(err); uerr != nil {
		if len(trace) > 0 {
			return true, &RuntimeError{Err: uerr, Trace: trace}
		}
		return true, uerr
	}
	return false, nil
}

// dispatchElement classifies one element popped from an iterating Code
// frame (spec §4.7's per-element table).
func (v *VM) dispatchElement(el Value) error {
	switch el.Tag {
	case TagOpcode:
		return v.callOp(Op(el.I))
	case TagIdent:
		if el.Escape > 0 {
			el.Escape--
			v.Push(el)
			return nil
		}
		name := el.Str.Bytes()
		def, ok := v.dict.Lookup(name)
		if !ok {
			return errf(verr.Undefined, "unknown word %q", name)
		}
		el.Destroy()
		if def.Tag == TagOpcode {
			return v.callOp(Op(def.I))
		}
		v.pushWork(def.Clone(), name)
		return nil
	case TagBytecode:
		return errf(verr.NotImplemented, "bytecode evaluation not implemented")
	default:
		// Literal push values (int/float/string/list) and nested Code/List
		// quotations are pushed as data without evaluation; the remaining
		// heap tags (dict/ref/file/fd/vm) are likewise inert data here —
		// only a value sitting at the very top of work gets special
		// treatment (Code iterates, Stream streams).
		v.Push(el)
		return nil
	}
}

func (v *VM) callOp(op Op) error {
	if int(op) < 0 || int(op) >= int(numOps) {
		return errf(verr.BadOp, "bad opcode index %d", op)
	}
	h := opTable[op]
	if h == nil {
		return errf(verr.NotImplemented, "opcode %q not implemented", op)
	}
	return h(v)
}

// streamReader adapts a *Stream to io.Reader for the parser's benefit,
// buffering whatever a line-sized read doesn't fit into the caller's
// slice so no bytes are dropped across short reads.
type streamReader struct {
	s   *Stream
	buf []byte
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		line, err := r.s.ReadLine()
		if err != nil {
			return 0, err
		}
		r.buf = append([]byte(line), '\n')
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
