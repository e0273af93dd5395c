package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

// Push places a value on top of the data stack.
func (v *VM) Push(val Value) { v.data = append(v.data, val) }

// Pop removes and returns the top of the data stack.
func (v *VM) Pop() (Value, error) {
	n := len(v.data)
	if n == 0 {
		return Value{}, errf(verr.Empty, "pop: data stack empty")
	}
	val := v.data[n-1]
	v.data = v.data[:n-1]
	return val, nil
}

// Peek returns the i'th-from-top value (0 = top) without removing it.
func (v *VM) Peek(i int) (Value, error) {
	n := len(v.data)
	if i < 0 || i >= n {
		return Value{}, errf(verr.Empty, "peek: data stack underflow")
	}
	return v.data[n-1-i], nil
}

// DataLen returns the current data stack depth.
func (v *VM) DataLen() int { return len(v.data) }

// Stack returns a clone of the entire data stack, bottom first (used by
// vm.stack to snapshot a sub-VM's results).
func (v *VM) Stack() []Value {
	out := make([]Value, len(v.data))
	for i, d := range v.data {
		out[i] = d.Clone()
	}
	return out
}

// SetStack replaces the entire data stack with vals (used by
// vm.setstack to seed a sub-VM before running it).
func (v *VM) SetStack(vals []Value) {
	for _, d := range v.data {
		d.Destroy()
	}
	v.data = vals
}

// WStack returns a clone of the entire work stack, bottom first (spec
// §4.8's vm.wstack, the work-stack counterpart of vm.stack used by the
// debugger to inspect a sub-VM's pending frames).
func (v *VM) WStack() []Value {
	out := make([]Value, len(v.work))
	for i, w := range v.work {
		out[i] = w.Clone()
	}
	return out
}

// SetWStack replaces the entire work stack with vals, bottom first
// (spec §4.8's vm.wsetstack), destroying whatever frames were pending.
func (v *VM) SetWStack(vals []Value) {
	for _, w := range v.work {
		w.Destroy()
	}
	v.work = vals
	v.frameNames = make([]string, len(vals))
}

// popN pops n values in stack order (deepest first), for opcode handlers
// that need several operands at once.
func (v *VM) popN(n int) ([]Value, error) {
	if len(v.data) < n {
		return nil, errf(verr.MissingArgs, "need %d args, have %d", n, len(v.data))
	}
	start := len(v.data) - n
	out := make([]Value, n)
	copy(out, v.data[start:])
	v.data = v.data[:start]
	return out, nil
}

// CPush opens a new continuation-stack frame (spec §4.9), saving the
// current stack depths so a later throw can unwind back to them.
func (v *VM) CPush(handler Value, isCatch bool) {
	v.cont = append(v.cont, ContFrame{
		handler:   handler,
		dataDepth: len(v.data),
		workDepth: len(v.work),
		isCatch:   isCatch,
	})
}

// CPop removes and returns the innermost continuation frame.
func (v *VM) CPop() (ContFrame, bool) {
	n := len(v.cont)
	if n == 0 {
		return ContFrame{}, false
	}
	f := v.cont[n-1]
	v.cont = v.cont[:n-1]
	return f, true
}

// topWork returns a pointer to the current top work frame, or nil if work
// is empty.
func (v *VM) topWork() *Value {
	if len(v.work) == 0 {
		return nil
	}
	return &v.work[len(v.work)-1]
}

// pushWork splices val onto work as the new top frame, recording name
// (a dictionary word, or "" for an anonymous/literal frame) so an
// unhandled error can be reported with a call trace (spec §7).
func (v *VM) pushWork(val Value, name string) {
	v.work = append(v.work, val)
	v.frameNames = append(v.frameNames, name)
}

// popWorkFrame removes the top work frame, without destroying it (the
// caller has already consumed or relocated its contents).
func (v *VM) popWorkFrame() {
	v.work = v.work[:len(v.work)-1]
	v.frameNames = v.frameNames[:len(v.frameNames)-1]
}

// trimWork truncates work (and its parallel frameNames) back to depth,
// used by unwind to restore a saved continuation-frame snapshot.
func (v *VM) trimWork(depth int) {
	v.work = v.work[:depth]
	if depth < len(v.frameNames) {
		v.frameNames = v.frameNames[:depth]
	}
}

// callTrace returns a snapshot of the current call trail, oldest frame
// first, for a RuntimeError raised right now.
func (v *VM) callTrace() verr.StackTrace {
	if len(v.frameNames) == 0 {
		return nil
	}
	st := make(verr.StackTrace, 0, len(v.frameNames))
	for _, n := range v.frameNames {
		if n == "" {
			continue
		}
		st = append(st, verr.NewStackFrame(n, nil))
	}
	return st
}
