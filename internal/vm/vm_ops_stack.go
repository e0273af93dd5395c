package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpNop, func(v *VM) error { return nil })
	registerOp(OpBreak, func(v *VM) error { return errf(verr.Break, "break") })
	registerOp(OpZero, func(v *VM) error { v.Push(Int(0)); return nil })
	registerOp(OpOne, func(v *VM) error { v.Push(Int(1)); return nil })
	registerOp(OpEmptyList, func(v *VM) error { v.Push(EmptyList()); return nil })
	registerOp(OpEmptyCode, func(v *VM) error { v.Push(EmptyCode()); return nil })

	registerOp(OpPop, opPop)
	registerOp(OpSwap, opSwap)
	registerOp(OpDup, opDup)
	registerOp(OpDup2, opDup2)
	registerOp(OpDup3, opDup3)
	registerOp(OpOver, opDup2)
	registerOp(OpRot, digFixed(2))
	registerOp(OpPopd, opPopd)
	registerOp(OpDupd, opDupd)
	registerOp(OpDig2, digFixed(2))
	registerOp(OpDig3, digFixed(3))
	registerOp(OpBury2, buryFixed(2))
	registerOp(OpBury3, buryFixed(3))
	registerOp(OpFlip3, flipFixed(3))
	registerOp(OpFlip4, flipFixed(4))
	registerOp(OpDupN, opDupN)
	registerOp(OpDigN, opDigN)
	registerOp(OpBuryN, opBuryN)
	registerOp(OpFlipN, opFlipN)

	registerOp(OpCollapse, opCollapse)
	registerOp(OpRestore, opRestore)
	registerOp(OpExpand, opExpand)
	registerOp(OpClear, opClear)
}

// dup2: ( a b -- a b a ) copies the second item to the top; over is the
// same word under its Forth-tradition name.
func opDup2(v *VM) error {
	a, err := v.Peek(1)
	if err != nil {
		return err
	}
	v.Push(a.Clone())
	return nil
}

// dup3: ( a b c -- a b c a ) copies the third item to the top.
func opDup3(v *VM) error {
	a, err := v.Peek(2)
	if err != nil {
		return err
	}
	v.Push(a.Clone())
	return nil
}

// dupn: ( ... n -- ... x ) copies the item n deep (1 = top) to the top;
// dup/dup2/dup3 are its fixed-arity special cases.
func opDupN(v *VM) error {
	nv, err := v.Pop()
	if err != nil {
		return err
	}
	n := int(nv.I)
	nv.Destroy()
	if n < 1 || n > v.DataLen() {
		return errf(verr.BadArgs, "dupn: index %d out of range [1,%d]", n, v.DataLen())
	}
	a, err := v.Peek(n - 1)
	if err != nil {
		return err
	}
	v.Push(a.Clone())
	return nil
}

// dign n digs the item n+1 deep out and brings it to the top, rotating
// the n items above it down to fill the gap ( a b c 2 -- b c a ).
// dig2/dig3 (and rot, an alias for dig2) are its fixed special cases.
func opDigN(v *VM) error {
	nv, err := v.Pop()
	if err != nil {
		return err
	}
	n := int(nv.I)
	nv.Destroy()
	if n < 1 || n >= v.DataLen() {
		return errf(verr.BadArgs, "dign: depth %d out of range [1,%d)", n, v.DataLen())
	}
	return dig(v, n)
}

func digFixed(n int) OpHandler {
	return func(v *VM) error { return dig(v, n) }
}

func dig(v *VM, n int) error {
	args, err := v.popN(n + 1)
	if err != nil {
		return err
	}
	for _, a := range args[1:] {
		v.Push(a)
	}
	v.Push(args[0])
	return nil
}

// buryn n sinks the top item n deep ( a b c 2 -- c a b ), the inverse of
// dign. bury2/bury3 are its fixed special cases.
func opBuryN(v *VM) error {
	nv, err := v.Pop()
	if err != nil {
		return err
	}
	n := int(nv.I)
	nv.Destroy()
	if n < 1 || n >= v.DataLen() {
		return errf(verr.BadArgs, "buryn: depth %d out of range [1,%d)", n, v.DataLen())
	}
	return bury(v, n)
}

func buryFixed(n int) OpHandler {
	return func(v *VM) error { return bury(v, n) }
}

func bury(v *VM, n int) error {
	args, err := v.popN(n + 1)
	if err != nil {
		return err
	}
	v.Push(args[n])
	for _, a := range args[:n] {
		v.Push(a)
	}
	return nil
}

// flipn: ( ... n -- ... ) reverses the top n items; flip3/flip4 are its
// fixed special cases.
func opFlipN(v *VM) error {
	nv, err := v.Pop()
	if err != nil {
		return err
	}
	n := int(nv.I)
	nv.Destroy()
	if n < 0 || n > v.DataLen() {
		return errf(verr.BadArgs, "flipn: count %d out of range [0,%d]", n, v.DataLen())
	}
	return flip(v, n)
}

func flipFixed(n int) OpHandler {
	return func(v *VM) error { return flip(v, n) }
}

func flip(v *VM, n int) error {
	args, err := v.popN(n)
	if err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		v.Push(args[i])
	}
	return nil
}

// pop: ( a -- ) discards the top of stack, destroying it.
func opPop(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	a.Destroy()
	return nil
}

// swap: ( a b -- b a )
func opSwap(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	v.Push(args[1])
	v.Push(args[0])
	return nil
}

// dup: ( a -- a a )
func opDup(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(a)
	v.Push(a.Clone())
	return nil
}

// popd: ( a b -- b ) drops the second item.
func opPopd(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	args[0].Destroy()
	v.Push(args[1])
	return nil
}

// dupd: ( a b -- a a b ) duplicates the second item.
func opDupd(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	v.Push(args[0])
	v.Push(args[0].Clone())
	v.Push(args[1])
	return nil
}

// collapse: ( ... -- (...) ) gathers the entire data stack, bottom
// first, into one list that becomes the only stack entry.
func opCollapse(v *VM) error {
	vals := v.data
	v.data = nil
	v.Push(List(NewLstViewFrom(vals)))
	return nil
}

// expand: ( ... (a b) -- ... a b ) pushes a list's elements in order.
func opExpand(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	for _, e := range lv.TakeElems() {
		v.Push(e)
	}
	return nil
}

// restore: ( a b (c d) -- c d a b ) inserts a list's elements beneath
// the rest of the stack, undoing a collapse taken before an napply-style
// isolated evaluation.
func opRestore(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	below := lv.TakeElems()
	v.data = append(below, v.data...)
	return nil
}

// clear: ( ... -- ) empties the data stack.
func opClear(v *VM) error {
	for _, d := range v.data {
		d.Destroy()
	}
	v.data = v.data[:0]
	return nil
}
