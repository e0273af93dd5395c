package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpEval, opEval)
	registerOp(OpIf, opIf)
	registerOp(OpIfElse, opIfElse)
	registerOp(OpOnly, opOnly)
	registerOp(OpUnless, opUnless)
	registerOp(OpDip, opDip)
	registerOp(OpTimes, opTimes)
	registerOp(OpWhile, opWhile)
	registerOp(OpQuote, opQuote)
	registerOp(OpProtect, opProtect)
	registerOp(OpWrap, opWrap)
	registerOp(OpWrap2, opWrap2)
	registerOp(OpWrap3, opWrap3)
	registerOp(OpWrapN, opWrapN)
	registerOp(OpDip2, opDip2)
	registerOp(OpDip3, opDip3)
	registerOp(OpDipN, opDipN)
	registerOp(OpSip, opSip)
	registerOp(OpSip2, opSip2)
	registerOp(OpSipN, opSipN)
	registerOp(OpNApply, opNApply)
	registerOp(OpIfU, opIfStrict)
	registerOp(OpIfElseU, opIfElseStrict)
	registerOp(OpLoopU, opLoopU)
}

// eval: ( code -- ... ) runs code now by splicing it onto work as a new
// top frame (spec §4.7's "Code: iterate", triggered explicitly here
// rather than merely by encountering a Code-tagged element).
func opEval(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagCode && a.Tag != TagList {
		return errf(verr.BadType, "eval: expected code or list, got %s", a.Tag)
	}
	v.pushWork(Code(a.Lst), "")
	return nil
}

// if: ( cond then else -- cond ... ) tests cond, leaves it on the stack,
// and runs the chosen branch over it — so `3 [2 *] [1 +] if` is 6 (the
// truthy 3 feeds the then-branch) and `0 [2 *] [1 +] if` is 1. A
// quotation condition is evaluated first, then if_ decides over its
// result. ifelse is the conventional variant that consumes cond.
func opIf(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	cond, then, els := args[0], args[1], args[2]
	if cond.Tag == TagCode {
		gate := Code(NewLstViewFrom([]Value{then, els, Opcode(OpIfU)}))
		v.pushWork(gate, "")
		return runQuot(v, cond)
	}
	return ifStrict(v, cond, then, els)
}

// if_: ( cond then else -- cond ... ) the strict-condition form of if:
// cond is taken as a value (AsBool), never evaluated.
func opIfStrict(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	return ifStrict(v, args[0], args[1], args[2])
}

func ifStrict(v *VM, cond, then, els Value) error {
	truthy := cond.AsBool()
	v.Push(cond)
	if truthy {
		els.Destroy()
		return runQuot(v, then)
	}
	then.Destroy()
	return runQuot(v, els)
}

// ifelse: ( cond then else -- ... ) with a quotation condition evaluated
// first, as in if.
func opIfElse(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	cond, then, els := args[0], args[1], args[2]
	if cond.Tag == TagCode {
		gate := Code(NewLstViewFrom([]Value{then, els, Opcode(OpIfElseU)}))
		v.pushWork(gate, "")
		return runQuot(v, cond)
	}
	return ifElseStrict(v, cond, then, els)
}

// ifelse_: ( bool then else -- ... ) strict-condition ifelse.
func opIfElseStrict(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	return ifElseStrict(v, args[0], args[1], args[2])
}

func ifElseStrict(v *VM, cond, then, els Value) error {
	truthy := cond.AsBool()
	cond.Destroy()
	if truthy {
		els.Destroy()
		return runQuot(v, then)
	}
	then.Destroy()
	return runQuot(v, els)
}

// only: ( cond quot -- ... | cond ) runs quot iff cond is true, dropping
// cond; a false cond stays on the stack and quot is dropped.
func opOnly(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	cond, quot := args[0], args[1]
	if cond.AsBool() {
		cond.Destroy()
		return runQuot(v, quot)
	}
	quot.Destroy()
	v.Push(cond)
	return nil
}

// unless: ( cond quot -- cond | ... ) the complement of only: a true
// cond stays put, a false cond is replaced by quot's evaluation.
func opUnless(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	cond, quot := args[0], args[1]
	if cond.AsBool() {
		quot.Destroy()
		v.Push(cond)
		return nil
	}
	cond.Destroy()
	return runQuot(v, quot)
}

// quote: ( A -- [A] ) wraps the top value in a one-element quotation.
func opQuote(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(Code(NewLstViewFrom([]Value{a})))
	return nil
}

// protect: ( v -- v' ) replaces the top value with one whose evaluation
// pushes v itself (spec §4.1): push values pass through, code gains one
// quotation layer, identifiers gain one escape, active values (opcodes,
// bytecode) become the `[v] first` form.
func opProtect(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(protectValue(a))
	return nil
}

// protectValue is the single-value form of Protect: the returned value,
// when evaluated as a work frame, leaves exactly a on the data stack.
func protectValue(a Value) Value {
	switch {
	case a.IsPush():
		return a
	case a.Tag == TagCode:
		return Code(NewLstViewFrom([]Value{a}))
	case a.Tag == TagIdent:
		a.Escape++
		return a
	default:
		inner := List(NewLstViewFrom([]Value{a}))
		return Code(NewLstViewFrom([]Value{inner, Opcode(OpFirst)}))
	}
}

// wrap: ( A -- (A) ) wraps the top value in a one-element list.
func opWrap(v *VM) error {
	return wrapTop(v, 1)
}

// wrap2: ( A B -- (A B) )
func opWrap2(v *VM) error {
	return wrapTop(v, 2)
}

// wrap3: ( A B C -- (A B C) )
func opWrap3(v *VM) error {
	return wrapTop(v, 3)
}

// wrapn: ( ... n -- (...) ) wraps the top n values in a list.
func opWrapN(v *VM) error {
	n, err := popCount(v, "wrapn")
	if err != nil {
		return err
	}
	return wrapTop(v, n)
}

func wrapTop(v *VM, n int) error {
	args, err := v.popN(n)
	if err != nil {
		return err
	}
	v.Push(List(NewLstViewFrom(args)))
	return nil
}

// popCount pops the integer count operand shared by the n-ary shuffles
// and combinators (dipn, sipn, wrapn, napply).
func popCount(v *VM, opName string) (int, error) {
	nv, err := v.Pop()
	if err != nil {
		return 0, err
	}
	if nv.Tag != TagInt {
		nv.Destroy()
		return 0, errf(verr.BadType, "%s: expected an int count, got %s", opName, nv.Tag)
	}
	n := int(nv.I)
	if n < 0 {
		return 0, errf(verr.BadArgs, "%s: negative count %d", opName, n)
	}
	return n, nil
}

// restoreFrame builds the work frame that re-pushes vals (deepest first)
// after a dipped/sipped quotation has run, protecting each value so the
// re-push never re-evaluates it.
func restoreFrame(vals []Value) Value {
	var elems []Value
	for _, x := range vals {
		elems = append(elems, Protect(x)...)
	}
	return Code(NewLstViewFrom(elems))
}

// dip: ( x [q] -- q... x ) runs q with x temporarily out of the way,
// then restores x on top.
func opDip(v *VM) error {
	return dipN(v, 1)
}

// dip2: ( x y [q] -- q... x y )
func opDip2(v *VM) error {
	return dipN(v, 2)
}

// dip3: ( x y z [q] -- q... x y z )
func opDip3(v *VM) error {
	return dipN(v, 3)
}

// dipn: ( ... [q] n -- q... ... ) dips under the top n values.
func opDipN(v *VM) error {
	n, err := popCount(v, "dipn")
	if err != nil {
		return err
	}
	return dipN(v, n)
}

func dipN(v *VM, n int) error {
	args, err := v.popN(n + 1)
	if err != nil {
		return err
	}
	quot := args[n]
	v.pushWork(restoreFrame(args[:n]), "")
	return runQuot(v, quot)
}

// sip: ( x [q] -- x q... x ) runs q with x still on the stack, then
// pushes a fresh copy of x afterward.
func opSip(v *VM) error {
	return sipN(v, 1)
}

// sip2: ( x y [q] -- x y q... x y )
func opSip2(v *VM) error {
	return sipN(v, 2)
}

// sipn: ( ... [q] n -- ... q... ... ) keeps the top n values across q.
func opSipN(v *VM) error {
	n, err := popCount(v, "sipn")
	if err != nil {
		return err
	}
	return sipN(v, n)
}

func sipN(v *VM, n int) error {
	quot, err := v.Pop()
	if err != nil {
		return err
	}
	if v.DataLen() < n {
		quot.Destroy()
		return errf(verr.MissingArgs, "sip: need %d values, have %d", n, v.DataLen())
	}
	kept := make([]Value, n)
	for i := 0; i < n; i++ {
		x, _ := v.Peek(n - 1 - i)
		kept[i] = x.Clone()
	}
	v.pushWork(restoreFrame(kept), "")
	return runQuot(v, quot)
}

// napply: ( ... x1..xn [q] n -- x1..xn q... <rest restored beneath> )
// runs q against only the top n values: everything beneath them is set
// aside before q runs and restored underneath whatever q leaves behind.
func opNApply(v *VM) error {
	n, err := popCount(v, "napply")
	if err != nil {
		return err
	}
	quot, err := v.Pop()
	if err != nil {
		return err
	}
	if v.DataLen() < n {
		quot.Destroy()
		return errf(verr.MissingArgs, "napply: need %d values, have %d", n, v.DataLen())
	}
	split := len(v.data) - n
	saved := v.data[:split]
	v.data = append([]Value{}, v.data[split:]...)
	rerr := v.runNested(quot)
	v.data = append(saved, v.data...)
	return rerr
}

// times: ( n code -- ... ) runs code n times.
func opTimes(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	n, code := args[0], args[1]
	if n.Tag != TagInt {
		return errf(verr.BadType, "times: expected int count, got %s", n.Tag)
	}
	if n.I <= 0 {
		code.Destroy()
		return nil
	}
	for i := int32(1); i < n.I; i++ {
		v.pushWork(code.Clone(), "")
	}
	return runQuot(v, code)
}

// while: ( cond body -- ... ) repeatedly runs cond; while true, runs
// body then re-evaluates cond. A push-value cond is either a no-op
// (false) or an infinite loop over body (true), matching loop_.
func opWhile(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	cond, body := args[0], args[1]
	if cond.Tag != TagCode {
		truthy := cond.AsBool()
		cond.Destroy()
		if !truthy {
			body.Destroy()
			return nil
		}
		v.Push(body)
		return opLoopU(v)
	}
	return whileStep(v, cond, body)
}

// whileStep builds the two quotations while needs and splices them onto
// work: cond runs first to produce a bool, then gate's ifelse_ decides
// whether to run body-once-then-loop-again (then) or stop.
//
// then must RUN body, not merely push it as data, so it evals it
// explicitly; the remainder of then (cond/body for the next round,
// followed by the native while opcode) is what actually recurses.
func whileStep(v *VM, cond, body Value) error {
	bodyAgain := body.Clone()
	then := Code(NewLstViewFrom([]Value{
		body, Opcode(OpEval),
		cond.Clone(), bodyAgain, Opcode(OpWhile),
	}))
	gate := Code(NewLstViewFrom([]Value{then, EmptyCode(), Opcode(OpIfElseU)}))
	v.pushWork(gate, "")
	return runQuot(v, cond)
}

// loop_: ( body -- ... ) runs body forever; only break or a thrown
// error escapes. Each round re-splices one body run plus a re-arming
// frame rather than recursing the Go call stack.
func opLoopU(v *VM) error {
	body, err := v.Pop()
	if err != nil {
		return err
	}
	if body.Tag != TagCode {
		return errf(verr.BadType, "loop_: expected code, got %s", body.Tag)
	}
	again := Code(NewLstViewFrom([]Value{body.Clone(), Opcode(OpLoopU)}))
	v.pushWork(again, "")
	return runQuot(v, body)
}

// runQuot splices code onto work as the next frame to run (used by every
// combinator that hands control to a popped quotation).
func runQuot(v *VM, code Value) error {
	if code.Tag != TagCode {
		return errf(verr.BadType, "expected code, got %s", code.Tag)
	}
	v.pushWork(code, "")
	return nil
}
