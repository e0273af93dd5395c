package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpEach, opEach)
	registerOp(OpEachR, opEachR)
	registerOp(OpMap, opMap)
	registerOp(OpFilter, opFilter)
	registerOp(OpCleave, opCleave)
	registerOp(OpSpread, opSpread)
	registerOp(OpBi, opBi)
	registerOp(OpTri, opTri)
	registerOp(OpLinrec, opLinrec)
	registerOp(OpBinrec, opBinrec)
}

func popCollAndQuot(v *VM) (LstView, bool, Value, error) {
	args, err := v.popN(2)
	if err != nil {
		return LstView{}, false, Value{}, err
	}
	coll, quot := args[0], args[1]
	if quot.Tag != TagCode {
		coll.Destroy()
		quot.Destroy()
		return LstView{}, false, Value{}, errf(verr.BadType, "expected code, got %s", quot.Tag)
	}
	lv, isCode, err := asColl(coll)
	if err != nil {
		quot.Destroy()
		return LstView{}, false, Value{}, err
	}
	return lv, isCode, quot, nil
}

// each: ( coll quot -- ) runs quot once per element, left to right,
// leaving whatever quot produces on the stack; no result collection is
// built.
func opEach(v *VM) error {
	lv, _, quot, err := popCollAndQuot(v)
	if err != nil {
		return err
	}
	for {
		next, head, ok := lv.LPop()
		if !ok {
			break
		}
		lv = next
		v.Push(head)
		if rerr := v.runNested(quot.Clone()); rerr != nil {
			quot.Destroy()
			lv.Destroy(destroyElem)
			return rerr
		}
	}
	quot.Destroy()
	lv.Destroy(destroyElem)
	return nil
}

// eachr: ( coll quot -- ) like each, but right to left.
func opEachR(v *VM) error {
	lv, _, quot, err := popCollAndQuot(v)
	if err != nil {
		return err
	}
	for {
		next, tail, ok := lv.RPop()
		if !ok {
			break
		}
		lv = next
		v.Push(tail)
		if rerr := v.runNested(quot.Clone()); rerr != nil {
			quot.Destroy()
			lv.Destroy(destroyElem)
			return rerr
		}
	}
	quot.Destroy()
	lv.Destroy(destroyElem)
	return nil
}

// map: ( coll quot -- coll' ) runs quot once per element, left to right,
// collecting the single value it leaves on top of stack into a result
// collection of the same kind (list stays list, code stays code).
func opMap(v *VM) error {
	lv, isCode, quot, err := popCollAndQuot(v)
	if err != nil {
		return err
	}
	floor := v.DataLen()
	var out []Value
	for {
		next, head, ok := lv.LPop()
		if !ok {
			break
		}
		lv = next
		v.Push(head)
		if rerr := v.runNested(quot.Clone()); rerr != nil {
			quot.Destroy()
			lv.Destroy(destroyElem)
			return rerr
		}
		if v.DataLen() <= floor {
			quot.Destroy()
			lv.Destroy(destroyElem)
			return errf(verr.BadArgs, "map: quotation left nothing on the stack")
		}
		result, _ := v.Pop()
		out = append(out, result)
	}
	quot.Destroy()
	lv.Destroy(destroyElem)
	v.Push(collOf(isCode, NewLstViewFrom(out)))
	return nil
}

// filter: ( coll quot -- coll' ) keeps each element for which a clone
// run through quot leaves a truthy value on top of stack.
func opFilter(v *VM) error {
	lv, isCode, quot, err := popCollAndQuot(v)
	if err != nil {
		return err
	}
	floor := v.DataLen()
	var out []Value
	for {
		next, head, ok := lv.LPop()
		if !ok {
			break
		}
		lv = next
		v.Push(head.Clone())
		if rerr := v.runNested(quot.Clone()); rerr != nil {
			head.Destroy()
			quot.Destroy()
			lv.Destroy(destroyElem)
			return rerr
		}
		if v.DataLen() <= floor {
			head.Destroy()
			quot.Destroy()
			lv.Destroy(destroyElem)
			return errf(verr.BadArgs, "filter: quotation left nothing on the stack")
		}
		keepVal, _ := v.Pop()
		keep := keepVal.AsBool()
		keepVal.Destroy()
		if keep {
			out = append(out, head)
		} else {
			head.Destroy()
		}
	}
	quot.Destroy()
	lv.Destroy(destroyElem)
	v.Push(collOf(isCode, NewLstViewFrom(out)))
	return nil
}

// runOneResult runs quot against the current stack and pops exactly the
// one value it is expected to leave, used by cleave/spread/bi/tri. The
// caller has just pushed quot's single argument, so the floor sits one
// below the current depth: quot consumes that argument and leaves its
// result in its place.
func runOneResult(v *VM, quot Value) (Value, error) {
	floor := v.DataLen() - 1
	if err := v.runNested(quot); err != nil {
		return Value{}, err
	}
	if v.DataLen() <= floor {
		return Value{}, errf(verr.BadArgs, "quotation left nothing on the stack")
	}
	return v.Pop()
}

// cleave: ( x [[q1]..[qn]] -- r1..rn ) runs every quotation in the list
// against its own clone of x, pushing results in order.
func opCleave(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	x, quots := args[0], args[1]
	qlv, _, err := asColl(quots)
	if err != nil {
		x.Destroy()
		return err
	}
	elems := qlv.ToSlice()
	results := make([]Value, 0, len(elems))
	for i, q := range elems {
		if q.Tag != TagCode {
			x.Destroy()
			qlv.Destroy(destroyElem)
			for _, r := range results {
				r.Destroy()
			}
			return errf(verr.BadType, "cleave: element %d is not code", i)
		}
		v.Push(x.Clone())
		r, rerr := runOneResult(v, q.Clone())
		if rerr != nil {
			x.Destroy()
			qlv.Destroy(destroyElem)
			for _, r := range results {
				r.Destroy()
			}
			return rerr
		}
		results = append(results, r)
	}
	x.Destroy()
	qlv.Destroy(destroyElem)
	for _, r := range results {
		v.Push(r)
	}
	return nil
}

// spread: ( x1..xn [[q1]..[qn]] -- r1..rn ) runs qi against xi.
func opSpread(v *VM) error {
	quots, err := v.Pop()
	if err != nil {
		return err
	}
	qlv, _, err := asColl(quots)
	if err != nil {
		return err
	}
	n := qlv.Len
	xs, perr := v.popN(n)
	if perr != nil {
		qlv.Destroy(func(e Value) { e.Destroy() })
		return perr
	}
	elems := qlv.ToSlice()
	results := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		q := elems[i]
		if q.Tag != TagCode {
			for _, x := range xs[i:] {
				x.Destroy()
			}
			for _, r := range results {
				r.Destroy()
			}
			qlv.Destroy(destroyElem)
			return errf(verr.BadType, "spread: element %d is not code", i)
		}
		v.Push(xs[i])
		r, rerr := runOneResult(v, q.Clone())
		if rerr != nil {
			for _, x := range xs[i+1:] {
				x.Destroy()
			}
			for _, r := range results {
				r.Destroy()
			}
			qlv.Destroy(destroyElem)
			return rerr
		}
		results = append(results, r)
	}
	qlv.Destroy(destroyElem)
	for _, r := range results {
		v.Push(r)
	}
	return nil
}

// bi: ( x q1 q2 -- r1 r2 ) cleave specialized to two quotations.
func opBi(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	x, q1, q2 := args[0], args[1], args[2]
	v.Push(x.Clone())
	r1, err := runOneResult(v, q1)
	if err != nil {
		x.Destroy()
		q2.Destroy()
		return err
	}
	v.Push(x)
	r2, err := runOneResult(v, q2)
	if err != nil {
		r1.Destroy()
		return err
	}
	v.Push(r1)
	v.Push(r2)
	return nil
}

// tri: ( x q1 q2 q3 -- r1 r2 r3 ) cleave specialized to three quotations.
func opTri(v *VM) error {
	args, err := v.popN(4)
	if err != nil {
		return err
	}
	x, q1, q2, q3 := args[0], args[1], args[2], args[3]
	v.Push(x.Clone())
	r1, err := runOneResult(v, q1)
	if err != nil {
		x.Destroy()
		q2.Destroy()
		q3.Destroy()
		return err
	}
	v.Push(x.Clone())
	r2, err := runOneResult(v, q2)
	if err != nil {
		x.Destroy()
		r1.Destroy()
		q3.Destroy()
		return err
	}
	v.Push(x)
	r3, err := runOneResult(v, q3)
	if err != nil {
		r1.Destroy()
		r2.Destroy()
		return err
	}
	v.Push(r1)
	v.Push(r2)
	v.Push(r3)
	return nil
}

// linrec: ( test base rec1 rec2 -- ... ) linear recursion combinator:
// runs test against a clone of the current top value; if true runs
// base, else runs rec1, recurses, then runs rec2. Implemented as Go
// recursion (not VM work-stack splicing) since each level needs to run
// rec2 strictly after the recursive call returns.
func opLinrec(v *VM) error {
	args, err := v.popN(4)
	if err != nil {
		return err
	}
	test, base, rec1, rec2 := args[0], args[1], args[2], args[3]
	err = linrecStep(v, test, base, rec1, rec2)
	test.Destroy()
	base.Destroy()
	rec1.Destroy()
	rec2.Destroy()
	return err
}

func linrecStep(v *VM, test, base, rec1, rec2 Value) error {
	top, perr := v.Peek(0)
	if perr != nil {
		return perr
	}
	v.Push(top.Clone())
	cond, cerr := runOneResult(v, test.Clone())
	if cerr != nil {
		return cerr
	}
	truthy := cond.AsBool()
	cond.Destroy()
	if truthy {
		return v.runNested(base.Clone())
	}
	if err := v.runNested(rec1.Clone()); err != nil {
		return err
	}
	if err := linrecStep(v, test, base, rec1, rec2); err != nil {
		return err
	}
	return v.runNested(rec2.Clone())
}

// binrec: ( test base rec1 rec2 -- ... ) binary recursion combinator:
// like linrec, but rec1 is expected to split the current top value into
// two independent sub-problems (pushed left-then-right); each branch
// recurses fully on its own before rec2 combines the two results.
func opBinrec(v *VM) error {
	args, err := v.popN(4)
	if err != nil {
		return err
	}
	test, base, rec1, rec2 := args[0], args[1], args[2], args[3]
	err = binrecStep(v, test, base, rec1, rec2)
	test.Destroy()
	base.Destroy()
	rec1.Destroy()
	rec2.Destroy()
	return err
}

func binrecStep(v *VM, test, base, rec1, rec2 Value) error {
	top, perr := v.Peek(0)
	if perr != nil {
		return perr
	}
	v.Push(top.Clone())
	cond, cerr := runOneResult(v, test.Clone())
	if cerr != nil {
		return cerr
	}
	truthy := cond.AsBool()
	cond.Destroy()
	if truthy {
		return v.runNested(base.Clone())
	}
	if err := v.runNested(rec1.Clone()); err != nil {
		return err
	}
	// rec1 left (left right) with right on top; recurse into right first,
	// then swap the left sub-problem up and recurse into it, then
	// reorder so rec2 sees (leftResult rightResult).
	if err := binrecStep(v, test, base, rec1, rec2); err != nil {
		return err
	}
	if err := opSwap(v); err != nil {
		return err
	}
	if err := binrecStep(v, test, base, rec1, rec2); err != nil {
		return err
	}
	if err := opSwap(v); err != nil {
		return err
	}
	return v.runNested(rec2.Clone())
}
