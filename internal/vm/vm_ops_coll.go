package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpEmpty, opCollEmpty)
	registerOp(OpSize, opSize)
	registerOp(OpLPop, opLPop)
	registerOp(OpLPush, opLPush)
	registerOp(OpRPop, opRPop)
	registerOp(OpRPush, opRPush)
	registerOp(OpFirst, opFirstOp)
	registerOp(OpRest, opRest)
	registerOp(OpIth, opIth)
	registerOp(OpSetIth, opSetIth)
	registerOp(OpCat, opCat)
	registerOp(OpCons, opCons)
	registerOp(OpUncons, opUncons)
	registerOp(OpReverse, opReverse)
	registerOp(OpSplitAt, opSplitAtOp)
	registerOp(OpNth, opIth)
	registerOp(OpDNth, opDNth)
	registerOp(OpSetNth, opSetIth)
	registerOp(OpSwapNth, opSwapNth)
	registerOp(OpLast, opLast)
	registerOp(OpSmall, opSmall)
	registerOp(OpDFirst, opDFirst)
	registerOp(OpDLast, opDLast)
	registerOp(OpRAppend, opRAppend)
	registerOp(OpSplitN, opSplitAtOp)
	registerOp(OpSort, opSort)
	registerOp(OpRSort, opRSort)
	registerOp(OpClearList, opClearList)
}

func asColl(v Value) (LstView, bool, error) {
	switch v.Tag {
	case TagList, TagCode:
		return v.Lst, v.Tag == TagCode, nil
	default:
		return LstView{}, false, errf(verr.BadType, "expected list or code, got %s", v.Tag)
	}
}

func collOf(isCode bool, lv LstView) Value {
	if isCode {
		return Code(lv)
	}
	return List(lv)
}

// empty: ( coll -- bool ) true if the list/string/code has no elements.
func opCollEmpty(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	switch a.Tag {
	case TagString, TagIdent, TagBytecode:
		v.Push(Int(b2i(a.Str.Len == 0)))
	case TagList, TagCode:
		v.Push(Int(b2i(a.Lst.Len == 0)))
	default:
		return errf(verr.BadType, "empty: expected collection, got %s", a.Tag)
	}
	a.Destroy()
	return nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// size: ( coll -- n )
func opSize(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	var n int
	switch a.Tag {
	case TagString, TagIdent, TagBytecode:
		n = a.Str.Len
	case TagList, TagCode:
		n = a.Lst.Len
	default:
		return errf(verr.BadType, "size: expected collection, got %s", a.Tag)
	}
	a.Destroy()
	v.Push(Int(int32(n)))
	return nil
}

// lpop: ( coll -- coll' head )
func opLPop(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag == TagString || a.Tag == TagIdent {
		sv, c, ok := a.Str.LPop()
		if !ok {
			return errf(verr.Empty, "lpop: empty string")
		}
		a.Str = sv
		v.Push(a)
		v.Push(Str(string(c)))
		return nil
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	nv, head, ok := lv.LPop()
	if !ok {
		return errf(verr.Empty, "lpop: empty collection")
	}
	v.Push(collOf(isCode, nv))
	v.Push(head)
	return nil
}

// rpop: ( coll -- coll' last )
func opRPop(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	nv, tail, ok := lv.RPop()
	if !ok {
		return errf(verr.Empty, "rpop: empty collection")
	}
	v.Push(collOf(isCode, nv))
	v.Push(tail)
	return nil
}

// lpush: ( coll val -- coll' ) prepend val.
func opLPush(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	coll, val := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	v.Push(collOf(isCode, lv.LPush(val)))
	return nil
}

// rpush: ( coll val -- coll' ) append val.
func opRPush(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	coll, val := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	v.Push(collOf(isCode, lv.RPush(val)))
	return nil
}

// first: ( coll -- head ) like lpop but discards the remainder.
func opFirstOp(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	nv, head, ok := lv.LPop()
	if !ok {
		return errf(verr.Empty, "first: empty collection")
	}
	nv.Destroy(func(e Value) { e.Destroy() })
	v.Push(head)
	return nil
}

// rest: ( coll -- coll' ) like lpop but discards the head.
func opRest(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	nv, head, ok := lv.LPop()
	if !ok {
		return errf(verr.Empty, "rest: empty collection")
	}
	head.Destroy()
	v.Push(collOf(isCode, nv))
	return nil
}

// ith: ( coll i -- elem ) 0-indexed element access (no removal).
func opIth(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	coll, idx := args[0], args[1]
	lv, _, err := asColl(coll)
	if err != nil {
		return err
	}
	i := int(idx.I)
	if i < 0 || i >= lv.Len {
		return errf(verr.BadArgs, "ith: index %d out of range [0,%d)", i, lv.Len)
	}
	v.Push(lv.At(i).Clone())
	coll.Destroy()
	return nil
}

// setith: ( coll i val -- coll' )
func opSetIth(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	coll, idx, val := args[0], args[1], args[2]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	i := int(idx.I)
	if i < 0 || i >= lv.Len {
		return errf(verr.BadArgs, "setith: index %d out of range [0,%d)", i, lv.Len)
	}
	v.Push(collOf(isCode, lv.SetAt(i, val)))
	return nil
}

// cat: ( a b -- a++b ) concatenate two collections of the same kind.
func opCat(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if a.Tag == TagString || a.Tag == TagIdent {
		v.Push(StrFromView(ConcatStr(a.Str, b.Str)))
		a.Destroy()
		b.Destroy()
		return nil
	}
	al, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	bl, _, err := asColl(b)
	if err != nil {
		return err
	}
	v.Push(collOf(isCode, ConcatLst(al, bl)))
	a.Destroy()
	b.Destroy()
	return nil
}

// cons: ( elem coll -- coll' ) prepend, operand order opposite lpush.
func opCons(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	elem, coll := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	v.Push(collOf(isCode, lv.LPush(elem)))
	return nil
}

// uncons: ( coll -- head coll' ) like lpop with results swapped.
func opUncons(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	nv, head, ok := lv.LPop()
	if !ok {
		return errf(verr.Empty, "uncons: empty collection")
	}
	v.Push(head)
	v.Push(collOf(isCode, nv))
	return nil
}

// reverse: ( coll -- coll' )
func opReverse(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	elems := lv.TakeElems()
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	v.Push(collOf(isCode, NewLstViewFrom(out)))
	return nil
}

// splitat: ( coll n -- head tail ) also bound as splitn (spec vocabulary
// names both; original_source/src/opcodes.h documents them with the same
// stack effect).
func opSplitAtOp(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	coll, n := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	h, t := lv.SplitAt(int(n.I))
	v.Push(collOf(isCode, h))
	v.Push(collOf(isCode, t))
	return nil
}

// dnth: ( coll n -- coll' elem ) destructive nth — removes and returns
// the element at index n, closing the gap.
func opDNth(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	coll, idx := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	i := int(idx.I)
	if i < 0 || i >= lv.Len {
		return errf(verr.BadArgs, "dnth: index %d out of range [0,%d)", i, lv.Len)
	}
	h, t := lv.SplitAt(i)
	t2, elem, _ := t.LPop()
	v.Push(collOf(isCode, ConcatLst(h, t2)))
	v.Push(elem)
	h.Destroy(destroyElem)
	t2.Destroy(destroyElem)
	return nil
}

// swapnth: ( coll n val -- coll' oldval ) replaces the element at index n
// and returns the value it displaced.
func opSwapNth(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	coll, idx, val := args[0], args[1], args[2]
	lv, isCode, err := asColl(coll)
	if err != nil {
		return err
	}
	i := int(idx.I)
	if i < 0 || i >= lv.Len {
		val.Destroy()
		return errf(verr.BadArgs, "swapnth: index %d out of range [0,%d)", i, lv.Len)
	}
	// The clone taken here becomes the sole live reference once SetAt
	// destroys the slot's own reference to the displaced element.
	old := lv.At(i).Clone()
	v.Push(collOf(isCode, lv.SetAt(i, val)))
	v.Push(old)
	return nil
}

// last: ( coll -- elem ) like first but from the right.
func opLast(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	nv, tail, ok := lv.RPop()
	if !ok {
		return errf(verr.Empty, "last: empty collection")
	}
	nv.Destroy(func(e Value) { e.Destroy() })
	v.Push(tail)
	return nil
}

// dfirst: ( coll -- coll first ) first without consuming the collection.
func opDFirst(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	if lv.Len == 0 {
		return errf(verr.Empty, "dfirst: empty collection")
	}
	v.Push(lv.At(0).Clone())
	return nil
}

// dlast: ( coll -- coll last ) last without consuming the collection.
func opDLast(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	lv, _, err := asColl(a)
	if err != nil {
		return err
	}
	if lv.Len == 0 {
		return errf(verr.Empty, "dlast: empty collection")
	}
	v.Push(lv.At(lv.Len - 1).Clone())
	return nil
}

// rappend: ( val coll -- coll' ) appends val to coll, flattening when
// val is itself a collection of the same family (so (A) (B) rappend is
// (B A), matching cat with the operands crossed).
func opRAppend(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	val, coll := args[0], args[1]
	lv, isCode, err := asColl(coll)
	if err != nil {
		val.Destroy()
		return err
	}
	if val.Tag == TagList || val.Tag == TagCode {
		v.Push(collOf(isCode, ConcatLst(lv, val.Lst)))
		coll.Destroy()
		val.Destroy()
		return nil
	}
	v.Push(collOf(isCode, lv.RPush(val)))
	return nil
}

// small: ( coll -- bool ) true if the collection holds at most one
// element — the predicate linrec/binrec style recursion bottoms out on.
func opSmall(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	var small bool
	switch a.Tag {
	case TagString, TagIdent, TagBytecode:
		small = a.Str.Len <= 1
	case TagList, TagCode:
		small = a.Lst.Len <= 1
	default:
		return errf(verr.BadType, "small: expected collection, got %s", a.Tag)
	}
	a.Destroy()
	v.Push(Int(b2i(small)))
	return nil
}

// sort: ( coll -- coll' ) ascending sort by Value.Compare.
func opSort(v *VM) error {
	return sortOp(v, false)
}

// rsort: ( coll -- coll' ) descending sort by Value.Compare.
func opRSort(v *VM) error {
	return sortOp(v, true)
}

func sortOp(v *VM, reverse bool) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	lv, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	elems := lv.TakeElems()
	sortValues(elems, reverse)
	v.Push(collOf(isCode, NewLstViewFrom(elems)))
	return nil
}

// sortValues insertion-sorts elems in place by Value.Compare; collections
// are small enough in practice (spec's `small` predicate gates recursion
// at size <= 1) that O(n^2) is not worth a dependency.
func sortValues(elems []Value, reverse bool) {
	for i := 1; i < len(elems); i++ {
		for j := i; j > 0; j-- {
			c := Compare(elems[j-1], elems[j])
			swap := c == Greater
			if reverse {
				swap = c == Less
			}
			if !swap {
				break
			}
			elems[j-1], elems[j] = elems[j], elems[j-1]
		}
	}
}

// clearlist: ( coll -- coll' ) empties a list/code value in place,
// destroying any contained elements, keeping the same collection kind.
func opClearList(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	_, isCode, err := asColl(a)
	if err != nil {
		return err
	}
	a.Destroy()
	v.Push(collOf(isCode, EmptyLstView()))
	return nil
}
