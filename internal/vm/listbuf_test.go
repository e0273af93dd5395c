package vm

import "testing"

func TestLstViewRPushLPushOwned(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2)})
	v = v.RPush(Int(3))
	if v.Len != 3 || v.At(2).I != 3 {
		t.Fatalf("RPush result = %v", v.ToSlice())
	}
	v = v.LPush(Int(0))
	if v.Len != 4 || v.At(0).I != 0 {
		t.Fatalf("LPush result = %v", v.ToSlice())
	}
	v.Destroy(func(e Value) { e.Destroy() })
}

func TestLstViewLPopRPop(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2), Int(3)})
	rest, head, ok := v.LPop()
	if !ok || head.I != 1 || rest.Len != 2 {
		t.Fatalf("LPop = %v %v %v", rest.ToSlice(), head, ok)
	}
	rest2, tail, ok := rest.RPop()
	if !ok || tail.I != 3 || rest2.Len != 1 {
		t.Fatalf("RPop = %v %v %v", rest2.ToSlice(), tail, ok)
	}
	rest2.Destroy(func(e Value) { e.Destroy() })
}

func TestLstViewPopEmptyIsFalse(t *testing.T) {
	v := EmptyLstView()
	if _, _, ok := v.LPop(); ok {
		t.Error("LPop on empty view should report ok=false")
	}
	if _, _, ok := v.RPop(); ok {
		t.Error("RPop on empty view should report ok=false")
	}
}

// TestLstViewCoWOnSharedBuffer checks spec §4.2/§3.2: mutating a view
// whose buffer is shared (refcount > 1) must not disturb the other
// view sharing it — it allocates a fresh buffer instead of mutating in
// place.
func TestLstViewCoWOnSharedBuffer(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2)})
	shared := v.Clone() // bumps refcount to 2; v and shared alias the same buffer

	mutated := v.RPush(Int(3))
	if mutated.Buf == shared.Buf && mutated.Len != shared.Len {
		// same buffer but different Len would indicate in-place mutation
		// corrupted the aliasing view; this is the defect CoW exists to
		// prevent.
		if shared.Len != 2 {
			t.Fatalf("mutating the shared view changed the original's Len to %d", shared.Len)
		}
	}
	if shared.Len != 2 || shared.At(0).I != 1 || shared.At(1).I != 2 {
		t.Fatalf("original view was disturbed by a CoW mutation: %v", shared.ToSlice())
	}
	if mutated.Len != 3 {
		t.Fatalf("mutated view Len = %d, want 3", mutated.Len)
	}

	shared.Destroy(func(e Value) { e.Destroy() })
	mutated.Destroy(func(e Value) { e.Destroy() })
}

func TestLstViewSplitAtSharesBuffer(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2), Int(3), Int(4)})
	head, tail := v.SplitAt(2)
	if head.Len != 2 || tail.Len != 2 {
		t.Fatalf("SplitAt(2) = head.Len=%d tail.Len=%d", head.Len, tail.Len)
	}
	if head.Buf != tail.Buf {
		t.Error("SplitAt should produce views sharing the same backing buffer")
	}
	if tail.At(0).I != 3 || tail.At(1).I != 4 {
		t.Fatalf("tail contents = %v, want [3 4]", tail.ToSlice())
	}
	head.Destroy(func(e Value) { e.Destroy() })
	tail.Destroy(nil)
}

// TestConcatLstNoAllocationWhenAbutting checks spec §8.2's law: cat on
// two views sharing the same buffer and abutting in memory produces a
// view into that buffer with no allocation.
func TestConcatLstNoAllocationWhenAbutting(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2), Int(3), Int(4)})
	head, tail := v.SplitAt(2)
	cat := ConcatLst(head, tail)
	if cat.Buf != head.Buf {
		t.Error("concatenating abutting views of the same buffer should reuse that buffer, not allocate")
	}
	if cat.Len != 4 || cat.At(0).I != 1 || cat.At(3).I != 4 {
		t.Fatalf("cat contents = %v, want [1 2 3 4]", cat.ToSlice())
	}
	// ConcatLst never consumes its operands: head and tail remain valid
	// and independently destroyable after the call.
	head.Destroy(func(e Value) { e.Destroy() })
	tail.Destroy(func(e Value) { e.Destroy() })
	cat.Destroy(func(e Value) { e.Destroy() })
}

// TestConcatLstReusesOwnedRightSpace checks the owned-buffer fast path:
// concatenating onto a singly-owned list with right-space reuses that
// buffer rather than allocating, and leaves the contributing operand
// safe to destroy afterward (its moved elements are not double-freed).
func TestConcatLstReusesOwnedRightSpace(t *testing.T) {
	a := NewLstViewFrom([]Value{Int(1)})
	a = a.RPush(Int(2)) // mutate grows with slack (spec §4.2), still sole owner
	b := NewLstViewFrom([]Value{Str("x")})

	cat := ConcatLst(a, b)
	if cat.Buf != a.Buf {
		t.Error("concatenating onto an owned buffer with right-space should reuse it")
	}
	if cat.Len != 3 || cat.At(2).Str.Bytes() != "x" {
		t.Fatalf("cat contents = %v, want [.. .. \"x\"]", cat.ToSlice())
	}
	a.Destroy(func(e Value) { e.Destroy() })
	b.Destroy(func(e Value) { e.Destroy() })
	cat.Destroy(func(e Value) { e.Destroy() })
}

func TestConcatLstEmptyOperands(t *testing.T) {
	a := EmptyLstView()
	b := NewLstViewFrom([]Value{Int(1)})
	cat := ConcatLst(a, b)
	if cat.Len != 1 || cat.At(0).I != 1 {
		t.Fatalf("cat with empty lhs = %v", cat.ToSlice())
	}
	cat.Destroy(func(e Value) { e.Destroy() })
}

// TestConcatLstSharedOperandKeepsAliases checks the non-abutting merge
// paths against a dup'd operand: the two views share one buffer, so the
// merge must clone that side's elements rather than clearing its window
// out from under the still-live alias.
func TestConcatLstSharedOperandKeepsAliases(t *testing.T) {
	orig := NewLstViewFrom([]Value{Int(1), Int(2), Int(3)})
	alias := orig.Clone()
	other := NewLstViewFrom([]Value{Int(4), Int(5)})

	cat := ConcatLst(alias, other)
	if cat.Len != 5 || cat.At(0).I != 1 || cat.At(4).I != 5 {
		t.Fatalf("cat contents = %v, want [1 2 3 4 5]", cat.ToSlice())
	}
	if orig.At(0).I != 1 || orig.At(1).I != 2 || orig.At(2).I != 3 {
		t.Fatalf("dup'd alias was corrupted by the merge: %v", orig.ToSlice())
	}

	alias.Destroy(destroyElem)
	other.Destroy(destroyElem)
	orig.Destroy(destroyElem)
	cat.Destroy(destroyElem)
}

// TestLstViewSharedGrowClonesElements checks that growing a shared view
// retains its nested heap-backed elements: after the CoW grow, the
// element's own buffer must be owned once by each aliasing list.
func TestLstViewSharedGrowClonesElements(t *testing.T) {
	v := NewLstViewFrom([]Value{Str("a")})
	shared := v.Clone()

	grown := v.RPush(Str("b"))
	if grown.At(0).Str.Bytes() != "a" || shared.At(0).Str.Bytes() != "a" {
		t.Fatalf("grow disturbed element contents: %q vs %q",
			grown.At(0).Str.Bytes(), shared.At(0).Str.Bytes())
	}
	if got := shared.At(0).Str.Buf.refcount(); got != 2 {
		t.Fatalf("nested element refcount = %d, want 2 (one per aliasing list)", got)
	}

	shared.Destroy(destroyElem)
	grown.Destroy(destroyElem)
}

// TestLstViewSetAtDestroysDisplaced checks that setith on a singly-owned
// collection releases the element it overwrites.
func TestLstViewSetAtDestroysDisplaced(t *testing.T) {
	old := Str("gone")
	buf := old.Str.Buf
	v := NewLstViewFrom([]Value{old})

	v = v.SetAt(0, Int(1))
	if got := buf.refcount(); got != 0 {
		t.Fatalf("displaced element refcount = %d, want 0", got)
	}
	if v.At(0).I != 1 {
		t.Fatalf("SetAt result = %v, want [1]", v.ToSlice())
	}
	v.Destroy(destroyElem)
}

func TestLstViewSetAtCoW(t *testing.T) {
	v := NewLstViewFrom([]Value{Int(1), Int(2)})
	shared := v.Clone()
	updated := v.SetAt(0, Int(99))
	if shared.At(0).I != 1 {
		t.Fatalf("SetAt on a shared view mutated the alias: %v", shared.ToSlice())
	}
	if updated.At(0).I != 99 {
		t.Fatalf("SetAt result = %v, want first element 99", updated.ToSlice())
	}
	shared.Destroy(nil)
	updated.Destroy(nil)
}
