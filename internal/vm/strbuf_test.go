package vm

import "testing"

func TestStrViewRPushLPushOwned(t *testing.T) {
	v := NewStrView("ab")
	v = v.RPush('c')
	if v.Bytes() != "abc" {
		t.Fatalf("RPush result = %q", v.Bytes())
	}
	v = v.LPush('z')
	if v.Bytes() != "zabc" {
		t.Fatalf("LPush result = %q", v.Bytes())
	}
	v.Destroy()
}

func TestStrViewLPopRPop(t *testing.T) {
	v := NewStrView("abc")
	rest, head, ok := v.LPop()
	if !ok || head != 'a' || rest.Bytes() != "bc" {
		t.Fatalf("LPop = %q %q %v", rest.Bytes(), head, ok)
	}
	rest2, tail, ok := rest.RPop()
	if !ok || tail != 'c' || rest2.Bytes() != "b" {
		t.Fatalf("RPop = %q %q %v", rest2.Bytes(), tail, ok)
	}
	rest2.Destroy()
}

func TestStrViewPopEmptyIsFalse(t *testing.T) {
	v := EmptyStrView()
	if _, _, ok := v.LPop(); ok {
		t.Error("LPop on empty view should report ok=false")
	}
	if _, _, ok := v.RPop(); ok {
		t.Error("RPop on empty view should report ok=false")
	}
}

// TestStrViewCoWOnSharedBuffer checks spec §4.2/§3.2: mutating a view
// whose buffer is shared must not disturb the other view sharing it.
func TestStrViewCoWOnSharedBuffer(t *testing.T) {
	v := NewStrView("ab")
	shared := v.Clone()

	mutated := v.RPush('c')
	if shared.Bytes() != "ab" {
		t.Fatalf("mutating a shared view disturbed the original: %q", shared.Bytes())
	}
	if mutated.Bytes() != "abc" {
		t.Fatalf("mutated view = %q, want abc", mutated.Bytes())
	}
	shared.Destroy()
	mutated.Destroy()
}

func TestStrViewSplitAtSharesBuffer(t *testing.T) {
	v := NewStrView("abcd")
	head, tail := v.SplitAt(2)
	if head.Bytes() != "ab" || tail.Bytes() != "cd" {
		t.Fatalf("SplitAt(2) = %q %q", head.Bytes(), tail.Bytes())
	}
	if head.Buf != tail.Buf {
		t.Error("SplitAt should produce views sharing the same backing buffer")
	}
	head.Destroy()
	tail.Destroy()
}

// TestConcatStrNoAllocationWhenAbutting checks spec §8.2's law: cat on
// two views sharing the same buffer and abutting in memory produces a
// view into that buffer with no allocation.
func TestConcatStrNoAllocationWhenAbutting(t *testing.T) {
	v := NewStrView("abcd")
	head, tail := v.SplitAt(2)
	cat := ConcatStr(head, tail)
	if cat.Buf != head.Buf {
		t.Error("concatenating abutting views of the same buffer should reuse that buffer, not allocate")
	}
	if cat.Bytes() != "abcd" {
		t.Fatalf("cat = %q, want abcd", cat.Bytes())
	}
	head.Destroy()
	tail.Destroy()
	cat.Destroy()
}

func TestConcatStrReusesOwnedRightSpace(t *testing.T) {
	a := NewStrView("a")
	a = a.RPush('b') // mutate grows with slack, still sole owner
	b := NewStrView("x")

	cat := ConcatStr(a, b)
	if cat.Buf != a.Buf {
		t.Error("concatenating onto an owned buffer with right-space should reuse it")
	}
	if cat.Bytes() != "abx" {
		t.Fatalf("cat = %q, want abx", cat.Bytes())
	}
	a.Destroy()
	b.Destroy()
	cat.Destroy()
}

func TestConcatStrEmptyOperands(t *testing.T) {
	a := EmptyStrView()
	b := NewStrView("x")
	cat := ConcatStr(a, b)
	if cat.Bytes() != "x" {
		t.Fatalf("cat with empty lhs = %q", cat.Bytes())
	}
	cat.Destroy()
}
