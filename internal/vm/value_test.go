package vm

import "testing"

// TestCloneDestroyRefcountAudit checks spec §8.1's refcount invariant
// for every heap-backed value kind: clone bumps the refcount, and each
// matching destroy unwinds it back to zero without a double free
// (verified here by reading the buffer's own refcount after each step
// rather than by crashing, since Go has no use-after-free to catch).
func TestCloneDestroyRefcountAudit(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		v := Str("hello")
		buf := v.Str.Buf
		if got := buf.refcount(); got != 1 {
			t.Fatalf("fresh string refcount = %d, want 1", got)
		}
		c := v.Clone()
		if got := buf.refcount(); got != 2 {
			t.Fatalf("after Clone refcount = %d, want 2", got)
		}
		c.Destroy()
		if got := buf.refcount(); got != 1 {
			t.Fatalf("after one Destroy refcount = %d, want 1", got)
		}
		v.Destroy()
	})
	t.Run("list", func(t *testing.T) {
		v := List(NewLstViewFrom([]Value{Int(1), Int(2)}))
		buf := v.Lst.Buf
		if got := buf.refcount(); got != 1 {
			t.Fatalf("fresh list refcount = %d, want 1", got)
		}
		c := v.Clone()
		if got := buf.refcount(); got != 2 {
			t.Fatalf("after Clone refcount = %d, want 2", got)
		}
		c.Destroy()
		if got := buf.refcount(); got != 1 {
			t.Fatalf("after one Destroy refcount = %d, want 1", got)
		}
		v.Destroy()
	})
	t.Run("ref-cell", func(t *testing.T) {
		r := NewRefCell(Int(1))
		v := RefValue(r)
		if r.refs != 1 {
			t.Fatalf("fresh ref refs = %d, want 1", r.refs)
		}
		c := v.Clone()
		if r.refs != 2 {
			t.Fatalf("after Clone refs = %d, want 2", r.refs)
		}
		c.Destroy()
		if r.refs != 1 {
			t.Fatalf("after one Destroy refs = %d, want 1", r.refs)
		}
		v.Destroy()
	})
	t.Run("inline-int-is-a-noop", func(t *testing.T) {
		v := Int(42)
		c := v.Clone()
		c.Destroy()
		v.Destroy() // must not panic: inline values own nothing
	})
}

func TestEmptyStringHasNoBuffer(t *testing.T) {
	v := Str("")
	if v.Str.Buf != nil {
		t.Error("empty string view should have Buf == nil")
	}
	v.Destroy() // must be safe on the nil-buffer empty view
}

func TestEq(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal ints", Int(3), Int(3), true},
		{"unequal ints", Int(3), Int(4), false},
		{"int-float cross-tag numeric equality", Int(3), Float(3.0), true},
		{"equal strings", Str("ab"), Str("ab"), true},
		{"unequal strings", Str("ab"), Str("ac"), false},
		{"equal lists elementwise", List(NewLstViewFrom([]Value{Int(1), Int(2)})), List(NewLstViewFrom([]Value{Int(1), Int(2)})), true},
		{"unequal lists by length", List(NewLstViewFrom([]Value{Int(1)})), List(NewLstViewFrom([]Value{Int(1), Int(2)})), false},
		{"different tags non-numeric", Str("1"), Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eq(tt.a, tt.b); got != tt.want {
				t.Errorf("Eq(%v, %v) = %v, want %v", tt.a.Human(), tt.b.Human(), got, tt.want)
			}
			tt.a.Destroy()
			tt.b.Destroy()
		})
	}
}

func TestCompareNumericCoercion(t *testing.T) {
	if Compare(Int(1), Float(2.0)) != Less {
		t.Error("1 vs 2.0 should compare Less")
	}
	if Compare(Float(2.0), Int(2)) != Equal {
		t.Error("2.0 vs 2 should compare Equal")
	}
	if Compare(Int(3), Int(2)) != Greater {
		t.Error("3 vs 2 should compare Greater")
	}
}

func TestCompareStringsLexicographic(t *testing.T) {
	a, b := Str("apple"), Str("banana")
	if Compare(a, b) != Less {
		t.Error("apple vs banana should compare Less")
	}
	a.Destroy()
	b.Destroy()
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{Float(0.5), true},
		{Str(""), false},
		{Str("x"), true},
		{EmptyList(), false},
		{List(NewLstViewFrom([]Value{Int(1)})), true},
		{EmptyCode(), false},
		{Opcode(OpAdd), true},
	}
	for _, tt := range tests {
		if got := tt.v.AsBool(); got != tt.want {
			t.Errorf("AsBool(%s) = %v, want %v", tt.v.Human(), got, tt.want)
		}
		tt.v.Destroy()
	}
}

func TestIsPush(t *testing.T) {
	pushTrue := []Value{Int(1), Float(1.5), Str("x"), EmptyList()}
	for _, v := range pushTrue {
		if !v.IsPush() {
			t.Errorf("%s (%s) should be a push value", v.Human(), v.Tag)
		}
		v.Destroy()
	}
	pushFalse := []Value{EmptyCode(), Ident("foo", 0), Opcode(OpAdd)}
	for _, v := range pushFalse {
		if v.IsPush() {
			t.Errorf("%s (%s) should not be a push value", v.Human(), v.Tag)
		}
		v.Destroy()
	}
}

// TestProtectRoundTrip checks spec §4.1/§8.2: evaluating Protect(v) as a
// sequence spliced into a frame must yield the original v unchanged,
// for both push values and non-push values (opcodes, identifiers).
func TestProtectRoundTrip(t *testing.T) {
	vm := New()
	defer vm.Stack() // no-op, keeps vm referenced for clarity

	check := func(t *testing.T, v Value) {
		t.Helper()
		want := v.Human()
		seq := Protect(v)
		body := Code(NewLstViewFrom(seq))
		vm.PushWork(body)
		if err := vm.Run(); err != nil {
			t.Fatalf("running protect(%s) sequence: %v", want, err)
		}
		got, err := vm.Pop()
		if err != nil {
			t.Fatalf("no value produced evaluating protect(%s)", want)
		}
		if got.Human() != want {
			t.Errorf("protect(%s) evaluated to %s, want %s", want, got.Human(), want)
		}
		got.Destroy()
	}

	check(t, Int(5))
	check(t, Str("hi"))
	check(t, Opcode(OpAdd))
	check(t, Ident("inc", 0))
}
