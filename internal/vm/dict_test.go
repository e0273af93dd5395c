package vm

import "testing"

// TestDictScopeShadowingUnwinds checks spec §4.3/§8.1: binding a name in
// a pushed scope and then popping that scope restores whatever lookup
// returned before the scope was pushed.
func TestDictScopeShadowingUnwinds(t *testing.T) {
	d := NewDict()
	d.Def("x", Int(1))

	d.PushScope()
	d.Def("x", Int(2))
	if v, ok := d.Lookup("x"); !ok || v.I != 2 {
		t.Fatalf("inner lookup(x) = %v %v, want 2 true", v, ok)
	}
	d.PopScope()

	v, ok := d.Lookup("x")
	if !ok || v.I != 1 {
		t.Fatalf("lookup(x) after pop_scope = %v %v, want 1 true", v, ok)
	}
}

// TestDictPopScopeDestroysBindings checks that bindings local to a
// popped scope are released, not merely forgotten.
func TestDictPopScopeDestroysBindings(t *testing.T) {
	d := NewDict()
	d.PushScope()
	v := Str("hello")
	buf := v.Str.Buf
	d.Def("local", v)
	if got := buf.refcount(); got != 1 {
		t.Fatalf("refcount before pop = %d, want 1", got)
	}
	d.PopScope()
	if got := buf.refcount(); got != 0 {
		t.Errorf("refcount after pop = %d, want 0", got)
	}
	if d.Has("local") {
		t.Error("local should no longer be visible after pop_scope")
	}
}

// TestDictCloneIsCopyOnWrite checks spec §4.3: cloning a dictionary
// shares scope layers until one side writes, at which point the two
// dictionaries diverge without affecting each other.
func TestDictCloneIsCopyOnWrite(t *testing.T) {
	d := NewDict()
	d.Def("x", Int(1))

	clone := d.Clone()
	clone.Def("x", Int(2))

	v, ok := d.Lookup("x")
	if !ok || v.I != 1 {
		t.Fatalf("original dict's x = %v %v, want 1 true (clone's Def must not leak back)", v, ok)
	}
	cv, ok := clone.Lookup("x")
	if !ok || cv.I != 2 {
		t.Fatalf("clone's x = %v %v, want 2 true", cv, ok)
	}
}

func TestDictLookupMissing(t *testing.T) {
	d := NewDict()
	if _, ok := d.Lookup("nope"); ok {
		t.Error("Lookup of an unbound name should report ok=false")
	}
	if d.Has("nope") {
		t.Error("Has of an unbound name should be false")
	}
}

func TestDictDelRemovesInnermostBinding(t *testing.T) {
	d := NewDict()
	d.Def("x", Int(1))
	if !d.Del("x") {
		t.Fatal("Del should report true for a bound name")
	}
	if d.Has("x") {
		t.Error("x should be gone after Del")
	}
	if d.Del("x") {
		t.Error("Del of an already-removed name should report false")
	}
}

func TestDictKeysShadowing(t *testing.T) {
	d := NewDict()
	d.Def("a", Int(1))
	d.PushScope()
	d.Def("b", Int(2))
	d.Def("a", Int(3))

	keys := d.Keys()
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("Keys() = %v, want a and b present", keys)
	}
	count := 0
	for _, k := range keys {
		if k == "a" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Keys() listed %q %d times, want exactly once despite shadowing", "a", count)
	}
}
