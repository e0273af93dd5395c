package vm

// Dict is a scoped dictionary of identifier -> Value bindings (spec
// §4.3), implemented as a stack of copy-on-write hash-map layers rather
// than a single flat map, matching the original's scope-stack dictionary
// (new_scope/pop_scope bracket lexical scopes such as quotation bodies
// and dip/each bindings).
type Dict struct {
	scopes []map[string]Value
	// owned[i] is false immediately after Clone, until the first Def/Del
	// touching that layer copies it out of the shared original.
	owned []bool
	refs  int32
}

// NewDict creates a dictionary with a single, empty root scope.
func NewDict() *Dict {
	return &Dict{scopes: []map[string]Value{{}}, owned: []bool{true}, refs: 1}
}

func (d *Dict) retain() { d.refs++ }

// Clone returns a dictionary sharing scope layers copy-on-write: the
// layer slice is copied, but each map is shared until one of the two
// dictionaries mutates it (own()).
func (d *Dict) Clone() *Dict {
	scopes := make([]map[string]Value, len(d.scopes))
	copy(scopes, d.scopes)
	owned := make([]bool, len(d.scopes))
	for i := range d.owned {
		d.owned[i] = false
	}
	return &Dict{scopes: scopes, owned: owned, refs: 1}
}

// PushScope opens a new lexical scope (e.g. entering a quotation body
// that binds parameters via def).
func (d *Dict) PushScope() {
	d.scopes = append(d.scopes, map[string]Value{})
	d.owned = append(d.owned, true)
}

// PopScope closes the innermost scope, destroying its bindings.
func (d *Dict) PopScope() {
	if len(d.scopes) <= 1 {
		return
	}
	top := d.scopes[len(d.scopes)-1]
	for _, v := range top {
		v.Destroy()
	}
	d.scopes = d.scopes[:len(d.scopes)-1]
	d.owned = d.owned[:len(d.owned)-1]
}

// PopScopeValue closes the innermost scope and returns it as its own
// single-layer dictionary instead of discarding it (spec §4.3
// pop_scope's returning form, backing the _popscope sentinel).
func (d *Dict) PopScopeValue() *Dict {
	if len(d.scopes) <= 1 {
		return NewDict()
	}
	top := d.scopes[len(d.scopes)-1]
	owned := d.owned[len(d.owned)-1]
	d.scopes = d.scopes[:len(d.scopes)-1]
	d.owned = d.owned[:len(d.owned)-1]
	return &Dict{scopes: []map[string]Value{top}, owned: []bool{owned}, refs: 1}
}

// PushScopeShared opens a scope layer sharing s's innermost map
// copy-on-write (spec §4.3 push_scope(d): "push d as a layer").
func (d *Dict) PushScopeShared(s *Dict) {
	layer := s.scopes[len(s.scopes)-1]
	s.owned[len(s.owned)-1] = false
	d.scopes = append(d.scopes, layer)
	d.owned = append(d.owned, false)
}

// Lookup searches from the innermost scope outward.
func (d *Dict) Lookup(name string) (Value, bool) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if v, ok := d.scopes[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Has reports whether name is bound in any scope.
func (d *Dict) Has(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}

// Def binds name to val in the innermost scope, copying that scope's map
// first if it is shared with another Dict clone (CoW-on-write).
func (d *Dict) Def(name string, val Value) {
	i := len(d.scopes) - 1
	d.own(i)
	if old, ok := d.scopes[i][name]; ok {
		old.Destroy()
	}
	d.scopes[i][name] = val
}

// Swap replaces name's binding with val in whichever scope binds it,
// returning the displaced value (spec §4.3 swap: in-place when the
// binding layer is singly owned, clone-out otherwise). ok is false, and
// val untouched, when name is unbound.
func (d *Dict) Swap(name string, val Value) (Value, bool) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if _, ok := d.scopes[i][name]; !ok {
			continue
		}
		d.own(i)
		old := d.scopes[i][name]
		d.scopes[i][name] = val
		return old, true
	}
	return Value{}, false
}

// Del removes name from the innermost scope that binds it.
func (d *Dict) Del(name string) bool {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if v, ok := d.scopes[i][name]; ok {
			d.own(i)
			delete(d.scopes[i], name)
			v.Destroy()
			return true
		}
	}
	return false
}

// Keys returns all bound names visible from the innermost scope,
// innermost bindings shadowing outer ones of the same name.
func (d *Dict) Keys() []string {
	seen := map[string]bool{}
	var out []string
	for i := len(d.scopes) - 1; i >= 0; i-- {
		for k := range d.scopes[i] {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// own ensures scope layer i is not shared before an in-place mutation,
// copying it if its reference is held by more than this Dict.
func (d *Dict) own(i int) {
	// Conservatively always copy-on-first-write per clone: since scope
	// maps carry no separate refcount, sharing is tracked by the owned
	// flags (cleared on both sides by Clone) instead.
	if d.scopes[i] == nil {
		d.scopes[i] = map[string]Value{}
		return
	}
	if !d.owned[i] {
		cp := make(map[string]Value, len(d.scopes[i]))
		for k, v := range d.scopes[i] {
			cp[k] = v.Clone()
		}
		d.scopes[i] = cp
		d.owned[i] = true
	}
}
