package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpDef, opDef)
	registerOp(OpLookup, opLookup)
	registerOp(OpHas, opHas)
	registerOp(OpDel, opDel)
	registerOp(OpKeys, opKeys)
	registerOp(OpHasKey, opHasKey)
	registerOp(OpNewScope, opNewScope)
	registerOp(OpPopScope, opPopScope)
	registerOp(OpDefined, opHas)
	registerOp(OpGetDef, opLookup)
	registerOp(OpMapDef, opMapDef)
	registerOp(OpResolve, opResolve)
	registerOp(OpRResolve, opRResolve)
	registerOp(OpScope, opScope)
	registerOp(OpSaveScope, opSaveScope)
	registerOp(OpUseScope, opUseScope)
	registerOp(OpEndScopeU, opEndScope)
	registerOp(OpPopScopeU, opPopScopeValue)
}

// nameStr extracts a dictionary key from a string or identifier value,
// destroying the value (its bytes are copied out into a plain Go string).
func nameStr(v Value) (string, error) {
	if v.Tag != TagString && v.Tag != TagIdent {
		return "", errf(verr.BadType, "expected string or ident for a dictionary key, got %s", v.Tag)
	}
	s := v.Str.Bytes()
	v.Destroy()
	return s, nil
}

// def: ( val name -- ) binds name to val in the innermost scope,
// replacing any prior binding there.
func opDef(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	val, nameVal := args[0], args[1]
	name, err := nameStr(nameVal)
	if err != nil {
		val.Destroy()
		return err
	}
	v.dict.Def(name, val)
	return nil
}

// lookup: ( name -- val )
func opLookup(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	name, err := nameStr(a)
	if err != nil {
		return err
	}
	val, ok := v.dict.Lookup(name)
	if !ok {
		return errf(verr.Undefined, "lookup: %q is not defined", name)
	}
	v.Push(val.Clone())
	return nil
}

// has: ( name -- bool ) true if name is bound in any visible scope.
func opHas(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	name, err := nameStr(a)
	if err != nil {
		return err
	}
	v.Push(Int(b2i(v.dict.Has(name))))
	return nil
}

// haskey: ( name -- bool ) true only if name is bound in the innermost
// scope, unlike has which searches outward.
func opHasKey(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	name, err := nameStr(a)
	if err != nil {
		return err
	}
	_, ok := v.dict.scopes[len(v.dict.scopes)-1][name]
	v.Push(Int(b2i(ok)))
	return nil
}

// del: ( name -- bool ) removes name from whichever scope binds it.
func opDel(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	name, err := nameStr(a)
	if err != nil {
		return err
	}
	v.Push(Int(b2i(v.dict.Del(name))))
	return nil
}

// keys: ( -- list ) every name visible from the innermost scope out.
func opKeys(v *VM) error {
	names := v.dict.Keys()
	vals := make([]Value, len(names))
	for i, n := range names {
		vals[i] = Str(n)
	}
	v.Push(List(NewLstViewFrom(vals)))
	return nil
}

// newscope: ( -- ) opens a fresh lexical scope, e.g. around a quotation
// body that binds parameters with def.
func opNewScope(v *VM) error {
	v.dict.PushScope()
	return nil
}

// popscope: ( -- ) closes the innermost scope, discarding its bindings.
func opPopScope(v *VM) error {
	v.dict.PopScope()
	return nil
}

// mapdef: ( [body] name -- ) takes name's current definition onto the
// data stack, runs body over it, and binds whatever body leaves on top
// back under name — the take/transform/reinstate cycle spec §4.3's swap
// exists for.
func opMapDef(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	body, nameVal := args[0], args[1]
	word := nameVal.Clone()
	name, err := nameStr(nameVal)
	if err != nil {
		word.Destroy()
		body.Destroy()
		return err
	}
	def, ok := v.dict.Lookup(name)
	if !ok {
		word.Destroy()
		body.Destroy()
		return errf(verr.Undefined, "mapdef: %q is not defined", name)
	}
	v.Push(def.Clone())
	post := append(Protect(word), Opcode(OpDef))
	v.pushWork(Code(NewLstViewFrom(post)), "")
	return runQuot(v, body)
}

// resolve: ( v -- v' ) resolves an identifier to its binding, dequoting
// one-element quotations and chasing ident-to-ident aliases; anything
// the dictionary can't settle to a push value or opcode is left alone.
func opResolve(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(resolveValue(v, a))
	return nil
}

func resolveValue(v *VM, a Value) Value {
	if a.Tag != TagIdent {
		return a
	}
	def, ok := v.dict.Lookup(a.Str.Bytes())
	if !ok {
		return a
	}
	for hops := 0; hops < 64; hops++ {
		if def.Tag == TagCode && def.Lst.Len == 1 {
			def = def.Lst.At(0)
		}
		if def.Tag != TagIdent {
			break
		}
		next, ok := v.dict.Lookup(def.Str.Bytes())
		if !ok {
			return a
		}
		def = next
	}
	if !def.IsPush() && def.Tag != TagOpcode {
		return a
	}
	resolved := def.Clone()
	// Re-wrap any escape layers the identifier carried, so \word still
	// evaluates to one fewer layer of deferral, now around the binding.
	for i := 0; i < a.Escape; i++ {
		resolved = Code(NewLstViewFrom([]Value{resolved}))
	}
	a.Destroy()
	return resolved
}

// rresolve: ( v -- v' ) resolve, recursing into code quotations
// element by element (the parser's compile-time binding pass).
func opRResolve(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(rresolveValue(v, a))
	return nil
}

func rresolveValue(v *VM, a Value) Value {
	a = resolveValue(v, a)
	if a.Tag != TagCode {
		return a
	}
	elems := a.Lst.TakeElems()
	for i, e := range elems {
		elems[i] = rresolveValue(v, e)
	}
	return Code(NewLstViewFrom(elems))
}

// scope: ( [body] -- ... ) runs body inside a fresh scope that is
// discarded afterward.
func opScope(v *VM) error {
	return scopedRun(v, OpEndScopeU)
}

// savescope: ( [body] -- ... dict ) runs body inside a fresh scope and
// pushes the scope's bindings as a dictionary value when body finishes.
func opSaveScope(v *VM) error {
	return scopedRun(v, OpPopScopeU)
}

func scopedRun(v *VM, closer Op) error {
	body, err := v.Pop()
	if err != nil {
		return err
	}
	if body.Tag != TagCode {
		return errf(verr.BadType, "scope: expected code, got %s", body.Tag)
	}
	v.dict.PushScope()
	v.pushWork(Code(NewLstViewFrom([]Value{Opcode(closer)})), "")
	return runQuot(v, body)
}

// usescope: ( dict [body] -- ... dict ) runs body with dict layered as
// the innermost scope, handing the scope back as a value afterward.
func opUseScope(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	dictVal, body := args[0], args[1]
	d, ok := dictVal.AsDict()
	if !ok {
		body.Destroy()
		dictVal.Destroy()
		return errf(verr.BadType, "usescope: expected a dict, got %s", dictVal.Tag)
	}
	if body.Tag != TagCode {
		body.Destroy()
		return errf(verr.BadType, "usescope: expected code, got %s", body.Tag)
	}
	v.dict.PushScopeShared(d)
	v.pushWork(Code(NewLstViewFrom([]Value{Opcode(OpPopScopeU)})), "")
	return runQuot(v, body)
}

// _endscope: internal sentinel closing a scope opened by scope.
func opEndScope(v *VM) error {
	v.dict.PopScope()
	return nil
}

// _popscope: internal sentinel closing a scope opened by savescope or
// usescope, pushing the closed layer as a dictionary value.
func opPopScopeValue(v *VM) error {
	v.Push(DictValue(v.dict.PopScopeValue()))
	return nil
}
