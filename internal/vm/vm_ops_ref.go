package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpRefNew, opRefNew)
	registerOp(OpRefGet, opRefGet)
	registerOp(OpRefSet, opRefSet)
	registerOp(OpLock, opLock)
	registerOp(OpUnlock, opUnlock)
	registerOp(OpTryLock, opTryLock)
	registerOp(OpWait, opWait)
	registerOp(OpSignal, opSignal)
	registerOp(OpBroadcast, opBroadcast)
	registerOp(OpGuard, opGuard)
	registerOp(OpGuardSig, opGuardSig)
	registerOp(OpGuardBcast, opGuardBcast)
	registerOp(OpGuardWaitWhile, opGuardWaitWhile)
	registerOp(OpGuardSigWaitWhile, opGuardSigWaitWhile)
}

func popRef(v *VM) (*RefCell, Value, error) {
	a, err := v.Pop()
	if err != nil {
		return nil, Value{}, err
	}
	r, ok := a.AsRef()
	if !ok {
		return nil, Value{}, errf(verr.BadType, "expected a ref, got %s", a.Tag)
	}
	return r, a, nil
}

// ref: ( v -- ref ) wraps v in a new reference cell (spec §4.4).
func opRefNew(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(RefValue(NewRefCell(a)))
	return nil
}

// deref: ( ref -- v ) reads the cell's current value.
func opRefGet(v *VM) error {
	r, a, err := popRef(v)
	if err != nil {
		return err
	}
	val := r.Get()
	a.Destroy()
	v.Push(val)
	return nil
}

// refswap: ( ref newv -- oldv ) atomically replaces the cell's held
// value and returns the one it displaced.
func opRefSet(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	refVal, val := args[0], args[1]
	r, ok := refVal.AsRef()
	if !ok {
		val.Destroy()
		refVal.Destroy()
		return errf(verr.BadType, "refswap: expected a ref, got %s", refVal.Tag)
	}
	old := r.Swap(val)
	refVal.Destroy()
	v.Push(old)
	return nil
}

// lock: ( ref -- ref ) acquires the cell's mutex, blocking if held.
func opLock(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "lock: expected a ref, got %s", a.Tag)
	}
	r.Lock()
	return nil
}

// unlock: ( ref -- ref ) releases a previously acquired lock.
func opUnlock(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "unlock: expected a ref, got %s", a.Tag)
	}
	r.Unlock()
	return nil
}

// trylock: ( ref -- ref bool ) attempts to acquire without blocking.
func opTryLock(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "trylock: expected a ref, got %s", a.Tag)
	}
	got := r.TryLock()
	v.Push(Int(b2i(got)))
	return nil
}

// wait: ( ref -- ref ) blocks on the cell's condvar; caller must hold
// the lock (normally inside a guard).
func opWait(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "wait: expected a ref, got %s", a.Tag)
	}
	r.Wait()
	return nil
}

// signal: ( ref -- ref ) wakes one waiter on the cell's condvar.
func opSignal(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "signal: expected a ref, got %s", a.Tag)
	}
	r.Signal()
	return nil
}

// broadcast: ( ref -- ref ) wakes every waiter on the cell's condvar.
func opBroadcast(v *VM) error {
	a, err := v.Peek(0)
	if err != nil {
		return err
	}
	r, ok := a.AsRef()
	if !ok {
		return errf(verr.BadType, "broadcast: expected a ref, got %s", a.Tag)
	}
	r.Broadcast()
	return nil
}

// runGuardBody implements the common body of every guard form (spec
// §4.4: "lock; swap the referent onto the data stack; evaluate the
// body; pop new value off the stack into the cell; unlock"). The
// caller must already hold r's lock (it runs inside RefCell.Guard's
// locked region). On error the body is left un-swapped — the cell
// keeps its old value and the lock still releases via RefCell.Guard's
// deferred Unlock, matching the catch_unguard contract that a throw
// unwinding past a guarded body releases the lock without requiring
// the body to have produced a replacement value.
func runGuardBody(v *VM, r *RefCell, body Value) error {
	v.Push(r.getLocked())
	if err := v.runNested(body); err != nil {
		return err
	}
	newVal, err := v.Pop()
	if err != nil {
		return err
	}
	r.swapLocked(newVal).Destroy()
	return nil
}

// guard: ( ref body -- ... ) runs body with ref locked, guaranteeing
// unlock on every exit path including a throw that unwinds past body
// (spec §4.4's guard language form). Implemented natively (rather than
// as a continuation-stack trick like eval/dip) since Go's RefCell.Guard
// already gives us defer-based unlock-on-panic-or-return for free; a
// thrown error still propagates through Go's call stack because guard
// runs body to completion via a nested Run on the current goroutine.
func opGuard(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	refVal, body := args[0], args[1]
	r, ok := refVal.AsRef()
	if !ok {
		body.Destroy()
		refVal.Destroy()
		return errf(verr.BadType, "guard: expected a ref, got %s", refVal.Tag)
	}
	gerr := r.Guard(func() error {
		return runGuardBody(v, r, body)
	})
	refVal.Destroy()
	return gerr
}

// guard.sig: ( ref body -- ... ) like guard, but signals one waiter
// after body completes, still inside the lock.
func opGuardSig(v *VM) error {
	return guardThen(v, func(r *RefCell) { r.Signal() })
}

// guard.bcast: ( ref body -- ... ) like guard, but broadcasts after body
// completes, still inside the lock.
func opGuardBcast(v *VM) error {
	return guardThen(v, func(r *RefCell) { r.Broadcast() })
}

func guardThen(v *VM, after func(*RefCell)) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	refVal, body := args[0], args[1]
	r, ok := refVal.AsRef()
	if !ok {
		body.Destroy()
		refVal.Destroy()
		return errf(verr.BadType, "expected a ref, got %s", refVal.Tag)
	}
	gerr := r.Guard(func() error {
		if err := runGuardBody(v, r, body); err != nil {
			return err
		}
		after(r)
		return nil
	})
	refVal.Destroy()
	return gerr
}

// guard.waitwhile: ( ref cond body -- ... ) locks ref, waits while cond
// (run against the cell's current value) holds, then runs body, all
// under one held lock.
func opGuardWaitWhile(v *VM) error {
	return guardWaitWhile(v, nil)
}

// guard.sigwaitwhile: like guard.waitwhile, but signals one waiter
// before waiting each round (for a classic producer/consumer handoff).
func opGuardSigWaitWhile(v *VM) error {
	return guardWaitWhile(v, func(r *RefCell) { r.Signal() })
}

func guardWaitWhile(v *VM, beforeWait func(*RefCell)) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	refVal, cond, body := args[0], args[1], args[2]
	r, ok := refVal.AsRef()
	if !ok {
		body.Destroy()
		cond.Destroy()
		refVal.Destroy()
		return errf(verr.BadType, "expected a ref, got %s", refVal.Tag)
	}
	gerr := r.Guard(func() error {
		for {
			if beforeWait != nil {
				beforeWait(r)
			}
			held := r.getLocked()
			v.Push(held)
			if err := v.runNested(cond.Clone()); err != nil {
				return err
			}
			stillTrue, err := v.Pop()
			if err != nil {
				return err
			}
			loop := stillTrue.AsBool()
			stillTrue.Destroy()
			if !loop {
				break
			}
			r.Wait()
		}
		return runGuardBody(v, r, body)
	})
	cond.Destroy()
	refVal.Destroy()
	return gerr
}
