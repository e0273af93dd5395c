package vm

import "sync/atomic"

// LstBuf is a reference-counted Value buffer backing both List and Code
// values (spec §3.1: "List/Code share the list-buffer view"). Dirty
// tracks whether slots outside the live [Off, Off+Len) window may still
// hold Values that need destroying when the buffer itself is finally
// freed (spec §4.2/§8.1). LPop/RPop/TakeHead clear the slot they vacate;
// Sublist narrows the window without clearing and is what sets Dirty.
type LstBuf struct {
	vals  []Value
	refs  int32
	dirty bool
}

func newLstBuf(n int) *LstBuf {
	return &LstBuf{vals: make([]Value, n), refs: 1}
}

func (b *LstBuf) retain() { atomic.AddInt32(&b.refs, 1) }

func (b *LstBuf) refcount() int32 { return atomic.LoadInt32(&b.refs) }

// release drops a reference; on reaching zero it destroys any values
// still live in the backing array, including ones parked outside the
// window by a prior shrink (the dirty flag).
func (b *LstBuf) release(destroyElem func(Value)) {
	if atomic.AddInt32(&b.refs, -1) != 0 {
		return
	}
	if destroyElem != nil {
		for _, v := range b.vals {
			destroyElem(v)
		}
	}
	b.vals = nil
}

// LstView is an offset/length view onto a LstBuf.
type LstView struct {
	Buf *LstBuf
	Off int
	Len int
}

// EmptyLstView is the canonical empty view.
func EmptyLstView() LstView { return LstView{} }

// NewLstViewFrom builds a fresh single-owner view from a Go slice,
// taking ownership of the elements (no cloning).
func NewLstViewFrom(vals []Value) LstView {
	if len(vals) == 0 {
		return LstView{}
	}
	b := &LstBuf{vals: vals, refs: 1}
	return LstView{Buf: b, Off: 0, Len: len(vals)}
}

func (v LstView) owned() bool {
	return v.Buf != nil && v.Buf.refcount() == 1
}

// At returns the i'th live element (0-indexed within the view).
func (v LstView) At(i int) Value {
	return v.Buf.vals[v.Off+i]
}

// Clone shares the backing buffer, incrementing its refcount.
func (v LstView) Clone() LstView {
	if v.Buf != nil {
		v.Buf.retain()
	}
	return v
}

// Destroy releases this view's refcount, destroying elements via
// destroyElem if the buffer's last reference goes away.
func (v LstView) Destroy(destroyElem func(Value)) {
	if v.Buf != nil {
		v.Buf.release(destroyElem)
	}
}

// SplitAt splits the view at n into (head, tail) sharing the buffer.
func (v LstView) SplitAt(n int) (LstView, LstView) {
	if n < 0 {
		n = 0
	}
	if n > v.Len {
		n = v.Len
	}
	head := LstView{Buf: v.Buf, Off: v.Off, Len: n}
	tail := LstView{Buf: v.Buf, Off: v.Off + n, Len: v.Len - n}
	if v.Buf != nil {
		v.Buf.retain()
	}
	return head, tail
}

// Sublist returns a shifted view sharing the buffer, marking it dirty
// since slots outside [off, off+n) of the new window may still be live.
func (v LstView) Sublist(off, n int) LstView {
	if v.Buf != nil {
		v.Buf.retain()
		v.Buf.dirty = true
	}
	return LstView{Buf: v.Buf, Off: v.Off + off, Len: n}
}

// ConcatLst implements spec §4.2 concat for lists: reuse a contiguous
// shared buffer with no copy at all, reuse right-space in a, left-space
// in b, or allocate fresh — mirroring ConcatStr. The result is always a
// new reference; a and b remain valid and callers must still Destroy
// them separately afterward (cat on two views sharing a buffer and
// abutting produces a view into that buffer with no allocation).
func ConcatLst(a, b LstView) LstView {
	if a.Len == 0 {
		return b.Clone()
	}
	if b.Len == 0 {
		return a.Clone()
	}
	if a.Buf == b.Buf && !a.Buf.dirty && a.Off+a.Len == b.Off {
		a.Buf.retain()
		return LstView{Buf: a.Buf, Off: a.Off, Len: a.Len + b.Len}
	}
	if a.owned() && !a.Buf.dirty && a.Off+a.Len+b.Len <= len(a.Buf.vals) {
		moveElems(a.Buf.vals[a.Off+a.Len:], b)
		a.Buf.retain()
		return LstView{Buf: a.Buf, Off: a.Off, Len: a.Len + b.Len}
	}
	if b.owned() && !b.Buf.dirty && b.Off-a.Len >= 0 {
		moveElems(b.Buf.vals[b.Off-a.Len:b.Off], a)
		b.Buf.retain()
		return LstView{Buf: b.Buf, Off: b.Off - a.Len, Len: a.Len + b.Len}
	}
	n := a.Len + b.Len
	grown := newLstBuf(n + max32(n/2, 4))
	moveElems(grown.vals, a)
	moveElems(grown.vals[a.Len:], b)
	return LstView{Buf: grown, Off: 0, Len: n}
}

// moveElems fills dst from src's live window, taking ownership the only
// way each case allows: an owned source hands its values over and has
// the vacated slots cleared (so a later release of its buffer cannot
// destroy them again), while a shared source contributes clones and its
// window is left untouched — other live views still alias those slots.
func moveElems(dst []Value, src LstView) {
	if src.owned() {
		copy(dst, src.slice())
		zeroVals(src.Buf.vals[src.Off : src.Off+src.Len])
		return
	}
	for i := 0; i < src.Len; i++ {
		dst[i] = src.At(i).Clone()
	}
}

// zeroVals clears slots whose Values have been moved into another
// buffer, so a later release of their original buffer does not destroy
// the same value twice.
func zeroVals(vals []Value) {
	for i := range vals {
		vals[i] = Value{}
	}
}

func (v LstView) slice() []Value {
	if v.Buf == nil {
		return nil
	}
	return v.Buf.vals[v.Off : v.Off+v.Len]
}

func (v LstView) mutate(extra int) LstView {
	if v.owned() && !v.Buf.dirty && v.Off+v.Len+extra <= len(v.Buf.vals) {
		return v
	}
	n := v.Len
	grown := newLstBuf(n + extra + max32(n/2, 4))
	moveElems(grown.vals, v)
	if v.Buf != nil {
		v.Buf.release(destroyElem)
	}
	return LstView{Buf: grown, Off: 0, Len: v.Len}
}

// RPush appends val, mutating in place when single-owner and clean.
func (v LstView) RPush(val Value) LstView {
	v = v.mutate(1)
	v.Buf.vals[v.Off+v.Len] = val
	v.Len++
	return v
}

// LPush prepends val.
func (v LstView) LPush(val Value) LstView {
	if v.owned() && !v.Buf.dirty && v.Off > 0 {
		v.Off--
		v.Buf.vals[v.Off] = val
		v.Len++
		return v
	}
	n := v.Len
	grown := newLstBuf(n + 1 + max32(n/2, 4))
	room := max32(n/2, 4)
	grown.vals[room] = val
	moveElems(grown.vals[room+1:], v)
	if v.Buf != nil {
		v.Buf.release(destroyElem)
	}
	return LstView{Buf: grown, Off: room, Len: n + 1}
}

// RPop removes and returns the last element. A single-owner view hands
// the slot's value over and clears it (spec §4.2: slots vacated by pop
// must be cleared); a shared view narrows and hands over a clone, since
// the sibling views still own the slot.
func (v LstView) RPop() (LstView, Value, bool) {
	if v.Len == 0 {
		return v, Value{}, false
	}
	val := v.Buf.vals[v.Off+v.Len-1]
	if v.owned() {
		v.Buf.vals[v.Off+v.Len-1] = Value{}
		v.Len--
		return v, val, true
	}
	v2 := LstView{Buf: v.Buf, Off: v.Off, Len: v.Len - 1}
	v.Buf.retain()
	return v2, val.Clone(), true
}

// LPop removes and returns the first element, with the same ownership
// split as RPop.
func (v LstView) LPop() (LstView, Value, bool) {
	if v.Len == 0 {
		return v, Value{}, false
	}
	val := v.Buf.vals[v.Off]
	if v.owned() {
		v.Buf.vals[v.Off] = Value{}
	} else {
		val = val.Clone()
		v.Buf.retain()
	}
	return LstView{Buf: v.Buf, Off: v.Off + 1, Len: v.Len - 1}, val, true
}

// TakeHead is the in-place form of LPop used by the evaluator's frame
// iteration: it narrows v itself and returns the head with ownership
// (the slot's own value when single-owner, a clone when shared).
func (v *LstView) TakeHead() (Value, bool) {
	if v.Len == 0 {
		return Value{}, false
	}
	var el Value
	if v.owned() {
		el = v.Buf.vals[v.Off]
		v.Buf.vals[v.Off] = Value{}
	} else {
		el = v.Buf.vals[v.Off].Clone()
	}
	v.Off++
	v.Len--
	return el, true
}

// SetAt replaces the i'th element, destroying the reference it
// displaces, and copying the backing buffer first if it is shared.
func (v LstView) SetAt(i int, val Value) LstView {
	if v.owned() {
		v.Buf.vals[v.Off+i].Destroy()
		v.Buf.vals[v.Off+i] = val
		return v
	}
	grown := newLstBuf(v.Len)
	moveElems(grown.vals, v)
	grown.vals[i].Destroy()
	grown.vals[i] = val
	v.Buf.release(destroyElem)
	return LstView{Buf: grown, Off: 0, Len: v.Len}
}

// ToSlice copies the live window out as a plain Go slice (used by
// human/source rendering and by dictionary-literal construction). The
// copies are borrowed references: the view still owns the elements.
func (v LstView) ToSlice() []Value {
	out := make([]Value, v.Len)
	copy(out, v.slice())
	return out
}

// TakeElems returns the live window's elements with ownership moved to
// the caller, releasing the view: a single-owner view hands its values
// over directly (and sweeps anything parked outside the window), a
// shared view hands over clones.
func (v LstView) TakeElems() []Value {
	out := make([]Value, v.Len)
	if v.Buf == nil {
		return out[:0]
	}
	if v.owned() {
		copy(out, v.slice())
		zeroVals(v.Buf.vals[v.Off : v.Off+v.Len])
		v.Buf.release(func(e Value) { e.Destroy() })
		return out
	}
	for i := 0; i < v.Len; i++ {
		out[i] = v.At(i).Clone()
	}
	v.Buf.release(nil)
	return out
}
