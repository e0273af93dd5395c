package vm

import "sync/atomic"

// StrBuf is a reference-counted byte buffer (spec §4.2/§3.2). Buffers are
// shared across threads when a Value is cloned into a sub-VM's stack, so
// the refcount is atomic even though ordinary single-threaded mutation
// dominates.
type StrBuf struct {
	bytes []byte
	refs  int32
}

func newStrBuf(n int) *StrBuf {
	return &StrBuf{bytes: make([]byte, n), refs: 1}
}

func (b *StrBuf) retain() { atomic.AddInt32(&b.refs, 1) }

// release drops one reference, freeing the buffer (letting Go's GC
// reclaim it) once the count reaches zero.
func (b *StrBuf) release() {
	if atomic.AddInt32(&b.refs, -1) == 0 {
		b.bytes = nil
	}
}

func (b *StrBuf) refcount() int32 { return atomic.LoadInt32(&b.refs) }

// StrView is an offset/length view onto a StrBuf, or the canonical empty
// view (Buf == nil) for the empty string (spec §3.2).
type StrView struct {
	Buf *StrBuf
	Off int
	Len int
}

// NewStrView builds a fresh single-owner view from a Go string.
func NewStrView(s string) StrView {
	if len(s) == 0 {
		return StrView{}
	}
	b := newStrBuf(len(s))
	copy(b.bytes, s)
	return StrView{Buf: b, Off: 0, Len: len(s)}
}

// EmptyStrView is the canonical empty view.
func EmptyStrView() StrView { return StrView{} }

// Bytes returns a copy of the live window as a Go string.
func (v StrView) Bytes() string {
	if v.Buf == nil {
		return ""
	}
	return string(v.Buf.bytes[v.Off : v.Off+v.Len])
}

// String implements fmt.Stringer.
func (v StrView) String() string { return v.Bytes() }

// Clone returns a view sharing the same backing buffer, incrementing its
// refcount (spec §3.2 "the view owns one refcount of the buffer").
func (v StrView) Clone() StrView {
	if v.Buf != nil {
		v.Buf.retain()
	}
	return v
}

// Destroy releases this view's refcount on its buffer.
func (v StrView) Destroy() {
	if v.Buf != nil {
		v.Buf.release()
	}
}

// owned reports whether this view may mutate its buffer in place.
func (v StrView) owned() bool {
	return v.Buf != nil && v.Buf.refcount() == 1
}

// SplitAt splits the view at n, returning (head, tail) views sharing the
// same buffer; the tail view's buffer refcount is incremented (spec §4.2
// split_at).
func (v StrView) SplitAt(n int) (StrView, StrView) {
	if n < 0 {
		n = 0
	}
	if n > v.Len {
		n = v.Len
	}
	head := StrView{Buf: v.Buf, Off: v.Off, Len: n}
	tail := StrView{Buf: v.Buf, Off: v.Off + n, Len: v.Len - n}
	if v.Buf != nil {
		v.Buf.retain()
	}
	return head, tail
}

// ConcatStr implements spec §4.2 concat for strings: reuse a contiguous
// shared buffer with no copy at all, reuse right-space in a, left-space
// in b, or allocate fresh.
func ConcatStr(a, b StrView) StrView {
	if a.Len == 0 {
		return b.Clone()
	}
	if b.Len == 0 {
		return a.Clone()
	}
	if a.Buf == b.Buf && a.Off+a.Len == b.Off {
		a.Buf.retain()
		return StrView{Buf: a.Buf, Off: a.Off, Len: a.Len + b.Len}
	}
	if a.owned() && a.Off+a.Len+b.Len <= len(a.Buf.bytes) {
		copy(a.Buf.bytes[a.Off+a.Len:], b.Bytes())
		a.Buf.retain()
		return StrView{Buf: a.Buf, Off: a.Off, Len: a.Len + b.Len}
	}
	if b.owned() && b.Off-a.Len >= 0 {
		copy(b.Buf.bytes[b.Off-a.Len:b.Off], a.Bytes())
		b.Buf.retain()
		return StrView{Buf: b.Buf, Off: b.Off - a.Len, Len: a.Len + b.Len}
	}
	n := a.Len + b.Len
	grown := newStrBuf(n + max32(n/2, 4))
	copy(grown.bytes, a.Bytes())
	copy(grown.bytes[a.Len:], b.Bytes())
	return StrView{Buf: grown, Off: 0, Len: n}
}

func max32(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// mutate returns a view with a single-owner buffer of capacity >= needed
// past the live window, copying the live window into a new buffer when
// shared. This is the CoW entry point used by RPush.
func (v StrView) mutate(extra int) StrView {
	if v.owned() && v.Off+v.Len+extra <= len(v.Buf.bytes) {
		return v
	}
	n := v.Len
	grown := newStrBuf(n + extra + max32(n/2, 4))
	copy(grown.bytes, v.Bytes())
	if v.Buf != nil {
		v.Buf.release()
	}
	return StrView{Buf: grown, Off: 0, Len: v.Len}
}

// RPush appends one byte, mutating in place when single-owner.
func (v StrView) RPush(c byte) StrView {
	v = v.mutate(1)
	v.Buf.bytes[v.Off+v.Len] = c
	v.Len++
	return v
}

// LPush prepends one byte.
func (v StrView) LPush(c byte) StrView {
	if v.owned() && v.Off > 0 {
		v.Off--
		v.Buf.bytes[v.Off] = c
		v.Len++
		return v
	}
	n := v.Len
	grown := newStrBuf(n + 1 + max32(n/2, 4))
	room := max32(n/2, 4)
	grown.bytes[room] = c
	copy(grown.bytes[room+1:], v.Bytes())
	if v.Buf != nil {
		v.Buf.release()
	}
	return StrView{Buf: grown, Off: room, Len: n + 1}
}

// RPop removes and returns the last byte.
func (v StrView) RPop() (StrView, byte, bool) {
	if v.Len == 0 {
		return v, 0, false
	}
	c := v.Buf.bytes[v.Off+v.Len-1]
	if v.owned() {
		v.Len--
		return v, c, true
	}
	v2 := StrView{Buf: v.Buf, Off: v.Off, Len: v.Len - 1}
	v.Buf.retain()
	return v2, c, true
}

// LPop removes and returns the first byte.
func (v StrView) LPop() (StrView, byte, bool) {
	if v.Len == 0 {
		return v, 0, false
	}
	c := v.Buf.bytes[v.Off]
	v2 := StrView{Buf: v.Buf, Off: v.Off + 1, Len: v.Len - 1}
	v.Buf.retain()
	return v2, c, true
}

// Sublist (called Substr here) shifts the view without reallocating.
func (v StrView) Substr(off, n int) StrView {
	if v.Buf != nil {
		v.Buf.retain()
	}
	return StrView{Buf: v.Buf, Off: v.Off + off, Len: n}
}
