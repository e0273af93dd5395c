// Package vm implements the four-stack evaluator for the concat language:
// the tagged value representation, reference-counted string/list buffers,
// the scoped dictionary, reference cells, and the opcode dispatch loop.
//
// The original C implementation NaN-boxes every value into a single 64-bit
// word (tagged pointer / inline int / inverted-bit double). Go has no
// portable way to stash a pointer and a type tag in one machine word
// without unsafe tricks that would defeat the garbage collector, so this
// port takes the specification's explicitly sanctioned alternative: a
// small tagged struct. Boxing/unboxing is then a couple of field reads
// instead of bitwise ops, at the cost of a larger Value (see spec §9,
// "NaN-boxing" and "Unspecified or suspect source behavior").
package vm

import (
	"fmt"
	"strings"
)

// Tag identifies which arm of Value is live, and for heap-backed tags,
// which Valstruct variant a pointer refers to (spec §3.1).
type Tag uint8

const (
	// TagOpcode: I holds an index into the opcode table.
	TagOpcode Tag = iota
	// TagInt: I holds a 32-bit two's-complement integer.
	TagInt
	// TagFloat: F holds an IEEE-754 double.
	TagFloat
	// TagString: Str is a string-buffer view; not dictionary-resolved.
	TagString
	// TagIdent: Str is a string-buffer view holding an identifier name,
	// plus Escape layers of pending \-escaping.
	TagIdent
	// TagBytecode: Str is a string-buffer view; evaluating it is
	// unimplemented (spec §9).
	TagBytecode
	// TagList: Lst is a list-buffer view; evaluating it pushes it (data).
	TagList
	// TagCode: Lst is a list-buffer view; evaluating it runs its elements.
	TagCode
	// TagDict: Heap holds *Dict.
	TagDict
	// TagRef: Heap holds *RefCell.
	TagRef
	// TagFile: Heap holds *Stream opened for buffered line access.
	TagFile
	// TagFd: Heap holds *Stream opened for raw byte access.
	TagFd
	// TagVM: Heap holds *SubVM.
	TagVM
)

var tagNames = [...]string{
	TagOpcode:   "opcode",
	TagInt:      "int",
	TagFloat:    "float",
	TagString:   "string",
	TagIdent:    "ident",
	TagBytecode: "bytecode",
	TagList:     "list",
	TagCode:     "code",
	TagDict:     "dict",
	TagRef:      "ref",
	TagFile:     "file",
	TagFd:       "fd",
	TagVM:       "vm",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Value is the engine's single uniform runtime value. Exactly one of the
// payload fields is meaningful, selected by Tag.
type Value struct {
	Tag    Tag
	I      int32   // TagOpcode (table index) / TagInt
	F      float64 // TagFloat
	Str    StrView // TagString / TagIdent / TagBytecode
	Lst    LstView // TagList / TagCode
	Heap   any     // TagDict (*Dict) / TagRef (*RefCell) / TagFile,TagFd (*Stream) / TagVM (*SubVM)
	Escape int     // TagIdent: number of leading '\' the identifier carried
}

// Opcode constructs an opcode value.
func Opcode(op Op) Value { return Value{Tag: TagOpcode, I: int32(op)} }

// Int constructs a small-integer value.
func Int(i int32) Value { return Value{Tag: TagInt, I: i} }

// Float constructs a double value.
func Float(f float64) Value { return Value{Tag: TagFloat, F: f} }

// Str constructs a string value from a Go string (fresh single-owner buffer).
func Str(s string) Value { return Value{Tag: TagString, Str: NewStrView(s)} }

// StrFromView wraps an existing string view without copying.
func StrFromView(v StrView) Value { return Value{Tag: TagString, Str: v} }

// Ident constructs an escaped-identifier-aware identifier value.
// escape is the count of leading backslashes the source token carried.
func Ident(name string, escape int) Value {
	return Value{Tag: TagIdent, Str: NewStrView(name), Escape: escape}
}

// Bytecode constructs a bytecode value (spec §9: evaluating it is NotImplemented).
func Bytecode(raw string) Value { return Value{Tag: TagBytecode, Str: NewStrView(raw)} }

// List constructs a data-list value from a view.
func List(v LstView) Value { return Value{Tag: TagList, Lst: v} }

// Code constructs a quotation value from a view.
func Code(v LstView) Value { return Value{Tag: TagCode, Lst: v} }

// EmptyList returns the canonical empty data list.
func EmptyList() Value { return Value{Tag: TagList, Lst: EmptyLstView()} }

// EmptyCode returns the canonical empty quotation.
func EmptyCode() Value { return Value{Tag: TagCode, Lst: EmptyLstView()} }

// DictValue wraps a *Dict as a first-class value.
func DictValue(d *Dict) Value { return Value{Tag: TagDict, Heap: d} }

// RefValue wraps a *RefCell as a first-class value.
func RefValue(r *RefCell) Value { return Value{Tag: TagRef, Heap: r} }

// StreamValue wraps a *Stream as either a File or Fd value.
func StreamValue(s *Stream, fd bool) Value {
	if fd {
		return Value{Tag: TagFd, Heap: s}
	}
	return Value{Tag: TagFile, Heap: s}
}

// VMValue wraps a *SubVM as a first-class value.
func VMValue(v *SubVM) Value { return Value{Tag: TagVM, Heap: v} }

// IsNumber reports whether v is an int or float.
func (v Value) IsNumber() bool { return v.Tag == TagInt || v.Tag == TagFloat }

// AsDict type-asserts the heap payload; ok is false for non-dict values.
func (v Value) AsDict() (*Dict, bool) {
	if v.Tag != TagDict {
		return nil, false
	}
	d, ok := v.Heap.(*Dict)
	return d, ok
}

// AsRef type-asserts the heap payload; ok is false for non-ref values.
func (v Value) AsRef() (*RefCell, bool) {
	if v.Tag != TagRef {
		return nil, false
	}
	r, ok := v.Heap.(*RefCell)
	return r, ok
}

// AsStream type-asserts the heap payload; ok is false for non-stream values.
func (v Value) AsStream() (*Stream, bool) {
	if v.Tag != TagFile && v.Tag != TagFd {
		return nil, false
	}
	s, ok := v.Heap.(*Stream)
	return s, ok
}

// AsVM type-asserts the heap payload; ok is false for non-VM values.
func (v Value) AsVM() (*SubVM, bool) {
	if v.Tag != TagVM {
		return nil, false
	}
	s, ok := v.Heap.(*SubVM)
	return s, ok
}

// Clone returns a value that shares ownership of v's backing storage:
// an identity copy for inline tags, a refcount bump for string/list
// views, a copy-on-write Dict.Clone (a new *Dict sharing its scope
// layers) for dicts, and a refcount bump for refs, streams and sub-VMs. Clones
// of a TagVM value share one *SubVM (each vm/thread call mints its
// own), like two references to the same thread handle.
func (v Value) Clone() Value {
	switch v.Tag {
	case TagString, TagIdent, TagBytecode:
		v.Str = v.Str.Clone()
	case TagList, TagCode:
		v.Lst = v.Lst.Clone()
	case TagDict:
		if d, ok := v.Heap.(*Dict); ok {
			v.Heap = d.Clone()
		}
	case TagRef:
		if r, ok := v.Heap.(*RefCell); ok {
			r.retain()
		}
	case TagFile, TagFd:
		if s, ok := v.Heap.(*Stream); ok {
			s.retain()
		}
	case TagVM:
		if s, ok := v.Heap.(*SubVM); ok {
			s.retain()
		}
	}
	return v
}

// destroyElem is the element destructor handed to LstView teardown.
func destroyElem(e Value) { e.Destroy() }

// Destroy releases v's ownership stake in its backing storage.
func (v Value) Destroy() {
	switch v.Tag {
	case TagString, TagIdent, TagBytecode:
		v.Str.Destroy()
	case TagList, TagCode:
		v.Lst.Destroy(func(e Value) { e.Destroy() })
	case TagRef:
		if r, ok := v.Heap.(*RefCell); ok {
			r.release()
		}
	case TagFile, TagFd:
		if s, ok := v.Heap.(*Stream); ok {
			s.release()
		}
	case TagVM:
		if s, ok := v.Heap.(*SubVM); ok {
			s.release()
		}
	}
}

// IsPush reports whether evaluating v simply pushes v itself (spec §4.1
// ispush): integers, doubles, strings, and lists, but not code,
// identifiers, opcodes, streams, or sub-VMs.
func (v Value) IsPush() bool {
	switch v.Tag {
	case TagInt, TagFloat, TagString, TagList:
		return true
	default:
		return false
	}
}

// AsBool converts v to a boolean per spec §4.1 as_bool: nonzero numbers
// and non-empty string/list/code are true.
func (v Value) AsBool() bool {
	switch v.Tag {
	case TagInt:
		return v.I != 0
	case TagFloat:
		return v.F != 0
	case TagString, TagIdent, TagBytecode:
		return v.Str.Len > 0
	case TagList, TagCode:
		return v.Lst.Len > 0
	default:
		return true
	}
}

// Eq reports structural equality: lists elementwise, strings bytewise.
func Eq(a, b Value) bool {
	if a.Tag != b.Tag {
		// Integers and floats compare numerically equal across tags.
		if a.IsNumber() && b.IsNumber() {
			return numVal(a) == numVal(b)
		}
		return false
	}
	switch a.Tag {
	case TagOpcode:
		return a.I == b.I
	case TagInt:
		return a.I == b.I
	case TagFloat:
		return a.F == b.F
	case TagString, TagIdent, TagBytecode:
		return a.Str.Bytes() == b.Str.Bytes()
	case TagList, TagCode:
		if a.Lst.Len != b.Lst.Len {
			return false
		}
		for i := 0; i < a.Lst.Len; i++ {
			if !Eq(a.Lst.At(i), b.Lst.At(i)) {
				return false
			}
		}
		return true
	case TagDict, TagRef, TagFile, TagFd, TagVM:
		return a.Heap == b.Heap
	default:
		return false
	}
}

func numVal(v Value) float64 {
	if v.Tag == TagFloat {
		return v.F
	}
	return float64(v.I)
}

// Ordering is the result of Compare: less-than, equal, or greater-than.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Compare implements spec §4.1 compare: a total order within a type;
// numeric types coerce to double and compare numerically; comparisons
// between mismatched non-numeric types are implementation-defined (spec
// §9, decided in SPEC_FULL.md as "order by Tag").
func Compare(a, b Value) Ordering {
	if a.IsNumber() && b.IsNumber() {
		return cmpFloat(numVal(a), numVal(b))
	}
	if a.Tag != b.Tag {
		return cmpFloat(float64(a.Tag), float64(b.Tag))
	}
	switch a.Tag {
	case TagString, TagIdent, TagBytecode:
		as, bs := a.Str.Bytes(), b.Str.Bytes()
		switch {
		case as < bs:
			return Less
		case as > bs:
			return Greater
		default:
			return Equal
		}
	case TagList, TagCode:
		n := a.Lst.Len
		if b.Lst.Len < n {
			n = b.Lst.Len
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.Lst.At(i), b.Lst.At(i)); c != Equal {
				return c
			}
		}
		return cmpFloat(float64(a.Lst.Len), float64(b.Lst.Len))
	default:
		return Equal
	}
}

func cmpFloat(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// Human renders v the way "%v" (print, human-readable) does: see
// internal/vm/format.go and internal/format for the full printf formatter.
func (v Value) Human() string {
	switch v.Tag {
	case TagOpcode:
		if op, ok := opcodeByIndex(int(v.I)); ok {
			return op.Name
		}
		return fmt.Sprintf("<opcode %d>", v.I)
	case TagInt:
		return fmt.Sprintf("%d", v.I)
	case TagFloat:
		return fmt.Sprintf("%g", v.F)
	case TagString:
		return v.Str.String()
	case TagIdent:
		return v.Str.String()
	case TagBytecode:
		return "<bytecode>"
	case TagList:
		return humanList(v.Lst, "(", ")")
	case TagCode:
		return humanList(v.Lst, "[", "]")
	case TagDict:
		return "<dict>"
	case TagRef:
		return "<ref>"
	case TagFile:
		return "<file>"
	case TagFd:
		return "<fd>"
	case TagVM:
		return "<vm>"
	default:
		return "<?>"
	}
}

func humanList(v LstView, open, close string) string {
	s := open
	for i := 0; i < v.Len; i++ {
		if i > 0 {
			s += " "
		}
		s += v.At(i).Human()
	}
	return s + close
}

// Source renders v the way "%V" (source-reparseable code) does: push
// values render as literals; code is wrapped in brackets; identifiers
// are re-escaped.
func (v Value) Source() string {
	switch v.Tag {
	case TagFloat:
		// Keep a decimal point so an integral float (1000) reparses as a
		// float rather than an int.
		s := v.Human()
		if strings.ContainsAny(s, ".nN") {
			return s
		}
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			return s[:i] + ".0" + s[i:]
		}
		return s + ".0"
	case TagString:
		return quoteString(v.Str.String())
	case TagIdent:
		esc := ""
		for i := 0; i < v.Escape; i++ {
			esc += `\`
		}
		return esc + v.Str.String()
	case TagList:
		return sourceList(v.Lst, "(", ")")
	case TagCode:
		return sourceList(v.Lst, "[", "]")
	default:
		return v.Human()
	}
}

func sourceList(v LstView, open, close string) string {
	s := open
	for i := 0; i < v.Len; i++ {
		if i > 0 {
			s += " "
		}
		s += v.At(i).Source()
	}
	return s + close
}

func quoteString(s string) string {
	out := []byte{'"'}
	for _, b := range []byte(s) {
		switch b {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\t':
			out = append(out, '\\', 't')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, b)
		}
	}
	out = append(out, '"')
	return string(out)
}

// Protect returns the element sequence that, spliced directly into a
// Code frame's own body, evaluates to v unchanged (spec §4.1 protect).
// The result must be flattened into the surrounding frame's element
// list by the caller, never nested as a single sub-element of it: a
// plain element only ever gets pushed or (for idents/opcodes/bytecode)
// dispatched, so a value that needs `first` to peel it back out only
// works if that `first` opcode is itself one of the frame's own
// elements, not buried inside another nested quotation.
//
// Push values, code, dicts, refs, streams and sub-VMs are already
// inert as a bare element (spec §4.7: only a frame's own top-of-work
// entry ever iterates) and pass through as a single element. An
// identifier gets one extra escape layer so it doesn't resolve. An
// opcode or raw bytecode value would otherwise dispatch actively as an
// element, so it is wrapped as source `[v] first` would build it: a
// nested one-element code literal holding v (pushed, not dispatched,
// per the nested-quotation rule) followed by the `first` opcode, which
// extracts v back out raw without ever evaluating it.
func Protect(v Value) []Value {
	switch {
	case v.IsPush():
		return []Value{v}
	case v.Tag == TagCode, v.Tag == TagDict, v.Tag == TagRef, v.Tag == TagFile, v.Tag == TagFd, v.Tag == TagVM:
		return []Value{v}
	case v.Tag == TagIdent:
		v.Escape++
		return []Value{v}
	default: // TagOpcode, TagBytecode
		inner := Code(NewLstViewFrom([]Value{v}))
		return []Value{inner, Opcode(opFirst)}
	}
}
