package parse

import (
	"bytes"
	"io"
	"testing"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
	"github.com/mikeagun/concat-sub000/internal/vm"
)

func parseAll(t *testing.T, src string) vm.Value {
	t.Helper()
	v, err := ParseAll(bytes.NewReader([]byte(src)))
	if err != nil {
		t.Fatalf("ParseAll(%q): %v", src, err)
	}
	return v
}

func TestParseTopLevelAtoms(t *testing.T) {
	code := parseAll(t, `1 2.5 "hi" foo \bar`)
	if code.Tag != vm.TagCode {
		t.Fatalf("top level should be a Code value, got %s", code.Tag)
	}
	elems := code.Lst.ToSlice()
	if len(elems) != 5 {
		t.Fatalf("got %d elements, want 5: %v", len(elems), elems)
	}
	if elems[0].Tag != vm.TagInt || elems[0].I != 1 {
		t.Errorf("elems[0] = %+v, want int 1", elems[0])
	}
	if elems[1].Tag != vm.TagFloat || elems[1].F != 2.5 {
		t.Errorf("elems[1] = %+v, want float 2.5", elems[1])
	}
	if elems[2].Tag != vm.TagString || elems[2].Str.Bytes() != "hi" {
		t.Errorf("elems[2] = %+v, want string \"hi\"", elems[2])
	}
	if elems[3].Tag != vm.TagIdent || elems[3].Str.Bytes() != "foo" || elems[3].Escape != 0 {
		t.Errorf("elems[3] = %+v, want ident foo", elems[3])
	}
	if elems[4].Tag != vm.TagIdent || elems[4].Str.Bytes() != "bar" || elems[4].Escape != 1 {
		t.Errorf("elems[4] = %+v, want escaped ident \\bar", elems[4])
	}
}

func TestParseNestedGroups(t *testing.T) {
	code := parseAll(t, `(1 2 3) [dup *]`)
	elems := code.Lst.ToSlice()
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(elems))
	}
	lst := elems[0]
	if lst.Tag != vm.TagList {
		t.Fatalf("first element should be a List, got %s", lst.Tag)
	}
	if lst.Lst.Len != 3 {
		t.Fatalf("list length = %d, want 3", lst.Lst.Len)
	}
	quot := elems[1]
	if quot.Tag != vm.TagCode {
		t.Fatalf("second element should be Code, got %s", quot.Tag)
	}
	if quot.Lst.Len != 2 {
		t.Fatalf("quotation length = %d, want 2 (dup *)", quot.Lst.Len)
	}
	// identifiers inside a list/code group are not resolved at parse
	// time (spec §4.5): they stay TagIdent, never TagOpcode.
	if quot.Lst.At(0).Tag != vm.TagIdent {
		t.Errorf("quotation element 0 tag = %s, want ident (unresolved)", quot.Lst.At(0).Tag)
	}
}

func TestParseNestedListsOfLists(t *testing.T) {
	code := parseAll(t, `((1 2) (3 4))`)
	outer := code.Lst.At(0)
	if outer.Tag != vm.TagList || outer.Lst.Len != 2 {
		t.Fatalf("outer = %+v, want a 2-element list", outer)
	}
	inner0 := outer.Lst.At(0)
	if inner0.Tag != vm.TagList || inner0.Lst.Len != 2 {
		t.Fatalf("inner0 = %+v, want a 2-element list", inner0)
	}
}

func TestParseLineComment(t *testing.T) {
	code := parseAll(t, "1 # a comment\n2")
	elems := code.Lst.ToSlice()
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2 (comment stripped)", len(elems))
	}
}

func TestParseStringEscapes(t *testing.T) {
	code := parseAll(t, `"a\nb\t\"c\\\x41\0"`)
	s := code.Lst.At(0)
	if s.Tag != vm.TagString {
		t.Fatalf("expected a string, got %s", s.Tag)
	}
	want := "a\nb\t\"c\\A\x00"
	if got := s.Str.Bytes(); got != want {
		t.Errorf("decoded string = %q, want %q", got, want)
	}
}

func TestParseUnmatchedOpenIsUnexpectedEOL(t *testing.T) {
	_, err := ParseAll(bytes.NewReader([]byte(`[1 2`)))
	if err == nil {
		t.Fatal("expected an error for an unclosed group")
	}
	if k := verr.KindOf(err); k != verr.UnexpectedEOL {
		t.Errorf("error kind = %v, want %v", k, verr.UnexpectedEOL)
	}
}

func TestParseUnmatchedCloseIsUnexpectedEOC(t *testing.T) {
	_, err := ParseAll(bytes.NewReader([]byte(`1 2)`)))
	if err == nil {
		t.Fatal("expected an error for an unmatched close bracket")
	}
	if k := verr.KindOf(err); k != verr.UnexpectedEOC {
		t.Errorf("error kind = %v, want %v", k, verr.UnexpectedEOC)
	}
}

func TestParseMismatchedBracketKind(t *testing.T) {
	_, err := ParseAll(bytes.NewReader([]byte(`(1 2]`)))
	if err == nil {
		t.Fatal("expected an error for a mismatched bracket kind")
	}
}

func TestParseEmptyInputYieldsEmptyCode(t *testing.T) {
	code := parseAll(t, "   \n  # just a comment\n")
	if code.Tag != vm.TagCode || code.Lst.Len != 0 {
		t.Fatalf("got %+v, want an empty Code value", code)
	}
}

// TestParseOneIsRepeatable exercises the contract vm_exec.go relies on:
// ParseOne consumes exactly one top-level unit from a reader scoped to
// that unit, reporting io.EOF once exhausted.
func TestParseOneIsRepeatable(t *testing.T) {
	_, err := ParseOne(bytes.NewReader([]byte("1 2 3")))
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	_, err = ParseOne(bytes.NewReader(nil))
	if err != io.EOF {
		t.Fatalf("ParseOne on empty reader = %v, want io.EOF", err)
	}
}

// TestRoundTripSource checks spec §8.2's parse/print/re-parse law: for
// a handful of representative programs, rendering each top-level
// element with Source() and re-parsing it back yields an
// element-for-element Human()-identical tree.
func TestRoundTripSource(t *testing.T) {
	progs := []string{
		`1 2.5 "hi" foo \bar`,
		`(1 2 3) [dup *]`,
		`((1 2) (3 4))`,
	}
	for _, src := range progs {
		t.Run(src, func(t *testing.T) {
			first := parseAll(t, src)
			var rendered string
			elems := first.Lst.ToSlice()
			for i, e := range elems {
				if i > 0 {
					rendered += " "
				}
				rendered += e.Source()
			}
			second := parseAll(t, rendered)
			firstElems, secondElems := first.Lst.ToSlice(), second.Lst.ToSlice()
			if len(firstElems) != len(secondElems) {
				t.Fatalf("round trip changed element count: %d vs %d", len(firstElems), len(secondElems))
			}
			for i := range firstElems {
				if firstElems[i].Human() != secondElems[i].Human() {
					t.Errorf("element %d: %q != %q after round trip", i, firstElems[i].Human(), secondElems[i].Human())
				}
			}
		})
	}
}
