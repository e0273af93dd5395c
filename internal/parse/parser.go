package parse

import (
	"io"
	"strconv"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
	"github.com/mikeagun/concat-sub000/internal/vm"
)

// group accumulates the elements of one open (...)/[...]  while it is
// being read; isCode selects which wrapper Value it becomes once closed.
type group struct {
	isCode bool
	items  []vm.Value
}

// ParseAll reads r to completion and returns its whole top-level token
// sequence as a single code value (spec §4.5: "Top-level tokens are
// appended to the output code value in order"). Used for -e/-f whole-unit
// parsing and by pkg/concat.Eval.
func ParseAll(r io.Reader) (vm.Value, error) {
	v, err := parseUnit(r)
	if err == io.EOF {
		return vm.EmptyCode(), nil
	}
	return v, err
}

// ParseOne matches vm.ParseFunc: it reads one parseable top-level unit
// from r, or io.EOF once r is exhausted. The evaluator's file-reading
// loop (vm_exec.go) calls this repeatedly on a stream value, so "one
// unit" here is the remainder of r up to its own end of input — r is
// expected to be scoped by the caller to one logical chunk (a line,
// via streamReader, or a whole file) rather than ParseOne trying to
// guess a boundary from punctuation alone.
func ParseOne(r io.Reader) (vm.Value, error) {
	return parseUnit(r)
}

// parseUnit drives the scanner over r until it is exhausted, building
// nested List/Code values for every (...)  and [...]  group and
// returning the flat top-level sequence as one Code value. Mismatched
// brackets raise UnexpectedEOL (ran out of input with groups still
// open) or UnexpectedEOC (a closing bracket that doesn't match what's
// open), per spec §4.5.
func parseUnit(r io.Reader) (vm.Value, error) {
	s := newScanner(r)
	var stack []*group
	var top []vm.Value
	sawAny := false

	emit := func(v vm.Value) {
		sawAny = true
		if len(stack) == 0 {
			top = append(top, v)
			return
		}
		g := stack[len(stack)-1]
		g.items = append(g.items, v)
	}

	for {
		tok, err := nextToken(s)
		if err != nil {
			return vm.Value{}, err
		}
		switch tok.kind {
		case tokEOF:
			if len(stack) > 0 {
				return vm.Value{}, verr.New(verr.UnexpectedEOL, "unexpected end of input with %d group(s) still open", len(stack))
			}
			if !sawAny {
				return vm.Value{}, io.EOF
			}
			return vm.Code(vm.NewLstViewFrom(top)), nil
		case tokLParen:
			stack = append(stack, &group{isCode: false})
		case tokLBrack:
			stack = append(stack, &group{isCode: true})
		case tokRParen, tokRBrack:
			if len(stack) == 0 {
				return vm.Value{}, verr.New(verr.UnexpectedEOC, "unmatched %s at line %d:%d", closerName(tok.kind), tok.pos.Line, tok.pos.Column)
			}
			g := stack[len(stack)-1]
			wantCode := tok.kind == tokRBrack
			if g.isCode != wantCode {
				return vm.Value{}, verr.New(verr.UnexpectedEOC, "mismatched %s at line %d:%d", closerName(tok.kind), tok.pos.Line, tok.pos.Column)
			}
			stack = stack[:len(stack)-1]
			var gv vm.Value
			if g.isCode {
				gv = vm.Code(vm.NewLstViewFrom(g.items))
			} else {
				gv = vm.List(vm.NewLstViewFrom(g.items))
			}
			emit(gv)
		case tokInt:
			n, perr := strconv.ParseInt(tok.text, 10, 32)
			if perr != nil {
				return vm.Value{}, verr.New(verr.BadParse, "integer literal out of range: %q", tok.text)
			}
			emit(vm.Int(int32(n)))
		case tokFloat:
			f, perr := strconv.ParseFloat(tok.text, 64)
			if perr != nil {
				return vm.Value{}, verr.New(verr.BadParse, "bad float literal: %q", tok.text)
			}
			emit(vm.Float(f))
		case tokString:
			emit(vm.Str(tok.text))
		case tokIdent:
			emit(vm.Ident(tok.text, tok.escape))
		}
	}
}

func closerName(k tokKind) string {
	if k == tokRParen {
		return ")"
	}
	return "]"
}
