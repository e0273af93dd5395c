// Package format implements the engine's printf-style value formatter
// (spec §4.6): conversions %d %f %s %v %V with the usual C flags, width,
// and precision, plus an %n$ positional-index selector, pulling
// arguments from a single argument sequence through one cursor (see
// Args); no secondary argument sequence is read.
//
// The formatter is decoupled from internal/vm's Value type (which would
// otherwise create an import cycle: vm needs the formatter for its
// print/sprintf opcodes, and a formatter that spoke vm.Value directly
// would need to import vm). Instead it operates against the small Arg
// interface below; internal/vm adapts its Value to it.
package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Arg is the minimal value surface the formatter needs from a caller's
// value type: numeric coercions plus the two string renderings spec
// §4.1 calls "human" (%v) and "source-reparseable" (%V).
type Arg interface {
	Int() (int32, bool)
	Float() (float64, bool)
	Str() (string, bool)
	Human() string
	Source() string
}

// Args is an argument sequence with an explicit cursor: Next advances
// the cursor, At does an absolute %n$ fetch without disturbing it. A
// format call reads this one sequence only; there is no secondary
// sequence.
type Args interface {
	Next() (Arg, bool)
	At(n int) (Arg, bool)
}

// SliceArgs is the common case: a single flat argument list.
type SliceArgs struct {
	vals []Arg
	pos  int
}

func NewSliceArgs(vals []Arg) *SliceArgs { return &SliceArgs{vals: vals} }

func (a *SliceArgs) Next() (Arg, bool) {
	if a.pos >= len(a.vals) {
		return nil, false
	}
	v := a.vals[a.pos]
	a.pos++
	return v, true
}

func (a *SliceArgs) At(n int) (Arg, bool) {
	if n < 0 || n >= len(a.vals) {
		return nil, false
	}
	return a.vals[n], true
}

// flags collects the %-conversion's C-style flags (spec §4.6).
type flags struct {
	minus bool // left-justify
	plus  bool // force sign
	hash  bool // alternate form
	zero  bool // zero-pad
	space bool // space for positive sign
	quote bool // ' — group/quote, used by %s to quote like source
}

// Sprintf renders spec against args, consuming one Arg per %-conversion
// (except %%, which consumes none) unless the conversion names an
// explicit %n$ index.
func Sprintf(spec string, args Args) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(spec) {
		c := spec[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(spec) {
			return "", fmt.Errorf("format: dangling %% at end of spec")
		}
		if spec[i] == '%' {
			out.WriteByte('%')
			i++
			continue
		}

		start := i
		// optional %n$ positional index: digits followed by '$'.
		index := -1
		j := start
		for j < len(spec) && spec[j] >= '0' && spec[j] <= '9' {
			j++
		}
		if j > start && j < len(spec) && spec[j] == '$' {
			n, _ := strconv.Atoi(spec[start:j])
			index = n - 1
			i = j + 1
		}

		var fl flags
	flagLoop:
		for i < len(spec) {
			switch spec[i] {
			case '-':
				fl.minus = true
			case '+':
				fl.plus = true
			case '#':
				fl.hash = true
			case '0':
				fl.zero = true
			case ' ':
				fl.space = true
			case '\'':
				fl.quote = true
			default:
				break flagLoop
			}
			i++
		}

		width := -1
		wStart := i
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		if i > wStart {
			width, _ = strconv.Atoi(spec[wStart:i])
		}

		prec := -1
		if i < len(spec) && spec[i] == '.' {
			i++
			pStart := i
			for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
				i++
			}
			if i > pStart {
				prec, _ = strconv.Atoi(spec[pStart:i])
			} else {
				prec = 0
			}
		}

		if i >= len(spec) {
			return "", fmt.Errorf("format: missing conversion character")
		}
		verb := spec[i]
		i++

		var arg Arg
		var ok bool
		if index >= 0 {
			arg, ok = args.At(index)
		} else {
			arg, ok = args.Next()
		}
		if !ok {
			return "", fmt.Errorf("format: missing argument for %%%c", verb)
		}

		rendered, err := renderOne(verb, fl, width, prec, arg)
		if err != nil {
			return "", err
		}
		out.WriteString(rendered)
	}
	return out.String(), nil
}

func renderOne(verb byte, fl flags, width, prec int, arg Arg) (string, error) {
	var body string
	switch verb {
	case 'd':
		n, ok := arg.Int()
		if !ok {
			if f, ok2 := arg.Float(); ok2 {
				n = int32(f)
			} else {
				return "", fmt.Errorf("format: %%d needs a number, got %s", arg.Human())
			}
		}
		sign := ""
		if n < 0 {
			sign = "-"
			n = -n
		} else if fl.plus {
			sign = "+"
		} else if fl.space {
			sign = " "
		}
		body = sign + strconv.FormatInt(int64(n), 10)
	case 'f':
		f, ok := arg.Float()
		if !ok {
			if n, ok2 := arg.Int(); ok2 {
				f = float64(n)
			} else {
				return "", fmt.Errorf("format: %%f needs a number, got %s", arg.Human())
			}
		}
		p := prec
		if p < 0 {
			p = 6
		}
		sign := ""
		if f < 0 {
			sign = "-"
			f = -f
		} else if fl.plus {
			sign = "+"
		} else if fl.space {
			sign = " "
		}
		body = sign + strconv.FormatFloat(f, 'f', p, 64)
	case 's':
		s, ok := arg.Str()
		if !ok {
			s = arg.Human()
		}
		if prec >= 0 && prec < len(s) {
			s = s[:prec]
		}
		if fl.quote {
			s = strconv.Quote(s)
		}
		body = s
	case 'v':
		body = arg.Human()
		if prec >= 0 && prec < len(body) {
			body = body[:prec]
		}
	case 'V':
		body = arg.Source()
		if prec >= 0 && prec < len(body) {
			body = body[:prec]
		}
	default:
		return "", fmt.Errorf("format: unsupported conversion %%%c", verb)
	}
	return pad(body, width, fl), nil
}

func pad(body string, width int, fl flags) string {
	if width < 0 || len(body) >= width {
		return body
	}
	padLen := width - len(body)
	padChar := byte(' ')
	if fl.zero && !fl.minus {
		padChar = '0'
	}
	padding := strings.Repeat(string(padChar), padLen)
	if fl.minus {
		return body + strings.Repeat(" ", padLen)
	}
	if padChar == '0' && len(body) > 0 && (body[0] == '-' || body[0] == '+') {
		return body[:1] + padding + body[1:]
	}
	return padding + body
}

// ListOptions controls the structured list-formatting path used by
// state-dump and REPL-line rendering of List/Code values (spec §4.6):
// reverse order, truncation by element count or rendered byte budget,
// custom separators, and open/close brace styling.
type ListOptions struct {
	Reverse     bool
	MaxElements int // <=0 means unlimited
	MaxBytes    int // <=0 means unlimited
	Separator   string
	Open, Close string
	Truncated   string // appended when truncation occurs
}

// DefaultListOptions renders the way Value.Human/Value.Source already do
// for an ordinary list/code: space-separated, no truncation.
func DefaultListOptions(open, close string) ListOptions {
	return ListOptions{Separator: " ", Open: open, Close: close, Truncated: "..."}
}

// FormatList renders elems (already human/source-rendered strings, one
// per element, in source order) per opts.
func FormatList(elems []string, opts ListOptions) string {
	if opts.Reverse {
		rev := make([]string, len(elems))
		for i, e := range elems {
			rev[len(elems)-1-i] = e
		}
		elems = rev
	}
	truncatedCount := false
	if opts.MaxElements > 0 && len(elems) > opts.MaxElements {
		elems = elems[:opts.MaxElements]
		truncatedCount = true
	}
	sep := opts.Separator
	if sep == "" {
		sep = " "
	}
	var out strings.Builder
	out.WriteString(opts.Open)
	truncatedBytes := false
	budget := opts.MaxBytes
	for i, e := range elems {
		if i > 0 {
			out.WriteString(sep)
		}
		if budget > 0 {
			if len(e) > budget {
				out.WriteString(e[:budget])
				truncatedBytes = true
				budget = 0
				break
			}
			budget -= len(e)
		}
		out.WriteString(e)
	}
	if (truncatedCount || truncatedBytes) && opts.Truncated != "" {
		out.WriteString(sep)
		out.WriteString(opts.Truncated)
	}
	out.WriteString(opts.Close)
	return out.String()
}
