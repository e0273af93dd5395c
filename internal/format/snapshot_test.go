package format

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestSprintfSnapshots pins the formatter's rendered output for a spread
// of flag/width/precision combinations in one place, so a formatting
// change shows up as a reviewable snapshot diff instead of a dozen
// hand-maintained want-strings.
func TestSprintfSnapshots(t *testing.T) {
	cases := []struct {
		name string
		spec string
		args []Arg
	}{
		{"widths-and-zero-pad", "[%5d|%-5d|%05d]", []Arg{intArg(42), intArg(42), intArg(-42)}},
		{"float-precision", "%f %.2f %10.3f", []Arg{floatArg(3.14159), floatArg(3.14159), floatArg(-3.14159)}},
		{"string-trunc-and-quote", "%.3s %'s %8s", []Arg{strArg("hello"), strArg("a\"b"), strArg("hi")}},
		{"positional", "%2$d then %1$d", []Arg{intArg(1), intArg(2)}},
		{"sign-flags", "%+d % d", []Arg{intArg(7), intArg(7)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Sprintf(tc.spec, NewSliceArgs(tc.args))
			if err != nil {
				t.Fatalf("Sprintf(%q): %v", tc.spec, err)
			}
			snaps.MatchSnapshot(t, out)
		})
	}
}

// TestFormatListSnapshots covers the structured list-rendering options
// used by the state-dump opcodes: truncation by count and by byte
// budget, reversal, and brace styling.
func TestFormatListSnapshots(t *testing.T) {
	elems := []string{"1", "2", "3", "4", "5", "six-is-long", "7"}
	cases := []struct {
		name string
		opts ListOptions
	}{
		{"default", DefaultListOptions("(", ")")},
		{"reversed-stack-dump", ListOptions{Reverse: true, Separator: " ", Open: "<< ", Close: " <<", Truncated: "..."}},
		{"max-elements", ListOptions{MaxElements: 3, Separator: " ", Open: "(", Close: ")", Truncated: "..."}},
		{"max-bytes", ListOptions{MaxBytes: 8, Separator: " ", Open: "(", Close: ")", Truncated: "..."}},
		{"comma-separated", ListOptions{Separator: ", ", Open: "[", Close: "]"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snaps.MatchSnapshot(t, FormatList(elems, tc.opts))
		})
	}
}
