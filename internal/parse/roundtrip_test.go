package parse

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/mikeagun/concat-sub000/internal/vm"
)

// sourceOf renders a parsed top-level unit element by element, the way
// the REPL echoes a line back, so the rendering reparses to the same
// structure without an extra wrapping quotation.
func sourceOf(code vm.Value) string {
	elems := code.Lst.ToSlice()
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.Source()
	}
	return strings.Join(parts, " ")
}

// TestSourceRoundTrip checks the reparse law: parsing a unit, printing
// it in source form, and parsing that again yields the same structure.
func TestSourceRoundTrip(t *testing.T) {
	srcs := []string{
		`1 2 +`,
		`-3 2.5 1.0e3`,
		`"hello world" "tab\there" "quote\"inside"`,
		`(1 2 3) [dup *] map`,
		`[ [nested [deeper]] (mixed 1 "two") ]`,
		`\escaped \\twice plain`,
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			first := parseAll(t, src)
			rendered := sourceOf(first)
			second := parseAll(t, rendered)
			if got := sourceOf(second); got != rendered {
				t.Errorf("round trip diverged:\nfirst:  %s\nsecond: %s", rendered, got)
			}
			snaps.MatchSnapshot(t, rendered)
		})
	}
}
