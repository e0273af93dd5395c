package concat

import (
	"bytes"
	"strings"
	"testing"
)

// TestScenarios exercises the worked evaluation scenarios a conforming
// implementation must reproduce.
func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"add", "1 2 +", []string{"3"}},
		{"if-true-branch", "3 [2 *] [1 +] if", []string{"6"}},
		{"map", "(1 2 3) [dup *] map", []string{"(1 4 9)"}},
		{"string-cat", `"hello" " " "world" cat cat`, []string{"hello world"}},
		{"trycatch-recovers", `[ 1 0 / ] [ pop "caught" ] trycatch`, []string{"caught"}},
		{"sort", "(3 1 2) sort", []string{"(1 2 3)"}},
		{"filter", "(1 2 3 4) [2 % 0 =] filter", []string{"(2 4)"}},
		{"bi", "5 [inc] [dec] bi", []string{"6", "4"}},
		{"linrec-factorial", "5 [0 =] [inc] [dup dec] [*] linrec", []string{"120"}},
		{"dip", "1 2 10 [+] dip", []string{"3", "10"}},
		{"bitwise", "6 3 & 6 3 |", []string{"2", "7"}},
		{"quote-eval", "7 quote eval", []string{"7"}},
		{"string-ops", `"  ABC " trim 0 2 substr`, []string{"AB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New()
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res, err := m.Eval(tt.src)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.src, err)
			}
			if len(res.Stack) != len(tt.want) {
				t.Fatalf("Eval(%q) stack = %v, want %v", tt.src, res.Stack, tt.want)
			}
			for i := range tt.want {
				if res.Stack[i] != tt.want[i] {
					t.Errorf("Eval(%q) stack[%d] = %q, want %q", tt.src, i, res.Stack[i], tt.want[i])
				}
			}
		})
	}
}

// TestWhileLoopPrints checks the counting-while-loop scenario: it must
// print each value 0..9 on its own line via `.` and leave an empty stack.
func TestWhileLoopPrints(t *testing.T) {
	var out bytes.Buffer
	m, err := New(WithOutput(&out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := m.Eval("0 [ dup 10 < ] [ dup . inc ] while pop")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(res.Stack) != 0 {
		t.Fatalf("stack after loop = %v, want empty", res.Stack)
	}
	want := "0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n"
	if out.String() != want {
		t.Errorf("printed output = %q, want %q", out.String(), want)
	}
}

// TestIfFalseBranch exercises the other side of scenario 2's `if`.
func TestIfFalseBranch(t *testing.T) {
	m, _ := New()
	res, err := m.Eval("0 [2 *] [1 +] if")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(res.Stack) != 1 || res.Stack[0] != "1" {
		t.Fatalf("stack = %v, want [1]", res.Stack)
	}
}

// TestUncaughtThrowPropagates verifies that an exception with no
// enclosing trycatch escapes Eval as an error (spec §7).
func TestUncaughtThrowPropagates(t *testing.T) {
	m, _ := New()
	_, err := m.Eval(`"boom" throw`)
	if err == nil {
		t.Fatal("expected an error from an uncaught throw")
	}
}

// TestThrowPayloadPreserved checks that trycatch's handler sees the
// exact thrown value, not a stringified rendering of it.
func TestThrowPayloadPreserved(t *testing.T) {
	m, _ := New()
	res, err := m.Eval(`[ (1 2 3) throw ] [ ] trycatch`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(res.Stack) != 1 || res.Stack[0] != "(1 2 3)" {
		t.Fatalf("stack = %v, want a single list (1 2 3)", res.Stack)
	}
}

// TestPersistentStateAcrossEval checks that a Machine's dictionary and
// data stack persist between successive Eval calls, the REPL-line model
// pkg/concat is built around.
func TestPersistentStateAcrossEval(t *testing.T) {
	m, _ := New()
	if _, err := m.Eval("1 2"); err != nil {
		t.Fatalf("first Eval: %v", err)
	}
	res, err := m.Eval("+")
	if err != nil {
		t.Fatalf("second Eval: %v", err)
	}
	if len(res.Stack) != 1 || res.Stack[0] != "3" {
		t.Fatalf("stack = %v, want [3]", res.Stack)
	}
}

// TestEachSideEffects checks `each` iterates a list
// left-to-right without producing a result collection.
func TestEachSideEffects(t *testing.T) {
	var out bytes.Buffer
	m, _ := New(WithOutput(&out))
	res, err := m.Eval(`(1 2 3) [ . ] each`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(res.Stack) != 0 {
		t.Fatalf("stack after each = %v, want empty", res.Stack)
	}
	if out.String() != "1\n2\n3\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCapturedOutputOmittedWhenSinkGiven(t *testing.T) {
	var out bytes.Buffer
	m, _ := New(WithOutput(&out))
	res, err := m.Eval(`"x" print_string`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if res.Output != "" {
		t.Errorf("Result.Output = %q, want empty when an explicit sink is configured", res.Output)
	}
	if !strings.Contains(out.String(), "x") {
		t.Errorf("configured sink did not receive output: %q", out.String())
	}
}
