package vm

import (
	"bytes"
	"testing"
)

// runProg evaluates a literal element sequence on a fresh VM and
// returns it for stack inspection.
func runProg(t *testing.T, elems ...Value) *VM {
	t.Helper()
	v := New()
	v.PushWork(Code(NewLstViewFrom(elems)))
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return v
}

// wantStack checks the data stack bottom-first against human renderings.
func wantStack(t *testing.T, v *VM, want ...string) {
	t.Helper()
	if v.DataLen() != len(want) {
		got := make([]string, v.DataLen())
		for i := range got {
			x, _ := v.Peek(v.DataLen() - 1 - i)
			got[i] = x.Human()
		}
		t.Fatalf("stack = %v, want %v", got, want)
	}
	for i, w := range want {
		x, _ := v.Peek(len(want) - 1 - i)
		if x.Human() != w {
			t.Errorf("stack[%d] = %q, want %q", i, x.Human(), w)
		}
	}
}

func TestQuoteEvalIdentity(t *testing.T) {
	v := runProg(t, Int(5), op(OpQuote), op(OpEval))
	wantStack(t, v, "5")
}

func TestProtectEvalLaw(t *testing.T) {
	// protect then eval must reproduce the value itself, even for an
	// opcode, which a bare eval would dispatch.
	v := runProg(t, quot(op(OpAdd)), op(OpFirst), op(OpProtect), op(OpEval))
	wantStack(t, v, "add")
}

func TestWrapVariants(t *testing.T) {
	v := runProg(t, Int(1), op(OpWrap))
	wantStack(t, v, "(1)")
	v = runProg(t, Int(1), Int(2), op(OpWrap2))
	wantStack(t, v, "(1 2)")
	v = runProg(t, Int(1), Int(2), Int(3), Int(2), op(OpWrapN))
	wantStack(t, v, "1", "(2 3)")
}

func TestDipVariants(t *testing.T) {
	v := runProg(t, Int(1), Int(2), Int(10), quot(op(OpAdd)), op(OpDip))
	wantStack(t, v, "3", "10")
	v = runProg(t, Int(1), Int(2), Int(3), Int(4), quot(op(OpAdd)), op(OpDip2))
	wantStack(t, v, "3", "3", "4")
	v = runProg(t, Int(1), Int(2), Int(3), Int(4), quot(op(OpAdd)), Int(2), op(OpDipN))
	wantStack(t, v, "3", "3", "4")
}

func TestSipKeepsValues(t *testing.T) {
	v := runProg(t, Int(5), quot(op(OpInc)), op(OpSip))
	wantStack(t, v, "6", "5")
	v = runProg(t, Int(1), Int(2), quot(op(OpAdd)), op(OpSip2))
	wantStack(t, v, "3", "1", "2")
}

func TestNApplyIsolatesLowerStack(t *testing.T) {
	// + sees only the top two values; 1 2 are restored beneath the result.
	v := runProg(t, Int(1), Int(2), Int(3), Int(4), quot(op(OpAdd)), Int(2), op(OpNApply))
	wantStack(t, v, "1", "2", "7")
}

func TestShuffleDepths(t *testing.T) {
	v := runProg(t, Int(1), Int(2), op(OpDup2))
	wantStack(t, v, "1", "2", "1")
	v = runProg(t, Int(1), Int(2), Int(3), op(OpDup3))
	wantStack(t, v, "1", "2", "3", "1")
	v = runProg(t, Int(1), Int(2), Int(3), Int(2), op(OpDigN))
	wantStack(t, v, "2", "3", "1")
	v = runProg(t, Int(1), Int(2), Int(3), Int(2), op(OpBuryN))
	wantStack(t, v, "3", "1", "2")
	v = runProg(t, Int(1), Int(2), Int(3), op(OpFlip3))
	wantStack(t, v, "3", "2", "1")
}

func TestCollapseExpandRestore(t *testing.T) {
	v := runProg(t, Int(1), Int(2), Int(3), op(OpCollapse))
	wantStack(t, v, "(1 2 3)")
	v = runProg(t, Int(1), Int(2), Int(3), op(OpCollapse), op(OpExpand))
	wantStack(t, v, "1", "2", "3")
	v = runProg(t, Int(9), List(NewLstViewFrom([]Value{Int(1), Int(2)})), op(OpRestore))
	wantStack(t, v, "1", "2", "9")
}

func TestOnlyUnless(t *testing.T) {
	v := runProg(t, Int(1), quot(Int(42)), op(OpOnly))
	wantStack(t, v, "42")
	v = runProg(t, Int(0), quot(Int(42)), op(OpOnly))
	wantStack(t, v, "0")
	v = runProg(t, Int(5), quot(Int(42)), op(OpUnless))
	wantStack(t, v, "5")
	v = runProg(t, Int(0), quot(Int(42)), op(OpUnless))
	wantStack(t, v, "42")
}

func TestIfLeavesCondForBranch(t *testing.T) {
	// if tests cond but leaves it for the chosen branch to consume.
	v := runProg(t, Int(3), quot(Int(2), op(OpMul)), quot(Int(1), op(OpAdd)), op(OpIf))
	wantStack(t, v, "6")
	v = runProg(t, Int(0), quot(Int(2), op(OpMul)), quot(Int(1), op(OpAdd)), op(OpIf))
	wantStack(t, v, "1")
}

func TestIfElseEvaluatesCodeCondition(t *testing.T) {
	v := runProg(t, quot(Int(0)), quot(Int(42)), quot(Int(7)), op(OpIfElse))
	wantStack(t, v, "7")
	v = runProg(t, quot(Int(1)), quot(Int(42)), quot(Int(7)), op(OpIfElse))
	wantStack(t, v, "42")
}

func TestBitwiseAndMathOps(t *testing.T) {
	v := runProg(t, Int(6), Int(3), op(OpBitAnd))
	wantStack(t, v, "2")
	v = runProg(t, Int(6), Int(3), op(OpBitOr))
	wantStack(t, v, "7")
	v = runProg(t, Int(6), Int(3), op(OpBitXor))
	wantStack(t, v, "5")
	v = runProg(t, Int(4), op(OpSqrt))
	wantStack(t, v, "2")
	v = runProg(t, Int(2), Int(3), op(OpPow))
	wantStack(t, v, "8")
	v = runProg(t, EmptyList(), op(OpBool))
	wantStack(t, v, "0")
}

func TestStringOps(t *testing.T) {
	v := runProg(t, Str("ABCDE"), Int(1), Int(3), op(OpSubstr))
	wantStack(t, v, "BCD")
	v = runProg(t, Str("ABCD"), Str("C"), op(OpFind))
	wantStack(t, v, "2")
	v = runProg(t, Str("ABCD"), Str("E"), op(OpFind))
	wantStack(t, v, "-1")
	v = runProg(t, Str("  x "), op(OpTrim))
	wantStack(t, v, "x")
}

func TestLoopTerminatesViaBreakCatch(t *testing.T) {
	// loop_ runs its body forever; break raises, trycatch unwinds to the
	// catch with the try's partial stack discarded (spec §4.9).
	body := quot(op(OpInc), op(OpDup), Int(3), op(OpGe), quot(op(OpBreak)), EmptyCode(), op(OpIfElse))
	v := runProg(t,
		quot(Int(0), body, op(OpLoopU)),
		quot(op(OpPop), Str("done")),
		op(OpTryCatch))
	wantStack(t, v, "done")
}

func TestScopeDiscardsBindings(t *testing.T) {
	v := runProg(t, quot(Int(42), Ident("x", 1), op(OpDef)), op(OpScope))
	if v.dict.Has("x") {
		t.Error("x should not survive the scope")
	}
}

func TestSaveScopeReturnsDict(t *testing.T) {
	v := runProg(t, quot(Int(42), Ident("x", 1), op(OpDef)), op(OpSaveScope))
	top, err := v.Pop()
	if err != nil {
		t.Fatal("savescope left nothing on the stack")
	}
	d, ok := top.AsDict()
	if !ok {
		t.Fatalf("savescope pushed %s, want a dict", top.Tag)
	}
	if got, ok := d.Lookup("x"); !ok || got.I != 42 {
		t.Fatalf("saved scope lookup(x) = %v %v, want 42", got, ok)
	}
	if v.dict.Has("x") {
		t.Error("x should not remain visible after savescope")
	}
}

func TestUseScopeLayersDict(t *testing.T) {
	v := runProg(t,
		quot(Int(7), Ident("y", 1), op(OpDef)), op(OpSaveScope),
		quot(Ident("y", 0)), op(OpUseScope))
	// usescope leaves the dict back on the stack above y's value.
	wantStack(t, v, "7", "<dict>")
}

func TestMapDefTransformsBinding(t *testing.T) {
	v := runProg(t,
		Int(5), Ident("x", 1), op(OpDef),
		quot(op(OpInc)), Ident("x", 1), op(OpMapDef))
	got, ok := v.dict.Lookup("x")
	if !ok || got.I != 6 {
		t.Fatalf("after mapdef, lookup(x) = %v %v, want 6", got, ok)
	}
}

func TestResolveChasesBindings(t *testing.T) {
	v := runProg(t,
		Int(7), Ident("y", 1), op(OpDef),
		Ident("alias", 1), Ident("y", 1), op(OpSwap), op(OpDef),
		Ident("alias", 1), op(OpResolve))
	// alias is bound to the ident y, which resolves through to 7.
	wantStack(t, v, "7")
}

func TestDictSwapReplacesInPlace(t *testing.T) {
	d := NewDict()
	d.Def("k", Int(1))
	old, ok := d.Swap("k", Int(2))
	if !ok || old.I != 1 {
		t.Fatalf("Swap = %v %v, want old value 1", old, ok)
	}
	if got, _ := d.Lookup("k"); got.I != 2 {
		t.Fatalf("lookup after Swap = %v, want 2", got)
	}
	if _, ok := d.Swap("missing", Int(9)); ok {
		t.Error("Swap on an unbound name should report ok=false")
	}
}

func TestSharedCodeBodySurvivesRepeatedRuns(t *testing.T) {
	// times clones the body per iteration; the string literal inside must
	// survive every round despite the shared backing buffer.
	var out bytes.Buffer
	v := New(WithStdout(&out))
	v.PushWork(Code(NewLstViewFrom([]Value{
		Int(3), quot(Str("x"), op(OpPrintString)), op(OpTimes),
	})))
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "xxx" {
		t.Errorf("output = %q, want xxx", out.String())
	}
}

func TestSubVMConstructAndRun(t *testing.T) {
	// vm: ( stack work -- vm ); vm.continue drains its work; vm.stack
	// snapshots the result.
	v := runProg(t,
		EmptyList(),
		List(NewLstViewFrom([]Value{Int(1), Int(2), op(OpAdd)})),
		op(OpVMNew), op(OpVMContinue), op(OpVMStack))
	wantStack(t, v, "<vm>", "(3)")
}

func TestSubVMEvaluatedAsValueRunsToCompletion(t *testing.T) {
	v := New()
	sub := NewSubVM()
	sub.vm.SetWStack([]Value{Code(NewLstViewFrom([]Value{Int(2), Int(3), op(OpMul)}))})
	v.PushWork(VMValue(sub))
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantStack(t, v, "6")
}

func TestThreadedGuardIncrements(t *testing.T) {
	// K threads each guard-increment a shared cell N times; the final
	// value must be N*K (spec §8.4).
	const workers = 4
	const rounds = 50
	cell := NewRefCell(Int(0))
	v := New()
	var elems []Value
	for i := 0; i < workers; i++ {
		guardInc := quot(RefValue(cell).Clone(), quot(op(OpInc)), op(OpGuard))
		elems = append(elems,
			EmptyList(),
			// the work list holds one program frame: a bare quotation in
			// work position evaluates, so the whole worker body goes inside.
			List(NewLstViewFrom([]Value{
				quot(Int(rounds), guardInc, op(OpTimes)),
			})),
			op(OpThread))
	}
	for i := 0; i < workers; i++ {
		elems = append(elems, op(OpThreadWait), op(OpPop))
	}
	v.PushWork(Code(NewLstViewFrom(elems)))
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := cell.Get()
	if got.I != workers*rounds {
		t.Fatalf("cell = %d, want %d", got.I, workers*rounds)
	}
}
