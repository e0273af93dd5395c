package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

func init() {
	registerOp(OpVMNew, opVMNew)
	registerOp(OpVMExec, opExec)
	registerOp(OpThread, opThread)
	registerOp(OpThreadWait, opThreadWait)
	registerOp(OpVMStack, opVMStack)
	registerOp(OpVMSetStack, opVMSetStack)
	registerOp(OpVMContinue, opVMContinue)
	registerOp(OpVMThreadU, opVMThreadU)
	registerOp(OpVMWStack, opVMWStack)
	registerOp(OpVMWSetStack, opVMWSetStack)
	registerOp(OpDebugOp, opDebugOp)
}

// subFromLists builds a sub-VM from the (stack work) list pair the vm
// and thread constructors take (spec §4.8): stack elements seed the data
// stack bottom first; work elements are queued so the list's head runs
// first (the work stack itself grows the other way).
func subFromLists(v *VM, stackVal, workVal Value) (*SubVM, error) {
	if (stackVal.Tag != TagList && stackVal.Tag != TagCode) ||
		(workVal.Tag != TagList && workVal.Tag != TagCode) {
		stackVal.Destroy()
		workVal.Destroy()
		return nil, errf(verr.BadType, "vm: expected (stack-list work-list)")
	}
	sub := NewSubVM(WithStdin(v.stdin), WithStdout(v.stdout), WithStderr(v.stderr))
	if v.parseUnit != nil {
		sub.vm.parseUnit = v.parseUnit
	}
	sub.vm.SetStack(stackVal.Lst.TakeElems())
	work := workVal.Lst.TakeElems()
	for i, j := 0, len(work)-1; i < j; i, j = i+1, j-1 {
		work[i], work[j] = work[j], work[i]
	}
	sub.vm.SetWStack(work)
	return sub, nil
}

// vm: ( stack work -- vm ) packages a stopped sub-VM from a data-stack
// seed and a pending-work list (spec §4.8).
func opVMNew(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	sub, serr := subFromLists(v, args[0], args[1])
	if serr != nil {
		return serr
	}
	v.Push(VMValue(sub))
	return nil
}

// thread: ( stack work -- vm ) constructs like vm, then immediately
// starts the sub-VM's queued work on its own goroutine; join with
// thread.wait.
func opThread(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	sub, serr := subFromLists(v, args[0], args[1])
	if serr != nil {
		return serr
	}
	sub.ThreadContinue()
	v.Push(VMValue(sub))
	return nil
}

// vm.exec: ( ... vm -- stack... work... ) transfers execution: the
// sub-VM's data stack is spliced onto the caller's and its pending work
// frames onto the caller's work, consuming the sub-VM (the debugger's
// step-into).
func opExec(v *VM) error {
	vmVal, err := v.Pop()
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "vm.exec: expected a vm, got %s", vmVal.Tag)
	}
	for _, d := range sub.vm.data {
		v.Push(d)
	}
	for i, w := range sub.vm.work {
		v.pushWork(w, sub.vm.frameNames[i])
	}
	sub.vm.data = nil
	sub.vm.work = nil
	sub.vm.frameNames = nil
	return nil
}

// thread.wait: ( vm -- vm err|nothing ) blocks until a prior `thread`
// call's goroutine finishes.
func opThreadWait(v *VM) error {
	vmVal, err := v.Peek(0)
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "thread.wait: expected a vm, got %s", vmVal.Tag)
	}
	if rerr := sub.Wait(); rerr != nil {
		v.Push(Str(rerr.Error()))
	}
	return nil
}

// vm.stack: ( vm -- vm list ) snapshots a sub-VM's data stack as a list,
// bottom first.
func opVMStack(v *VM) error {
	vmVal, err := v.Peek(0)
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "vm.stack: expected a vm, got %s", vmVal.Tag)
	}
	v.Push(List(NewLstViewFrom(sub.VM().Stack())))
	return nil
}

// vm.setstack: ( vm list -- vm ) replaces a sub-VM's data stack with
// list's elements, bottom first, typically used to seed it before exec.
func opVMSetStack(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	vmVal, listVal := args[0], args[1]
	sub, ok := vmVal.AsVM()
	if !ok {
		listVal.Destroy()
		vmVal.Destroy()
		return errf(verr.BadType, "vm.setstack: expected a vm, got %s", vmVal.Tag)
	}
	if listVal.Tag != TagList && listVal.Tag != TagCode {
		vmVal.Destroy()
		listVal.Destroy()
		return errf(verr.BadType, "vm.setstack: expected a list, got %s", listVal.Tag)
	}
	sub.VM().SetStack(listVal.Lst.TakeElems())
	v.Push(vmVal)
	return nil
}

// vm.continue: ( vm -- vm ) runs whatever is already queued on vm's work
// stack to completion on the calling goroutine (spec §4.8's "run one
// turn of the sub-VM until it finishes or blocks" — our evaluator has no
// cooperative-yield points short of Go's own blocking I/O/condvar waits,
// so a "turn" here means running to completion or to the same blocking
// point vm.exec would hit).
func opVMContinue(v *VM) error {
	vmVal, err := v.Peek(0)
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "vm.continue: expected a vm, got %s", vmVal.Tag)
	}
	if rerr := sub.Continue(); rerr != nil {
		v.Push(Str(rerr.Error()))
	}
	return nil
}

// vm.thread: ( vm -- vm ) spawns a goroutine running whatever is already
// queued on vm's work stack (set up beforehand via vm.wsetstack),
// complementing `thread`, which takes the program to run as an argument.
func opVMThreadU(v *VM) error {
	vmVal, err := v.Peek(0)
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "vm.thread: expected a vm, got %s", vmVal.Tag)
	}
	sub.ThreadContinue()
	return nil
}

// vm.wstack: ( vm -- vm list ) snapshots a sub-VM's work stack as a
// list, top first: the head is the frame that runs next (the debugger's
// view into pending frames).
func opVMWStack(v *VM) error {
	vmVal, err := v.Peek(0)
	if err != nil {
		return err
	}
	sub, ok := vmVal.AsVM()
	if !ok {
		return errf(verr.BadType, "vm.wstack: expected a vm, got %s", vmVal.Tag)
	}
	frames := sub.VM().WStack()
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	v.Push(List(NewLstViewFrom(frames)))
	return nil
}

// vm.wsetstack: ( vm list -- vm ) replaces a sub-VM's work stack with
// list's elements, top first (the head runs next, the same order
// vm.wstack produces), typically used by the debugger to load
// a frame before vm.continue/vm.thread.
func opVMWSetStack(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	vmVal, listVal := args[0], args[1]
	sub, ok := vmVal.AsVM()
	if !ok {
		listVal.Destroy()
		vmVal.Destroy()
		return errf(verr.BadType, "vm.wsetstack: expected a vm, got %s", vmVal.Tag)
	}
	if listVal.Tag != TagList && listVal.Tag != TagCode {
		vmVal.Destroy()
		listVal.Destroy()
		return errf(verr.BadType, "vm.wsetstack: expected a list, got %s", listVal.Tag)
	}
	frames := listVal.Lst.TakeElems()
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	sub.VM().SetWStack(frames)
	v.Push(vmVal)
	return nil
}

// debug: ( -- ) traps into the debugger (spec §4.9 "debugger trap-out").
// The core evaluator has no built-in debugger UI (spec §1 names it an
// out-of-scope external collaborator); here debug is the hook front ends
// attach to by rebinding the `debug` word in the dictionary. With
// nothing attached, it is a no-op, matching plain `nop`.
func opDebugOp(v *VM) error {
	return nil
}
