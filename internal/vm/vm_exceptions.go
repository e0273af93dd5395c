package vm

import (
	"fmt"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

// unwind handles an error raised mid-evaluation (spec §4.9/§7): it looks
// for the innermost continuation frame, trims the data and work stacks
// back to the depth recorded when that frame was pushed, pushes an error
// value describing the failure, and splices the frame's handler onto
// work as the next thing to run. If no continuation frame is open, the
// error is returned to the caller unchanged (propagates out of Run).
func (v *VM) unwind(cause error) error {
	frame, ok := v.CPop()
	if !ok {
		return cause
	}
	if frame.dataDepth <= len(v.data) {
		for i := len(v.data) - 1; i >= frame.dataDepth; i-- {
			v.data[i].Destroy()
		}
		v.data = v.data[:frame.dataDepth]
	}
	if frame.workDepth <= len(v.work) {
		v.trimWork(frame.workDepth)
	}
	v.Push(errorValue(cause))
	handler := frame.handler.Clone()
	frame.handler.Destroy()
	v.pushWork(handler, "")
	return nil
}

// thrownValue wraps a user-thrown Value as an error so unwind/catch
// recovers the exact value thrown rather than a stringified rendering
// (spec §7 step 2: "the exception payload is already on the data
// stack" for Throw/UserThrow).
type thrownValue struct{ val Value }

func (e *thrownValue) Error() string { return e.val.Human() }

// Kind reports UserThrow so verr.KindOf classifies a thrownValue the
// same way the spec's error-kind taxonomy does, without internal/errors
// needing to know about vm.Value.
func (e *thrownValue) Kind() verr.Kind { return verr.UserThrow }

// errorValue renders an error as the Value a catch handler receives: the
// thrown payload itself for throw/user-throw, otherwise a short string
// describing the engine error kind.
func errorValue(err error) Value {
	if tv, ok := err.(*thrownValue); ok {
		return tv.val
	}
	kind := verr.KindOf(err)
	if ee, ok := err.(*verr.EngineError); ok {
		return Str(ee.Error())
	}
	return Str(kind.String() + ": " + err.Error())
}

// QuitError signals an explicit request (the quit opcode) to terminate
// evaluation immediately with a process exit code, bypassing
// continuation-stack unwinding the way spec §7 says Fatal errors do.
type QuitError struct{ Code int32 }

func (e *QuitError) Error() string { return fmt.Sprintf("quit(%d)", e.Code) }

func init() {
	registerOp(OpThrow, opThrow)
	registerOp(OpCatch, opCatch)
	registerOp(OpTryCatch, opTryCatch)
	registerOp(OpTryDebug, opTryDebug)
	registerOp(OpEndTry, opEndTry)
	registerOp(OpQuit, opQuit)
	registerOp(OpPError, opPError)
	registerOp(OpAssert, opAssert)
}

// throw: ( v -- ) raises a user exception carrying v itself as payload
// (spec §7), recovered verbatim by the nearest catch handler.
func opThrow(v *VM) error {
	msg, err := v.Pop()
	if err != nil {
		return err
	}
	return &thrownValue{val: msg}
}

// catch: ( ... handler -- ... ) pushes a continuation frame so a
// subsequent throw/error inside the following work resumes at handler
// with the error value on top of data.
func opCatch(v *VM) error {
	handler, err := v.Pop()
	if err != nil {
		return err
	}
	v.CPush(handler, true)
	return nil
}

// trycatch: ( try catch -- ... ) runs try; any error that escapes it
// (including a nested trycatch's own unhandled error) resumes at catch
// with the error/thrown value on top of the data stack (spec §4.9). On
// normal completion, catch is dropped unused by _endtry.
func opTryCatch(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	tryV, catchV := args[0], args[1]
	if tryV.Tag != TagCode {
		catchV.Destroy()
		tryV.Destroy()
		return errf(verr.BadType, "trycatch: expected code for try, got %s", tryV.Tag)
	}
	v.CPush(catchV, true)
	v.pushWork(Code(NewLstViewFrom([]Value{Opcode(OpEndTry)})), "")
	v.pushWork(tryV, "trycatch")
	return nil
}

// trydebug: ( try debug -- ... ) like trycatch, but named for the
// debugger-trap case (spec §4.9 "trydebug installs a debugger-trap
// handler instead"); this engine has no separate interactive debugger
// trap, so the handler quotation runs exactly like an ordinary catch
// body.
func opTryDebug(v *VM) error {
	return opTryCatch(v)
}

// _endtry: internal sentinel spliced after a trycatch's try body; drops
// the continuation frame trycatch installed once try completes without
// raising, discarding the now-unused catch quotation.
func opEndTry(v *VM) error {
	frame, ok := v.CPop()
	if ok {
		frame.handler.Destroy()
	}
	return nil
}

// quit: ( code -- ) terminates evaluation immediately with the given
// exit code, skipping continuation-stack unwinding (spec §7 Fatal).
func opQuit(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	code := int32(0)
	if a.Tag == TagInt {
		code = a.I
	}
	a.Destroy()
	return &QuitError{Code: code}
}

// perror: ( kind msg -- ) raises an engine error of the given kind index.
func opPError(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	kindVal, msg := args[0], args[1]
	return verr.New(verr.Kind(kindVal.I), "%s", msg.Human())
}

// assert: ( bool msg -- ) throws msg if bool is false.
func opAssert(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	cond, msg := args[0], args[1]
	if !cond.AsBool() {
		return verr.New(verr.Assert, "%s", msg.Human())
	}
	return nil
}
