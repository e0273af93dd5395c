package vm

import (
	verr "github.com/mikeagun/concat-sub000/internal/errors"
	"github.com/mikeagun/concat-sub000/internal/format"
)

func init() {
	registerOp(OpPrint, opPrint)
	registerOp(OpPrintNN, opPrintNN)
	registerOp(OpPrintV, opPrintV)
	registerOp(OpPrintString, opPrintString)
	registerOp(OpSprintf, opSprintf)
	registerOp(OpQState, opQState)
	registerOp(OpVState, opVState)
}

// valueArg adapts a Value to internal/format.Arg without the formatter
// needing to import internal/vm (see internal/format's package doc).
type valueArg struct{ v Value }

func (a valueArg) Int() (int32, bool) {
	if a.v.Tag == TagInt {
		return a.v.I, true
	}
	return 0, false
}

func (a valueArg) Float() (float64, bool) {
	if a.v.Tag == TagFloat {
		return a.v.F, true
	}
	return 0, false
}

func (a valueArg) Str() (string, bool) {
	switch a.v.Tag {
	case TagString, TagIdent, TagBytecode:
		return a.v.Str.Bytes(), true
	default:
		return "", false
	}
}

func (a valueArg) Human() string  { return a.v.Human() }
func (a valueArg) Source() string { return a.v.Source() }

// print: ( v -- ) writes v's human rendering, newline-terminated, to
// the VM's stdout, the engine's `.` equivalent.
func opPrint(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s := a.Human()
	a.Destroy()
	_, werr := v.stdout.Write([]byte(s + "\n"))
	if werr != nil {
		return errf(verr.IoError, "print: %v", werr)
	}
	return nil
}

// print_: ( v -- ) print without the trailing newline.
func opPrintNN(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s := a.Human()
	a.Destroy()
	if _, werr := v.stdout.Write([]byte(s)); werr != nil {
		return errf(verr.IoError, "print_: %v", werr)
	}
	return nil
}

// printV: ( v -- ) writes v in source-reparseable form (the formatter's
// %V conversion), newline-terminated.
func opPrintV(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s := a.Source()
	a.Destroy()
	if _, werr := v.stdout.Write([]byte(s + "\n")); werr != nil {
		return errf(verr.IoError, "printV: %v", werr)
	}
	return nil
}

// qstate: ( -- ) dumps a truncated one-line view of the data stack to
// stdout, top first, the REPL's quick state peek.
func opQState(v *VM) error {
	elems := make([]string, len(v.data))
	for i, d := range v.data {
		elems[i] = d.Human()
	}
	opts := format.DefaultListOptions("<< ", " <<\n")
	opts.Reverse = true
	opts.MaxElements = 10
	opts.MaxBytes = 120
	if _, werr := v.stdout.Write([]byte(format.FormatList(elems, opts))); werr != nil {
		return errf(verr.IoError, "qstate: %v", werr)
	}
	return nil
}

// vstate: ( -- ) dumps the full data and work stacks in source form,
// untruncated, the verbose counterpart of qstate.
func opVState(v *VM) error {
	data := make([]string, len(v.data))
	for i, d := range v.data {
		data[i] = d.Source()
	}
	work := make([]string, len(v.work))
	for i, w := range v.work {
		work[i] = w.Source()
	}
	dOpts := format.DefaultListOptions("<< ", " <<\n")
	dOpts.Reverse = true
	wOpts := format.DefaultListOptions(">> ", " >>\n")
	wOpts.Reverse = true
	out := format.FormatList(data, dOpts) + format.FormatList(work, wOpts)
	if _, werr := v.stdout.Write([]byte(out)); werr != nil {
		return errf(verr.IoError, "vstate: %v", werr)
	}
	return nil
}

// print_string: ( str -- ) writes a string's raw bytes with no quoting
// and no trailing newline, used for building output incrementally.
func opPrintString(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagString && a.Tag != TagIdent {
		return errf(verr.BadType, "print_string: expected string, got %s", a.Tag)
	}
	s := a.Str.Bytes()
	a.Destroy()
	if _, werr := v.stdout.Write([]byte(s)); werr != nil {
		return errf(verr.IoError, "print_string: %v", werr)
	}
	return nil
}

// sprintf: ( arglist spec -- str ) formats spec (a string) against the
// elements of arglist (a list), spec §4.6's printf-style formatter.
func opSprintf(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	argList, specVal := args[0], args[1]
	if specVal.Tag != TagString {
		argList.Destroy()
		specVal.Destroy()
		return errf(verr.BadType, "sprintf: expected a string format spec, got %s", specVal.Tag)
	}
	if argList.Tag != TagList && argList.Tag != TagCode {
		specVal.Destroy()
		argList.Destroy()
		return errf(verr.BadType, "sprintf: expected a list of arguments, got %s", argList.Tag)
	}
	spec := specVal.Str.Bytes()
	elems := argList.Lst.ToSlice()
	fargs := make([]format.Arg, len(elems))
	for i, e := range elems {
		fargs[i] = valueArg{e}
	}
	out, ferr := format.Sprintf(spec, format.NewSliceArgs(fargs))
	argList.Destroy()
	specVal.Destroy()
	if ferr != nil {
		return errf(verr.BadArgs, "sprintf: %v", ferr)
	}
	v.Push(Str(out))
	return nil
}
