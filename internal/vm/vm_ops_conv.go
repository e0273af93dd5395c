package vm

import (
	"strconv"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

func init() {
	registerOp(OpIsInt, isTag(TagInt))
	registerOp(OpIsFloat, isTag(TagFloat))
	registerOp(OpIsNum, predOp(func(v Value) bool { return v.IsNumber() }))
	registerOp(OpIsString, isTag(TagString))
	registerOp(OpIsIdent, isTag(TagIdent))
	registerOp(OpIsList, isTag(TagList))
	registerOp(OpIsCode, isTag(TagCode))
	registerOp(OpIsDict, isTag(TagDict))
	registerOp(OpIsRef, isTag(TagRef))
	registerOp(OpIsFile, predOp(func(v Value) bool { return v.Tag == TagFile || v.Tag == TagFd }))
	registerOp(OpIsVM, isTag(TagVM))
	registerOp(OpIsPush, predOp(func(v Value) bool { return v.IsPush() }))

	registerOp(OpToStr, opToStr)
	registerOp(OpToInt, opToInt)
	registerOp(OpToFloat, opToFloat)
	registerOp(OpParseNum, opParseNum)
}

func isTag(t Tag) OpHandler { return predOp(func(v Value) bool { return v.Tag == t }) }

func predOp(pred func(Value) bool) OpHandler {
	return func(v *VM) error {
		a, err := v.Pop()
		if err != nil {
			return err
		}
		result := pred(a)
		a.Destroy()
		v.Push(Int(b2i(result)))
		return nil
	}
}

// tostr: ( v -- str ) human-readable rendering, same as print's payload.
func opToStr(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s := a.Human()
	a.Destroy()
	v.Push(Str(s))
	return nil
}

// toint: ( v -- int ) truncates floats, parses numeric strings.
func opToInt(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	switch a.Tag {
	case TagInt:
		v.Push(a)
	case TagFloat:
		v.Push(Int(int32(a.F)))
	case TagString:
		n, perr := strconv.ParseInt(a.Str.Bytes(), 10, 32)
		a.Destroy()
		if perr != nil {
			return errf(verr.BadArgs, "toint: %v", perr)
		}
		v.Push(Int(int32(n)))
	default:
		return errf(verr.BadType, "toint: cannot convert %s", a.Tag)
	}
	return nil
}

// tofloat: ( v -- float )
func opToFloat(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	switch a.Tag {
	case TagFloat:
		v.Push(a)
	case TagInt:
		v.Push(Float(float64(a.I)))
	case TagString:
		f, perr := strconv.ParseFloat(a.Str.Bytes(), 64)
		a.Destroy()
		if perr != nil {
			return errf(verr.BadArgs, "tofloat: %v", perr)
		}
		v.Push(Float(f))
	default:
		return errf(verr.BadType, "tofloat: cannot convert %s", a.Tag)
	}
	return nil
}

// parsenum: ( str -- num ) parses an int if possible, else a float.
func opParseNum(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagString {
		return errf(verr.BadType, "parsenum: expected string, got %s", a.Tag)
	}
	s := a.Str.Bytes()
	a.Destroy()
	if n, perr := strconv.ParseInt(s, 10, 32); perr == nil {
		v.Push(Int(int32(n)))
		return nil
	}
	f, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return errf(verr.BadParse, "parsenum: %q is not a number", s)
	}
	v.Push(Float(f))
	return nil
}
