package vm

import (
	"math"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

func init() {
	registerOp(OpAdd, numBinOp(func(a, b float64) float64 { return a + b }, func(a, b int32) int32 { return a + b }))
	registerOp(OpSub, numBinOp(func(a, b float64) float64 { return a - b }, func(a, b int32) int32 { return a - b }))
	registerOp(OpMul, numBinOp(func(a, b float64) float64 { return a * b }, func(a, b int32) int32 { return a * b }))
	registerOp(OpDiv, opDiv)
	registerOp(OpMod, opMod)
	registerOp(OpInc, numUnOp(func(a float64) float64 { return a + 1 }, func(a int32) int32 { return a + 1 }))
	registerOp(OpDec, numUnOp(func(a float64) float64 { return a - 1 }, func(a int32) int32 { return a - 1 }))
	registerOp(OpNeg, numUnOp(func(a float64) float64 { return -a }, func(a int32) int32 { return -a }))
	registerOp(OpAbs, numUnOp(math.Abs, func(a int32) int32 {
		if a < 0 {
			return -a
		}
		return a
	}))
	registerOp(OpSqrt, opSqrt)
	registerOp(OpLog, opLog)
	registerOp(OpPow, opPow)
	registerOp(OpBitAnd, bitBinOp(func(a, b int32) int32 { return a & b }))
	registerOp(OpBitOr, bitBinOp(func(a, b int32) int32 { return a | b }))
	registerOp(OpBitXor, bitBinOp(func(a, b int32) int32 { return a ^ b }))
	registerOp(OpBitNot, opBitNot)
	registerOp(OpBool, opBool)
	registerOp(OpAnd, opAnd)
	registerOp(OpOr, opOr)
	registerOp(OpNot, opNot)

	registerOp(OpEq, cmpOp(func(o Ordering) bool { return o == Equal }))
	registerOp(OpNe, cmpOp(func(o Ordering) bool { return o != Equal }))
	registerOp(OpLt, cmpOp(func(o Ordering) bool { return o == Less }))
	registerOp(OpLe, cmpOp(func(o Ordering) bool { return o != Greater }))
	registerOp(OpGt, cmpOp(func(o Ordering) bool { return o == Greater }))
	registerOp(OpGe, cmpOp(func(o Ordering) bool { return o != Less }))
	registerOp(OpCompare, opCompareOp)
}

// numBinOp builds a handler for a binary arithmetic opcode: floats if
// either operand is a float, otherwise 32-bit integer arithmetic.
func numBinOp(ff func(a, b float64) float64, fi func(a, b int32) int32) OpHandler {
	return func(v *VM) error {
		args, err := v.popN(2)
		if err != nil {
			return err
		}
		a, b := args[0], args[1]
		if !a.IsNumber() || !b.IsNumber() {
			return errf(verr.BadType, "arithmetic op expects numbers, got %s/%s", a.Tag, b.Tag)
		}
		if a.Tag == TagFloat || b.Tag == TagFloat {
			v.Push(Float(ff(numVal(a), numVal(b))))
		} else {
			v.Push(Int(fi(a.I, b.I)))
		}
		return nil
	}
}

func numUnOp(ff func(float64) float64, fi func(int32) int32) OpHandler {
	return func(v *VM) error {
		a, err := v.Pop()
		if err != nil {
			return err
		}
		if !a.IsNumber() {
			return errf(verr.BadType, "arithmetic op expects a number, got %s", a.Tag)
		}
		if a.Tag == TagFloat {
			v.Push(Float(ff(a.F)))
		} else {
			v.Push(Int(fi(a.I)))
		}
		return nil
	}
}

// div: the language's single numeric division operator. Two ints that
// divide exactly give an int quotient; every other case (a float
// operand, or a remainder) gives a float quotient.
func opDiv(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return errf(verr.BadType, "div expects numbers, got %s/%s", a.Tag, b.Tag)
	}
	bv := numVal(b)
	if bv == 0 {
		return errf(verr.BadArgs, "div: division by zero")
	}
	if a.Tag == TagInt && b.Tag == TagInt && a.I%b.I == 0 {
		v.Push(Int(a.I / b.I))
		return nil
	}
	v.Push(Float(numVal(a) / bv))
	return nil
}

// mod: integer remainder; both operands must be ints.
func opMod(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if a.Tag != TagInt || b.Tag != TagInt {
		return errf(verr.BadType, "mod expects ints, got %s/%s", a.Tag, b.Tag)
	}
	if b.I == 0 {
		return errf(verr.BadArgs, "mod: division by zero")
	}
	v.Push(Int(a.I % b.I))
	return nil
}

// sqrt: ( n -- root ) exact back to int when both ends are integral.
func opSqrt(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if !a.IsNumber() {
		return errf(verr.BadType, "sqrt expects a number, got %s", a.Tag)
	}
	r := math.Sqrt(numVal(a))
	if a.Tag == TagInt && r == math.Trunc(r) {
		v.Push(Int(int32(r)))
		return nil
	}
	v.Push(Float(r))
	return nil
}

// log: ( n -- ln n )
func opLog(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if !a.IsNumber() {
		return errf(verr.BadType, "log expects a number, got %s", a.Tag)
	}
	v.Push(Float(math.Log(numVal(a))))
	return nil
}

// ^: ( base exp -- base**exp ) always a float, like div's inexact cases.
func opPow(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return errf(verr.BadType, "^ expects numbers, got %s/%s", a.Tag, b.Tag)
	}
	v.Push(Float(math.Pow(numVal(a), numVal(b))))
	return nil
}

func bitBinOp(f func(a, b int32) int32) OpHandler {
	return func(v *VM) error {
		args, err := v.popN(2)
		if err != nil {
			return err
		}
		a, b := args[0], args[1]
		if a.Tag != TagInt || b.Tag != TagInt {
			return errf(verr.BadType, "bitwise op expects ints, got %s/%s", a.Tag, b.Tag)
		}
		v.Push(Int(f(a.I, b.I)))
		return nil
	}
}

// ~: ( n -- ^n ) bitwise complement.
func opBitNot(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	if a.Tag != TagInt {
		return errf(verr.BadType, "~ expects an int, got %s", a.Tag)
	}
	v.Push(Int(^a.I))
	return nil
}

// bool: ( v -- 0|1 ) normalizes any value to its truthiness.
func opBool(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	result := a.AsBool()
	a.Destroy()
	v.Push(Int(b2i(result)))
	return nil
}

// and/or/not: logical, operating on AsBool() truthiness, returning 0/1.
func opAnd(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	result := a.AsBool() && b.AsBool()
	a.Destroy()
	b.Destroy()
	v.Push(Int(b2i(result)))
	return nil
}

func opOr(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	result := a.AsBool() || b.AsBool()
	a.Destroy()
	b.Destroy()
	v.Push(Int(b2i(result)))
	return nil
}

func opNot(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	v.Push(Int(b2i(!a.AsBool())))
	a.Destroy()
	return nil
}

func cmpOp(pred func(Ordering) bool) OpHandler {
	return func(v *VM) error {
		args, err := v.popN(2)
		if err != nil {
			return err
		}
		a, b := args[0], args[1]
		result := pred(Compare(a, b))
		a.Destroy()
		b.Destroy()
		v.Push(Int(b2i(result)))
		return nil
	}
}

// compare: ( a b -- -1|0|1 )
func opCompareOp(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	o := Compare(a, b)
	a.Destroy()
	b.Destroy()
	v.Push(Int(int32(o)))
	return nil
}
