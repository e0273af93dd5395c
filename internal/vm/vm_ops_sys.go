package vm

import "os"

func init() {
	registerOp(OpSysEnv, opSysEnv)
}

// sysenv: ( name -- str|<nothing> bool ) looks up an environment
// variable by name, pushing its value and true, or just false.
func opSysEnv(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	name := a.Str.Bytes()
	a.Destroy()
	val, ok := os.LookupEnv(name)
	if ok {
		v.Push(Str(val))
	}
	v.Push(Int(b2i(ok)))
	return nil
}
