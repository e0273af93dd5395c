package vm

import verr "github.com/mikeagun/concat-sub000/internal/errors"

// SerializeBytecode and DeserializeBytecode are left stubbed per spec §9:
// bytecode values are carried as opaque strings (Source renders them as
// "<bytecode>", which does not reparse), and
// compiling Code to the original's packed bytecode form (and back) is
// out of scope for this port. Naming follows the teacher's now-removed
// bytecode/serializer.go, kept here only as the shape a future
// implementation would fill in.
func SerializeBytecode(v Value) (string, error) {
	return "", verr.New(verr.NotImplemented, "bytecode serialization not implemented")
}

func DeserializeBytecode(raw string) (Value, error) {
	return Value{}, verr.New(verr.NotImplemented, "bytecode deserialization not implemented")
}
