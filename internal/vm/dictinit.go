package vm

import "math"

// InitDict populates d with the standard dictionary (spec §6.3): every
// opcode bound under its display name, a handful of named constants, and
// the small set of convenience words that are spelled out here as Code
// literals built directly from opcodes and identifiers rather than
// parsed from source (internal/parse would create an import cycle with
// internal/vm).
func InitDict(d *Dict) {
	for i := 0; i < int(numOps); i++ {
		name := opNames[i]
		if name == "" {
			continue
		}
		d.Def(name, Opcode(Op(i)))
	}

	d.Def("true", Int(1))
	d.Def("false", Int(0))
	d.Def("pi", Float(math.Pi))
	d.Def("e", Float(math.E))

	// `.` is the conventional print word (spec §8.3 scenario 5): an
	// alias for the print opcode under its traditional punctuation name.
	d.Def(".", Opcode(OpPrint))

	// Symbolic operator aliases (original_source/src/opcodes.h binds the
	// arithmetic/comparison opcodes under these punctuation spellings
	// rather than their English names, and spec §8.3's own worked
	// scenarios are written in that spelling, e.g. "1 2 +" and
	// "dup 10 <"): bind the symbol alongside the already-registered
	// English name, both resolving to the same opcode.
	d.Def("+", Opcode(OpAdd))
	d.Def("-", Opcode(OpSub))
	d.Def("*", Opcode(OpMul))
	d.Def("/", Opcode(OpDiv))
	d.Def("%", Opcode(OpMod))
	d.Def("<", Opcode(OpLt))
	d.Def(">", Opcode(OpGt))
	d.Def("=", Opcode(OpEq))
	d.Def("_", Opcode(OpNeg))

	// tostring: spec §4.1/§4.7 name the conversion opcode "tostring";
	// opNames registers it under the shorter "tostr" (grounded on
	// original_source/src/opcodes.h's spelling), so bind the spec's own
	// name as a second alias for the same opcode. sipN/Napply get the
	// same treatment for their capitalized spellings.
	d.Def("tostring", Opcode(OpToStr))
	d.Def("sipN", Opcode(OpSipN))
	d.Def("Napply", Opcode(OpNApply))

	// swapd: ( a b c -- b a c ), the one shuffle word genuinely simpler to
	// spell as a quotation over dip than as its own native opcode (dig2,
	// dig3, bury2, bury3, flip3, flip4 are single stack permutations and
	// are registered as opcodes directly in vm_ops_stack.go instead).
	d.Def("swapd", quot(quot(op(OpSwap)), op(OpDip)))
}

// quot builds a Code value from a literal sequence, the dictionary-init
// equivalent of writing `[ ... ]` in source.
func quot(vals ...Value) Value { return Code(NewLstViewFrom(vals)) }

// id references a dictionary word by name.
func id(name string) Value { return Ident(name, 0) }

// op references a primitive opcode directly, bypassing dictionary lookup.
func op(o Op) Value { return Opcode(o) }
