// Package errors provides the engine's sealed error-kind taxonomy and
// source-position error formatting used by the parser, evaluator, and CLI.
package errors

import (
	"fmt"
	"strings"
)

// Kind is the small sealed set of error kinds the evaluator can raise.
// It mirrors the error taxonomy of the original concat VM rather than
// Go's open error-wrapping conventions, since opcode handlers need a
// fixed, switchable code to decide unwind-vs-fatal behavior.
type Kind int

const (
	OK Kind = iota
	Fatal
	Null
	Break
	Undefined
	BadType
	Empty
	BadArgs
	MissingArgs
	UnexpectedEOL
	UnexpectedEOC
	Dict
	NoDebug
	BadOp
	NoParser
	BadParse
	IoError
	Eof
	BadEscape
	Locked
	Unlocked
	Lock
	Thread
	VmCancelled
	Malloc
	System
	Assert
	NotImplemented
	Throw
	UserThrow
)

var kindNames = [...]string{
	OK:             "ok",
	Fatal:          "fatal",
	Null:           "null",
	Break:          "break",
	Undefined:      "undefined",
	BadType:        "bad-type",
	Empty:          "empty",
	BadArgs:        "bad-args",
	MissingArgs:    "missing-args",
	UnexpectedEOL:  "unexpected-eol",
	UnexpectedEOC:  "unexpected-eoc",
	Dict:           "dict",
	NoDebug:        "no-debug",
	BadOp:          "bad-op",
	NoParser:       "no-parser",
	BadParse:       "bad-parse",
	IoError:        "io-error",
	Eof:            "eof",
	BadEscape:      "bad-escape",
	Locked:         "locked",
	Unlocked:       "unlocked",
	Lock:           "lock",
	Thread:         "thread",
	VmCancelled:    "vm-cancelled",
	Malloc:         "malloc",
	System:         "system",
	Assert:         "assert",
	NotImplemented: "not-implemented",
	Throw:          "throw",
	UserThrow:      "user-throw",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsThrow reports whether the error kind carries its payload on the data
// stack rather than as an integer code (spec §7 step 2).
func (k Kind) IsThrow() bool {
	return k == Throw || k == UserThrow
}

// EngineError is a Kind-tagged error with an optional human message.
// It is the concrete error value opcode handlers return; the VM inspects
// Kind to decide whether to unwind via the continuation stack or abort.
type EngineError struct {
	Kind    Kind
	Message string
}

func (e *EngineError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an EngineError of the given kind.
func New(kind Kind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// kinder is implemented by non-EngineError error types (e.g. a VM's
// thrown-value wrapper) that still want to classify themselves into the
// sealed Kind taxonomy without this package needing to import their type.
type kinder interface{ Kind() Kind }

// KindOf extracts the Kind from an error, defaulting to Fatal for any
// error that did not originate from this package (e.g. an os.File error
// surfacing through an I/O opcode).
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	if ee, ok := err.(*EngineError); ok {
		return ee.Kind
	}
	if k, ok := err.(kinder); ok {
		return k.Kind()
	}
	return Fatal
}

// Position is a 1-indexed line/column location in source text.
type Position struct {
	Line   int
	Column int
}

// CompilerError represents a single parse error with position and
// source-line context, formatted the way the engine reports parse and
// read failures to a terminal.
type CompilerError struct {
	Message string
	Source  string
	File    string
	Pos     Position
}

// NewCompilerError creates a new compiler error.
func NewCompilerError(pos Position, message, source, file string) *CompilerError {
	return &CompilerError{Pos: pos, Message: message, Source: source, File: file}
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	return e.Format(false)
}

// Format formats the error message with a single line of source context.
// If color is true, ANSI color codes are used for terminal output.
func (e *CompilerError) Format(color bool) string {
	var sb strings.Builder

	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Pos.Line, e.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Pos.Line, e.Pos.Column)
	}

	if line := e.sourceLine(e.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+e.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (e *CompilerError) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors formats multiple compiler errors, one after another.
func FormatErrors(errs []*CompilerError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "parsing failed with %d error(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[error %d of %d]\n", i+1, len(errs))
		sb.WriteString(e.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
