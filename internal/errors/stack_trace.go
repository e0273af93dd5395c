package errors

import (
	"fmt"
	"strings"
)

// StackFrame represents a single frame in a continuation-stack trace
// captured when a runtime error unwinds.
type StackFrame struct {
	Pos  *Position
	Name string
}

// String returns a formatted representation of the stack frame.
func (sf StackFrame) String() string {
	if sf.Pos == nil {
		return sf.Name
	}
	return fmt.Sprintf("%s [line: %d, column: %d]", sf.Name, sf.Pos.Line, sf.Pos.Column)
}

// StackTrace is a sequence of frames, oldest (bottom) first.
type StackTrace []StackFrame

// String prints the trace newest-first, one frame per line.
func (st StackTrace) String() string {
	if len(st) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := len(st) - 1; i >= 0; i-- {
		sb.WriteString(st[i].String())
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Depth returns the number of frames in the trace.
func (st StackTrace) Depth() int { return len(st) }

// NewStackFrame creates a new stack frame.
func NewStackFrame(name string, pos *Position) StackFrame {
	return StackFrame{Name: name, Pos: pos}
}
