package vm

import (
	"io"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

func init() {
	registerOp(OpOpen, opOpen)
	registerOp(OpClose, opClose)
	registerOp(OpRead, opRead)
	registerOp(OpReadLine, opReadLine)
	registerOp(OpWrite, opWrite)
	registerOp(OpFlush, opFlush)
	registerOp(OpStdin, opStdin)
	registerOp(OpStdout, opStdout)
	registerOp(OpStderr, opStderr)
	registerOp(OpSeek, opSeek)
	registerOp(OpFPos, opFPos)
	registerOp(OpStdinReadLine, opStdinReadLine)
}

// open: ( name mode -- file ) mode is "r", "w", or "a".
func opOpen(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	nameVal, modeVal := args[0], args[1]
	if nameVal.Tag != TagString || modeVal.Tag != TagString {
		nameVal.Destroy()
		modeVal.Destroy()
		return errf(verr.BadType, "open: expected (string string)")
	}
	name, mode := nameVal.Str.Bytes(), modeVal.Str.Bytes()
	nameVal.Destroy()
	modeVal.Destroy()
	s, oerr := NewFileStream(name, mode)
	if oerr != nil {
		return errf(verr.IoError, "open %q: %v", name, oerr)
	}
	v.Push(StreamValue(s, false))
	return nil
}

// close: ( file -- )
func opClose(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s, ok := a.AsStream()
	if !ok {
		return errf(verr.BadType, "close: expected a file, got %s", a.Tag)
	}
	s.release()
	return nil
}

// read: ( file n -- str ) raw byte read, fd-mode.
func opRead(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	fileVal, n := args[0], args[1]
	s, ok := fileVal.AsStream()
	if !ok {
		return errf(verr.BadType, "read: expected a file, got %s", fileVal.Tag)
	}
	buf, rerr := s.Read(int(n.I))
	fileVal.Destroy()
	if rerr != nil && rerr != io.EOF {
		return errf(verr.IoError, "read: %v", rerr)
	}
	v.Push(Str(string(buf)))
	return nil
}

// readline: ( file -- str )
func opReadLine(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s, ok := a.AsStream()
	if !ok {
		return errf(verr.BadType, "readline: expected a file, got %s", a.Tag)
	}
	line, rerr := s.ReadLine()
	a.Destroy()
	if rerr == io.EOF {
		return errf(verr.Eof, "readline: end of file")
	}
	if rerr != nil {
		return errf(verr.IoError, "readline: %v", rerr)
	}
	v.Push(Str(line))
	return nil
}

// write: ( file str -- )
func opWrite(v *VM) error {
	args, err := v.popN(2)
	if err != nil {
		return err
	}
	fileVal, strVal := args[0], args[1]
	s, ok := fileVal.AsStream()
	if !ok {
		strVal.Destroy()
		return errf(verr.BadType, "write: expected a file, got %s", fileVal.Tag)
	}
	if strVal.Tag != TagString {
		fileVal.Destroy()
		strVal.Destroy()
		return errf(verr.BadType, "write: expected a string, got %s", strVal.Tag)
	}
	_, werr := s.Write([]byte(strVal.Str.Bytes()))
	fileVal.Destroy()
	strVal.Destroy()
	if werr != nil {
		return errf(verr.IoError, "write: %v", werr)
	}
	return nil
}

type flusher interface{ Flush() error }

// flush: ( file -- )
func opFlush(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s, ok := a.AsStream()
	if !ok {
		return errf(verr.BadType, "flush: expected a file, got %s", a.Tag)
	}
	if f, ok := s.w.(flusher); ok {
		if ferr := f.Flush(); ferr != nil {
			a.Destroy()
			return errf(verr.IoError, "flush: %v", ferr)
		}
	}
	a.Destroy()
	return nil
}

// seek: ( file offset whence -- ) repositions a file stream; whence is
// 0 (start), 1 (current), or 2 (end), matching io.Seeker/fseek.
func opSeek(v *VM) error {
	args, err := v.popN(3)
	if err != nil {
		return err
	}
	fileVal, offsetVal, whenceVal := args[0], args[1], args[2]
	s, ok := fileVal.AsStream()
	if !ok || offsetVal.Tag != TagInt || whenceVal.Tag != TagInt {
		fileVal.Destroy()
		offsetVal.Destroy()
		whenceVal.Destroy()
		return errf(verr.BadType, "seek: expected (file int int)")
	}
	_, serr := s.Seek(int64(offsetVal.I), int(whenceVal.I))
	fileVal.Destroy()
	if serr != nil {
		return errf(verr.IoError, "seek: %v", serr)
	}
	return nil
}

// fpos: ( file -- pos ) current file offset.
func opFPos(v *VM) error {
	a, err := v.Pop()
	if err != nil {
		return err
	}
	s, ok := a.AsStream()
	if !ok {
		return errf(verr.BadType, "fpos: expected a file, got %s", a.Tag)
	}
	pos, perr := s.Pos()
	a.Destroy()
	if perr != nil {
		return errf(verr.IoError, "fpos: %v", perr)
	}
	v.Push(Int(int32(pos)))
	return nil
}

// stdin.readline: ( -- str ) reads one line from the VM's shared stdin
// stream without requiring the caller to push/close a file value first,
// the convenience form spec §4.7's I/O category names alongside the
// general readline.
func opStdinReadLine(v *VM) error {
	if v.stdinS == nil {
		v.stdinS = WrapReader("stdin", v.stdin)
	}
	line, rerr := v.stdinS.ReadLine()
	if rerr == io.EOF {
		return errf(verr.Eof, "stdin.readline: end of file")
	}
	if rerr != nil {
		return errf(verr.IoError, "stdin.readline: %v", rerr)
	}
	v.Push(Str(line))
	return nil
}

// stdin/stdout/stderr: ( -- file ) push the VM's shared standard stream.
func opStdin(v *VM) error {
	if v.stdinS == nil {
		v.stdinS = WrapReader("stdin", v.stdin)
	}
	v.stdinS.retain()
	v.Push(StreamValue(v.stdinS, false))
	return nil
}

func opStdout(v *VM) error {
	if v.stdoutS == nil {
		v.stdoutS = WrapWriter("stdout", v.stdout)
	}
	v.stdoutS.retain()
	v.Push(StreamValue(v.stdoutS, false))
	return nil
}

func opStderr(v *VM) error {
	if v.stderrS == nil {
		v.stderrS = WrapWriter("stderr", v.stderr)
	}
	v.stderrS.retain()
	v.Push(StreamValue(v.stderrS, false))
	return nil
}
