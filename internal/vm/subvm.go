package vm

import (
	"sync"
	"sync/atomic"
)

// SubVM wraps a *VM as a first-class value (spec §4.8): the vm/thread
// constructors seed one from a (stack, work) list pair, it runs either
// on the calling goroutine (vm.continue, or by evaluating the value
// itself) or on its own goroutine (thread / vm.thread), and its stacks
// can be inspected or replaced while stopped. Two Values cloned from
// the same handle share one VM, the same way two references to a
// thread handle share one thread; the count is atomic because a
// handle's clones may be destroyed from different goroutines.
type SubVM struct {
	vm   *VM
	done chan struct{}
	err  error
	once sync.Once
	refs int32
}

// NewSubVM creates a fresh, stopped sub-VM inheriting no state from its
// parent except the options passed to New.
func NewSubVM(opts ...Option) *SubVM {
	return &SubVM{vm: New(opts...), refs: 1}
}

func (s *SubVM) retain() { atomic.AddInt32(&s.refs, 1) }

func (s *SubVM) release() {
	atomic.AddInt32(&s.refs, -1)
}

// VM returns the underlying machine (vm.stack/vm.setstack operate
// directly on it).
func (s *SubVM) VM() *VM { return s.vm }

// ThreadContinue spawns a goroutine that runs whatever is already queued
// on the sub-VM's work stack (thread / vm.thread); Wait blocks until it
// finishes (thread.wait). Used together with SetWStack so a constructor
// or the debugger can load frames and hand them to a new thread.
func (s *SubVM) ThreadContinue() {
	s.done = make(chan struct{})
	go func() {
		s.err = s.vm.Run()
		close(s.done)
	}()
}

// Continue runs the sub-VM's already-queued work to completion on the
// calling goroutine (vm.continue), returning its terminal error.
func (s *SubVM) Continue() error {
	return s.vm.Run()
}

// Wait blocks until a prior ThreadContinue call's goroutine finishes, returning
// its terminal error (nil on clean completion).
func (s *SubVM) Wait() error {
	if s.done == nil {
		return nil
	}
	<-s.done
	return s.err
}
