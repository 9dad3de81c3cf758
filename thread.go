// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// ThreadID identifies a thread slot.
type ThreadID int32

// ThreadState is the scheduling state of a thread.
type ThreadState uint32

// Thread states.
const (
	ThreadReady ThreadState = iota
	ThreadRunning
	ThreadWaiting
	ThreadDead
)

var threadStateNames = map[ThreadState]string{
	ThreadReady:   "ready",
	ThreadRunning: "running",
	ThreadWaiting: "waiting",
	ThreadDead:    "dead",
}

func (st ThreadState) String() string {
	name, ok := threadStateNames[st]
	if ok {
		return name
	}
	return fmt.Sprintf("{ThreadState %d}", uint32(st))
}

// ThreadFunc is the body of a guest thread. A non-nil error is reported by
// [Kernel.Run] once the thread exits.
type ThreadFunc func(t *Thread) error

// Thread is a guest execution context.
//
// Every thread runs on its own goroutine, but only the thread holding the
// CPU executes; all others are parked on their resume channel. Control
// moves between threads exclusively through the scheduler's reschedule
// primitive, which hands over the scheduler lock together with the CPU.
type Thread struct {
	kern  *Kernel
	id    ThreadID
	pid   ProcessID
	name  string
	entry ThreadFunc
	state atomix.Uint64

	// waitResult is written once by the operation waking the thread and
	// read by the thread right after it resumes.
	waitResult Result
	waitQueue  *ThreadQueue

	resume chan struct{}
	killed bool
	err    error

	message [1]Message
	queue   MessageQueue
}

func newThread(k *Kernel, id ThreadID, pid ProcessID, name string,
	fn ThreadFunc) *Thread {

	t := &Thread{
		kern:   k,
		id:     id,
		pid:    pid,
		name:   name,
		entry:  fn,
		resume: make(chan struct{}, 1),
	}
	t.queue.initPerThread(t.message[:])
	return t
}

// key is the scheduler lock owner word of the thread.
func (t *Thread) key() uint64 {
	return uint64(t.id) + 1
}

// ID returns the thread id.
func (t *Thread) ID() ThreadID {
	return t.id
}

// ProcessID returns the process owning the thread.
func (t *Thread) ProcessID() ProcessID {
	return t.pid
}

// Name returns the thread name.
func (t *Thread) Name() string {
	return t.name
}

// Kernel returns the kernel running the thread.
func (t *Thread) Kernel() *Kernel {
	return t.kern
}

// State returns the current scheduling state.
func (t *Thread) State() ThreadState {
	return ThreadState(t.state.LoadAcquire())
}

func (t *Thread) setState(st ThreadState) {
	t.state.StoreRelease(uint64(st))
}

// WaitResult returns the result set by the last wakeup of the thread.
func (t *Thread) WaitResult() Result {
	return t.waitResult
}

// Err returns the error the thread body exited with.
func (t *Thread) Err() error {
	return t.err
}

// MessageQueue returns the thread's dedicated capacity-1 queue. It is used
// for synchronous request/response and cannot be reached by queue id.
func (t *Thread) MessageQueue() *MessageQueue {
	return &t.queue
}

func (t *Thread) String() string {
	return fmt.Sprintf("%d:%s/%s", t.id, t.name, t.pid)
}

// run is the goroutine body of a guest thread. The thread first waits to be
// scheduled; it then owns the scheduler lock, which it drops before entering
// the guest body.
func (t *Thread) run() error {
	s := &t.kern.sched

	<-t.resume
	if t.killed {
		return nil
	}
	s.unlockScheduler(t)

	err := t.entry(t)
	s.exit(t, err)
	return err
}
