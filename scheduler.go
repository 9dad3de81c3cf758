// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"fmt"
	"runtime"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// schedLock is the global, non-reentrant scheduler lock.
//
// The owner word is 0 when free and the owner's thread key otherwise. When
// the CPU moves between threads the lock moves with it (handoff); it is
// never released on the way.
type schedLock struct {
	_     pad
	owner atomix.Uint64
	_     pad
}

func (l *schedLock) lock(key uint64) {
	if l.owner.LoadAcquire() == key {
		panic("kmq: scheduler lock is not reentrant")
	}
	sw := spin.Wait{}
	for !l.owner.CompareAndSwapAcqRel(0, key) {
		sw.Once()
	}
}

func (l *schedLock) unlock(key uint64) {
	if !l.owner.CompareAndSwapAcqRel(key, 0) {
		panic("kmq: scheduler lock not held by caller")
	}
}

func (l *schedLock) handoff(from, to uint64) {
	if !l.owner.CompareAndSwapAcqRel(from, to) {
		panic("kmq: scheduler lock handoff by non-owner")
	}
}

// Scheduler is the single-active-thread cooperative scheduler.
//
// Exactly one context owns the CPU at a time: either a guest thread or the
// host context, which is the goroutine driving [Kernel.Run] and issuing
// calls from outside any guest thread. Guest threads only run while the
// host is inside Run; when no guest thread is runnable the CPU returns to
// the host and Run returns.
type Scheduler struct {
	lock    schedLock
	policy  Policy
	current *Thread
	host    *Thread
	threads []*Thread
	live    int
	group   errgroup.Group
	exits   error
	log     *zap.Logger
}

func (s *Scheduler) init(k *Kernel, threads int, hostPID ProcessID,
	policy Policy, log *zap.Logger) {

	s.policy = policy
	s.threads = make([]*Thread, threads)
	s.host = newThread(k, ThreadID(threads), hostPID, "host", nil)
	s.host.setState(ThreadRunning)
	s.current = s.host
	s.log = log
}

// lockScheduler acquires the scheduler lock on behalf of the current
// context and returns that context.
func (s *Scheduler) lockScheduler() *Thread {
	t := s.current
	s.lock.lock(t.key())
	return t
}

// unlockScheduler releases the lock taken by lockScheduler. A thread torn
// down by Close unwinds without owning the lock and skips the release.
func (s *Scheduler) unlockScheduler(t *Thread) {
	if t.killed {
		return
	}
	s.lock.unlock(t.key())
}

// Current returns the context owning the CPU.
func (s *Scheduler) Current() *Thread {
	return s.current
}

// sleepThreadNoLock blocks the current thread on q. The thread keeps
// running until it reschedules itself.
func (s *Scheduler) sleepThreadNoLock(q *ThreadQueue) *Thread {
	t := s.current
	if t == s.host {
		panic("kmq: host context cannot block")
	}
	t.setState(ThreadWaiting)
	t.waitQueue = q
	q.enqueue(t)
	return t
}

// readyNoLock makes t runnable with the given wait result.
func (s *Scheduler) readyNoLock(t *Thread, result Result) {
	t.waitResult = result
	t.waitQueue = nil
	t.setState(ThreadReady)
	s.policy.Ready(t)
}

// wakeupOneThreadNoLock wakes the earliest waiter of q, if any.
func (s *Scheduler) wakeupOneThreadNoLock(q *ThreadQueue, result Result) *Thread {
	t := q.dequeue()
	if t != nil {
		s.readyNoLock(t, result)
	}
	return t
}

// wakeupAllThreadsNoLock wakes every waiter of q in arrival order.
func (s *Scheduler) wakeupAllThreadsNoLock(q *ThreadQueue, result Result) int {
	var n int
	for t := q.dequeue(); t != nil; t = q.dequeue() {
		s.readyNoLock(t, result)
		n++
	}
	return n
}

// next picks the context to hand the CPU to. The host runs when no guest
// thread is runnable.
func (s *Scheduler) next() *Thread {
	if t := s.policy.Next(); t != nil {
		return t
	}
	return s.host
}

// rescheduleSelfNoLock gives the CPU away from a thread that just blocked.
// It returns once the thread has been woken and scheduled again, owning
// the lock.
func (s *Scheduler) rescheduleSelfNoLock() {
	s.switchTo(s.next())
}

// rescheduleAllNoLock is the reschedule point after a wakeup. The current
// thread keeps the CPU unless the policy preempts it.
func (s *Scheduler) rescheduleAllNoLock() {
	t := s.current
	if t == s.host || !s.policy.Preempt(t) {
		return
	}
	next := s.policy.Next()
	if next == nil {
		return
	}
	s.readyNoLock(t, t.waitResult)
	s.switchTo(next)
}

// yieldNoLock moves the current thread behind all runnable threads.
func (s *Scheduler) yieldNoLock() {
	t := s.current
	if t == s.host || s.policy.Len() == 0 {
		return
	}
	s.readyNoLock(t, t.waitResult)
	s.switchTo(s.next())
}

// switchTo hands the CPU and the scheduler lock from the current context
// to next. Unless the current context is dead, it parks until some later
// switch hands the CPU back.
func (s *Scheduler) switchTo(next *Thread) {
	prev := s.current
	if next == prev {
		prev.setState(ThreadRunning)
		return
	}
	dead := prev.State() == ThreadDead

	s.current = next
	next.setState(ThreadRunning)
	s.lock.handoff(prev.key(), next.key())
	next.resume <- struct{}{}
	if dead {
		return
	}

	<-prev.resume
	if prev.killed {
		runtime.Goexit()
	}
}

// createThreadNoLock allocates the first free thread slot.
func (s *Scheduler) createThreadNoLock(k *Kernel, pid ProcessID, name string,
	fn ThreadFunc) (*Thread, Result) {

	for i, slot := range s.threads {
		if slot != nil {
			continue
		}
		t := newThread(k, ThreadID(i), pid, name, fn)
		s.threads[i] = t
		s.live++
		s.readyNoLock(t, ResultOK)
		s.group.Go(t.run)
		return t, ResultOK
	}
	return nil, ResultMax
}

// exit retires t and passes the CPU on. The caller's goroutine must return
// right after.
func (s *Scheduler) exit(t *Thread, err error) {
	s.lock.lock(t.key())

	t.err = err
	t.setState(ThreadDead)
	s.threads[t.id] = nil
	s.live--
	if err != nil {
		s.exits = multierr.Append(s.exits, fmt.Errorf("thread %v: %w", t, err))
		s.log.Debug("thread exited with error", zap.Stringer("thread", t),
			zap.Error(err))
	}

	// Nobody can reply to a dead thread anymore.
	q := &t.queue
	s.wakeupAllThreadsNoLock(&q.sendQueue, ResultIntr)
	s.wakeupAllThreadsNoLock(&q.receiveQueue, ResultIntr)
	*q = MessageQueue{perThread: true}

	s.switchTo(s.next())
}

// run drives guest threads from the host context until none is runnable.
func (s *Scheduler) run() error {
	if s.current != s.host {
		panic("kmq: Run called from a guest thread")
	}
	s.lock.lock(s.host.key())
	for {
		t := s.policy.Next()
		if t == nil {
			break
		}
		s.switchTo(t)
	}
	err := s.exits
	s.exits = nil
	s.lock.unlock(s.host.key())
	return err
}

// close tears down every thread that has not exited and waits for their
// goroutines.
func (s *Scheduler) close() error {
	if s.current != s.host {
		panic("kmq: Close called from a guest thread")
	}
	s.lock.lock(s.host.key())
	for i, t := range s.threads {
		if t == nil {
			continue
		}
		t.killed = true
		t.setState(ThreadDead)
		s.threads[i] = nil
		s.live--
		t.resume <- struct{}{}
	}
	for s.policy.Next() != nil {
	}
	s.lock.unlock(s.host.key())
	return s.group.Wait()
}
