// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "code.hybscloud.com/atomix"

// Policy is the thread-selection policy consumed by the scheduler.
//
// The scheduler calls every method with the scheduler lock held. A thread
// is handed to Ready at most once between two Next calls returning it.
type Policy interface {
	// Ready adds a runnable thread.
	Ready(t *Thread)

	// Next removes and returns the next thread to run, or nil if no
	// thread is runnable.
	Next() *Thread

	// Preempt reports whether current should give up the CPU at a
	// reschedule point. It is consulted after every successful send, jam
	// and receive by a guest thread, whether or not the call woke anyone.
	// When it returns true and Next yields a thread, current is readied
	// again and the CPU goes to that thread. A policy that should only
	// switch on wakeups must decide from its own runnable set.
	Preempt(current *Thread) bool

	// Len returns the number of runnable threads.
	Len() int
}

// FIFO is the default Policy: threads run in the order they became
// runnable and are never preempted.
//
// Based on Lamport's ring buffer. Only the lock holder mutates it; indices
// are atomic so Len can be sampled without the lock.
type FIFO struct {
	_      pad
	head   atomix.Uint64 // Next reads from here
	_      pad
	tail   atomix.Uint64 // Ready writes here
	_      pad
	buffer []*Thread
	mask   uint64
}

// NewFIFO creates a run queue for up to capacity threads.
// Capacity rounds up to the next power of 2.
func NewFIFO(capacity int) *FIFO {
	if capacity < 1 {
		panic("kmq: run queue capacity must be >= 1")
	}

	n := uint64(roundToPow2(capacity))
	return &FIFO{
		buffer: make([]*Thread, n),
		mask:   n - 1,
	}
}

// Ready appends t to the run queue.
// Panics if more threads are runnable than the queue was sized for.
func (q *FIFO) Ready(t *Thread) {
	tail := q.tail.LoadRelaxed()
	if tail-q.head.LoadAcquire() > q.mask {
		panic("kmq: run queue overflow")
	}

	q.buffer[tail&q.mask] = t
	q.tail.StoreRelease(tail + 1)
}

// Next removes and returns the earliest runnable thread.
func (q *FIFO) Next() *Thread {
	head := q.head.LoadRelaxed()
	if head >= q.tail.LoadAcquire() {
		return nil
	}

	t := q.buffer[head&q.mask]
	q.buffer[head&q.mask] = nil
	q.head.StoreRelease(head + 1)
	return t
}

// Preempt implements Policy. FIFO scheduling is purely cooperative.
func (q *FIFO) Preempt(*Thread) bool {
	return false
}

// Len returns the number of runnable threads.
func (q *FIFO) Len() int {
	return int(q.tail.LoadAcquire() - q.head.LoadAcquire())
}

// Cap returns the run queue capacity.
func (q *FIFO) Cap() int {
	return int(q.mask + 1)
}
