// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "github.com/gammazero/deque"

// ThreadQueue is a FIFO wait list of blocked threads.
//
// It holds back-references only; threads are owned by the scheduler. All
// access happens under the scheduler lock. State transitions of the queued
// threads (waiting, runnable) are done by the scheduler's sleep and wakeup
// primitives, not by the list itself.
type ThreadQueue struct {
	waiters deque.Deque[*Thread]
}

// Len returns the number of waiting threads.
func (q *ThreadQueue) Len() int {
	return q.waiters.Len()
}

// Threads returns the waiting threads, earliest first.
func (q *ThreadQueue) Threads() []*Thread {
	return q.waiters.AppendToSlice(nil)
}

func (q *ThreadQueue) enqueue(t *Thread) {
	q.waiters.PushBack(t)
}

// dequeue pops the earliest-enqueued thread, or nil.
func (q *ThreadQueue) dequeue() *Thread {
	if q.waiters.Len() == 0 {
		return nil
	}
	return q.waiters.PopFront()
}
