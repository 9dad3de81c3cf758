// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// MessageQueue is a bounded ring of messages with two wait lists.
//
// The message storage is borrowed from the creator: the queue indexes into
// the caller's slice and never copies or reallocates it, so the caller must
// keep it alive (and otherwise untouched) until the queue is destroyed.
//
// A queue is live while size is non-zero. All fields are guarded by the
// scheduler lock.
type MessageQueue struct {
	handle    queueHandle
	perThread bool
	pid       ProcessID
	messages  []Message
	size      uint32
	used      uint32
	first     uint32
	flags     QueueFlags

	sendQueue    ThreadQueue
	receiveQueue ThreadQueue
}

// initPerThread turns q into a per-thread request/response queue.
func (q *MessageQueue) initPerThread(messages []Message) {
	*q = MessageQueue{
		perThread: true,
		messages:  messages[:1],
		size:      1,
	}
}

// ID returns the externally visible identifier.
func (q *MessageQueue) ID() QueueID {
	if q.perThread {
		return perThreadQueueID
	}
	return q.handle.id()
}

// ProcessID returns the owning process.
func (q *MessageQueue) ProcessID() ProcessID {
	return q.pid
}

// Flags returns the queue flags.
func (q *MessageQueue) Flags() QueueFlags {
	return q.flags
}

// Cap returns the queue capacity in messages.
func (q *MessageQueue) Cap() int {
	return int(q.size)
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	return int(q.used)
}

// Senders returns the threads blocked sending to the queue.
func (q *MessageQueue) Senders() []*Thread {
	return q.sendQueue.Threads()
}

// Receivers returns the threads blocked receiving from the queue.
func (q *MessageQueue) Receivers() []*Thread {
	return q.receiveQueue.Threads()
}

func (q *MessageQueue) live() bool {
	return q.size != 0
}

// wait blocks the current thread on wq until it is woken. A thread woken
// with OK whose queue was destroyed (and possibly recreated) before it got
// the CPU back reports ResultIntr as well.
func (q *MessageQueue) wait(s *Scheduler, wq *ThreadQueue) Result {
	handle := q.handle

	t := s.sleepThreadNoLock(wq)
	s.rescheduleSelfNoLock()

	if t.waitResult != ResultOK {
		return t.waitResult
	}
	if !q.live() || q.handle != handle {
		return ResultIntr
	}
	return ResultOK
}

// waitSpace blocks until the queue has a free slot.
func (q *MessageQueue) waitSpace(s *Scheduler, flags MessageFlags) Result {
	for q.used == q.size {
		if flags&NonBlocking != 0 {
			return ResultMax
		}
		if r := q.wait(s, &q.sendQueue); r != ResultOK {
			return r
		}
	}
	return ResultOK
}

// send appends msg behind the last queued message.
func (q *MessageQueue) send(s *Scheduler, msg Message, flags MessageFlags) Result {
	if r := q.waitSpace(s, flags); r != ResultOK {
		return r
	}

	q.messages[(q.first+q.used)%q.size] = msg
	q.used++

	s.wakeupOneThreadNoLock(&q.receiveQueue, ResultOK)
	s.rescheduleAllNoLock()
	return ResultOK
}

// jam inserts msg in front of the first queued message.
func (q *MessageQueue) jam(s *Scheduler, msg Message, flags MessageFlags) Result {
	if r := q.waitSpace(s, flags); r != ResultOK {
		return r
	}

	if q.first == 0 {
		q.first = q.size - 1
	} else {
		q.first--
	}
	q.messages[q.first] = msg
	q.used++

	s.wakeupOneThreadNoLock(&q.receiveQueue, ResultOK)
	s.rescheduleAllNoLock()
	return ResultOK
}

// receive removes the first queued message.
func (q *MessageQueue) receive(s *Scheduler, flags MessageFlags) (Message, Result) {
	for q.used == 0 {
		if flags&NonBlocking != 0 {
			return 0, ResultMax
		}
		if r := q.wait(s, &q.receiveQueue); r != ResultOK {
			return 0, r
		}
	}

	msg := q.messages[q.first]
	q.first = (q.first + 1) % q.size
	q.used--

	s.wakeupOneThreadNoLock(&q.sendQueue, ResultOK)
	s.rescheduleAllNoLock()
	return msg, ResultOK
}
