// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"errors"

	"go.uber.org/zap"
)

// Kernel is the emulated kernel: the message-queue table, the scheduler
// and the guest-facing calls composing them under the scheduler lock.
//
// Calls are made by the context owning the CPU: from inside a ThreadFunc
// for guest threads, or from the goroutine that owns the Kernel (the host
// context) while Run is not active. The host context cannot block; a call
// from it that would block panics unless NonBlocking is set.
type Kernel struct {
	opts   Options
	sched  Scheduler
	table  MessageQueueTable
	events DeviceEvents
	log    *zap.Logger
}

func newKernel(opts Options) *Kernel {
	k := &Kernel{
		opts:   opts,
		events: opts.events,
		log:    opts.logger,
	}
	policy := opts.policy
	if policy == nil {
		policy = NewFIFO(opts.threads)
	}
	k.table.init(opts.queues, opts.generation)
	k.sched.init(k, opts.threads, opts.hostPID, policy, k.log)
	return k
}

// CreateMessageQueue creates a queue over messages[:size] owned by the
// caller's process.
//
// The kernel borrows messages: it is neither copied nor retained beyond
// DestroyMessageQueue, and the caller must keep it alive until then.
// Returns ResultMax when the table is full and ResultInvalid when size is
// zero or exceeds len(messages).
func (k *Kernel) CreateMessageQueue(messages []Message, size uint32) (QueueID, Result) {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	return k.table.create(messages, size, t.pid)
}

// DestroyMessageQueue destroys a queue of the caller's process. Every
// thread blocked on the queue is woken with ResultIntr.
func (k *Kernel) DestroyMessageQueue(id QueueID) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return ResultInvalid
	}

	if q.flags&RegisteredEventHandler != 0 {
		k.log.Warn("destroying queue registered to event",
			zap.Stringer("queue", id), zap.Stringer("pid", t.pid))
		if err := k.events.UnregisterEventHandler(id); err != nil {
			k.log.Warn("event handler left registered",
				zap.Stringer("queue", id), zap.Error(err))
		}
		q.flags &^= RegisteredEventHandler
	}

	k.sched.wakeupAllThreadsNoLock(&q.sendQueue, ResultIntr)
	k.sched.wakeupAllThreadsNoLock(&q.receiveQueue, ResultIntr)
	k.table.release(q)
	return ResultOK
}

// SendMessage appends msg to the back of the queue, blocking while it is
// full unless flags has NonBlocking.
func (k *Kernel) SendMessage(id QueueID, msg Message, flags MessageFlags) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return ResultInvalid
	}
	return q.send(&k.sched, msg, flags)
}

// JamMessage inserts msg at the front of the queue, blocking while it is
// full unless flags has NonBlocking.
func (k *Kernel) JamMessage(id QueueID, msg Message, flags MessageFlags) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return ResultInvalid
	}
	return q.jam(&k.sched, msg, flags)
}

// ReceiveMessage removes the front message of the queue, blocking while it
// is empty unless flags has NonBlocking.
func (k *Kernel) ReceiveMessage(id QueueID, flags MessageFlags) (Message, Result) {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return 0, ResultInvalid
	}
	return q.receive(&k.sched, flags)
}

// SendTo sends msg to a queue reference such as a thread's dedicated
// queue. No process check is made.
func (k *Kernel) SendTo(q *MessageQueue, msg Message, flags MessageFlags) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	if q == nil || !q.live() {
		return ResultInvalid
	}
	return q.send(&k.sched, msg, flags)
}

// JamTo jams msg into a queue reference.
func (k *Kernel) JamTo(q *MessageQueue, msg Message, flags MessageFlags) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	if q == nil || !q.live() {
		return ResultInvalid
	}
	return q.jam(&k.sched, msg, flags)
}

// ReceiveFrom receives from a queue reference.
func (k *Kernel) ReceiveFrom(q *MessageQueue, flags MessageFlags) (Message, Result) {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	if q == nil || !q.live() {
		return 0, ResultInvalid
	}
	return q.receive(&k.sched, flags)
}

// HandleEvent registers a queue of the caller's process as the handler of
// device events, delivered as msg. Delivery itself belongs to the
// device-event collaborator.
func (k *Kernel) HandleEvent(device DeviceID, id QueueID, msg Message) Result {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return ResultInvalid
	}
	if q.flags&RegisteredEventHandler != 0 {
		return ResultExists
	}
	if err := k.events.RegisterEventHandler(device, id, msg); err != nil {
		return mapError(err)
	}
	q.flags |= RegisteredEventHandler
	return ResultOK
}

// Lookup returns the live queue in the slot selected by id if it belongs to
// the caller's process. Only the low SlotBits of id are significant.
func (k *Kernel) Lookup(id QueueID) (*MessageQueue, Result) {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	q := k.table.lookup(id, t.pid)
	if q == nil {
		return nil, ResultInvalid
	}
	return q, ResultOK
}

// CreateThread creates a runnable guest thread of process pid. It starts
// running the next time the scheduler picks it inside Run. Returns
// ResultInvalid when fn is nil and ResultMax when all thread slots are in
// use.
func (k *Kernel) CreateThread(pid ProcessID, name string, fn ThreadFunc) (*Thread, Result) {
	if fn == nil {
		return nil, ResultInvalid
	}
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	return k.sched.createThreadNoLock(k, pid, name, fn)
}

// CurrentThread returns the context owning the CPU. Outside Run this is
// the host context.
func (k *Kernel) CurrentThread() *Thread {
	return k.sched.Current()
}

// Yield lets every runnable thread run before the caller continues.
func (k *Kernel) Yield() {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	k.sched.yieldNoLock()
}

// Run runs guest threads until none is runnable. It returns the errors of
// the threads that exited with one during the run. Threads still blocked
// stay blocked and resume on a later Run once woken.
func (k *Kernel) Run() error {
	return k.sched.run()
}

// Close tears down all threads that have not exited. It returns the first
// error a thread exited with. The kernel must not be used afterwards.
func (k *Kernel) Close() error {
	return k.sched.close()
}

// Stats is a snapshot of kernel object counts.
type Stats struct {
	Queues     int
	QueueSlots int
	Generation uint32
	Threads    int
	Runnable   int
}

// Stats returns object counts.
func (k *Kernel) Stats() Stats {
	t := k.sched.lockScheduler()
	defer k.sched.unlockScheduler(t)

	return Stats{
		Queues:     k.table.Len(),
		QueueSlots: k.table.Cap(),
		Generation: k.table.Generation(),
		Threads:    k.sched.live,
		Runnable:   k.sched.policy.Len(),
	}
}

// mapError converts a collaborator error to a result code.
func mapError(err error) Result {
	if err == nil {
		return ResultOK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return ResultInvalid
}
