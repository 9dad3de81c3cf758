// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kmq emulates the message-queue IPC subsystem of a small
// microkernel.
//
// Guest threads exchange fixed-size [Message] values through bounded
// queues. A queue lives in a fixed-capacity table and is addressed by a
// [QueueID] that packs a shared generation counter with the table slot.
// Senders block while a queue is full and receivers while it is empty;
// every state transition runs under one global scheduler lock, and a
// blocked thread gives the CPU away without ever releasing that lock to
// anything but the thread it switches to.
//
// # Quick Start
//
//	k := kmq.New().Queues(64).Threads(16).MustBuild()
//	defer k.Close()
//
//	buf := make([]kmq.Message, 4)
//	id, _ := k.CreateMessageQueue(buf, 4)
//
//	k.CreateThread(kmq.ProcessKernel, "consumer", func(t *kmq.Thread) error {
//	    msg, r := k.ReceiveMessage(id, 0) // blocks until a message arrives
//	    if r != kmq.ResultOK {
//	        return r
//	    }
//	    use(msg)
//	    return nil
//	})
//
//	k.SendMessage(id, 42, kmq.NonBlocking) // from the host context
//	err := k.Run()                         // runs threads until none is runnable
//
// # Kernel Calls
//
//	CreateMessageQueue(buf, size)  → id | Max | Invalid
//	DestroyMessageQueue(id)        → OK | Invalid (blocked threads get Intr)
//	SendMessage(id, msg, flags)    → OK | Max | Intr | Invalid (append at back)
//	JamMessage(id, msg, flags)     → OK | Max | Intr | Invalid (insert at front)
//	ReceiveMessage(id, flags)      → msg, OK | Max | Intr | Invalid
//	HandleEvent(device, id, msg)   → OK | Exists | Invalid
//
// With [NonBlocking] a call that would block returns [ResultMax] instead.
// [Kernel.Syscall] exposes the same calls through the guest ABI, packing a
// created id or a result into a single int32.
//
// # Threads and Scheduling
//
// Each guest [Thread] runs its [ThreadFunc] on a dedicated goroutine, but
// exactly one context owns the CPU at a time. The goroutine that owns the
// Kernel is the host context: it creates queues and threads, issues calls
// that must not block, and drives guest threads with [Kernel.Run]. Run
// returns once no guest thread is runnable; threads still blocked stay
// blocked until a later call wakes them.
//
// Thread selection is delegated to a [Policy]. The default [FIFO] runs
// threads in the order they became runnable and never preempts.
//
// # Process Isolation
//
// Every queue belongs to the process of its creator. Lookups from any other
// process fail with [ResultInvalid]. Each thread additionally owns a
// capacity-1 queue reached through [Thread.MessageQueue] and the SendTo,
// JamTo and ReceiveFrom calls, used for synchronous request/response.
//
// # Error Handling
//
// Calls return [Result] codes whose numeric values are part of the emulated
// ABI. Result implements error, and ResultMax matches [ErrWouldBlock]
// (sourced from [code.hybscloud.com/iox]):
//
//	_, r := k.ReceiveMessage(id, kmq.NonBlocking)
//	if kmq.IsWouldBlock(r.Err()) {
//	    // Queue is empty
//	}
//
// # Race Detection
//
// The scheduler lock and the run queue indices use atomics with explicit
// memory ordering, which the race detector cannot observe. CPU handoff
// between threads goes through channels, so ordinary kernel use is race
// clean; tests hammering the lock from several goroutines are skipped when
// [RaceEnabled] is set.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for lock spinning,
// [github.com/gammazero/deque] for wait lists, [go.uber.org/zap] for
// logging, [go.uber.org/multierr] for error aggregation and
// [golang.org/x/sync/errgroup] for thread goroutine tracking.
package kmq
