// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "code.hybscloud.com/atomix"

// GenerationPolicy selects what happens when the shared generation counter
// passes MaxGeneration.
type GenerationPolicy uint8

// Generation overflow policies.
const (
	// GenerationWrap restarts the counter at 0.
	GenerationWrap GenerationPolicy = iota

	// GenerationSaturate keeps the counter at MaxGeneration.
	GenerationSaturate
)

// MessageQueueTable is the fixed-capacity registry of guest-visible queues.
//
// A slot is free when its size is zero. A single generation counter is
// shared by all slots and advanced once per successful creation; the
// creation's generation and slot index form the queue id.
type MessageQueueTable struct {
	queues     []MessageQueue
	generation atomix.Uint64
	policy     GenerationPolicy
	live       atomix.Int64
}

func (tb *MessageQueueTable) init(slots int, policy GenerationPolicy) {
	tb.queues = make([]MessageQueue, slots)
	tb.policy = policy
}

// Cap returns the number of slots.
func (tb *MessageQueueTable) Cap() int {
	return len(tb.queues)
}

// Len returns the number of live queues.
func (tb *MessageQueueTable) Len() int {
	return int(tb.live.Load())
}

// Generation returns the generation the next created queue will carry.
func (tb *MessageQueueTable) Generation() uint32 {
	return uint32(tb.generation.LoadAcquire())
}

func (tb *MessageQueueTable) advance(gen uint32) {
	switch {
	case gen < MaxGeneration:
		gen++
	case tb.policy == GenerationWrap:
		gen = 0
	}
	tb.generation.StoreRelease(uint64(gen))
}

// create registers a queue over messages[:size] in the first free slot.
func (tb *MessageQueueTable) create(messages []Message, size uint32,
	pid ProcessID) (QueueID, Result) {

	if size == 0 || uint64(size) > uint64(len(messages)) {
		return QueueID(ResultInvalid), ResultInvalid
	}

	for i := range tb.queues {
		q := &tb.queues[i]
		if q.live() {
			continue
		}

		gen := tb.Generation()
		*q = MessageQueue{
			handle: queueHandle{
				generation: gen,
				slot:       uint16(i),
			},
			pid:      pid,
			messages: messages[:size:size],
			size:     size,
		}
		tb.advance(gen)
		tb.live.Add(1)
		return q.ID(), ResultOK
	}
	return QueueID(ResultMax), ResultMax
}

// lookup resolves id for process pid. Only the slot bits select the queue;
// the generation and sign bits are ignored. Queues are invisible outside
// their owning process.
func (tb *MessageQueueTable) lookup(id QueueID, pid ProcessID) *MessageQueue {
	slot := id.Slot()
	if slot >= len(tb.queues) {
		return nil
	}
	q := &tb.queues[slot]
	if !q.live() || q.pid != pid {
		return nil
	}
	return q
}

// release returns the slot of q to the free pool.
func (tb *MessageQueueTable) release(q *MessageQueue) {
	*q = MessageQueue{}
	tb.live.Add(-1)
}
