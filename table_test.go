// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "testing"

func newTestTable(slots int, policy GenerationPolicy) *MessageQueueTable {
	tb := &MessageQueueTable{}
	tb.init(slots, policy)
	return tb
}

// TestTableCreateFirstFreeSlot tests the linear first-free-slot scan and the
// shared generation counter.
func TestTableCreateFirstFreeSlot(t *testing.T) {
	tb := newTestTable(4, GenerationWrap)
	buf := make([]Message, 8)

	ids := make([]QueueID, 3)
	for i := range ids {
		id, r := tb.create(buf, 2, ProcessKernel)
		if r != ResultOK {
			t.Fatalf("create(%d): %v", i, r)
		}
		if id.Slot() != i {
			t.Fatalf("create(%d): slot %d, want %d", i, id.Slot(), i)
		}
		if id.Generation() != uint32(i) {
			t.Fatalf("create(%d): generation %d, want %d", i, id.Generation(), i)
		}
		ids[i] = id
	}
	if tb.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", tb.Len())
	}

	// Freed slot 1 is reused; the generation keeps counting across slots
	tb.release(tb.lookup(ids[1], ProcessKernel))
	id, r := tb.create(buf, 2, ProcessKernel)
	if r != ResultOK {
		t.Fatalf("create after release: %v", r)
	}
	if want := QueueID(3<<SlotBits | 1); id != want {
		t.Fatalf("create after release: got %v, want %v", id, want)
	}
	if tb.Generation() != 4 {
		t.Fatalf("Generation: got %d, want 4", tb.Generation())
	}
}

// TestTableCreateInvalidSize tests size validation against the borrowed
// buffer.
func TestTableCreateInvalidSize(t *testing.T) {
	tb := newTestTable(2, GenerationWrap)
	buf := make([]Message, 4)

	tests := []struct {
		name string
		buf  []Message
		size uint32
	}{
		{"zero", buf, 0},
		{"larger than buffer", buf, 5},
		{"nil buffer", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, r := tb.create(tt.buf, tt.size, ProcessKernel); r != ResultInvalid {
				t.Fatalf("create: got %v, want Invalid", r)
			}
		})
	}
	if tb.Len() != 0 || tb.Generation() != 0 {
		t.Fatalf("failed creates changed the table: len %d, generation %d",
			tb.Len(), tb.Generation())
	}
}

// TestTableFull tests creation on an exhausted table.
func TestTableFull(t *testing.T) {
	tb := newTestTable(2, GenerationWrap)
	buf := make([]Message, 1)

	for range 2 {
		if _, r := tb.create(buf, 1, ProcessKernel); r != ResultOK {
			t.Fatalf("create: %v", r)
		}
	}
	id, r := tb.create(buf, 1, ProcessKernel)
	if r != ResultMax || id != QueueID(ResultMax) {
		t.Fatalf("create on full table: got (%v, %v), want Max", id, r)
	}
	if tb.Generation() != 2 {
		t.Fatalf("Generation: got %d, want 2", tb.Generation())
	}
}

// TestTableLookup tests id resolution and cross-process isolation.
func TestTableLookup(t *testing.T) {
	tb := newTestTable(4, GenerationWrap)
	buf := make([]Message, 2)

	id, _ := tb.create(buf, 2, ProcessFS)
	if q := tb.lookup(id, ProcessFS); q == nil || q.ID() != id {
		t.Fatalf("lookup(%v): got %v", id, q)
	}

	tests := []struct {
		name string
		id   QueueID
		pid  ProcessID
	}{
		{"other process", id, ProcessNET},
		{"negative, slot out of range", -1, ProcessFS},
		{"result code", QueueID(ResultInvalid), ProcessFS},
		{"free slot", 1, ProcessFS},
		{"out of range", 4, ProcessFS},
		{"out of range high", SlotMask, ProcessFS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if q := tb.lookup(tt.id, tt.pid); q != nil {
				t.Fatalf("lookup(%v, %v): got %v, want nil", tt.id, tt.pid, q.ID())
			}
		})
	}

	// Only the low bits select the slot
	if q := tb.lookup(id|7<<SlotBits, ProcessFS); q == nil {
		t.Fatalf("lookup with foreign generation: got nil")
	}

	tb.release(tb.lookup(id, ProcessFS))
	if q := tb.lookup(id, ProcessFS); q != nil {
		t.Fatalf("lookup after release: got %v, want nil", q.ID())
	}
}

// TestTableBorrowsBuffer tests that the queue indexes the caller's storage.
func TestTableBorrowsBuffer(t *testing.T) {
	tb := newTestTable(1, GenerationWrap)
	buf := make([]Message, 4)

	id, _ := tb.create(buf, 3, ProcessKernel)
	q := tb.lookup(id, ProcessKernel)
	if q.Cap() != 3 {
		t.Fatalf("Cap: got %d, want 3", q.Cap())
	}
	if &q.messages[0] != &buf[0] {
		t.Fatalf("queue storage is not the caller's buffer")
	}
	if cap(q.messages) != 3 {
		t.Fatalf("queue storage extends past size: cap %d", cap(q.messages))
	}
}

// TestTableGenerationPolicy tests counter overflow handling.
func TestTableGenerationPolicy(t *testing.T) {
	buf := make([]Message, 1)

	t.Run("wrap", func(t *testing.T) {
		tb := newTestTable(2, GenerationWrap)
		tb.generation.StoreRelease(MaxGeneration)

		id, _ := tb.create(buf, 1, ProcessKernel)
		if id.Generation() != MaxGeneration || id < 0 {
			t.Fatalf("create at MaxGeneration: got %v", id)
		}
		if tb.Generation() != 0 {
			t.Fatalf("Generation after wrap: got %d, want 0", tb.Generation())
		}
		id, _ = tb.create(buf, 1, ProcessKernel)
		if id != QueueID(1) {
			t.Fatalf("create after wrap: got %v, want 0:1", id)
		}
	})

	t.Run("saturate", func(t *testing.T) {
		tb := newTestTable(2, GenerationSaturate)
		tb.generation.StoreRelease(MaxGeneration)

		for i := range 2 {
			id, _ := tb.create(buf, 1, ProcessKernel)
			if id.Generation() != MaxGeneration || id.Slot() != i {
				t.Fatalf("create(%d): got %v", i, id)
			}
		}
		if tb.Generation() != MaxGeneration {
			t.Fatalf("Generation: got %d, want %d", tb.Generation(), MaxGeneration)
		}
	})
}

// TestQueueIDPacking tests the id layout at the API boundary.
func TestQueueIDPacking(t *testing.T) {
	tests := []queueHandle{
		{0, 0},
		{1, 0},
		{0, SlotMask},
		{MaxGeneration, SlotMask},
		{12345, 749},
	}
	for _, h := range tests {
		id := h.id()
		if id < 0 {
			t.Fatalf("%+v: negative id %d", h, id)
		}
		if id.Slot() != int(h.slot) || id.Generation() != h.generation {
			t.Fatalf("%+v: unpacked (%d, %d)", h, id.Generation(), id.Slot())
		}
		if int32(id)&SlotMask != int32(h.slot) {
			t.Fatalf("%+v: low bits %d", h, int32(id)&SlotMask)
		}
	}
}
