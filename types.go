// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "fmt"

// Message is the fixed-size value carried by a queue.
//
// Messages are copied by value into and out of queue storage. The kernel
// never inspects their contents; guests usually pass a guest address or a
// small tagged value.
type Message uint32

// MessageFlags modify a single send, jam or receive call.
type MessageFlags uint32

// Message flags.
const (
	// NonBlocking converts a would-block condition into an immediate
	// ResultMax instead of suspending the caller.
	NonBlocking MessageFlags = 1 << 0
)

// QueueFlags describe the state of a live queue.
type QueueFlags uint32

// Queue flags.
const (
	// RegisteredEventHandler marks a queue registered with the
	// device-event collaborator.
	RegisteredEventHandler QueueFlags = 1 << 0
)

// ProcessID identifies the process owning a queue or thread.
type ProcessID uint8

// Well-known process ids of the emulated kernel.
const (
	ProcessKernel ProcessID = iota
	ProcessMCP
	ProcessBSP
	ProcessCrypto
	ProcessUSB
	ProcessFS
	ProcessPAD
	ProcessNET
	ProcessACP
	ProcessNSEC
	ProcessAUXIL
	ProcessNIM
	ProcessFPD
	ProcessTEST
)

var processNames = map[ProcessID]string{
	ProcessKernel: "KERNEL",
	ProcessMCP:    "MCP",
	ProcessBSP:    "BSP",
	ProcessCrypto: "CRYPTO",
	ProcessUSB:    "USB",
	ProcessFS:     "FS",
	ProcessPAD:    "PAD",
	ProcessNET:    "NET",
	ProcessACP:    "ACP",
	ProcessNSEC:   "NSEC",
	ProcessAUXIL:  "AUXIL",
	ProcessNIM:    "NIM",
	ProcessFPD:    "FPD",
	ProcessTEST:   "TEST",
}

func (pid ProcessID) String() string {
	name, ok := processNames[pid]
	if ok {
		return name
	}
	return fmt.Sprintf("{ProcessID %d}", uint8(pid))
}

// DeviceID identifies an event source of the device-event collaborator.
type DeviceID uint32

// QueueID is the externally visible queue identifier.
//
// The low SlotBits bits select the table slot; the remaining bits carry the
// table's generation counter at creation time:
//
//	id = generation<<SlotBits | slot
//
// Internally a queue keeps the two fields apart (see queueHandle) and only
// packs them when an id crosses the API boundary.
type QueueID int32

const (
	// SlotBits is the number of low id bits selecting the table slot.
	SlotBits = 12

	// SlotMask extracts the slot index from a QueueID.
	SlotMask = 1<<SlotBits - 1

	// GenerationBits is the width of the generation counter. It keeps
	// packed ids non-negative so they never collide with result codes.
	GenerationBits = 31 - SlotBits

	// MaxGeneration is the largest generation value.
	MaxGeneration = 1<<GenerationBits - 1
)

// perThreadQueueID is the identifier of every per-thread queue. Those
// queues live outside the table and cannot be looked up by id; passed to
// a table call it selects slot SlotMask-3 like any other id.
const perThreadQueueID = QueueID(ResultInvalid)

// Slot returns the slot index encoded in the id.
func (id QueueID) Slot() int {
	return int(id & SlotMask)
}

// Generation returns the generation encoded in the id.
func (id QueueID) Generation() uint32 {
	return uint32(id) >> SlotBits
}

func (id QueueID) String() string {
	if id < 0 {
		return fmt.Sprintf("{QueueID %d}", int32(id))
	}
	return fmt.Sprintf("%d:%d", id.Generation(), id.Slot())
}

// queueHandle is the structured form of a QueueID.
type queueHandle struct {
	generation uint32
	slot       uint16
}

func (h queueHandle) id() QueueID {
	return QueueID(h.generation<<SlotBits | uint32(h.slot))
}
