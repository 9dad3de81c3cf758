// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "fmt"

// Syscall defines the message-queue kernel calls by their ABI number.
type Syscall uint8

// Kernel calls.
const (
	SysCreateMessageQueue  Syscall = 0x0c
	SysDestroyMessageQueue Syscall = 0x0d
	SysSendMessage         Syscall = 0x0e
	SysJamMessage          Syscall = 0x0f
	SysReceiveMessage      Syscall = 0x10
	SysHandleEvent         Syscall = 0x11
)

var syscallNames = map[Syscall]string{
	SysCreateMessageQueue:  "CreateMessageQueue",
	SysDestroyMessageQueue: "DestroyMessageQueue",
	SysSendMessage:         "SendMessage",
	SysJamMessage:          "JamMessage",
	SysReceiveMessage:      "ReceiveMessage",
	SysHandleEvent:         "HandleEvent",
}

func (call Syscall) String() string {
	name, ok := syscallNames[call]
	if ok {
		return name
	}
	return fmt.Sprintf("{Syscall %#x}", uint8(call))
}

// Args holds the raw arguments of a kernel call as the guest passed them.
//
//	CreateMessageQueue   Messages=buffer, Arg1=size
//	DestroyMessageQueue  Arg0=id
//	SendMessage          Arg0=id, Arg1=message, Arg2=flags
//	JamMessage           Arg0=id, Arg1=message, Arg2=flags
//	ReceiveMessage       Arg0=id, Out=message slot, Arg2=flags
//	HandleEvent          Arg0=device, Arg1=id, Arg2=message
type Args struct {
	Arg0     uint32
	Arg1     uint32
	Arg2     uint32
	Messages []Message
	Out      *Message
}

// Syscall performs a kernel call and packs its outcome into the single
// int32 the guest sees: a queue id for a successful CreateMessageQueue, a
// result code otherwise.
func (k *Kernel) Syscall(call Syscall, args *Args) int32 {
	k.ktraceCall(call, args)
	ret := k.syscall(call, args)
	k.ktraceRet(call, ret)
	return ret
}

func (k *Kernel) syscall(call Syscall, args *Args) int32 {
	if args == nil {
		return int32(ResultInvalid)
	}
	switch call {
	case SysCreateMessageQueue:
		id, r := k.CreateMessageQueue(args.Messages, args.Arg1)
		if r != ResultOK {
			return int32(r)
		}
		return int32(id)

	case SysDestroyMessageQueue:
		return int32(k.DestroyMessageQueue(QueueID(args.Arg0)))

	case SysSendMessage:
		return int32(k.SendMessage(QueueID(args.Arg0), Message(args.Arg1),
			MessageFlags(args.Arg2)))

	case SysJamMessage:
		return int32(k.JamMessage(QueueID(args.Arg0), Message(args.Arg1),
			MessageFlags(args.Arg2)))

	case SysReceiveMessage:
		if args.Out == nil {
			return int32(ResultInvalid)
		}
		msg, r := k.ReceiveMessage(QueueID(args.Arg0), MessageFlags(args.Arg2))
		if r == ResultOK {
			*args.Out = msg
		}
		return int32(r)

	case SysHandleEvent:
		return int32(k.HandleEvent(DeviceID(args.Arg0), QueueID(args.Arg1),
			Message(args.Arg2)))

	default:
		return int32(ResultInvalid)
	}
}
