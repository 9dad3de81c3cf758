// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "go.uber.org/zap"

func (k *Kernel) ktraceFields(call Syscall) []zap.Field {
	t := k.sched.Current()
	return []zap.Field{
		zap.Stringer("call", call),
		zap.Int32("thread", int32(t.id)),
		zap.Stringer("pid", t.pid),
	}
}

func (k *Kernel) ktraceCall(call Syscall, args *Args) {
	if !k.opts.trace {
		return
	}
	fields := k.ktraceFields(call)
	if args != nil {
		switch call {
		case SysCreateMessageQueue:
			fields = append(fields, zap.Int("buffer", len(args.Messages)),
				zap.Uint32("size", args.Arg1))

		case SysDestroyMessageQueue:
			fields = append(fields, zap.Stringer("queue", QueueID(args.Arg0)))

		case SysSendMessage, SysJamMessage:
			fields = append(fields, zap.Stringer("queue", QueueID(args.Arg0)),
				zap.Uint32("message", args.Arg1), zap.Uint32("flags", args.Arg2))

		case SysReceiveMessage:
			fields = append(fields, zap.Stringer("queue", QueueID(args.Arg0)),
				zap.Uint32("flags", args.Arg2))

		case SysHandleEvent:
			fields = append(fields, zap.Uint32("device", args.Arg0),
				zap.Stringer("queue", QueueID(args.Arg1)),
				zap.Uint32("message", args.Arg2))
		}
	}
	k.log.Debug("CALL", fields...)
}

func (k *Kernel) ktraceRet(call Syscall, ret int32) {
	if !k.opts.trace {
		return
	}
	fields := k.ktraceFields(call)
	if call == SysCreateMessageQueue && ret >= 0 {
		fields = append(fields, zap.Stringer("queue", QueueID(ret)))
	} else {
		fields = append(fields, zap.Stringer("result", Result(ret)))
	}
	k.log.Debug("RET", fields...)
}
