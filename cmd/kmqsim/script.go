// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"code.hybscloud.com/kmq"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Script syntax, one command per line, '#' starts a comment:
//
//	create Q SIZE [=> WANT]               create queue Q, SIZE at most 65536
//	destroy Q [=> WANT]
//	send Q MSG [nonblock] [=> WANT]
//	jam Q MSG [nonblock] [=> WANT]
//	recv Q [nonblock] [=> WANT]           WANT is a result name or a message
//	yield
//	thread NAME [pid=N]                   start a thread block
//	end                                   close the thread block
//	run                                   run threads until none is runnable
//
// Commands outside thread blocks run in the host context and never block:
// send, jam and recv issued there always carry the nonblock flag.

// maxQueueSize bounds the buffer a script may ask the simulator to allocate.
const maxQueueSize = 1 << 16

type step struct {
	pos  string
	argv []string
	want string
}

type sim struct {
	k       *kmq.Kernel
	out     io.Writer
	queues  map[string]kmq.QueueID
	threads []*kmq.Thread
	failed  int
}

func newSim(k *kmq.Kernel, out io.Writer) *sim {
	return &sim{
		k:      k,
		out:    out,
		queues: make(map[string]kmq.QueueID),
	}
}

// Exec runs the script read from r. Failed expectations are counted, not
// returned; errors are reserved for malformed scripts.
func (s *sim) Exec(name string, r io.Reader) error {
	var (
		block  []step
		thread []string
		inside bool
	)

	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		pos := fmt.Sprintf("%s:%d", name, lineno)
		argv, err := shlex.Split(scanner.Text())
		if err != nil {
			return errors.Wrapf(err, "%s", pos)
		}
		if len(argv) == 0 {
			continue
		}
		st, err := parseStep(pos, argv)
		if err != nil {
			return err
		}

		switch st.argv[0] {
		case "thread":
			if inside {
				return errors.Errorf("%s: nested thread block", pos)
			}
			if len(st.argv) < 2 || len(st.argv) > 3 {
				return errors.Errorf("%s: usage: thread NAME [pid=N]", pos)
			}
			thread = st.argv[1:]
			block = nil
			inside = true

		case "end":
			if !inside {
				return errors.Errorf("%s: end outside thread block", pos)
			}
			if err := s.spawn(pos, thread, block); err != nil {
				return err
			}
			inside = false

		case "run":
			if inside {
				return errors.Errorf("%s: run inside thread block", pos)
			}
			s.run()

		default:
			if inside {
				block = append(block, st)
				continue
			}
			if st.argv[0] == "yield" {
				return errors.Errorf("%s: yield outside thread block", pos)
			}
			if err := s.step(st, true); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, name)
	}
	if inside {
		return errors.Errorf("%s: unterminated thread block", name)
	}
	return nil
}

func parseStep(pos string, argv []string) (step, error) {
	st := step{pos: pos, argv: argv}
	for i, arg := range argv {
		if arg != "=>" {
			continue
		}
		if i != len(argv)-2 || i == 0 {
			return st, errors.Errorf("%s: malformed expectation", pos)
		}
		st.argv = argv[:i]
		st.want = argv[i+1]
		break
	}
	return st, nil
}

func (s *sim) spawn(pos string, args []string, steps []step) error {
	name := args[0]
	pid := kmq.ProcessKernel
	if len(args) > 1 {
		v, ok := strings.CutPrefix(args[1], "pid=")
		if !ok {
			return errors.Errorf("%s: unknown thread option %q", pos, args[1])
		}
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return errors.Wrapf(err, "%s: pid", pos)
		}
		pid = kmq.ProcessID(n)
	}

	t, r := s.k.CreateThread(pid, name, func(t *kmq.Thread) error {
		for _, st := range steps {
			if err := s.step(st, false); err != nil {
				return err
			}
		}
		return nil
	})
	if r != kmq.ResultOK {
		return errors.Wrapf(r, "%s: thread %s", pos, name)
	}
	s.threads = append(s.threads, t)
	return nil
}

// run counts every thread that exited with an error as a failure.
func (s *sim) run() {
	if err := s.k.Run(); err != nil {
		s.failed += len(multierr.Errors(err))
		fmt.Fprintf(s.out, "run: %v\n", err)
	}
	for _, t := range s.threads {
		if t.State() == kmq.ThreadWaiting {
			fmt.Fprintf(s.out, "blocked: %v\n", t)
		}
	}
}

// step executes one command in the context owning the CPU.
func (s *sim) step(st step, host bool) error {
	var (
		call kmq.Syscall
		args kmq.Args
		out  kmq.Message
	)

	argc := func(lo, hi int) error {
		if n := len(st.argv) - 1; n < lo || n > hi {
			return errors.Errorf("%s: %s takes %d to %d arguments",
				st.pos, st.argv[0], lo, hi)
		}
		return nil
	}
	flags := func(i int) (uint32, error) {
		var f kmq.MessageFlags
		if host {
			f |= kmq.NonBlocking
		}
		if len(st.argv) > i {
			if st.argv[i] != "nonblock" {
				return 0, errors.Errorf("%s: unknown flag %q", st.pos, st.argv[i])
			}
			f |= kmq.NonBlocking
		}
		return uint32(f), nil
	}

	var err error
	switch op := st.argv[0]; op {
	case "create":
		if err = argc(2, 2); err != nil {
			return err
		}
		size, err := strconv.ParseUint(st.argv[2], 0, 32)
		if err != nil {
			return errors.Wrapf(err, "%s: size", st.pos)
		}
		if size > maxQueueSize {
			return errors.Errorf("%s: size %d exceeds %d", st.pos, size, maxQueueSize)
		}
		call = kmq.SysCreateMessageQueue
		args.Messages = make([]kmq.Message, size)
		args.Arg1 = uint32(size)

	case "destroy":
		if err = argc(1, 1); err != nil {
			return err
		}
		call = kmq.SysDestroyMessageQueue

	case "send", "jam":
		if err = argc(2, 3); err != nil {
			return err
		}
		msg, err := strconv.ParseUint(st.argv[2], 0, 32)
		if err != nil {
			return errors.Wrapf(err, "%s: message", st.pos)
		}
		call = kmq.SysSendMessage
		if op == "jam" {
			call = kmq.SysJamMessage
		}
		args.Arg1 = uint32(msg)
		if args.Arg2, err = flags(3); err != nil {
			return err
		}

	case "recv":
		if err = argc(1, 2); err != nil {
			return err
		}
		call = kmq.SysReceiveMessage
		args.Out = &out
		if args.Arg2, err = flags(2); err != nil {
			return err
		}

	case "yield":
		if err = argc(0, 0); err != nil {
			return err
		}
		s.k.Yield()
		return nil

	default:
		return errors.Errorf("%s: unknown command %q", st.pos, op)
	}

	if call != kmq.SysCreateMessageQueue {
		// Unknown names select the last slot, which is out of range
		// unless the table has SlotMask+1 slots.
		id, ok := s.queues[st.argv[1]]
		if !ok {
			id = -1
		}
		args.Arg0 = uint32(id)
	}
	ret := s.k.Syscall(call, &args)

	got := kmq.Result(ret).String()
	switch {
	case call == kmq.SysCreateMessageQueue && ret >= 0:
		s.queues[st.argv[1]] = kmq.QueueID(ret)
		got = kmq.ResultOK.String()
	case call == kmq.SysReceiveMessage && ret == int32(kmq.ResultOK):
		got = strconv.FormatUint(uint64(out), 10)
	}

	who := "host"
	if !host {
		who = s.k.CurrentThread().String()
	}
	fmt.Fprintf(s.out, "%s: %s => %s\n", who, strings.Join(st.argv, " "), got)

	if st.want != "" && !s.matches(st.want, got) {
		s.failed++
		fmt.Fprintf(s.out, "%s: want %s, got %s\n", st.pos, st.want, got)
	}
	return nil
}

// matches compares an expectation with an outcome. Messages compare by
// value so that 0x2a matches 42.
func (s *sim) matches(want, got string) bool {
	if want == got {
		return true
	}
	w, err := strconv.ParseUint(want, 0, 32)
	if err != nil {
		return false
	}
	g, err := strconv.ParseUint(got, 10, 32)
	return err == nil && w == g
}
