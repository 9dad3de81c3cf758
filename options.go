// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Default table sizes of the emulated kernel.
const (
	DefaultQueues  = 750
	DefaultThreads = 180
)

// MaxThreads is the largest supported number of thread slots.
const MaxThreads = 1 << 16

// Options configures kernel creation.
type Options struct {
	// Table sizes
	queues  int // Message queue slots, at most SlotMask+1
	threads int // Thread slots

	// Identity of calls made outside guest threads
	hostPID ProcessID

	// Collaborators
	policy Policy
	events DeviceEvents
	logger *zap.Logger

	trace      bool
	generation GenerationPolicy
}

// Builder creates kernels with fluent configuration.
//
// Example:
//
//	// Default sizes, no logging
//	k, err := kmq.New().Build()
//
//	// Small tables with call tracing
//	k, err := kmq.New().Queues(16).Threads(8).Logger(log).Trace().Build()
type Builder struct {
	opts Options
}

// New creates a kernel builder with the emulated kernel's default table
// sizes: DefaultQueues queue slots and DefaultThreads thread slots.
func New() *Builder {
	return &Builder{opts: Options{
		queues:  DefaultQueues,
		threads: DefaultThreads,
		hostPID: ProcessKernel,
		events:  StubDeviceEvents{},
		logger:  zap.NewNop(),
	}}
}

// Queues sets the number of message queue slots.
func (b *Builder) Queues(n int) *Builder {
	b.opts.queues = n
	return b
}

// Threads sets the number of thread slots.
func (b *Builder) Threads(n int) *Builder {
	b.opts.threads = n
	return b
}

// HostProcess sets the process calls from the host context are made as.
func (b *Builder) HostProcess(pid ProcessID) *Builder {
	b.opts.hostPID = pid
	return b
}

// Policy sets the thread-selection policy. The default is a FIFO sized for
// the thread table.
func (b *Builder) Policy(p Policy) *Builder {
	b.opts.policy = p
	return b
}

// DeviceEvents sets the device-event collaborator.
func (b *Builder) DeviceEvents(d DeviceEvents) *Builder {
	b.opts.events = d
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(l *zap.Logger) *Builder {
	b.opts.logger = l
	return b
}

// Trace logs every kernel call made through [Kernel.Syscall] at debug
// level.
func (b *Builder) Trace() *Builder {
	b.opts.trace = true
	return b
}

// SaturateGeneration pins the generation counter at MaxGeneration instead
// of wrapping it to 0.
func (b *Builder) SaturateGeneration() *Builder {
	b.opts.generation = GenerationSaturate
	return b
}

// Build validates the configuration and creates the kernel.
func (b *Builder) Build() (*Kernel, error) {
	if err := b.opts.validate(); err != nil {
		return nil, err
	}
	return newKernel(b.opts), nil
}

// MustBuild is like Build but panics on an invalid configuration.
func (b *Builder) MustBuild() *Kernel {
	k, err := b.Build()
	if err != nil {
		panic("kmq: " + err.Error())
	}
	return k
}

func (o *Options) validate() error {
	var err error
	if o.queues < 1 || o.queues > SlotMask+1 {
		err = multierr.Append(err, fmt.Errorf("queue slots %d out of range [1, %d]",
			o.queues, SlotMask+1))
	}
	if o.threads < 1 || o.threads > MaxThreads {
		err = multierr.Append(err, fmt.Errorf("thread slots %d out of range [1, %d]",
			o.threads, MaxThreads))
	}
	if o.events == nil {
		err = multierr.Append(err, errors.New("nil device-event collaborator"))
	}
	if o.logger == nil {
		err = multierr.Append(err, errors.New("nil logger"))
	}
	return err
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
