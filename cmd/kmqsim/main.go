// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command kmqsim runs message-queue scenario scripts against the emulated
// kernel.
//
// Usage:
//
//	kmqsim [flags] [script ...]
//
// Scripts are read from the named files, or from standard input when none
// is given. The exit status is 1 if any expectation failed or any thread
// exited with an error.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"code.hybscloud.com/kmq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	fTrace   = flag.Bool("trace", false, "log every kernel call")
	fVerbose = flag.Bool("v", false, "verbose kernel logging")
	fQueues  = flag.Int("queues", kmq.DefaultQueues, "message queue slots")
	fThreads = flag.Int("threads", kmq.DefaultThreads, "thread slots")
)

func main() {
	flag.Parse()

	log := zap.NewNop()
	if *fVerbose || *fTrace {
		l, err := zap.NewDevelopmentConfig().Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "kmqsim: %v\n", err)
			os.Exit(2)
		}
		log = l
	}

	failed, err := run(log, flag.Args(), os.Stdout)
	log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmqsim: %v\n", err)
		os.Exit(2)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "kmqsim: %d failure(s)\n", failed)
		os.Exit(1)
	}
}

func run(log *zap.Logger, files []string, out io.Writer) (int, error) {
	b := kmq.New().Queues(*fQueues).Threads(*fThreads).Logger(log)
	if *fTrace {
		b.Trace()
	}
	k, err := b.Build()
	if err != nil {
		return 0, errors.Wrap(err, "kernel")
	}
	s := newSim(k, out)

	if len(files) == 0 {
		err = s.Exec("<stdin>", os.Stdin)
	}
	for _, name := range files {
		if err = execFile(s, name); err != nil {
			break
		}
	}

	if cerr := k.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "close")
	}
	return s.failed, err
}

func execFile(s *sim, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Exec(name, f)
}
