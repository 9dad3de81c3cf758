// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq_test

import (
	"fmt"

	"code.hybscloud.com/kmq"
)

// ExampleKernel_SendMessage shows the ring from the host context, where
// full and empty queues report Max.
func ExampleKernel_SendMessage() {
	k := kmq.New().Queues(8).Threads(2).MustBuild()
	defer k.Close()

	buf := make([]kmq.Message, 2)
	id, _ := k.CreateMessageQueue(buf, 2)

	fmt.Println(k.SendMessage(id, 1, kmq.NonBlocking))
	fmt.Println(k.SendMessage(id, 2, kmq.NonBlocking))
	fmt.Println(k.SendMessage(id, 3, kmq.NonBlocking))

	msg, r := k.ReceiveMessage(id, kmq.NonBlocking)
	fmt.Println(msg, r)

	// Output:
	// OK
	// OK
	// Max
	// 1 OK
}

// ExampleKernel_JamMessage shows urgent messages overtaking queued ones.
func ExampleKernel_JamMessage() {
	k := kmq.New().Queues(8).Threads(2).MustBuild()
	defer k.Close()

	id, _ := k.CreateMessageQueue(make([]kmq.Message, 4), 4)
	k.SendMessage(id, 'a', 0)
	k.SendMessage(id, 'b', 0)
	k.JamMessage(id, '!', 0)

	for range 3 {
		msg, _ := k.ReceiveMessage(id, 0)
		fmt.Printf("%c", msg)
	}
	fmt.Println()

	// Output:
	// !ab
}

// ExampleKernel_Run shows a blocking consumer thread fed by a producer.
func ExampleKernel_Run() {
	k := kmq.New().Queues(8).Threads(4).MustBuild()
	defer k.Close()

	id, _ := k.CreateMessageQueue(make([]kmq.Message, 1), 1)

	k.CreateThread(kmq.ProcessKernel, "consumer", func(t *kmq.Thread) error {
		for {
			msg, r := k.ReceiveMessage(id, 0)
			if r != kmq.ResultOK {
				fmt.Println(t.Name(), "stopped:", r)
				return nil
			}
			fmt.Println(t.Name(), "got", msg)
		}
	})
	k.CreateThread(kmq.ProcessKernel, "producer", func(t *kmq.Thread) error {
		for i := 1; i <= 3; i++ {
			k.SendMessage(id, kmq.Message(i*10), 0)
		}
		return nil
	})

	k.Run()
	k.DestroyMessageQueue(id)
	k.Run()

	// Output:
	// consumer got 10
	// consumer got 20
	// consumer got 30
	// consumer stopped: Intr
}

// ExampleThread_MessageQueue shows a synchronous call through thread queues.
func ExampleThread_MessageQueue() {
	k := kmq.New().Queues(8).Threads(4).MustBuild()
	defer k.Close()

	var server, app *kmq.Thread
	server, _ = k.CreateThread(kmq.ProcessFS, "fs", func(t *kmq.Thread) error {
		req, _ := k.ReceiveFrom(t.MessageQueue(), 0)
		fmt.Printf("fs: request %#x\n", req)
		return k.SendTo(app.MessageQueue(), req+1, 0).Err()
	})
	app, _ = k.CreateThread(kmq.ProcessACP, "app", func(t *kmq.Thread) error {
		k.SendTo(server.MessageQueue(), 0x0c, 0)
		reply, r := k.ReceiveFrom(t.MessageQueue(), 0)
		fmt.Println("app: reply", reply, r)
		return nil
	})

	k.Run()

	// Output:
	// fs: request 0xc
	// app: reply 13 OK
}
