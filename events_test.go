// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kmq"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingEvents struct {
	handlers     map[kmq.QueueID]kmq.DeviceID
	registerErr  error
	unregistered []kmq.QueueID
}

func (e *recordingEvents) RegisterEventHandler(device kmq.DeviceID, id kmq.QueueID, _ kmq.Message) error {
	if e.registerErr != nil {
		return e.registerErr
	}
	if e.handlers == nil {
		e.handlers = make(map[kmq.QueueID]kmq.DeviceID)
	}
	e.handlers[id] = device
	return nil
}

func (e *recordingEvents) UnregisterEventHandler(id kmq.QueueID) error {
	delete(e.handlers, id)
	e.unregistered = append(e.unregistered, id)
	return nil
}

// TestDestroyRegisteredQueueStub tests the default collaborator, which
// cannot detach a destroyed handler queue from its device.
func TestDestroyRegisteredQueueStub(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	k := newTestKernel(t, kmq.New().Queues(4).Threads(1).Logger(zap.New(core)))
	id := mustCreate(t, k, 1)

	if r := k.HandleEvent(3, id, 0xbeef); r != kmq.ResultOK {
		t.Fatalf("HandleEvent: %v", r)
	}
	if r := k.HandleEvent(3, id, 0xbeef); r != kmq.ResultExists {
		t.Fatalf("HandleEvent again: got %v, want Exists", r)
	}
	q, _ := k.Lookup(id)
	if q.Flags()&kmq.RegisteredEventHandler == 0 {
		t.Fatalf("flags: %#x", q.Flags())
	}

	if r := k.DestroyMessageQueue(id); r != kmq.ResultOK {
		t.Fatalf("DestroyMessageQueue: %v", r)
	}

	if n := logs.FilterMessage("destroying queue registered to event").Len(); n != 1 {
		t.Fatalf("destroy warnings: got %d, want 1", n)
	}
	left := logs.FilterMessage("event handler left registered").All()
	if len(left) != 1 {
		t.Fatalf("unregister warnings: got %d, want 1", len(left))
	}
	if got := left[0].ContextMap()["error"]; got != kmq.ErrNotImplemented.Error() {
		t.Fatalf("unregister warning error: got %v", got)
	}
	if left[0].Level != zap.WarnLevel {
		t.Fatalf("unregister warning level: %v", left[0].Level)
	}

	if err := (kmq.StubDeviceEvents{}).UnregisterEventHandler(id); !errors.Is(err, kmq.ErrNotImplemented) {
		t.Fatalf("stub unregister: got %v", err)
	}
}

// TestDestroyRegisteredQueue tests destroy with a collaborator that does
// unregister.
func TestDestroyRegisteredQueue(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	events := &recordingEvents{}
	k := newTestKernel(t, kmq.New().Queues(4).Threads(1).
		Logger(zap.New(core)).DeviceEvents(events))
	id := mustCreate(t, k, 1)

	if r := k.HandleEvent(9, id, 1); r != kmq.ResultOK {
		t.Fatalf("HandleEvent: %v", r)
	}
	if events.handlers[id] != 9 {
		t.Fatalf("collaborator handlers: %v", events.handlers)
	}
	k.DestroyMessageQueue(id)

	if len(events.unregistered) != 1 || events.unregistered[0] != id {
		t.Fatalf("unregistered: %v", events.unregistered)
	}
	if logs.FilterMessage("event handler left registered").Len() != 0 {
		t.Fatalf("unexpected unregister warning")
	}

	// A recreated queue in the same slot starts unregistered
	id = mustCreate(t, k, 1)
	if q, _ := k.Lookup(id); q.Flags() != 0 {
		t.Fatalf("flags of recreated queue: %#x", q.Flags())
	}
}

func TestHandleEventErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want kmq.Result
	}{
		{"result", kmq.ResultAccess, kmq.ResultAccess},
		{"wrapped result", errors.Join(errors.New("device"), kmq.ResultNoExists), kmq.ResultNoExists},
		{"foreign", errors.New("device gone"), kmq.ResultInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recordingEvents{registerErr: tt.err}
			k := newTestKernel(t, kmq.New().Queues(1).Threads(1).DeviceEvents(events))
			id := mustCreate(t, k, 1)

			if r := k.HandleEvent(1, id, 0); r != tt.want {
				t.Fatalf("HandleEvent: got %v, want %v", r, tt.want)
			}
			if q, _ := k.Lookup(id); q.Flags() != 0 {
				t.Fatalf("failed registration set flags %#x", q.Flags())
			}
		})
	}

	k := newTestKernel(t, nil)
	if r := k.HandleEvent(1, 0, 0); r != kmq.ResultInvalid {
		t.Fatalf("HandleEvent on unknown queue: got %v, want Invalid", r)
	}
}
