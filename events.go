// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// DeviceEvents is the device-event collaborator queues can be registered
// with as event handlers.
//
// Methods are called with the scheduler lock held and must not call back
// into the kernel.
type DeviceEvents interface {
	// RegisterEventHandler routes events of device to the queue as msg.
	RegisterEventHandler(device DeviceID, id QueueID, msg Message) error

	// UnregisterEventHandler detaches the queue from its device.
	UnregisterEventHandler(id QueueID) error
}

// StubDeviceEvents is the default collaborator. It accepts registrations
// and reports ErrNotImplemented on unregistration: the emulated kernel
// leaves a destroyed handler queue attached to its device.
type StubDeviceEvents struct{}

var _ DeviceEvents = StubDeviceEvents{}

// RegisterEventHandler implements DeviceEvents.
func (StubDeviceEvents) RegisterEventHandler(DeviceID, QueueID, Message) error {
	return nil
}

// UnregisterEventHandler implements DeviceEvents. It always fails with
// ErrNotImplemented.
func (StubDeviceEvents) UnregisterEventHandler(QueueID) error {
	return ErrNotImplemented
}
