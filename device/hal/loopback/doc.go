// Package loopback implements an in-memory HAL in which the caller plays the
// USB host.
//
// The HAL is intended for tests and simulation. A device stack runs against
// it exactly as it would against a hardware controller, while test code
// issues control transfers and observes the handshake the device chose:
//
//	h := loopback.New()
//	alloc := device.NewBusAllocator(h)
//	// ... construct classes from alloc, build the device ...
//	stack := device.NewStack(dev, h)
//	stack.Start(ctx)
//
//	var setup hal.SetupPacket
//	setup.RequestType = 0x21 // class, interface, host-to-device
//	setup.Request = 0x01
//	resp, err := h.Control(ctx, setup, nil)
//	// resp.Status is pkg.StatusAck or pkg.StatusStall
//
// Only the control endpoint exists. Bus resets are injected with
// [HAL.BusReset].
package loopback
