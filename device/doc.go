// Package device implements the control side of a pure-Go USB 2.0 full
// speed device stack.
//
// It is platform-agnostic and talks to hardware through the [hal.DeviceHAL]
// interface in [github.com/ardnew/picoreset/device/hal]. Only the default
// control endpoint is driven; class drivers contribute interface descriptors
// and answer class or vendor control requests.
//
// # Architecture
//
//   - [BusAllocator] owns the HAL and hands out interface numbers to class
//     drivers while the device is assembled
//   - [DeviceBuilder] collects descriptors and strings and attaches classes
//   - [Device] tracks state, address and configuration, and assembles the
//     configuration descriptor from its classes on demand
//   - [StandardRequestHandler] answers USB 2.0 chapter 9 requests
//   - [Stack] reads SETUP packets and routes each transfer to completion
//
// # Device States
//
//	Default → Address → Configured
//
// A bus reset returns the device to Default and calls every class's Reset.
//
// # Class Drivers
//
// A [Class] writes its descriptors through a [DescriptorWriter] and receives
// control transfers as [ControlOut] and [ControlIn]. A class that does not
// recognize a transfer leaves it unanswered; the next class is tried, and a
// transfer nobody answers is stalled.
//
//	type Class interface {
//	    ConfigurationDescriptors(w *DescriptorWriter) error
//	    Reset()
//	    ControlOut(xfer *ControlOut)
//	    ControlIn(xfer *ControlIn)
//	}
//
// The reset interface driver lives in
// [github.com/ardnew/picoreset/device/class/picoreset].
//
// # Example
//
//	alloc := device.NewBusAllocator(h)
//	reset, err := picoreset.NewDefault(alloc, rom)
//	dev, err := device.NewDeviceBuilder(alloc, 0x2E8A, 0x000A).
//	    Strings("Raspberry Pi", "Pico", "").
//	    Build(reset)
//	stack := device.NewStack(dev, alloc.HAL())
//	stack.Start(ctx)
//
// # Zero-Allocation Design
//
// Descriptors serialize with MarshalTo(buf), parse functions fill output
// parameters, and classes and strings live in fixed-size arrays, so the
// control path does not allocate on TinyGo targets.
//
// An in-memory HAL for tests is available in
// [github.com/ardnew/picoreset/device/hal/loopback].
package device
