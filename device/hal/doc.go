// Package hal defines the Hardware Abstraction Layer interface for USB device stacks.
//
// The HAL provides a platform-agnostic interface between the device stack and
// underlying USB controller hardware. Platform vendors implement this interface
// to run the device stack on their specific hardware.
//
// # Design Principles
//
// The HAL is designed to be:
//
//   - Minimal: Only expose operations essential for USB device functionality
//   - Generic: No platform-specific assumptions or details
//   - Flexible: Adaptable to a wide range of hardware configurations
//
// The device stack implements all USB protocol logic, leaving the HAL to handle
// only low-level hardware interactions.
//
// # Interface Overview
//
// The [DeviceHAL] interface defines the contract for device-side USB operations:
//
//   - Initialization and lifecycle management
//   - Control endpoint (EP0) SETUP, data and status stages
//   - Addressing after SET_ADDRESS
//   - Bus reset reporting through pkg.ErrReset
//   - Connection state and speed
//
// # Implementing a HAL
//
// To implement a HAL for a new platform:
//
//  1. Create a type that implements all [DeviceHAL] methods
//  2. Handle hardware-specific initialization in Init()
//  3. Implement EP0 operations for control transfers
//  4. Return pkg.ErrReset from ReadSetup when the host resets the bus
//
// # Zero-Allocation Design
//
// HAL implementations should follow zero-allocation patterns where feasible:
//
//   - Reuse buffers provided by the stack
//   - Avoid allocations in ReadSetup and the EP0 data stages
//   - Use fixed-size internal buffers where dynamic allocation would occur
//
// # Example
//
//	type MyHAL struct {
//	    // Platform-specific fields
//	}
//
//	func (h *MyHAL) Init(ctx context.Context) error {
//	    // Initialize USB controller hardware
//	    return nil
//	}
//
//	func (h *MyHAL) Start() error {
//	    // Enable USB controller and attach to bus
//	    return nil
//	}
//
//	// ... implement remaining DeviceHAL methods
//
// An in-memory HAL for testing is available in
// [github.com/ardnew/picoreset/device/hal/loopback].
package hal
