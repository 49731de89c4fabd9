package pkg

import "errors"

// USB protocol errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrInvalidState indicates an invalid device state for the operation.
	ErrInvalidState = errors.New("invalid device state")

	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrAlreadyRunning indicates the stack is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the stack is not running.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrReset indicates a bus reset was received.
	ErrReset = errors.New("bus reset")
)

// Resource ownership errors.
var (
	// ErrNoInterfaces indicates the interface number space is exhausted.
	ErrNoInterfaces = errors.New("no interface numbers available")

	// ErrAllocatorFrozen indicates an allocation after the device was built.
	ErrAllocatorFrozen = errors.New("allocator frozen after device build")
)

// Control transfer errors.
var (
	// ErrAlreadyResponded indicates a control transfer already has a response.
	ErrAlreadyResponded = errors.New("control transfer already responded")

	// ErrBootROMReturned indicates the boot ROM reset primitive returned
	// control, which its contract forbids.
	ErrBootROMReturned = errors.New("boot ROM reset returned")
)

// Status is the handshake that completes a control transfer.
type Status int

// Control transfer handshakes.
const (
	StatusPending Status = iota // No response yet
	StatusAck                   // Transfer accepted
	StatusStall                 // Transfer rejected
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAck:
		return "ack"
	case StatusStall:
		return "stall"
	default:
		return "unknown"
	}
}

// Error returns the error corresponding to the status, nil unless stalled.
func (s Status) Error() error {
	if s == StatusStall {
		return ErrStall
	}
	return nil
}
