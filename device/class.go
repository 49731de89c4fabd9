package device

import "github.com/ardnew/picoreset/pkg"

// Class is the contract between the device stack and a class driver.
//
// The stack invokes these methods from a single goroutine, one at a time,
// and never re-enters a class before the previous call returns. Methods must
// not block.
type Class interface {
	// ConfigurationDescriptors writes the class's interface descriptors into
	// the configuration descriptor being assembled. It must be idempotent and
	// must not have side effects beyond writing to w.
	ConfigurationDescriptors(w *DescriptorWriter) error

	// Reset is called after a USB bus reset.
	Reset()

	// ControlOut is offered every host-to-device control transfer the
	// standard request handler did not consume. A class that does not respond
	// leaves the transfer for the next class.
	ControlOut(xfer *ControlOut)

	// ControlIn is offered every device-to-host control transfer the standard
	// request handler did not consume.
	ControlIn(xfer *ControlIn)
}

// ControlOut is a host-to-device control transfer whose data stage, if any,
// has already been received.
type ControlOut struct {
	setup  *SetupPacket
	data   []byte
	status pkg.Status
}

// NewControlOut wraps a SETUP packet and its received data stage.
func NewControlOut(setup *SetupPacket, data []byte) *ControlOut {
	return &ControlOut{setup: setup, data: data}
}

// Request returns the SETUP packet.
func (x *ControlOut) Request() *SetupPacket {
	return x.setup
}

// Data returns the received data stage.
func (x *ControlOut) Data() []byte {
	return x.data
}

// Accept completes the transfer with an ACK status stage.
func (x *ControlOut) Accept() error {
	if x.status != pkg.StatusPending {
		return pkg.ErrAlreadyResponded
	}
	x.status = pkg.StatusAck
	return nil
}

// Reject completes the transfer with a STALL.
func (x *ControlOut) Reject() error {
	if x.status != pkg.StatusPending {
		return pkg.ErrAlreadyResponded
	}
	x.status = pkg.StatusStall
	return nil
}

// Status returns the response recorded so far.
func (x *ControlOut) Status() pkg.Status {
	return x.status
}

// ControlIn is a device-to-host control transfer awaiting response data.
type ControlIn struct {
	setup  *SetupPacket
	data   []byte
	status pkg.Status
}

// NewControlIn wraps a device-to-host SETUP packet.
func NewControlIn(setup *SetupPacket) *ControlIn {
	return &ControlIn{setup: setup}
}

// Request returns the SETUP packet.
func (x *ControlIn) Request() *SetupPacket {
	return x.setup
}

// Accept completes the transfer, sending data (truncated to wLength).
// The slice is referenced, not copied, until the stack has sent it.
func (x *ControlIn) Accept(data []byte) error {
	if x.status != pkg.StatusPending {
		return pkg.ErrAlreadyResponded
	}
	if len(data) > int(x.setup.Length) {
		data = data[:x.setup.Length]
	}
	x.data = data
	x.status = pkg.StatusAck
	return nil
}

// Reject completes the transfer with a STALL.
func (x *ControlIn) Reject() error {
	if x.status != pkg.StatusPending {
		return pkg.ErrAlreadyResponded
	}
	x.status = pkg.StatusStall
	return nil
}

// Data returns the response data set by Accept.
func (x *ControlIn) Data() []byte {
	return x.data
}

// Status returns the response recorded so far.
func (x *ControlIn) Status() pkg.Status {
	return x.status
}
