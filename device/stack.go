package device

import (
	"context"
	"errors"
	"sync"

	"github.com/ardnew/picoreset/device/hal"
	"github.com/ardnew/picoreset/pkg"
)

// Stack drives the control endpoint of a Device over a HAL.
//
// Every SETUP transaction is handled to completion, including the class
// driver callbacks, before the next one is read. Poll and the background
// loop started by Start share one lock, so class drivers are never
// re-entered.
type Stack struct {
	device  *Device
	hal     hal.DeviceHAL
	handler *StandardRequestHandler

	// State
	running bool
	mutex   sync.RWMutex

	// Context for cancellation of the background loop
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Serializes SETUP handling
	pollMutex sync.Mutex

	// Reusable setup packet for zero-allocation reads
	setupBuf hal.SetupPacket

	// EP0 read buffer for control OUT data stage
	ep0ReadBuf [MaxControlDataSize]byte
}

// halSpeedToDeviceSpeed converts hal.Speed to device.Speed.
func halSpeedToDeviceSpeed(s hal.Speed) Speed {
	switch s {
	case hal.SpeedLow:
		return SpeedLow
	case hal.SpeedHigh:
		return SpeedHigh
	default:
		return SpeedFull
	}
}

// NewStack creates a new device stack.
func NewStack(dev *Device, h hal.DeviceHAL) *Stack {
	return &Stack{
		device:  dev,
		hal:     h,
		handler: NewStandardRequestHandler(dev),
	}
}

// Device returns the underlying device.
func (s *Stack) Device() *Device {
	return s.device
}

// Attach initializes the HAL and connects to the bus without starting the
// background loop. Use it with Poll for a caller-driven loop.
func (s *Stack) Attach(ctx context.Context) error {
	if err := s.hal.Init(ctx); err != nil {
		return err
	}
	if err := s.hal.Start(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentStack, "device stack attached")
	return nil
}

// Start attaches to the bus and handles control transfers in a background
// goroutine until Stop is called or ctx is cancelled.
func (s *Stack) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mutex.Unlock()

	if err := s.Attach(s.ctx); err != nil {
		s.cancel()
		return err
	}

	s.mutex.Lock()
	s.running = true
	s.mutex.Unlock()

	go s.controlLoop()

	return nil
}

// Stop stops the background loop and detaches from the bus.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mutex.Unlock()

	<-done

	if err := s.hal.Stop(); err != nil {
		return err
	}

	pkg.LogDebug(pkg.ComponentStack, "device stack stopped")
	return nil
}

// IsRunning returns true if the background loop is running.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// controlLoop handles control transfers on EP0.
func (s *Stack) controlLoop() {
	defer close(s.done)
	for {
		if err := s.Poll(s.ctx); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			pkg.LogWarn(pkg.ComponentStack, "error reading setup",
				"error", err)
		}
	}
}

// Poll waits for one SETUP packet and handles it to completion.
//
// A bus reset reported by the HAL resets the device and its classes.
// Failures while handling a request stall EP0 and are logged; Poll only
// returns errors from reading the SETUP packet.
func (s *Stack) Poll(ctx context.Context) error {
	s.pollMutex.Lock()
	defer s.pollMutex.Unlock()

	if err := s.hal.ReadSetup(ctx, &s.setupBuf); err != nil {
		if errors.Is(err, pkg.ErrReset) {
			s.device.Reset()
			return nil
		}
		return err
	}

	// Convert HAL setup packet to device setup packet
	setup := SetupPacket{
		RequestType: s.setupBuf.RequestType,
		Request:     s.setupBuf.Request,
		Value:       s.setupBuf.Value,
		Index:       s.setupBuf.Index,
		Length:      s.setupBuf.Length,
	}

	if err := s.handleSetup(ctx, &setup); err != nil {
		pkg.LogDebug(pkg.ComponentStack, "request stalled",
			"error", err,
			"request", setup.String())
		if stallErr := s.hal.StallEP0(); stallErr != nil {
			pkg.LogWarn(pkg.ComponentStack, "error stalling EP0",
				"error", stallErr)
		}
	}
	return nil
}

// handleSetup processes a single SETUP transaction. A returned error means
// the transfer must be stalled.
func (s *Stack) handleSetup(ctx context.Context, setup *SetupPacket) error {
	pkg.LogDebug(pkg.ComponentStack, "setup received",
		"request", setup.String())

	// Standard requests are handled by the stack first.
	unhandled := pkg.ErrInvalidRequest
	if setup.Kind() == KindStandard {
		data, err := s.handler.HandleSetup(setup)
		if err == nil {
			return s.completeStandard(ctx, setup, data)
		}
		if !errors.Is(err, pkg.ErrInvalidRequest) && !errors.Is(err, pkg.ErrNotSupported) {
			return err
		}
		unhandled = err
	}

	// Everything else is offered to the classes in registration order.
	if setup.IsDeviceToHost() {
		xfer := NewControlIn(setup)
		for _, class := range s.device.Classes() {
			class.ControlIn(xfer)
			if xfer.Status() != pkg.StatusPending {
				break
			}
		}
		switch xfer.Status() {
		case pkg.StatusAck:
			return s.completeIn(ctx, xfer.Data())
		case pkg.StatusStall:
			return pkg.ErrStall
		default:
			return unhandled
		}
	}

	data, err := s.readDataStage(ctx, setup)
	if err != nil {
		return err
	}
	xfer := NewControlOut(setup, data)
	for _, class := range s.device.Classes() {
		class.ControlOut(xfer)
		if xfer.Status() != pkg.StatusPending {
			break
		}
	}
	switch xfer.Status() {
	case pkg.StatusAck:
		return s.hal.AckEP0()
	case pkg.StatusStall:
		return pkg.ErrStall
	default:
		return unhandled
	}
}

// completeStandard finishes a request consumed by the standard handler.
func (s *Stack) completeStandard(ctx context.Context, setup *SetupPacket, data []byte) error {
	if setup.IsDeviceToHost() {
		return s.completeIn(ctx, data)
	}
	if _, err := s.readDataStage(ctx, setup); err != nil {
		return err
	}
	if err := s.hal.AckEP0(); err != nil {
		return err
	}

	// SET_ADDRESS takes effect after its status stage.
	if setup.Recipient() == RecipientDevice && setup.Request == RequestSetAddress {
		address := uint8(setup.Value)
		if err := s.device.SetAddress(address); err != nil {
			return err
		}
		return s.hal.SetAddress(address)
	}
	return nil
}

// completeIn sends the data stage of a device-to-host transfer and waits for
// the host's zero-length status stage.
func (s *Stack) completeIn(ctx context.Context, data []byte) error {
	if len(data) > 0 {
		if err := s.hal.WriteEP0(ctx, data); err != nil {
			return err
		}
	}
	_, err := s.hal.ReadEP0(ctx, s.ep0ReadBuf[:0])
	return err
}

// readDataStage receives the data stage of a host-to-device transfer.
func (s *Stack) readDataStage(ctx context.Context, setup *SetupPacket) ([]byte, error) {
	if setup.Length == 0 {
		return nil, nil
	}
	if int(setup.Length) > MaxControlDataSize {
		return nil, pkg.ErrBufferTooSmall
	}
	n, err := s.hal.ReadEP0(ctx, s.ep0ReadBuf[:setup.Length])
	if err != nil {
		return nil, err
	}
	return s.ep0ReadBuf[:n], nil
}

// Speed returns the negotiated USB connection speed.
func (s *Stack) Speed() Speed {
	return halSpeedToDeviceSpeed(s.hal.GetSpeed())
}

// IsConnected returns true if the device is connected to a host.
func (s *Stack) IsConnected() bool {
	return s.hal.IsConnected()
}

// WaitConnect blocks until the device connects to a host or the context is cancelled.
func (s *Stack) WaitConnect(ctx context.Context) error {
	return s.hal.WaitConnect(ctx)
}
