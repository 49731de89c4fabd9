package loopback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ardnew/picoreset/device/hal"
	"github.com/ardnew/picoreset/pkg"
)

// Response is the outcome of one control transfer as seen by the host.
type Response struct {
	Status pkg.Status // StatusAck or StatusStall
	Data   []byte     // IN data stage, nil for OUT transfers
}

// event is one host-initiated bus event.
type event struct {
	setup hal.SetupPacket
	data  []byte
	reset bool
	reply chan Response
}

// HAL implements hal.DeviceHAL over Go channels.
//
// The device-side methods are called by a single stack goroutine; the
// host-side methods (Control, BusReset) may be called from any goroutine.
type HAL struct {
	events chan event

	// Transfer in progress, owned by the stack goroutine
	current *event
	inData  []byte

	connected atomic.Bool
	connectCh chan struct{}
	startOnce sync.Once
	speed     hal.Speed

	mutex   sync.Mutex
	address uint8
}

// New creates a loopback HAL at full speed.
func New() *HAL {
	return &HAL{
		events:    make(chan event),
		connectCh: make(chan struct{}),
		speed:     hal.SpeedFull,
	}
}

// Init implements hal.DeviceHAL.
func (h *HAL) Init(ctx context.Context) error {
	return ctx.Err()
}

// Start implements hal.DeviceHAL and marks the device connected.
func (h *HAL) Start() error {
	h.connected.Store(true)
	h.startOnce.Do(func() { close(h.connectCh) })
	pkg.LogDebug(pkg.ComponentHAL, "loopback HAL started")
	return nil
}

// Stop implements hal.DeviceHAL and marks the device disconnected.
func (h *HAL) Stop() error {
	h.connected.Store(false)
	pkg.LogDebug(pkg.ComponentHAL, "loopback HAL stopped")
	return nil
}

// SetAddress implements hal.DeviceHAL.
func (h *HAL) SetAddress(address uint8) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.address = address
	return nil
}

// Address returns the last address applied by the stack.
func (h *HAL) Address() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.address
}

// ReadSetup implements hal.DeviceHAL. It blocks until the host side issues a
// transfer or a bus reset.
func (h *HAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-h.events:
		if ev.reset {
			ev.reply <- Response{Status: pkg.StatusAck}
			return pkg.ErrReset
		}
		h.current = &ev
		h.inData = h.inData[:0]
		*out = ev.setup
		return nil
	}
}

// WriteEP0 implements hal.DeviceHAL by buffering the IN data stage.
func (h *HAL) WriteEP0(ctx context.Context, data []byte) error {
	if h.current == nil {
		return pkg.ErrInvalidState
	}
	h.inData = append(h.inData, data...)
	return ctx.Err()
}

// ReadEP0 implements hal.DeviceHAL. For host-to-device transfers it delivers
// the host's data stage; for device-to-host transfers it is the status stage
// and completes the transfer.
func (h *HAL) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if h.current == nil {
		return 0, pkg.ErrInvalidState
	}
	if h.current.setup.RequestType&0x80 != 0 {
		return 0, h.finish(pkg.StatusAck)
	}
	return copy(buf, h.current.data), nil
}

// StallEP0 implements hal.DeviceHAL.
func (h *HAL) StallEP0() error {
	return h.finish(pkg.StatusStall)
}

// AckEP0 implements hal.DeviceHAL.
func (h *HAL) AckEP0() error {
	return h.finish(pkg.StatusAck)
}

// finish delivers the handshake of the current transfer to the host side.
func (h *HAL) finish(status pkg.Status) error {
	ev := h.current
	if ev == nil {
		return pkg.ErrInvalidState
	}
	h.current = nil

	resp := Response{Status: status}
	if status == pkg.StatusAck && ev.setup.RequestType&0x80 != 0 {
		resp.Data = append([]byte{}, h.inData...)
	}
	ev.reply <- resp
	return nil
}

// IsConnected implements hal.DeviceHAL.
func (h *HAL) IsConnected() bool {
	return h.connected.Load()
}

// GetSpeed implements hal.DeviceHAL.
func (h *HAL) GetSpeed() hal.Speed {
	return h.speed
}

// WaitConnect implements hal.DeviceHAL.
func (h *HAL) WaitConnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.connectCh:
		return nil
	}
}

// Control issues a control transfer from the host side and waits for the
// device's handshake. For host-to-device transfers data is the data stage.
func (h *HAL) Control(ctx context.Context, setup hal.SetupPacket, data []byte) (Response, error) {
	return h.send(ctx, event{setup: setup, data: data})
}

// ControlRaw is Control with the SETUP packet given as its 8 wire bytes.
func (h *HAL) ControlRaw(ctx context.Context, raw []byte, data []byte) (Response, error) {
	var setup hal.SetupPacket
	if !hal.ParseSetupPacket(raw, &setup) {
		return Response{}, pkg.ErrSetupPacketTooShort
	}
	return h.Control(ctx, setup, data)
}

// BusReset signals a USB bus reset to the device and waits until the stack
// has observed it.
func (h *HAL) BusReset(ctx context.Context) error {
	_, err := h.send(ctx, event{reset: true})
	return err
}

// send hands an event to the stack goroutine and waits for its reply.
func (h *HAL) send(ctx context.Context, ev event) (Response, error) {
	if !h.connected.Load() {
		return Response{}, pkg.ErrNotRunning
	}
	ev.reply = make(chan Response, 1)

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case h.events <- ev:
	}

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case resp := <-ev.reply:
		return resp, nil
	}
}
