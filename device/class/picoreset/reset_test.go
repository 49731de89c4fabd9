package picoreset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/picoreset/device"
	"github.com/ardnew/picoreset/device/hal"
	"github.com/ardnew/picoreset/device/hal/loopback"
	"github.com/ardnew/picoreset/pkg"
)

func TestNew(t *testing.T) {
	alloc := device.NewBusAllocator(loopback.New())

	first, err := NewDefault(alloc, &mockROM{})
	require.NoError(t, err)
	second, err := New[MassStorageDisabled](alloc, &mockROM{})
	require.NoError(t, err)

	assert.Equal(t, device.InterfaceNumber(0), first.InterfaceNumber())
	assert.Equal(t, device.InterfaceNumber(1), second.InterfaceNumber())
	assert.Equal(t, 2, alloc.NumInterfaces())
}

func TestNewInvalidParameters(t *testing.T) {
	alloc := device.NewBusAllocator(loopback.New())

	_, err := NewDefault(alloc, nil)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, err = NewDefault(nil, &mockROM{})
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	assert.Zero(t, alloc.NumInterfaces())
}

func TestNewInterfacesExhausted(t *testing.T) {
	alloc := device.NewBusAllocator(loopback.New())
	for i := 0; i < device.MaxInterfacesPerConfiguration; i++ {
		_, err := alloc.Interface()
		require.NoError(t, err)
	}

	reset, err := NewDefault(alloc, &mockROM{})
	assert.Nil(t, reset)
	assert.ErrorIs(t, err, pkg.ErrNoInterfaces)
}

func TestNewAfterBuild(t *testing.T) {
	alloc := device.NewBusAllocator(loopback.New())
	_, err := device.NewDeviceBuilder(alloc, 0x2E8A, 0x000A).Build()
	require.NoError(t, err)

	_, err = NewDefault(alloc, &mockROM{})
	assert.ErrorIs(t, err, pkg.ErrAllocatorFrozen)
}

func TestConfigurationDescriptors(t *testing.T) {
	alloc := device.NewBusAllocator(loopback.New())
	_, err := alloc.Interface()
	require.NoError(t, err)
	reset, err := NewDefault(alloc, &mockROM{})
	require.NoError(t, err)

	want := []byte{
		0x09, device.DescriptorTypeInterface,
		0x01,             // bInterfaceNumber
		0x00,             // bAlternateSetting
		0x00,             // bNumEndpoints
		0xFF, 0x00, 0x01, // class, subclass, protocol
		0x00,             // iInterface
	}

	var first, second [64]byte
	w1 := device.NewDescriptorWriter(first[:])
	w2 := device.NewDescriptorWriter(second[:])
	require.NoError(t, reset.ConfigurationDescriptors(w1))
	require.NoError(t, reset.ConfigurationDescriptors(w2))

	assert.Equal(t, want, w1.Bytes())
	assert.Equal(t, w1.Bytes(), w2.Bytes())
	assert.Equal(t, uint8(1), w1.NumInterfaces())
}

func TestConfigurationDescriptorsBufferTooSmall(t *testing.T) {
	reset, err := NewDefault(device.NewBusAllocator(loopback.New()), &mockROM{})
	require.NoError(t, err)

	var buf [8]byte
	w := device.NewDescriptorWriter(buf[:])
	assert.ErrorIs(t, reset.ConfigurationDescriptors(w), pkg.ErrBufferTooSmall)
	assert.Zero(t, w.Len())
}

func TestControlOutFilter(t *testing.T) {
	rom := &mockFlashROM{}
	reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
	require.NoError(t, err)

	tests := []struct {
		name        string
		requestType uint8
		index       uint16
	}{
		{"standard", device.RequestTypeStandard | device.RequestRecipientInterface, 0},
		{"vendor", device.RequestTypeVendor | device.RequestRecipientInterface, 0},
		{"device recipient", device.RequestTypeClass | device.RequestRecipientDevice, 0},
		{"endpoint recipient", device.RequestTypeClass | device.RequestRecipientEndpoint, 0},
		{"other interface", device.RequestTypeClass | device.RequestRecipientInterface, 1},
		{"high index byte", device.RequestTypeClass | device.RequestRecipientInterface, 0x0100},
	}

	for _, tt := range tests {
		for _, request := range []uint8{RequestBootsel, RequestFlash, 0x7E} {
			setup := &device.SetupPacket{
				RequestType: tt.requestType,
				Request:     request,
				Value:       0x0105,
				Index:       tt.index,
			}
			xfer := device.NewControlOut(setup, nil)
			reset.ControlOut(xfer)
			assert.Equal(t, pkg.StatusPending, xfer.Status(), "%s request 0x%02X", tt.name, request)
		}
	}

	assert.Empty(t, rom.Calls())
	assert.Empty(t, rom.Delays())
}

func TestControlOutBootsel(t *testing.T) {
	rom := &mockROM{}
	reset, err := New[MassStorageDisabled](device.NewBusAllocator(loopback.New()), rom)
	require.NoError(t, err)

	xfer := device.NewControlOut(classSetup(RequestBootsel, 0x0105, reset.InterfaceNumber()), nil)
	reset.ControlOut(xfer)

	// The mock ROM returns, so the request must be stalled.
	assert.Equal(t, pkg.StatusStall, xfer.Status())
	assert.Equal(t, []romCall{{gpioMask: 1, disableMask: 0x05}}, rom.Calls())
}

func TestControlOutFlash(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		rom := &mockROM{}
		reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
		require.NoError(t, err)

		xfer := device.NewControlOut(classSetup(RequestFlash, 0, reset.InterfaceNumber()), nil)
		reset.ControlOut(xfer)

		assert.Equal(t, pkg.StatusStall, xfer.Status())
		assert.Empty(t, rom.Calls())
	})

	t.Run("supported", func(t *testing.T) {
		rom := &mockFlashROM{}
		reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
		require.NoError(t, err)

		xfer := device.NewControlOut(classSetup(RequestFlash, 0, reset.InterfaceNumber()), nil)
		reset.ControlOut(xfer)

		assert.Equal(t, pkg.StatusAck, xfer.Status())
		assert.Equal(t, []uint32{FlashResetDelay}, rom.Delays())
		assert.Empty(t, rom.Calls())
	})

	t.Run("failure", func(t *testing.T) {
		rom := &mockFlashROM{err: pkg.ErrNotSupported}
		reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
		require.NoError(t, err)

		xfer := device.NewControlOut(classSetup(RequestFlash, 0, reset.InterfaceNumber()), nil)
		reset.ControlOut(xfer)

		assert.Equal(t, pkg.StatusStall, xfer.Status())
	})
}

func TestControlOutUnknownRequest(t *testing.T) {
	rom := &mockFlashROM{}
	reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
	require.NoError(t, err)

	for _, request := range []uint8{0x00, 0x03, 0x7F, 0xFF} {
		xfer := device.NewControlOut(classSetup(request, 0xFFFF, reset.InterfaceNumber()), nil)
		reset.ControlOut(xfer)
		assert.Equal(t, pkg.StatusAck, xfer.Status(), "request 0x%02X", request)
	}

	assert.Empty(t, rom.Calls())
	assert.Empty(t, rom.Delays())
}

func TestControlInIgnored(t *testing.T) {
	rom := &mockROM{}
	reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
	require.NoError(t, err)

	setup := &device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     RequestBootsel,
		Index:       uint16(reset.InterfaceNumber()),
		Length:      4,
	}
	xfer := device.NewControlIn(setup)
	reset.ControlIn(xfer)

	assert.Equal(t, pkg.StatusPending, xfer.Status())
	assert.Empty(t, rom.Calls())
}

func TestResetIsNoop(t *testing.T) {
	rom := &mockROM{}
	reset, err := NewDefault(device.NewBusAllocator(loopback.New()), rom)
	require.NoError(t, err)

	reset.Reset()
	assert.Equal(t, device.InterfaceNumber(0), reset.InterfaceNumber())
	assert.Empty(t, rom.Calls())
}

func TestStackBootsel(t *testing.T) {
	tests := []struct {
		name  string
		value uint16
		want  romCall
	}{
		{"zero", 0x0000, romCall{gpioMask: 1 << 25, disableMask: 2}},
		{"host gpio 0", 0x0105, romCall{gpioMask: 1, disableMask: 0x07}},
		{"host gpio 13", 13<<ValueGPIOShift | ValueGPIOSpecified, romCall{gpioMask: 1 << 13, disableMask: 2}},
		{"low bits only", 0x007F, romCall{gpioMask: 1 << 25, disableMask: 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom := &mockROM{}
			d := startDevice[picoLEDConfig](t, rom)

			resp := d.classOut(t, RequestBootsel, tt.value, uint16(d.reset.InterfaceNumber()))

			assert.Equal(t, pkg.StatusStall, resp.Status)
			assert.Equal(t, []romCall{tt.want}, rom.Calls())
		})
	}
}

func TestStackFlash(t *testing.T) {
	rom := &mockFlashROM{}
	d := startDevice[DefaultConfig](t, rom)

	resp := d.classOut(t, RequestFlash, 0, uint16(d.reset.InterfaceNumber()))
	assert.Equal(t, pkg.StatusAck, resp.Status)
	assert.Equal(t, []uint32{FlashResetDelay}, rom.Delays())

	plain := &mockROM{}
	d = startDevice[DefaultConfig](t, plain)
	resp = d.classOut(t, RequestFlash, 0, uint16(d.reset.InterfaceNumber()))
	assert.Equal(t, pkg.StatusStall, resp.Status)
	assert.Empty(t, plain.Calls())
}

func TestStackUnknownRequestAccepted(t *testing.T) {
	rom := &mockFlashROM{}
	d := startDevice[DefaultConfig](t, rom)

	resp := d.classOut(t, 0x42, 0x1234, uint16(d.reset.InterfaceNumber()))
	assert.Equal(t, pkg.StatusAck, resp.Status)
	assert.Empty(t, rom.Calls())
	assert.Empty(t, rom.Delays())
}

func TestStackUnmatchedRequestsStall(t *testing.T) {
	rom := &mockFlashROM{}
	d := startDevice[DefaultConfig](t, rom)

	// Nothing else on the device claims these, so the stack stalls them.
	resp := d.classOut(t, RequestBootsel, 0, 3)
	assert.Equal(t, pkg.StatusStall, resp.Status)

	resp = d.control(t, hal.SetupPacket{
		RequestType: device.RequestTypeVendor | device.RequestRecipientInterface,
		Request:     RequestBootsel,
	})
	assert.Equal(t, pkg.StatusStall, resp.Status)

	resp = d.control(t, hal.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     RequestBootsel,
		Length:      1,
	})
	assert.Equal(t, pkg.StatusStall, resp.Status)

	assert.Empty(t, rom.Calls())
	assert.Empty(t, rom.Delays())
}

func TestStackConfigurationDescriptor(t *testing.T) {
	d := startDevice[DefaultConfig](t, &mockROM{})

	var setup device.SetupPacket
	device.GetDescriptorSetup(&setup, device.DescriptorTypeConfiguration, 0, 0xFF)
	resp := d.control(t, hal.SetupPacket(setup))
	require.Equal(t, pkg.StatusAck, resp.Status)
	require.Len(t, resp.Data, device.ConfigurationDescriptorSize+device.InterfaceDescriptorSize)

	var cfg device.ConfigurationDescriptor
	require.NoError(t, device.ParseConfigurationDescriptor(resp.Data, &cfg))
	assert.Equal(t, uint16(len(resp.Data)), cfg.TotalLength)
	assert.Equal(t, uint8(1), cfg.NumInterfaces)

	var iface device.InterfaceDescriptor
	require.NoError(t, device.ParseInterfaceDescriptor(resp.Data[device.ConfigurationDescriptorSize:], &iface))
	assert.Equal(t, uint8(0), iface.InterfaceNumber)
	assert.Equal(t, uint8(InterfaceClass), iface.InterfaceClass)
	assert.Equal(t, uint8(InterfaceSubClass), iface.InterfaceSubClass)
	assert.Equal(t, uint8(InterfaceProtocol), iface.InterfaceProtocol)

	// Descriptor generation is repeatable.
	again := d.control(t, hal.SetupPacket(setup))
	assert.Equal(t, resp.Data, again.Data)
}

func TestStackBusReset(t *testing.T) {
	rom := &mockROM{}
	d := startDevice[DefaultConfig](t, rom)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.host.BusReset(ctx))
	assert.Equal(t, device.StateDefault, d.dev.State())

	resp := d.classOut(t, RequestBootsel, 0, uint16(d.reset.InterfaceNumber()))
	assert.Equal(t, pkg.StatusStall, resp.Status)
	assert.Len(t, rom.Calls(), 1)
}
