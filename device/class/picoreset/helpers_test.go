package picoreset

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ardnew/picoreset/device"
	"github.com/ardnew/picoreset/device/hal"
	"github.com/ardnew/picoreset/device/hal/loopback"
)

// romCall records one ResetToUSBBoot invocation.
type romCall struct {
	gpioMask    uint32
	disableMask uint32
}

// mockROM is a boot ROM whose reset primitive returns.
type mockROM struct {
	mutex sync.Mutex
	calls []romCall
}

func (m *mockROM) ResetToUSBBoot(gpioMask, disableMask uint32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls = append(m.calls, romCall{gpioMask, disableMask})
}

func (m *mockROM) Calls() []romCall {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]romCall(nil), m.calls...)
}

// mockFlashROM also supports rebooting into flash.
type mockFlashROM struct {
	mockROM
	err    error
	delays []uint32
}

func (m *mockFlashROM) RebootToFlash(delayMS uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.delays = append(m.delays, delayMS)
	return m.err
}

func (m *mockFlashROM) Delays() []uint32 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]uint32(nil), m.delays...)
}

// ledConfig blinks GPIO 5 and disables nothing.
type ledConfig struct{}

func (ledConfig) InterfaceDisableMask() DisableInterface { return BothEnabled }
func (ledConfig) BootselActivityLED() (uint8, bool)      { return 5, true }

// picoLEDConfig matches a Raspberry Pi Pico with only mass storage.
type picoLEDConfig struct{}

func (picoLEDConfig) InterfaceDisableMask() DisableInterface { return DisablePicoboot }
func (picoLEDConfig) BootselActivityLED() (uint8, bool)      { return 25, true }

// testDevice is a running device exposing one reset interface.
type testDevice[C Config] struct {
	host  *loopback.HAL
	reset *Reset[C]
	dev   *device.Device
}

// startDevice builds a device around a Reset[C] and runs its stack until the
// test ends.
func startDevice[C Config](t *testing.T, rom BootROM) *testDevice[C] {
	t.Helper()

	h := loopback.New()
	alloc := device.NewBusAllocator(h)

	reset, err := New[C](alloc, rom)
	require.NoError(t, err)

	dev, err := device.NewDeviceBuilder(alloc, 0x2E8A, 0x000A).
		Strings("Raspberry Pi", "Pico", "E660583883724A2F").
		Build(reset)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stack := device.NewStack(dev, h)
	require.NoError(t, stack.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = stack.Stop()
	})

	return &testDevice[C]{host: h, reset: reset, dev: dev}
}

// classOut issues a class, interface-directed OUT request without data.
func (d *testDevice[C]) classOut(t *testing.T, request uint8, value, index uint16) loopback.Response {
	t.Helper()
	return d.control(t, hal.SetupPacket{
		RequestType: device.RequestDirectionHostToDevice | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     request,
		Value:       value,
		Index:       index,
	})
}

func (d *testDevice[C]) control(t *testing.T, setup hal.SetupPacket) loopback.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := d.host.Control(ctx, setup, nil)
	require.NoError(t, err)
	return resp
}

// classSetup returns a class, interface-directed OUT SETUP packet.
func classSetup(request uint8, value uint16, iface device.InterfaceNumber) *device.SetupPacket {
	var setup device.SetupPacket
	device.ClassInterfaceOutSetup(&setup, request, value, iface)
	return &setup
}
