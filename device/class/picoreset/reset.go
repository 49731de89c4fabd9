package picoreset

import (
	"fmt"

	"github.com/ardnew/picoreset/device"
	"github.com/ardnew/picoreset/pkg"
)

// Reset is the reset interface class driver, configured at compile time by C.
//
// It holds no per-transfer state: every request is handled within one
// callback, and a successful BOOTSEL request ends normal execution.
type Reset[C Config] struct {
	iface device.InterfaceNumber
	rom   BootROM
}

// New allocates an interface number from alloc and returns a driver that
// calls rom. Construction must precede DeviceBuilder.Build; running out of
// interface numbers is reported as a wrapped [pkg.ErrNoInterfaces].
func New[C Config](alloc *device.BusAllocator, rom BootROM) (*Reset[C], error) {
	if alloc == nil || rom == nil {
		return nil, pkg.ErrInvalidParameter
	}
	iface, err := alloc.Interface()
	if err != nil {
		return nil, fmt.Errorf("picoreset: allocate interface: %w", err)
	}

	var cfg C
	pin, hasLED := cfg.BootselActivityLED()
	pkg.LogDebug(pkg.ComponentClass, "reset interface registered",
		"interface", uint8(iface),
		"disable", cfg.InterfaceDisableMask().String(),
		"led", pin,
		"hasLED", hasLED)

	return &Reset[C]{iface: iface, rom: rom}, nil
}

// NewDefault is New with DefaultConfig.
func NewDefault(alloc *device.BusAllocator, rom BootROM) (*Reset[DefaultConfig], error) {
	return New[DefaultConfig](alloc, rom)
}

// InterfaceNumber returns the interface number assigned at construction.
func (r *Reset[C]) InterfaceNumber() device.InterfaceNumber {
	return r.iface
}

// ConfigurationDescriptors implements device.Class.
func (r *Reset[C]) ConfigurationDescriptors(w *device.DescriptorWriter) error {
	return w.Interface(r.iface, InterfaceClass, InterfaceSubClass, InterfaceProtocol)
}

// Reset implements device.Class. There is no state to clear.
func (r *Reset[C]) Reset() {}

// ControlIn implements device.Class. The protocol has no device-to-host
// requests, so IN transfers are left unanswered.
func (r *Reset[C]) ControlIn(xfer *device.ControlIn) {}

// ControlOut implements device.Class.
func (r *Reset[C]) ControlOut(xfer *device.ControlOut) {
	req := xfer.Request()
	if req.Kind() != device.KindClass ||
		req.Recipient() != device.RecipientInterface ||
		req.Index != uint16(r.iface) {
		return
	}

	switch req.Request {
	case RequestBootsel:
		r.bootsel(xfer)
	case RequestFlash:
		r.flash(xfer)
	default:
		pkg.LogDebug(pkg.ComponentClass, "ignoring reset interface request",
			"request", req.Request)
		_ = xfer.Accept()
	}
}

// bootsel hands control to the boot ROM.
func (r *Reset[C]) bootsel(xfer *device.ControlOut) {
	value := xfer.Request().Value
	gpioMask, disableMask := BootselMasks[C](value)

	pkg.LogDebug(pkg.ComponentClass, "rebooting into BOOTSEL",
		"value", value,
		"gpioMask", gpioMask,
		"disableMask", disableMask)

	r.rom.ResetToUSBBoot(gpioMask, disableMask)

	pkg.LogError(pkg.ComponentClass, "reboot into BOOTSEL failed",
		"error", pkg.ErrBootROMReturned,
		"gpioMask", gpioMask,
		"disableMask", disableMask)
	_ = xfer.Reject()
}

// flash arms a reboot into the application if the ROM binding supports it.
func (r *Reset[C]) flash(xfer *device.ControlOut) {
	rebooter, ok := r.rom.(FlashRebooter)
	if !ok {
		pkg.LogDebug(pkg.ComponentClass, "flash reset not supported")
		_ = xfer.Reject()
		return
	}
	if err := rebooter.RebootToFlash(FlashResetDelay); err != nil {
		pkg.LogWarn(pkg.ComponentClass, "flash reset failed",
			"error", err)
		_ = xfer.Reject()
		return
	}

	pkg.LogDebug(pkg.ComponentClass, "rebooting into flash",
		"delayMS", FlashResetDelay)
	_ = xfer.Accept()
}
