package picoreset

// BootROM is the device's boot ROM re-entry primitive.
//
// ResetToUSBBoot reboots into the BOOTSEL bootloader. gpioActivityMask has at
// most one bit set, selecting the activity LED (0 for none);
// disableInterfaceMask is a DisableInterface value, possibly with extra
// host-supplied bits. On success the call never returns. A return means the
// reboot failed.
type BootROM interface {
	ResetToUSBBoot(gpioActivityMask, disableInterfaceMask uint32)
}

// FlashRebooter is implemented by boot ROM bindings that can also reboot into
// the flashed application. RebootToFlash arms the reboot to happen after
// delayMS milliseconds and returns, so the pending control transfer can
// complete first.
type FlashRebooter interface {
	RebootToFlash(delayMS uint32) error
}

// BootROMFunc adapts a function to the BootROM interface.
type BootROMFunc func(gpioActivityMask, disableInterfaceMask uint32)

// ResetToUSBBoot calls f.
func (f BootROMFunc) ResetToUSBBoot(gpioActivityMask, disableInterfaceMask uint32) {
	f(gpioActivityMask, disableInterfaceMask)
}
