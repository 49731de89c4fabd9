// Package picoreset implements the RP2040 "reset interface" class driver: a
// vendor-specific USB interface through which host tooling such as picotool
// reboots a running device into its boot-select (BOOTSEL) bootloader without
// pressing the physical button.
//
// The driver owns one interface number, contributes a single interface
// descriptor (class 0xFF, subclass 0x00, protocol 0x01), and reacts to two
// class requests addressed to that interface:
//
//   - [RequestBootsel] (0x01) decodes wValue into a GPIO activity mask and an
//     interface disable mask, then calls [BootROM.ResetToUSBBoot]. On
//     hardware that call does not return.
//   - [RequestFlash] (0x02) reboots into the flashed application when the boot
//     ROM also implements [FlashRebooter], and is stalled otherwise.
//
// Any other request code sent to the interface is accepted and ignored.
// Requests for other interfaces, or that are not class requests, are left
// for other drivers.
//
// # Configuration
//
// Policy is bound at compile time through the driver's type parameter, a
// zero-size type implementing [Config]:
//
//	type board struct{}
//
//	func (board) InterfaceDisableMask() picoreset.DisableInterface {
//	    return picoreset.DisablePicoboot
//	}
//
//	func (board) BootselActivityLED() (uint8, bool) { return 25, true }
//
//	reset, err := picoreset.New[board](alloc, rom)
//
// [DefaultConfig] keeps both bootloader interfaces enabled and has no
// activity LED.
//
// # Wire format of wValue for RequestBootsel
//
//	bits 0-6   interface disable bits, ORed with the configured mask
//	bit  8     set: bits 9-15 select the activity GPIO
//	bits 9-15  activity GPIO number
//
// [BootselRequest] encodes and decodes this layout for host tools.
package picoreset
