//go:build tinygo && rp2040

package rp2040

/*
typedef unsigned short uint16_t;
typedef unsigned long uint32_t;
typedef unsigned long uintptr_t;

#define ROM_FUNC_TABLE_OFFSET   0x14
#define ROM_TABLE_LOOKUP_OFFSET 0x18
#define ROM_TABLE_CODE(c1, c2)  ((c1) | ((c2) << 8))
#define ROM_FUNC_RESET_USB_BOOT ROM_TABLE_CODE('U', 'B')

typedef void *(*rom_table_lookup_fn)(uint16_t *table, uint32_t code);
typedef void (*rom_reset_usb_boot_fn)(uint32_t, uint32_t);

static void *rom_func_lookup(uint32_t code) {
	rom_table_lookup_fn lookup = (rom_table_lookup_fn)(uintptr_t)*(uint16_t *)ROM_TABLE_LOOKUP_OFFSET;
	uint16_t *table = (uint16_t *)(uintptr_t)*(uint16_t *)ROM_FUNC_TABLE_OFFSET;
	return lookup(table, code);
}

static int reset_usb_boot(uint32_t gpio_mask, uint32_t disable_mask) {
	rom_reset_usb_boot_fn fn = (rom_reset_usb_boot_fn)rom_func_lookup(ROM_FUNC_RESET_USB_BOOT);
	if (!fn) {
		return -1;
	}
	fn(gpio_mask, disable_mask);
	return 0;
}
*/
import "C"

import (
	"runtime/volatile"
	"sync/atomic"
	"unsafe"

	"github.com/ardnew/picoreset/device/class/picoreset"
	"github.com/ardnew/picoreset/pkg"
)

// Watchdog and power-on state machine registers.
const (
	watchdogBase = 0x40058000
	psmBase      = 0x40010000

	watchdogCtrlEnable    = 1 << 30
	watchdogCtrlPauseDbg1 = 1 << 26
	watchdogCtrlPauseDbg0 = 1 << 25
	watchdogCtrlPauseJTAG = 1 << 24
	watchdogCtrlPause     = watchdogCtrlPauseDbg1 | watchdogCtrlPauseDbg0 | watchdogCtrlPauseJTAG

	// Everything except the oscillators is reset by the watchdog.
	psmWDSelAll  = 0x0001FFFF
	psmWDSelROSC = 1 << 0
	psmWDSelXOSC = 1 << 1

	// The counter decrements twice per tick (RP2040-E1).
	watchdogLoadMax = 0x00FFFFFF
)

var (
	watchdogCtrl     = (*volatile.Register32)(unsafe.Pointer(uintptr(watchdogBase + 0x00)))
	watchdogLoad     = (*volatile.Register32)(unsafe.Pointer(uintptr(watchdogBase + 0x04)))
	watchdogScratch4 = (*volatile.Register32)(unsafe.Pointer(uintptr(watchdogBase + 0x1C)))
	psmWDSel         = (*volatile.Register32)(unsafe.Pointer(uintptr(psmBase + 0x08)))
)

var taken atomic.Bool

// ROM is the RP2040 boot ROM. It implements picoreset.BootROM and
// picoreset.FlashRebooter.
type ROM struct{}

var (
	_ picoreset.BootROM       = (*ROM)(nil)
	_ picoreset.FlashRebooter = (*ROM)(nil)
)

// Take returns the boot ROM handle. Only the first call succeeds.
func Take() (*ROM, bool) {
	if !taken.CompareAndSwap(false, true) {
		return nil, false
	}
	return &ROM{}, true
}

// ResetToUSBBoot calls the boot ROM's reset_usb_boot. It only returns if the
// function is missing from the ROM table.
func (*ROM) ResetToUSBBoot(gpioActivityMask, disableInterfaceMask uint32) {
	if C.reset_usb_boot(C.uint32_t(gpioActivityMask), C.uint32_t(disableInterfaceMask)) != 0 {
		pkg.LogError(pkg.ComponentHAL, "reset_usb_boot not found in ROM table")
	}
}

// RebootToFlash arms the watchdog to restart the chip into the flashed image
// after delayMS milliseconds.
func (*ROM) RebootToFlash(delayMS uint32) error {
	load := uint64(delayMS) * 1000 * 2
	if load > watchdogLoadMax {
		return pkg.ErrInvalidParameter
	}

	watchdogCtrl.ClearBits(watchdogCtrlEnable)
	// A zero boot vector makes the bootrom start the flash image.
	watchdogScratch4.Set(0)
	psmWDSel.Set(psmWDSelAll &^ (psmWDSelROSC | psmWDSelXOSC))
	watchdogCtrl.ClearBits(watchdogCtrlPause)
	watchdogLoad.Set(uint32(load))
	watchdogCtrl.SetBits(watchdogCtrlEnable)

	pkg.LogDebug(pkg.ComponentHAL, "watchdog armed",
		"delayMS", delayMS)
	return nil
}
