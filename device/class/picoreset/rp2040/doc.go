// Package rp2040 binds the reset interface driver to the RP2040 boot ROM.
//
// It is only built by TinyGo for rp2040 targets:
//
//	rom, ok := rp2040.Take()
//	if !ok {
//	    panic("boot ROM already taken")
//	}
//	reset, err := picoreset.New[board](alloc, rom)
//
// [ROM.ResetToUSBBoot] looks up reset_usb_boot in the boot ROM function table
// and calls it. [ROM.RebootToFlash] arms the watchdog so the chip restarts
// into the flashed image after the given delay.
package rp2040
