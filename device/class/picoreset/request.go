package picoreset

import "github.com/ardnew/picoreset/pkg"

// BootselRequest is the decoded wValue of a RequestBootsel transfer.
type BootselRequest struct {
	// ActivityGPIO is the activity LED line, used when HasActivityGPIO.
	ActivityGPIO    uint8
	HasActivityGPIO bool

	// DisableMask holds extra interface disable bits (low 7 bits).
	DisableMask uint8
}

// Value encodes the request as wValue. It fails with
// [pkg.ErrInvalidParameter] if a field does not fit its bit range.
func (r BootselRequest) Value() (uint16, error) {
	if r.DisableMask > ValueDisableMask || r.ActivityGPIO > MaxActivityGPIO {
		return 0, pkg.ErrInvalidParameter
	}
	value := uint16(r.DisableMask)
	if r.HasActivityGPIO {
		value |= ValueGPIOSpecified | uint16(r.ActivityGPIO)<<ValueGPIOShift
	}
	return value, nil
}

// ParseBootselValue decodes wValue. Bit 7 is reserved and ignored.
func ParseBootselValue(value uint16) BootselRequest {
	r := BootselRequest{DisableMask: uint8(value & ValueDisableMask)}
	if value&ValueGPIOSpecified != 0 {
		r.HasActivityGPIO = true
		r.ActivityGPIO = uint8(value >> ValueGPIOShift)
	}
	return r
}

// BootselMasks computes the boot ROM arguments for a RequestBootsel wValue
// under configuration C.
//
// A GPIO selected by the host wins over the configured LED. Lines of 32 and
// above do not fit the mask and yield no indicator.
func BootselMasks[C Config](value uint16) (gpioMask, disableMask uint32) {
	var cfg C
	req := ParseBootselValue(value)

	if req.HasActivityGPIO {
		gpioMask = pinMask(req.ActivityGPIO)
	} else if pin, ok := cfg.BootselActivityLED(); ok {
		gpioMask = pinMask(pin)
	}
	disableMask = uint32(req.DisableMask) | uint32(cfg.InterfaceDisableMask())
	return gpioMask, disableMask
}

// pinMask returns the single-bit mask for a GPIO line, 0 if out of range.
func pinMask(pin uint8) uint32 {
	if pin >= 32 {
		return 0
	}
	return 1 << pin
}
