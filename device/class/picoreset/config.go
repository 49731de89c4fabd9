package picoreset

import "fmt"

// DisableInterface selects which of the bootloader's USB interfaces are
// suppressed after re-entering BOOTSEL mode. The value is passed to the boot
// ROM as is.
type DisableInterface uint32

// Interface disable variants.
const (
	BothEnabled        DisableInterface = 0 // Mass storage and PICOBOOT
	DisableMassStorage DisableInterface = 1 // PICOBOOT only
	DisablePicoboot    DisableInterface = 2 // Mass storage only
)

// String returns the variant name.
func (d DisableInterface) String() string {
	switch d {
	case BothEnabled:
		return "both-enabled"
	case DisableMassStorage:
		return "disable-mass-storage"
	case DisablePicoboot:
		return "disable-picoboot"
	default:
		return fmt.Sprintf("DisableInterface(%d)", uint32(d))
	}
}

// Config is the compile-time policy of a Reset driver. Implementations are
// zero-size types whose methods return constants.
type Config interface {
	// InterfaceDisableMask is ORed into every BOOTSEL request.
	InterfaceDisableMask() DisableInterface

	// BootselActivityLED returns the GPIO blinked by the bootloader when the
	// host does not pick one, and false when there is none.
	BootselActivityLED() (pin uint8, ok bool)
}

// DefaultConfig enables both bootloader interfaces and has no activity LED.
type DefaultConfig struct{}

func (DefaultConfig) InterfaceDisableMask() DisableInterface { return BothEnabled }
func (DefaultConfig) BootselActivityLED() (uint8, bool)      { return 0, false }

// MassStorageDisabled boots with only the PICOBOOT interface.
type MassStorageDisabled struct{}

func (MassStorageDisabled) InterfaceDisableMask() DisableInterface { return DisableMassStorage }
func (MassStorageDisabled) BootselActivityLED() (uint8, bool)      { return 0, false }

// PicobootDisabled boots with only the mass storage interface.
type PicobootDisabled struct{}

func (PicobootDisabled) InterfaceDisableMask() DisableInterface { return DisablePicoboot }
func (PicobootDisabled) BootselActivityLED() (uint8, bool)      { return 0, false }
