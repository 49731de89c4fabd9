package picoreset

// Interface descriptor triple host tooling matches on.
const (
	InterfaceClass    = 0xFF // Vendor specific
	InterfaceSubClass = 0x00
	InterfaceProtocol = 0x01
)

// Class request codes.
const (
	RequestBootsel = 0x01 // Reboot into the BOOTSEL bootloader
	RequestFlash   = 0x02 // Reboot into the flashed application
)

// Fields of wValue for RequestBootsel.
const (
	ValueDisableMask   = 0x007F // Ad-hoc interface disable bits
	ValueGPIOSpecified = 0x0100 // Bits 9-15 carry the activity GPIO
	ValueGPIOShift     = 9
	MaxActivityGPIO    = 0x7F
)

// FlashResetDelay is the watchdog delay in milliseconds before a
// RequestFlash reboot, long enough for the status stage to reach the host.
const FlashResetDelay = 100
