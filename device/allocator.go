package device

import (
	"sync"

	"github.com/ardnew/picoreset/device/hal"
	"github.com/ardnew/picoreset/pkg"
)

// InterfaceNumber is the handle a BusAllocator assigns to a class driver.
// It is the bInterfaceNumber the host uses to address the interface.
type InterfaceNumber uint8

// BusAllocator owns a device HAL and hands out interface numbers to class
// drivers while the device is being assembled.
//
// Numbers are assigned sequentially and never reused. Once a Device has been
// built from the allocator it is frozen, and further requests fail with
// [pkg.ErrAllocatorFrozen].
type BusAllocator struct {
	hal    hal.DeviceHAL
	next   int
	frozen bool
	mutex  sync.Mutex
}

// NewBusAllocator creates an allocator for the given HAL.
func NewBusAllocator(h hal.DeviceHAL) *BusAllocator {
	return &BusAllocator{hal: h}
}

// HAL returns the hardware abstraction the allocator owns.
func (a *BusAllocator) HAL() hal.DeviceHAL {
	return a.hal
}

// Interface allocates the next free interface number.
// It fails with [pkg.ErrNoInterfaces] when MaxInterfacesPerConfiguration
// numbers have been handed out.
func (a *BusAllocator) Interface() (InterfaceNumber, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.frozen {
		return 0, pkg.ErrAllocatorFrozen
	}
	if a.next >= MaxInterfacesPerConfiguration {
		return 0, pkg.ErrNoInterfaces
	}

	num := InterfaceNumber(a.next)
	a.next++

	pkg.LogDebug(pkg.ComponentDevice, "interface allocated",
		"interface", uint8(num))

	return num, nil
}

// NumInterfaces returns how many interface numbers have been allocated.
func (a *BusAllocator) NumInterfaces() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.next
}

// freeze stops further allocation.
func (a *BusAllocator) freeze() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.frozen = true
}
