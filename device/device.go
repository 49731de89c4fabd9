package device

import (
	"sync"

	"github.com/ardnew/picoreset/pkg"
)

// Device represents a USB device with a single configuration assembled from
// its class drivers.
type Device struct {
	// Device descriptor
	Descriptor DeviceDescriptor

	// Configuration descriptor attributes
	attributes uint8
	maxPower   uint8

	// Class drivers in registration order - fixed-size array for zero allocation
	classes       [MaxClasses]Class
	classCount    int
	numInterfaces uint8

	// String descriptors - fixed-size array, each entry is a slice reference
	strings [MaxStrings][]byte

	// Device state
	state         State
	address       uint8
	configuration uint8
	remoteWakeup  bool

	mutex sync.RWMutex

	onStateChange func(old, new State)
}

// Classes returns the attached class drivers in registration order.
// The returned slice references internal storage; do not modify.
func (d *Device) Classes() []Class {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.classes[:d.classCount]
}

// GetString returns a string descriptor by index, or nil.
func (d *Device) GetString(index uint8) []byte {
	if index >= MaxStrings {
		return nil
	}
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.strings[index]
}

// State returns the current device state.
func (d *Device) State() State {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.state
}

// setState changes the device state and triggers the callback.
func (d *Device) setState(newState State) {
	d.mutex.Lock()
	oldState := d.state
	d.state = newState
	callback := d.onStateChange
	d.mutex.Unlock()

	if oldState != newState {
		pkg.LogDebug(pkg.ComponentDevice, "device state changed",
			"from", oldState.String(),
			"to", newState.String())
		if callback != nil {
			callback(oldState, newState)
		}
	}
}

// SetOnStateChange sets the state change callback.
func (d *Device) SetOnStateChange(cb func(old, new State)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onStateChange = cb
}

// Address returns the device address.
func (d *Device) Address() uint8 {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.address
}

// Configuration returns the active configuration value, 0 if unconfigured.
func (d *Device) Configuration() uint8 {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.configuration
}

// IsConfigured returns true if the device is configured.
func (d *Device) IsConfigured() bool {
	return d.State() == StateConfigured
}

// Reset handles a bus reset: the device returns to the Default state and
// every class driver's Reset hook runs in registration order.
func (d *Device) Reset() {
	d.mutex.Lock()
	d.address = 0
	d.configuration = 0
	d.remoteWakeup = false
	d.mutex.Unlock()

	d.setState(StateDefault)

	for _, class := range d.Classes() {
		class.Reset()
	}

	pkg.LogDebug(pkg.ComponentDevice, "device reset")
}

// SetAddress handles SET_ADDRESS.
func (d *Device) SetAddress(address uint8) error {
	state := d.State()
	if state != StateDefault && state != StateAddress {
		return pkg.ErrInvalidState
	}

	d.mutex.Lock()
	d.address = address
	d.mutex.Unlock()

	if address == 0 {
		d.setState(StateDefault)
	} else {
		d.setState(StateAddress)
	}

	pkg.LogDebug(pkg.ComponentDevice, "device address set",
		"address", address)

	return nil
}

// SetConfiguration handles SET_CONFIGURATION. Value 0 unconfigures the
// device; ConfigurationValue configures it.
func (d *Device) SetConfiguration(value uint8) error {
	state := d.State()
	if state != StateAddress && state != StateConfigured {
		return pkg.ErrInvalidState
	}

	switch value {
	case 0:
		d.mutex.Lock()
		d.configuration = 0
		d.mutex.Unlock()
		d.setState(StateAddress)
	case ConfigurationValue:
		d.mutex.Lock()
		d.configuration = value
		d.mutex.Unlock()
		d.setState(StateConfigured)
		pkg.LogDebug(pkg.ComponentDevice, "device configured",
			"configuration", value)
	default:
		return pkg.ErrInvalidRequest
	}
	return nil
}

// EnableRemoteWakeup enables or disables remote wakeup.
func (d *Device) EnableRemoteWakeup(enabled bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.remoteWakeup = enabled
}

// DeviceStatus represents the device status bits.
type DeviceStatus uint16

// Device status bits.
const (
	DeviceStatusSelfPowered  DeviceStatus = 1 << 0 // Device is self-powered
	DeviceStatusRemoteWakeup DeviceStatus = 1 << 1 // Remote wakeup enabled
)

// GetStatus returns the device status.
func (d *Device) GetStatus() DeviceStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var status DeviceStatus
	if d.attributes&ConfigAttrSelfPowered != 0 {
		status |= DeviceStatusSelfPowered
	}
	if d.remoteWakeup {
		status |= DeviceStatusRemoteWakeup
	}
	return status
}

// ConfigurationDescriptorTo assembles the full configuration descriptor into
// buf: the 9-byte header followed by every class's descriptors.
//
// If a class fails (typically [pkg.ErrBufferTooSmall]) assembly stops and the
// error is returned unchanged.
func (d *Device) ConfigurationDescriptorTo(buf []byte) (int, error) {
	if len(buf) < ConfigurationDescriptorSize {
		return 0, pkg.ErrBufferTooSmall
	}

	w := NewDescriptorWriter(buf[ConfigurationDescriptorSize:])
	for _, class := range d.Classes() {
		if err := class.ConfigurationDescriptors(w); err != nil {
			return 0, err
		}
	}

	total := ConfigurationDescriptorSize + w.Len()
	d.mutex.RLock()
	header := ConfigurationDescriptor{
		Length:             ConfigurationDescriptorSize,
		DescriptorType:     DescriptorTypeConfiguration,
		TotalLength:        uint16(total),
		NumInterfaces:      w.NumInterfaces(),
		ConfigurationValue: ConfigurationValue,
		Attributes:         d.attributes,
		MaxPower:           d.maxPower,
	}
	d.mutex.RUnlock()
	header.MarshalTo(buf)

	return total, nil
}

// Standard string descriptor indices assigned by DeviceBuilder.Strings.
const (
	StringIndexManufacturer = 1
	StringIndexProduct      = 2
	StringIndexSerialNumber = 3
)

// maxStringDescriptorSize bounds one encoded string descriptor.
const maxStringDescriptorSize = 255

// DeviceBuilder provides a fluent API for building devices.
// Errors are collected and reported by Build.
type DeviceBuilder struct {
	alloc  *BusAllocator
	device *Device
	errors []error

	// Pre-allocated string buffers
	stringBufs [StringIndexSerialNumber + 1][maxStringDescriptorSize]byte
}

// NewDeviceBuilder starts a device using interfaces from alloc.
func NewDeviceBuilder(alloc *BusAllocator, vendorID, productID uint16) *DeviceBuilder {
	b := &DeviceBuilder{alloc: alloc}
	b.device = &Device{
		Descriptor: DeviceDescriptor{
			Length:            DeviceDescriptorSize,
			DescriptorType:    DescriptorTypeDevice,
			USBVersion:        0x0200,
			MaxPacketSize0:    SpeedFull.MaxPacketSize0(),
			VendorID:          vendorID,
			ProductID:         productID,
			DeviceVersion:     0x0100,
			NumConfigurations: 1,
		},
		attributes: ConfigAttrBusPowered,
		maxPower:   50, // 100mA
		state:      StateDefault,
	}
	if alloc == nil {
		b.errors = append(b.errors, pkg.ErrInvalidState)
	}
	return b
}

// Strings sets the manufacturer, product, and serial strings.
// Empty strings are omitted.
func (b *DeviceBuilder) Strings(manufacturer, product, serial string) *DeviceBuilder {
	d := b.device
	n := LanguageDescriptorTo(b.stringBufs[0][:], LangIDUSEnglish)
	d.strings[0] = b.stringBufs[0][:n]

	set := func(index uint8, field *uint8, s string) {
		if s == "" {
			return
		}
		n := StringDescriptorTo(b.stringBufs[index][:], s)
		if n == 0 {
			b.errors = append(b.errors, pkg.ErrBufferTooSmall)
			return
		}
		d.strings[index] = b.stringBufs[index][:n]
		*field = index
	}
	set(StringIndexManufacturer, &d.Descriptor.ManufacturerIndex, manufacturer)
	set(StringIndexProduct, &d.Descriptor.ProductIndex, product)
	set(StringIndexSerialNumber, &d.Descriptor.SerialNumberIndex, serial)
	return b
}

// DeviceClass sets the device class triple.
func (b *DeviceBuilder) DeviceClass(class, subClass, protocol uint8) *DeviceBuilder {
	b.device.Descriptor.DeviceClass = class
	b.device.Descriptor.DeviceSubClass = subClass
	b.device.Descriptor.DeviceProtocol = protocol
	return b
}

// MaxPacketSize0 sets the control endpoint packet size (8, 16, 32 or 64).
func (b *DeviceBuilder) MaxPacketSize0(size uint8) *DeviceBuilder {
	switch size {
	case 8, 16, 32, 64:
		b.device.Descriptor.MaxPacketSize0 = size
	default:
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
	}
	return b
}

// DeviceRelease sets bcdDevice.
func (b *DeviceBuilder) DeviceRelease(bcd uint16) *DeviceBuilder {
	b.device.Descriptor.DeviceVersion = bcd
	return b
}

// Power sets the maximum bus power draw in milliamps and the self-powered
// attribute.
func (b *DeviceBuilder) Power(maxMilliamps uint16, selfPowered bool) *DeviceBuilder {
	if maxMilliamps > 500 {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	b.device.maxPower = uint8(maxMilliamps / 2)
	if selfPowered {
		b.device.attributes |= ConfigAttrSelfPowered
	} else {
		b.device.attributes &^= ConfigAttrSelfPowered
	}
	return b
}

// Build attaches the class drivers and returns the device. The allocator is
// frozen: classes constructed afterwards cannot obtain interface numbers.
func (b *DeviceBuilder) Build(classes ...Class) (*Device, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if len(classes) > MaxClasses {
		return nil, pkg.ErrInvalidParameter
	}

	d := b.device
	for _, class := range classes {
		if class == nil {
			return nil, pkg.ErrInvalidParameter
		}
		d.classes[d.classCount] = class
		d.classCount++
	}
	b.alloc.freeze()
	d.numInterfaces = uint8(b.alloc.NumInterfaces())

	pkg.LogDebug(pkg.ComponentDevice, "device built",
		"vendorID", d.Descriptor.VendorID,
		"productID", d.Descriptor.ProductID,
		"classes", d.classCount,
		"interfaces", b.alloc.NumInterfaces())

	return d, nil
}
