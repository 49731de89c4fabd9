package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/gousb"

	"github.com/ardnew/picoreset/device/class/picoreset"
	"github.com/ardnew/picoreset/pkg"
	"github.com/ardnew/picoreset/pkg/usbid"
)

// Request type of every reset interface request: host-to-device, class,
// interface recipient.
const resetRequestType = uint8(gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface)

var (
	errNoDevice        = errors.New("no device with a reset interface found")
	errMultipleDevices = errors.New("more than one device found; select one with -bus and -addr")
)

// target is an opened device and the number of its reset interface.
type target struct {
	dev   *gousb.Device
	iface int
}

// matches reports whether desc passes the -vid, -pid, -bus and -addr
// filters.
func (o *options) matches(desc *gousb.DeviceDesc) bool {
	if uint16(desc.Vendor) != o.vendorID {
		return false
	}
	if o.productID != 0 && uint16(desc.Product) != o.productID {
		return false
	}
	if o.bus != 0 && desc.Bus != o.bus {
		return false
	}
	if o.address != 0 && desc.Address != o.address {
		return false
	}
	return true
}

// resetInterface returns the number of the first interface whose
// descriptor carries the reset interface triple.
func resetInterface(desc *gousb.DeviceDesc) (int, bool) {
	configs := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		configs = append(configs, n)
	}
	sort.Ints(configs)

	for _, n := range configs {
		for _, intf := range desc.Configs[n].Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == picoreset.InterfaceClass &&
					alt.SubClass == picoreset.InterfaceSubClass &&
					alt.Protocol == picoreset.InterfaceProtocol {
					return intf.Number, true
				}
			}
		}
	}
	return 0, false
}

// openTargets opens every matching device that exposes a reset interface.
// Devices that match but cannot be opened are logged and skipped.
func openTargets(ctx *gousb.Context, o *options) ([]target, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !o.matches(desc) {
			return false
		}
		_, ok := resetInterface(desc)
		return ok
	})
	if err != nil {
		pkg.LogWarn(pkg.ComponentHost, "some devices could not be opened",
			"error", err)
	}

	targets := make([]target, 0, len(devs))
	for _, dev := range devs {
		dev.ControlTimeout = o.timeout
		iface, ok := resetInterface(dev.Desc)
		if !ok {
			dev.Close()
			continue
		}
		targets = append(targets, target{dev: dev, iface: iface})
	}
	if len(targets) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errNoDevice, err)
		}
		return nil, errNoDevice
	}
	return targets, nil
}

// closeTargets closes all opened devices.
func closeTargets(targets []target) {
	for _, t := range targets {
		t.dev.Close()
	}
}

// selectTarget opens exactly one matching device.
func selectTarget(ctx *gousb.Context, o *options) (target, error) {
	targets, err := openTargets(ctx, o)
	if err != nil {
		return target{}, err
	}
	if len(targets) > 1 {
		closeTargets(targets)
		return target{}, errMultipleDevices
	}
	return targets[0], nil
}

// isDisconnect reports whether err means the device dropped off the bus,
// which is how a successful reboot looks from the host.
func isDisconnect(err error) bool {
	return errors.Is(err, gousb.ErrorNoDevice) ||
		errors.Is(err, gousb.ErrorIO) ||
		errors.Is(err, gousb.ErrorNotFound)
}

// sendReset issues a reset interface request to t.
func sendReset(t target, request uint8, value uint16) error {
	pkg.LogDebug(pkg.ComponentHost, "sending reset request",
		"bus", t.dev.Desc.Bus,
		"address", t.dev.Desc.Address,
		"interface", t.iface,
		"request", request,
		"value", value)

	_, err := t.dev.Control(resetRequestType, request, value, uint16(t.iface), nil)
	switch {
	case err == nil:
		return nil
	case isDisconnect(err):
		pkg.LogDebug(pkg.ComponentHost, "device disconnected during request",
			"error", err)
		return nil
	case errors.Is(err, gousb.ErrorPipe):
		return fmt.Errorf("request 0x%02x rejected by device: %w", request, err)
	default:
		return fmt.Errorf("request 0x%02x: %w", request, err)
	}
}

// listTargets prints one line per device exposing a reset interface.
func listTargets(w io.Writer, targets []target, db *usbid.Database) {
	for _, t := range targets {
		desc := t.dev.Desc
		name := describeDevice(t.dev, db)
		serial, _ := t.dev.SerialNumber()
		fmt.Fprintf(w, "Bus %03d Device %03d: ID %s:%s %s (interface %d)",
			desc.Bus, desc.Address, desc.Vendor, desc.Product, name, t.iface)
		if serial != "" {
			fmt.Fprintf(w, " serial %s", serial)
		}
		fmt.Fprintln(w)
	}
}

// describeDevice prefers the device's own strings over the usb.ids names.
func describeDevice(dev *gousb.Device, db *usbid.Database) string {
	manufacturer, _ := dev.Manufacturer()
	product, _ := dev.Product()
	return deviceName(manufacturer, product, uint16(dev.Desc.Vendor), uint16(dev.Desc.Product), db)
}

// deviceName joins manufacturer and product, filling the gaps from db.
func deviceName(manufacturer, product string, vid, pid uint16, db *usbid.Database) string {
	if manufacturer == "" {
		manufacturer = db.LookupVendor(vid)
	}
	if product == "" {
		product = db.LookupProduct(vid, pid)
	}
	switch {
	case manufacturer != "" && product != "":
		return manufacturer + " " + product
	case manufacturer == "" && product == "":
		return db.Describe(vid, pid)
	default:
		return manufacturer + product
	}
}
