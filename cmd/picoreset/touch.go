package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/ardnew/picoreset/pkg"
)

// touchBaudRate is the line rate that asks a CDC ACM firmware to reboot
// into BOOTSEL.
const touchBaudRate = 1200

const touchRetryInterval = 100 * time.Millisecond

var errNoSerialPort = errors.New("no matching USB serial port found")

// touch opens port at 1200 baud and drops DTR. If port is empty the first
// USB serial port matching -vid and -pid is used. Opening is retried until
// the timeout, since the port may still be enumerating.
func touch(ctx context.Context, o *options, port string) error {
	if port == "" {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return fmt.Errorf("enumerate serial ports: %w", err)
		}
		port, err = matchPort(ports, o)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	for {
		err := touchPort(port)
		if err == nil {
			pkg.LogInfo(pkg.ComponentHost, "serial port touched",
				"port", port,
				"baud", touchBaudRate)
			return nil
		}
		pkg.LogDebug(pkg.ComponentHost, "serial touch failed",
			"port", port,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("touch %s: %w", port, err)
		case <-time.After(touchRetryInterval):
		}
	}
}

// touchPort performs one open, DTR drop and close cycle.
func touchPort(name string) error {
	p, err := serial.Open(name, &serial.Mode{BaudRate: touchBaudRate})
	if err != nil {
		return err
	}
	if err := p.SetDTR(false); err != nil {
		p.Close()
		return err
	}
	return p.Close()
}

// matchPort returns the first USB serial port whose IDs pass the options'
// filters.
func matchPort(ports []*enumerator.PortDetails, o *options) (string, error) {
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		vid, err := strconv.ParseUint(p.VID, 16, 16)
		if err != nil || uint16(vid) != o.vendorID {
			continue
		}
		pid, err := strconv.ParseUint(p.PID, 16, 16)
		if err != nil || (o.productID != 0 && uint16(pid) != o.productID) {
			continue
		}
		pkg.LogDebug(pkg.ComponentHost, "serial port selected",
			"port", p.Name,
			"serial", p.SerialNumber)
		return p.Name, nil
	}
	return "", fmt.Errorf("%w (vid 0x%04x)", errNoSerialPort, o.vendorID)
}
