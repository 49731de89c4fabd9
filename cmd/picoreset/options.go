package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ardnew/picoreset/device/class/picoreset"
)

// Subcommands.
const (
	cmdList    = "list"
	cmdBootsel = "bootsel"
	cmdFlash   = "flash"
	cmdTouch   = "touch"
)

// Defaults.
const (
	defaultVendorID = 0x2E8A // Raspberry Pi
	defaultTimeout  = 2 * time.Second
)

var errUsage = errors.New("usage error")

// options holds the parsed command line.
type options struct {
	verbose bool
	json    bool

	vendorID  uint16
	productID uint16 // 0 matches any
	bus       int    // 0 matches any
	address   int    // 0 matches any
	timeout   time.Duration

	command string

	// bootsel
	gpio    int // -1 leaves the choice to the device
	disable uint

	// touch
	port string
}

// idValue is a flag.Value for USB IDs given in decimal or 0x-prefixed hex.
type idValue uint16

func (v *idValue) String() string { return fmt.Sprintf("0x%04x", uint16(*v)) }

func (v *idValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return err
	}
	*v = idValue(n)
	return nil
}

const usageText = `Usage: picoreset [options] <command> [command options]

Commands:
  list                 list devices exposing the reset interface
  bootsel [-gpio N] [-disable MASK]
                       reboot into the BOOTSEL bootloader
  flash                reboot into the flashed application
  touch [port]         open a CDC serial port at 1200 baud to request BOOTSEL

Options:
`

// parseArgs parses global options, the subcommand, and its options.
func parseArgs(args []string, output io.Writer) (*options, error) {
	opts := &options{
		vendorID: defaultVendorID,
		gpio:     -1,
	}

	fs := flag.NewFlagSet("picoreset", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usageText)
		fs.PrintDefaults()
	}

	vid := idValue(opts.vendorID)
	var pid idValue
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&opts.json, "json", false, "log in JSON format")
	fs.Var(&vid, "vid", "USB vendor ID to match")
	fs.Var(&pid, "pid", "USB product ID to match (0 for any)")
	fs.IntVar(&opts.bus, "bus", 0, "USB bus number to match (0 for any)")
	fs.IntVar(&opts.address, "addr", 0, "USB device address to match (0 for any)")
	fs.DurationVar(&opts.timeout, "timeout", defaultTimeout, "control transfer and serial timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.vendorID = uint16(vid)
	opts.productID = uint16(pid)

	if opts.timeout <= 0 {
		return nil, fmt.Errorf("%w: -timeout must be positive", errUsage)
	}
	if opts.bus < 0 || opts.address < 0 {
		return nil, fmt.Errorf("%w: -bus and -addr must not be negative", errUsage)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, fmt.Errorf("%w: missing command", errUsage)
	}

	opts.command = fs.Arg(0)
	rest := fs.Args()[1:]

	switch opts.command {
	case cmdList, cmdFlash:
		if len(rest) > 0 {
			return nil, fmt.Errorf("%w: %s takes no arguments", errUsage, opts.command)
		}
	case cmdBootsel:
		sub := flag.NewFlagSet(cmdBootsel, flag.ContinueOnError)
		sub.SetOutput(output)
		sub.IntVar(&opts.gpio, "gpio", -1, "activity LED GPIO (-1 for the device default)")
		sub.UintVar(&opts.disable, "disable", 0, "interface disable mask (1 mass storage, 2 PICOBOOT)")
		if err := sub.Parse(rest); err != nil {
			return nil, err
		}
		if sub.NArg() > 0 {
			return nil, fmt.Errorf("%w: unexpected argument %q", errUsage, sub.Arg(0))
		}
		if _, err := opts.bootselRequest().Value(); err != nil || opts.gpio < -1 {
			return nil, fmt.Errorf("%w: -gpio must be -1..%d and -disable at most 0x%x",
				errUsage, picoreset.MaxActivityGPIO, picoreset.ValueDisableMask)
		}
	case cmdTouch:
		switch len(rest) {
		case 0:
		case 1:
			opts.port = rest[0]
		default:
			return nil, fmt.Errorf("%w: touch takes at most one port", errUsage)
		}
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, opts.command)
	}

	return opts, nil
}

// bootselRequest builds the wValue fields from the bootsel options.
func (o *options) bootselRequest() picoreset.BootselRequest {
	req := picoreset.BootselRequest{DisableMask: uint8(o.disable)}
	if o.disable > picoreset.ValueDisableMask {
		req.DisableMask = 0xFF
	}
	if o.gpio >= 0 {
		req.HasActivityGPIO = true
		req.ActivityGPIO = uint8(o.gpio)
		if o.gpio > picoreset.MaxActivityGPIO {
			req.ActivityGPIO = 0xFF
		}
	}
	return req
}
