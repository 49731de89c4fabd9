// Command picoreset reboots RP2040 devices through their USB reset
// interface, the way picotool does.
//
// Usage:
//
//	picoreset [options] list
//	picoreset [options] bootsel [-gpio N] [-disable MASK]
//	picoreset [options] flash
//	picoreset [options] touch [port]
//
// Options:
//
//	-v              Enable debug logging
//	-json           Log in JSON format
//	-vid ID         USB vendor ID to match (default: 0x2e8a)
//	-pid ID         USB product ID to match (default: any)
//	-bus N          USB bus number to match (default: any)
//	-addr N         USB device address to match (default: any)
//	-timeout d      Control transfer and serial timeout (default: 2s)
//
// bootsel and flash succeed when the device acknowledges the request or
// drops off the bus while handling it. touch is for firmware without a
// reset interface that reboots when its CDC ACM port is opened at 1200 baud.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gousb"

	"github.com/ardnew/picoreset/device/class/picoreset"
	"github.com/ardnew/picoreset/pkg"
	"github.com/ardnew/picoreset/pkg/usbid"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "picoreset: %v\n", err)
		return 2
	}

	// Set up logging
	if opts.json {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}
	if opts.verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := execute(ctx, opts, stdout); err != nil {
		pkg.LogDebug(pkg.ComponentHost, "command failed",
			"command", opts.command,
			"error", err)
		fmt.Fprintf(stderr, "picoreset: %s: %v\n", opts.command, err)
		return 1
	}
	return 0
}

// execute runs the selected subcommand.
func execute(ctx context.Context, opts *options, stdout io.Writer) error {
	if opts.command == cmdTouch {
		return touch(ctx, opts, opts.port)
	}

	usb := gousb.NewContext()
	defer usb.Close()

	switch opts.command {
	case cmdList:
		targets, err := openTargets(usb, opts)
		if err != nil {
			return err
		}
		defer closeTargets(targets)

		db := usbid.New()
		if !db.Load() {
			pkg.LogDebug(pkg.ComponentHost, "usb.ids database not found")
		}
		listTargets(stdout, targets, db)
		return nil

	case cmdBootsel:
		value, err := opts.bootselRequest().Value()
		if err != nil {
			return err
		}
		return resetOne(ctx, usb, opts, picoreset.RequestBootsel, value)

	case cmdFlash:
		return resetOne(ctx, usb, opts, picoreset.RequestFlash, 0)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, opts.command)
}

// resetOne sends request to the single matching device.
func resetOne(ctx context.Context, usb *gousb.Context, opts *options, request uint8, value uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := selectTarget(usb, opts)
	if err != nil {
		return err
	}
	defer t.dev.Close()

	if err := sendReset(t, request, value); err != nil {
		return err
	}
	pkg.LogInfo(pkg.ComponentHost, "reset request sent",
		"bus", t.dev.Desc.Bus,
		"address", t.dev.Desc.Address,
		"request", request)
	return nil
}
