// Package pkg provides shared utilities for the picoreset device stack and
// host tooling.
//
// This package contains common functionality used across the device stack,
// class drivers, and the command-line tool, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for USB protocol and resource errors
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component tag:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentClass, "bootsel requested", "gpioMask", mask)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNoInterfaces) {
//	    // interface number space exhausted
//	}
package pkg
