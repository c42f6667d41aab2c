// Package serialport provides the byte sources the acquisition loop reads
// from: a real serial link, a capture replay and a simulated PPG sensor.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by reads and writes on a port that was closed.
var ErrPortClosed = errors.New("serial port closed")

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// A read that times out without data returns (0, nil).
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Factory defines an interface for creating serial ports.
type Factory interface {
	// Open opens a serial port at the specified path with the given options.
	Open(path string, opts PortOptions) (SerialPorter, error)
}

// Opener adapts a plain function to Factory.
type Opener func(path string, opts PortOptions) (SerialPorter, error)

// Open calls f.
func (f Opener) Open(path string, opts PortOptions) (SerialPorter, error) {
	return f(path, opts)
}

// RealFactory opens hardware ports through go.bug.st/serial.
type RealFactory struct{}

// NewRealFactory returns a Factory backed by real serial devices.
func NewRealFactory() Factory {
	return RealFactory{}
}

// Open implements Factory.
func (RealFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	return Open(path, opts)
}

// Open opens the serial device at path and applies the read timeout from
// opts, so that reads return (0, nil) when the line stays idle.
func Open(path string, opts PortOptions) (SerialPorter, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	mode, err := normalized.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := port.SetReadTimeout(normalized.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return port, nil
}

// ListPorts returns the serial devices visible to the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
