// Package serialio provides newline-delimited line transports over a serial
// port or a net.Conn. Reads are bounded: each ReadLine waits at most the
// configured timeout and reports ok=false when no complete line arrived, so
// callers can poll without ever blocking indefinitely.
package serialio

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the device firmware.
const DefaultBaudRate = 115200

// Detect returns the first plausible device serial port: sorted
// /dev/ttyACM* first, then /dev/ttyUSB*.
func Detect() (string, error) {
	for _, pattern := range []string{"/dev/ttyACM*", "/dev/ttyUSB*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("no serial port found: is the device connected?")
}

// Port is a line transport over a physical serial port.
type Port struct {
	p   serial.Port
	lb  lineBuffer
	tmp [256]byte
}

// Open acquires the serial port. Failure here is fatal to the caller; there
// is no mid-run reacquisition.
func Open(path string, baud int, readTimeout time.Duration) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", path, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", path, err)
	}
	return &Port{p: p}, nil
}

// ReadLine returns the next complete line if one arrives within the port's
// read timeout. ok=false with a nil error means a quiet link, not a failure.
func (p *Port) ReadLine() (line string, ok bool, err error) {
	if line, ok := p.lb.next(); ok {
		return line, true, nil
	}
	n, err := p.p.Read(p.tmp[:])
	if err != nil {
		return "", false, fmt.Errorf("serial read: %w", err)
	}
	p.lb.feed(p.tmp[:n])
	line, ok = p.lb.next()
	return line, ok, nil
}

// WriteLine writes s followed by a newline.
func (p *Port) WriteLine(s string) error {
	if _, err := p.p.Write(append([]byte(s), '\n')); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (p *Port) Close() error { return p.p.Close() }
