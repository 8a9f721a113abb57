// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"io"
	"sync"

	applog "visualizer/internal/log"

	"go.bug.st/serial"
)

var serialLog = applog.For("SerialTransport")

// DefaultBaudRate is the rate the LED driver firmware listens at.
const DefaultBaudRate = 500000

// port is the subset of serial.Port the transport needs.
type port interface {
	io.Writer
	Drain() error
	Close() error
}

// SerialTransport writes each frame to a serial LED driver and waits for the
// bytes to leave the UART before returning.
type SerialTransport struct {
	name string
	mu   sync.Mutex
	port port
}

var _ Transport = (*SerialTransport)(nil)

// OpenSerial opens the named serial device (e.g. /dev/ttyACM0) at baudRate.
func OpenSerial(name string, baudRate int) (*SerialTransport, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port '%s': %w", name, err)
	}
	serialLog.Infof("Opened %s at %d baud", name, baudRate)
	return &SerialTransport{name: name, port: p}, nil
}

// SerialPorts lists the serial devices present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Send writes the whole frame and drains the port.
func (s *SerialTransport) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return fmt.Errorf("serial port '%s' is closed", s.name)
	}
	for written := 0; written < len(frame); {
		n, err := s.port.Write(frame[written:])
		if err != nil {
			return fmt.Errorf("failed to write frame to '%s': %w", s.name, err)
		}
		if n == 0 {
			return fmt.Errorf("failed to write frame to '%s': %w", s.name, io.ErrShortWrite)
		}
		written += n
	}
	if err := s.port.Drain(); err != nil {
		return fmt.Errorf("failed to drain '%s': %w", s.name, err)
	}
	return nil
}

func (s *SerialTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	serialLog.Infof("Closing %s", s.name)
	err := s.port.Close()
	s.port = nil
	return err
}
