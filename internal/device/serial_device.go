// Package device implements SerialDevice using go.bug.st/serial,
// which provides real serial communication support for the motor controller
// board and the LoRa radio.
package device

import (
	"bufio"
	"errors"
	"fmt"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

// ErrReadTimeout is returned by ReadLine when no full line arrived in time.
var ErrReadTimeout = errors.New("read timeout")

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	port serial.Port
	r    *bufio.Reader
	dev  string
	baud int
	wmu  sync.Mutex
}

// NewSerialDevice creates and opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return &SerialDevice{port: p, r: bufio.NewReader(p), dev: dev, baud: baud}, nil
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ReadLine reads a single line from the serial port, blocking until newline or timeout.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	if s.port == nil {
		return "", errors.New("serial port not open")
	}

	ch := make(chan struct {
		line string
		err  error
	}, 1)

	go func() {
		line, err := s.r.ReadString('\n')
		ch <- struct {
			line string
			err  error
		}{line, err}
	}()

	if timeout <= 0 {
		res := <-ch
		return res.line, res.err
	}

	select {
	case res := <-ch:
		return res.line, res.err
	case <-time.After(timeout):
		return "", ErrReadTimeout
	}
}

// WriteLine writes a single line followed by '\n' to the serial port.
// Safe for concurrent use.
func (s *SerialDevice) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.port == nil {
		return errors.New("serial port not open")
	}
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}
