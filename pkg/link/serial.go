// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialLink wraps a serial port
type SerialLink struct {
	port serial.Port
	cfg  Config
}

// SerialOpener opens RS-232/RS-485 ports through go.bug.st/serial
type SerialOpener struct{}

// Open validates cfg and opens the port. The driver is never touched when
// validation fails.
func (SerialOpener) Open(cfg Config) (Link, error) {
	l, err := OpenSerial(cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// OpenSerial opens a serial port with the given configuration
func OpenSerial(cfg Config) (*SerialLink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: int(cfg.DataBits),
		Parity:   serialParity(cfg.Parity),
		StopBits: serialStopBits(cfg.StopBits),
	}

	port, err := serial.Open(cfg.PortName, mode)
	if err != nil {
		return nil, &LinkError{Op: "open", Port: cfg.PortName, Err: err}
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, &LinkError{Op: "open", Port: cfg.PortName, Err: fmt.Errorf("failed to set read timeout: %w", err)}
		}
	}

	return &SerialLink{port: port, cfg: cfg}, nil
}

func (s *SerialLink) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		return n, &LinkError{Op: "read", Port: s.cfg.PortName, Err: err}
	}
	return n, nil
}

func (s *SerialLink) Write(p []byte) (int, error) {
	n, err := s.port.Write(p)
	if err != nil {
		return n, &LinkError{Op: "write", Port: s.cfg.PortName, Err: err}
	}
	return n, nil
}

func (s *SerialLink) Close() error {
	if err := s.port.Close(); err != nil {
		return &LinkError{Op: "close", Port: s.cfg.PortName, Err: err}
	}
	return nil
}

// Describe returns e.g. "Serial: /dev/ttyUSB0 @ 9600 8N1"
func (s *SerialLink) Describe() string {
	return "Serial: " + s.cfg.String()
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func serialParity(p Parity) serial.Parity {
	switch p {
	case ParityOdd:
		return serial.OddParity
	case ParityEven:
		return serial.EvenParity
	case ParityMark:
		return serial.MarkParity
	case ParitySpace:
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func serialStopBits(s StopBits) serial.StopBits {
	switch s {
	case StopBitsOnePointFive:
		return serial.OnePointFiveStopBits
	case StopBitsTwo:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}
