// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
	"time"
)

// DataBits per character
type DataBits int

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// Parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// StopBits per character
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

var parityLabels = []struct {
	parity Parity
	label  string
}{
	{ParityNone, "none"},
	{ParityOdd, "odd"},
	{ParityEven, "even"},
	{ParityMark, "mark"},
	{ParitySpace, "space"},
}

var stopBitsLabels = []struct {
	stopBits StopBits
	label    string
}{
	{StopBitsOne, "1"},
	{StopBitsOnePointFive, "1.5"},
	{StopBitsTwo, "2"},
}

// ParseDataBits accepts "5" through "8"
func ParseDataBits(label string) (DataBits, error) {
	switch strings.TrimSpace(label) {
	case "5":
		return DataBits5, nil
	case "6":
		return DataBits6, nil
	case "7":
		return DataBits7, nil
	case "8":
		return DataBits8, nil
	}
	return 0, ConfigError{Field: "data_bits", Message: fmt.Sprintf("unsupported value %q (use 5, 6, 7 or 8)", label)}
}

// ParseParity accepts none, odd, even, mark or space (case-insensitive)
func ParseParity(label string) (Parity, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, e := range parityLabels {
		if e.label == l {
			return e.parity, nil
		}
	}
	return 0, ConfigError{Field: "parity", Message: fmt.Sprintf("unsupported value %q (use none, odd, even, mark or space)", label)}
}

// ParseStopBits accepts 1, 1.5 or 2
func ParseStopBits(label string) (StopBits, error) {
	l := strings.TrimSpace(label)
	for _, e := range stopBitsLabels {
		if e.label == l {
			return e.stopBits, nil
		}
	}
	return 0, ConfigError{Field: "stop_bits", Message: fmt.Sprintf("unsupported value %q (use 1, 1.5 or 2)", label)}
}

func (d DataBits) Valid() bool {
	return d >= DataBits5 && d <= DataBits8
}

func (d DataBits) String() string {
	return fmt.Sprintf("%d", int(d))
}

func (p Parity) Valid() bool {
	return p >= ParityNone && p <= ParitySpace
}

func (p Parity) String() string {
	if !p.Valid() {
		return fmt.Sprintf("parity(%d)", int(p))
	}
	return parityLabels[p].label
}

func (s StopBits) Valid() bool {
	return s >= StopBitsOne && s <= StopBitsTwo
}

func (s StopBits) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stopbits(%d)", int(s))
	}
	return stopBitsLabels[s].label
}

// Config fully determines a link. It is not modified once a link is open.
type Config struct {
	PortName string
	BaudRate int
	DataBits DataBits
	Parity   Parity
	StopBits StopBits

	// ReadTimeout bounds a single blocking read; it is also how quickly a
	// read loop notices cancellation
	ReadTimeout time.Duration
}

// DefaultConfig returns 9600 8N1 with a 100ms read timeout
func DefaultConfig(portName string) Config {
	return Config{
		PortName:    portName,
		BaudRate:    9600,
		DataBits:    DataBits8,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks that every parameter is present and in range
func (c Config) Validate() error {
	var errs ConfigErrors

	if strings.TrimSpace(c.PortName) == "" {
		errs = append(errs, ConfigError{Field: "port", Message: "no port selected"})
	}
	if c.BaudRate <= 0 {
		errs = append(errs, ConfigError{Field: "baud_rate", Message: fmt.Sprintf("must be positive, got %d", c.BaudRate)})
	}
	if !c.DataBits.Valid() {
		errs = append(errs, ConfigError{Field: "data_bits", Message: fmt.Sprintf("must be 5-8, got %d", int(c.DataBits))})
	}
	if !c.Parity.Valid() {
		errs = append(errs, ConfigError{Field: "parity", Message: fmt.Sprintf("unknown parity %d", int(c.Parity))})
	}
	if !c.StopBits.Valid() {
		errs = append(errs, ConfigError{Field: "stop_bits", Message: fmt.Sprintf("unknown stop bits %d", int(c.StopBits))})
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, ConfigError{Field: "read_timeout", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String formats the configuration as "/dev/ttyUSB0 @ 9600 8N1"
func (c Config) String() string {
	parity := strings.ToUpper(c.Parity.String()[:1])
	return fmt.Sprintf("%s @ %d %s%s%s", c.PortName, c.BaudRate, c.DataBits, parity, c.StopBits)
}
