// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"fmt"
	"strings"
)

// DisplayMode selects how bytes on the link map to transcript text
type DisplayMode int

const (
	// ModeHex renders raw bytes as space separated hex pairs
	ModeHex DisplayMode = iota
	// ModeText interprets raw bytes as UTF-8
	ModeText
	// ModePackedDigitPairs treats the byte stream as ASCII hex digits,
	// four digits (two bytes) per group, decoded to UTF-8 text
	ModePackedDigitPairs
)

var modeLabels = []struct {
	mode  DisplayMode
	label string
}{
	{ModeHex, "hex"},
	{ModeText, "text"},
	{ModePackedDigitPairs, "packed"},
}

// ParseDisplayMode maps a label ("hex", "text", "packed") to a DisplayMode
func ParseDisplayMode(label string) (DisplayMode, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, e := range modeLabels {
		if e.label == l {
			return e.mode, nil
		}
	}
	return 0, fmt.Errorf("unknown display mode %q (use %s)", label, strings.Join(DisplayModeLabels(), ", "))
}

// DisplayModeLabels returns the accepted labels in declaration order
func DisplayModeLabels() []string {
	labels := make([]string, len(modeLabels))
	for i, e := range modeLabels {
		labels[i] = e.label
	}
	return labels
}

// Valid reports whether m is one of the declared modes
func (m DisplayMode) Valid() bool {
	return m >= ModeHex && m <= ModePackedDigitPairs
}

// Next returns the following mode, wrapping around
func (m DisplayMode) Next() DisplayMode {
	return (m + 1) % DisplayMode(len(modeLabels))
}

func (m DisplayMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeLabels[m].label
}
