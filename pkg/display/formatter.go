// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import (
	"time"
)

// DefaultPollInterval is the receive poll interval the line-break
// threshold is derived from
const DefaultPollInterval = 100 * time.Millisecond

// timestampLayout is the wall-clock prefix format (HH:MM:SS)
const timestampLayout = "15:04:05"

// Direction of a transcript entry
type Direction int

const (
	Receive Direction = iota
	Send
)

// Marker returns the short tag printed after the timestamp
func (d Direction) Marker() string {
	if d == Send {
		return "TX"
	}
	return "RX"
}

func (d Direction) String() string {
	if d == Send {
		return "send"
	}
	return "receive"
}

// ArrivalTiming remembers when the previous chunk was shown.
// The zero value means no prior arrival.
type ArrivalTiming struct {
	Last      time.Time
	Direction Direction
}

// First reports whether nothing has arrived yet
func (a ArrivalTiming) First() bool {
	return a.Last.IsZero()
}

// Formatter decides line breaks and timestamp prefixes for decoded text
type Formatter struct {
	PollInterval time.Duration
	Now          func() time.Time
}

// NewFormatter creates a formatter using the wall clock
func NewFormatter(pollInterval time.Duration) *Formatter {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Formatter{
		PollInterval: pollInterval,
		Now:          time.Now,
	}
}

// Threshold is the gap after which a chunk starts a new stamped line
func (f *Formatter) Threshold() time.Duration {
	return 2 * f.PollInterval
}

// Format prefixes text with a line break and/or a "[HH:MM:SS] RX " stamp.
//
// A chunk starts a new stamped line when it is the first arrival, when more
// than Threshold has passed since the previous one, or when the direction
// changed. The line break itself is only written if the transcript already
// has content. The returned timing must replace the caller's.
func (f *Formatter) Format(text string, timing ArrivalTiming, transcriptNonEmpty bool, dir Direction) (string, ArrivalTiming) {
	now := f.Now()

	first := timing.First()
	gap := !first && now.Sub(timing.Last) > f.Threshold()
	turned := !first && timing.Direction != dir

	newline := (first && transcriptNonEmpty) || gap || turned
	stamp := first || gap || turned

	prefix := ""
	if newline && transcriptNonEmpty {
		prefix = "\n"
	}
	if stamp {
		prefix += "[" + now.Format(timestampLayout) + "] " + dir.Marker() + " "
	}

	return prefix + text, ArrivalTiming{Last: now, Direction: dir}
}

// Observe records a decode pass that produced no text. A pass that would
// continue the current line moves Last forward so the line stays open for
// the rest of a character or group. A pass that would start a new line
// leaves timing untouched and the stamp goes to the next visible text.
func (f *Formatter) Observe(timing ArrivalTiming, dir Direction) ArrivalTiming {
	now := f.Now()
	if timing.First() || timing.Direction != dir || now.Sub(timing.Last) > f.Threshold() {
		return timing
	}
	return ArrivalTiming{Last: now, Direction: dir}
}
