// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/display"
	"go.uber.org/zap"
)

// Option configures a Session
type Option func(*Session)

// WithLogger sets the structured logger; the default discards everything
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRxMode sets the receive display mode (default hex)
func WithRxMode(mode codec.DisplayMode) Option {
	return func(s *Session) {
		s.decoder.SetMode(mode)
	}
}

// WithTxMode sets how Send interprets its input (default hex)
func WithTxMode(mode codec.DisplayMode) Option {
	return func(s *Session) {
		s.txMode = mode
	}
}

// WithAppendCRC appends the Modbus CRC16 to every sent payload
func WithAppendCRC(enabled bool) Option {
	return func(s *Session) {
		s.appendCRC = enabled
	}
}

// WithFormatter replaces the display formatter (poll interval, clock)
func WithFormatter(f *display.Formatter) Option {
	return func(s *Session) {
		if f != nil {
			s.formatter = f
		}
	}
}

// WithTranscript makes the session append to an existing transcript
func WithTranscript(t *display.Transcript) Option {
	return func(s *Session) {
		if t != nil {
			s.transcript = t
		}
	}
}

// WithEventBuffer sets the capacity of the event channel
func WithEventBuffer(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.events = make(chan Event, n)
		}
	}
}
