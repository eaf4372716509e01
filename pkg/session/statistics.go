// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"fmt"
	"sync"
	"time"
)

// Counters is a point-in-time copy of session statistics
type Counters struct {
	StartTime time.Time

	BytesReceived uint64
	BytesSent     uint64
	Chunks        uint64 // reads that returned data
	Writes        uint64
	DecodeErrors  uint64
	LinkErrors    uint64

	// Rates (calculated)
	ReceiveRate float64 // bytes/sec
	SendRate    float64 // bytes/sec
}

// Statistics tracks traffic and error counts for a session
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{c: Counters{StartTime: time.Now()}}
}

func (s *Statistics) received(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.BytesReceived += uint64(n)
	s.c.Chunks++
}

func (s *Statistics) sent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.BytesSent += uint64(n)
	s.c.Writes++
}

func (s *Statistics) decodeError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.DecodeErrors++
}

func (s *Statistics) linkError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.LinkErrors++
}

// Snapshot returns the counters with rates calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.c
	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.ReceiveRate = float64(c.BytesReceived) / elapsed
		c.SendRate = float64(c.BytesSent) / elapsed
	}
	return c
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = Counters{StartTime: time.Now()}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	c := s.Snapshot()
	elapsed := time.Since(c.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Received:  %8d (%d reads)\n", c.BytesReceived, c.Chunks)
	result += fmt.Sprintf("Bytes Sent:      %8d (%d writes)\n", c.BytesSent, c.Writes)

	if c.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", c.DecodeErrors)
	}
	if c.LinkErrors > 0 {
		result += fmt.Sprintf("Link Errors:     %8d\n", c.LinkErrors)
	}

	result += fmt.Sprintf("Receive Rate:    %8.1f bytes/sec\n", c.ReceiveRate)
	result += fmt.Sprintf("Send Rate:       %8.1f bytes/sec\n", c.SendRate)
	result += "================================\n"

	return result
}
