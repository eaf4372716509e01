// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrMockClosed is returned by a closed MockLink
var ErrMockClosed = errors.New("mock link closed")

// MockLink implements Link for testing purposes. Chunks queued with Feed
// are returned by Read one at a time, in order.
type MockLink struct {
	mu       sync.Mutex
	name     string
	timeout  time.Duration
	incoming chan []byte
	closed   chan struct{}
	isClosed bool
	writes   [][]byte
	written  bytes.Buffer
	readErr  error
	writeErr error
}

// NewMockLink creates an open mock link whose Read waits at most timeout
func NewMockLink(name string, timeout time.Duration) *MockLink {
	return &MockLink{
		name:     name,
		timeout:  timeout,
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
}

// Feed queues a chunk for a later Read
func (m *MockLink) Feed(chunk []byte) {
	m.incoming <- append([]byte(nil), chunk...)
}

// SetReadError makes the next Read with no queued data fail with err
func (m *MockLink) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError sets an error to be returned on subsequent writes
func (m *MockLink) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MockLink) Read(p []byte) (int, error) {
	select {
	case chunk := <-m.incoming:
		return copy(p, chunk), nil
	default:
	}

	m.mu.Lock()
	readErr := m.readErr
	m.mu.Unlock()
	if readErr != nil {
		return 0, &LinkError{Op: "read", Port: m.name, Err: readErr}
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case chunk := <-m.incoming:
		return copy(p, chunk), nil
	case <-timer.C:
		return 0, nil
	case <-m.closed:
		return 0, &LinkError{Op: "read", Port: m.name, Err: ErrMockClosed}
	}
}

func (m *MockLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isClosed {
		return 0, &LinkError{Op: "write", Port: m.name, Err: ErrMockClosed}
	}
	if m.writeErr != nil {
		return 0, &LinkError{Op: "write", Port: m.name, Err: m.writeErr}
	}

	m.writes = append(m.writes, append([]byte(nil), p...))
	return m.written.Write(p)
}

func (m *MockLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isClosed {
		m.isClosed = true
		close(m.closed)
	}
	return nil
}

func (m *MockLink) Describe() string {
	return "Mock: " + m.name
}

// IsClosed reports whether Close has been called
func (m *MockLink) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

// Writes returns a copy of every individual write
func (m *MockLink) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		result[i] = append([]byte(nil), w...)
	}
	return result
}

// Written returns all bytes written so far
func (m *MockLink) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// MockOpener hands out a fixed MockLink and counts Open calls
type MockOpener struct {
	Link    *MockLink
	OpenErr error

	mu    sync.Mutex
	calls int
}

// Open validates cfg like the real openers, then returns the mock link
func (o *MockOpener) Open(cfg Config) (Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, &LinkError{Op: "open", Port: cfg.PortName, Err: o.OpenErr}
	}
	return o.Link, nil
}

// Calls returns how many times Open got past validation
func (o *MockOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
