// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketOpener opens a serial-over-WebSocket bridge. Config.PortName
// holds the ws:// or wss:// URL; the line parameters are owned by the
// bridge and only ReadTimeout is used locally.
type WebSocketOpener struct {
	Username      string
	Password      string
	SkipSSLVerify bool
}

// WebSocketLink carries raw serial bytes in binary WebSocket messages
type WebSocketLink struct {
	conn    *websocket.Conn
	url     string
	timeout time.Duration

	frames chan []byte
	done   chan struct{}
	once   sync.Once

	errMu   sync.Mutex
	readErr error

	buf       []byte
	bufOffset int
}

// Open dials the bridge
func (o WebSocketOpener) Open(cfg Config) (Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Parse and validate URL
	u, err := url.Parse(cfg.PortName)
	if err != nil {
		return nil, ConfigErrors{{Field: "url", Message: fmt.Sprintf("invalid URL: %v", err)}}
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, ConfigErrors{{Field: "url", Message: fmt.Sprintf("unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)}}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: o.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if o.Username != "" && o.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.PortName, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, &LinkError{Op: "open", Port: cfg.PortName, Err: err}
	}

	w := &WebSocketLink{
		conn:    conn,
		url:     cfg.PortName,
		timeout: cfg.ReadTimeout,
		frames:  make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go w.pump()
	return w, nil
}

// pump moves binary messages into the frame channel until the connection fails
func (w *WebSocketLink) pump() {
	defer close(w.frames)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.errMu.Lock()
			w.readErr = err
			w.errMu.Unlock()
			return
		}

		// Text frames are bridge chatter, not serial data
		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		select {
		case w.frames <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketLink) Read(p []byte) (int, error) {
	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	var timeout <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-w.frames:
		if !ok {
			return 0, &LinkError{Op: "read", Port: w.url, Err: w.closeCause()}
		}
		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	case <-timeout:
		return 0, nil
	case <-w.done:
		return 0, &LinkError{Op: "read", Port: w.url, Err: ErrConnectionClosed}
	}
}

func (w *WebSocketLink) closeCause() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, w.readErr)
	}
	return ErrConnectionClosed
}

func (w *WebSocketLink) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, &LinkError{Op: "write", Port: w.url, Err: err}
	}
	return len(p), nil
}

func (w *WebSocketLink) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	if err != nil {
		return &LinkError{Op: "close", Port: w.url, Err: err}
	}
	return nil
}

// Describe returns e.g. "WebSocket: ws://bridge/serial"
func (w *WebSocketLink) Describe() string {
	return "WebSocket: " + w.url
}
