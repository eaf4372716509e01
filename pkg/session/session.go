// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/display"
	"github.com/Thermoquad/sercom/pkg/link"
	"github.com/Thermoquad/sercom/pkg/modbus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	readBufferSize     = 1024
	defaultEventBuffer = 256
)

var (
	// ErrSessionClosed is returned by Send after Close
	ErrSessionClosed = errors.New("session closed")
	// ErrEmptyPayload is returned by Send when the input encodes to nothing
	ErrEmptyPayload = errors.New("nothing to send")
)

// EventKind identifies what an Event carries
type EventKind int

const (
	// EventOutput carries text that was appended to the transcript
	EventOutput EventKind = iota
	// EventStatus carries a non-fatal decode error or the error that
	// ended the read loop
	EventStatus
)

// Event is emitted by the read loop in arrival order
type Event struct {
	Kind EventKind
	Text string
	Err  error
	Time time.Time
}

// Session is the single logical session of one open link. It owns the
// receive carry-over, the arrival timing and the transcript; decode and
// format passes run sequentially under one lock.
type Session struct {
	id     string
	cfg    link.Config
	link   link.Link
	logger *zap.Logger

	// mu guards decoder, timing, txMode and appendCRC; transcript appends
	// happen under it so the transcript order matches the timing state
	mu         sync.Mutex
	decoder    *codec.Decoder
	timing     display.ArrivalTiming
	formatter  *display.Formatter
	transcript *display.Transcript
	txMode     codec.DisplayMode
	appendCRC  bool
	closed     bool

	// writeMu serializes writes and Close on the link handle
	writeMu sync.Mutex

	stats  *Statistics
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open validates cfg, opens the link and starts the read loop. The opener
// is never called with an invalid configuration. The read loop lives until
// ctx is cancelled or Close is called.
func Open(ctx context.Context, opener link.Opener, cfg link.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		logger:     zap.NewNop(),
		decoder:    codec.NewDecoder(codec.ModeHex),
		formatter:  display.NewFormatter(cfg.ReadTimeout),
		transcript: display.NewTranscript(),
		txMode:     codec.ModeHex,
		stats:      NewStatistics(),
		events:     make(chan Event, defaultEventBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id), zap.String("port", cfg.PortName))

	l, err := opener.Open(cfg)
	if err != nil {
		s.logger.Error("Failed to open link", zap.Error(err))
		return nil, err
	}
	s.link = l

	s.logger.Info("Link opened",
		zap.String("link", l.Describe()),
		zap.Stringer("rx_mode", s.decoder.Mode()),
		zap.Stringer("tx_mode", s.txMode),
	)

	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.readLoop(readCtx)

	return s, nil
}

// readLoop reads chunks until cancelled or the link fails
func (s *Session) readLoop(ctx context.Context) {
	defer close(s.done)
	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := s.link.Read(buf)
		if err != nil {
			// Reads fail once Close tears the link down
			if ctx.Err() != nil {
				return
			}
			s.stats.linkError()
			s.logger.Error("Read failed, stopping read loop", zap.Error(err))
			s.emit(ctx, Event{Kind: EventStatus, Err: err, Time: time.Now()})
			return
		}
		if n == 0 {
			continue
		}

		s.stats.received(n)
		s.logger.Debug("Data received", zap.Int("bytes", n), zap.Binary("data", buf[:n]))

		text, decodeErr := s.ingest(buf[:n])
		if decodeErr != nil {
			s.emit(ctx, Event{Kind: EventStatus, Err: decodeErr, Time: time.Now()})
		}
		if text != "" {
			s.emit(ctx, Event{Kind: EventOutput, Text: text, Time: time.Now()})
		}
	}
}

// ingest runs one decode + format pass and appends the result to the
// transcript. Bytes that fail to decode are shown as hex instead so
// nothing is dropped, and the carry-over restarts empty.
func (s *Session) ingest(chunk []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.decoder.Decode(chunk)
	if err != nil {
		s.stats.decodeError()
		s.logger.Warn("Decode failed, showing raw bytes", zap.Error(err))

		raw := append(s.decoder.Drain(), chunk...)
		var decErr *codec.DecodeError
		if errors.As(err, &decErr) {
			raw = decErr.Input
		}
		return s.appendLocked(codec.FormatHex(raw), display.Receive), err
	}

	if text == "" {
		s.timing = s.formatter.Observe(s.timing, display.Receive)
		return "", nil
	}
	return s.appendLocked(text, display.Receive), nil
}

// appendLocked formats text and appends it to the transcript; s.mu must be held
func (s *Session) appendLocked(text string, dir display.Direction) string {
	out, timing := s.formatter.Format(text, s.timing, s.transcript.NonEmpty(), dir)
	s.timing = timing
	s.transcript.Append(out)
	return out
}

func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Send encodes input under the transmit mode, appends the CRC if enabled,
// writes it and records it in the transcript. It returns the text that
// was appended to the transcript.
func (s *Session) Send(input string) (string, error) {
	s.mu.Lock()
	mode, withCRC, closed := s.txMode, s.appendCRC, s.closed
	s.mu.Unlock()

	if closed {
		return "", ErrSessionClosed
	}

	payload, err := codec.Encode(input, mode)
	if err != nil {
		return "", err
	}
	body := payload
	if withCRC {
		payload = modbus.AppendCRC(payload)
	}
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	s.writeMu.Lock()
	n, err := s.link.Write(payload)
	s.writeMu.Unlock()
	if err != nil {
		s.stats.linkError()
		s.logger.Error("Write failed", zap.Error(err), zap.Int("bytes_to_write", len(payload)))
		return "", err
	}
	if n != len(payload) {
		s.stats.linkError()
		return "", &link.LinkError{Op: "write", Port: s.cfg.PortName, Err: fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(payload))}
	}

	s.stats.sent(n)
	s.logger.Debug("Data sent", zap.Int("bytes", n), zap.Binary("data", payload))

	shown := input
	if mode == codec.ModeHex {
		shown = codec.FormatHex(payload)
	} else if withCRC {
		shown = fmt.Sprintf("%s [CRC %s]", input, modbus.FormatCRC(modbus.CRC16(body)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(shown, display.Send), nil
}

// SetRxMode switches the receive display mode. Bytes held back under the
// previous mode are flushed to the transcript as hex; the flushed text is
// returned ("" when nothing was pending).
func (s *Session) SetRxMode(mode codec.DisplayMode) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == s.decoder.Mode() {
		return ""
	}
	s.logger.Info("Receive mode changed", zap.Stringer("from", s.decoder.Mode()), zap.Stringer("to", mode))

	out := ""
	if pending := s.decoder.Drain(); len(pending) > 0 {
		out = s.appendLocked(codec.FormatHex(pending), display.Receive)
	}
	s.decoder.SetMode(mode)
	return out
}

// SetTxMode switches how Send interprets its input
func (s *Session) SetTxMode(mode codec.DisplayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txMode = mode
}

// SetAppendCRC toggles appending the Modbus CRC16 to sent payloads
func (s *Session) SetAppendCRC(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCRC = enabled
}

// RxMode returns the receive display mode
func (s *Session) RxMode() codec.DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder.Mode()
}

// TxMode returns the transmit input mode
func (s *Session) TxMode() codec.DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txMode
}

// AppendCRC reports whether sent payloads get a CRC appended
func (s *Session) AppendCRC() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendCRC
}

// ClearTranscript empties the transcript and forgets the arrival timing
func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Clear()
	s.timing = display.ArrivalTiming{}
}

// Timing returns the current arrival timing
func (s *Session) Timing() display.ArrivalTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// ID returns the unique session identifier used in logs
func (s *Session) ID() string { return s.id }

// Config returns the link configuration
func (s *Session) Config() link.Config { return s.cfg }

// Describe returns the link description
func (s *Session) Describe() string { return s.link.Describe() }

// Transcript returns the session transcript
func (s *Session) Transcript() *display.Transcript { return s.transcript }

// Stats returns a snapshot of the session statistics
func (s *Session) Stats() Counters { return s.stats.Snapshot() }

// Statistics returns the live statistics tracker
func (s *Session) Statistics() *Statistics { return s.stats }

// Events returns the read loop event stream. It is closed by Close once the
// read loop has exited; buffered events can still be received after that.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the read loop has exited
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops the read loop, closes the link and resets the arrival
// timing. Bytes still held in the carry-over are flushed to the
// transcript as hex, and the event stream is closed. Close is safe to call
// more than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()

		s.writeMu.Lock()
		err = s.link.Close()
		s.writeMu.Unlock()

		<-s.done
		close(s.events)

		s.mu.Lock()
		if pending := s.decoder.Drain(); len(pending) > 0 {
			s.appendLocked(codec.FormatHex(pending), display.Receive)
		}
		s.timing = display.ArrivalTiming{}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("Failed to close link", zap.Error(err))
		} else {
			s.logger.Info("Link closed")
		}
	})
	return err
}
