// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// packedGroupSize is the number of hex digit characters per PackedDigitPairs group
const packedGroupSize = 4

// Decoder turns an incrementally arriving byte stream into display text.
//
// Bytes that cannot be interpreted yet (the tail of a PackedDigitPairs
// group, or a UTF-8 sequence split across reads) are carried over to the
// next call. A Decoder is not safe for concurrent use.
type Decoder struct {
	mode    DisplayMode
	pending []byte

	// held keeps the digits of complete PackedDigitPairs groups whose bytes
	// end in an unfinished character. They sit outside pending so group
	// boundaries keep counting from the start of the stream.
	held []byte
}

// NewDecoder creates a decoder for the given mode with empty carry-over
func NewDecoder(mode DisplayMode) *Decoder {
	return &Decoder{
		mode:    mode,
		pending: make([]byte, 0, 64),
	}
}

// Mode returns the active display mode
func (d *Decoder) Mode() DisplayMode {
	return d.mode
}

// SetMode switches the display mode. The carry-over is kept; callers that
// want it rendered under the old mode should Drain first.
func (d *Decoder) SetMode(mode DisplayMode) {
	if mode != ModePackedDigitPairs && len(d.held) > 0 {
		d.pending = append(d.held, d.pending...)
		d.held = nil
	}
	d.mode = mode
}

// Pending returns a copy of the carried-over bytes in arrival order
func (d *Decoder) Pending() []byte {
	out := make([]byte, 0, len(d.held)+len(d.pending))
	out = append(out, d.held...)
	return append(out, d.pending...)
}

// Drain returns the carried-over bytes and clears them
func (d *Decoder) Drain() []byte {
	out := d.Pending()
	d.Reset()
	return out
}

// Reset clears the carry-over
func (d *Decoder) Reset() {
	d.pending = d.pending[:0]
	d.held = nil
}

// Decode appends chunk to the carry-over and returns the text for every
// byte that can be fully interpreted. The remainder stays carried over.
//
// Decoding is all-or-nothing: on error the carry-over is left exactly as
// it was before the call and chunk is not absorbed. The returned
// *DecodeError holds the combined carry-over and chunk as Input.
// Calling Decode with an empty chunk drains whatever has become decodable.
func (d *Decoder) Decode(chunk []byte) (string, error) {
	buf := make([]byte, 0, len(d.pending)+len(chunk))
	buf = append(buf, d.pending...)
	buf = append(buf, chunk...)

	var (
		text string
		keep int
		err  error
	)

	switch d.mode {
	case ModeHex:
		text = FormatHex(buf)
	case ModeText:
		text, keep, err = decodeText(buf)
	case ModePackedDigitPairs:
		var held []byte
		text, held, keep, err = decodePacked(d.held, buf)
		if err == nil {
			d.held = held
		}
	default:
		err = &DecodeError{Mode: d.mode, Input: buf, Err: fmt.Errorf("unsupported display mode")}
	}
	if err != nil {
		return "", err
	}

	d.pending = append(d.pending[:0], buf[len(buf)-keep:]...)
	return text, nil
}

// decodeText decodes buf as UTF-8, holding back a trailing incomplete
// sequence. Returns the text and how many trailing bytes to keep.
func decodeText(buf []byte) (string, int, error) {
	keep := incompleteTail(buf)
	body := buf[:len(buf)-keep]
	if off := invalidUTF8Offset(body); off >= 0 {
		return "", 0, &DecodeError{Mode: ModeText, Offset: off, Input: buf, Err: ErrInvalidUTF8}
	}
	return string(body), keep, nil
}

// decodePacked decodes the complete four-digit groups of buf as hex, then
// the bytes they spell as UTF-8 after the still-unfinished character held
// from earlier groups. It returns the text, the digits to hold for the next
// unfinished character, and how many trailing digits of buf to keep.
func decodePacked(held, buf []byte) (string, []byte, int, error) {
	usable := len(buf) - len(buf)%packedGroupSize

	digits := make([]byte, 0, len(held)+usable)
	digits = append(digits, held...)
	digits = append(digits, buf[:usable]...)

	fail := func(off int, err error) (string, []byte, int, error) {
		input := make([]byte, 0, len(held)+len(buf))
		input = append(append(input, held...), buf...)
		return "", nil, 0, &DecodeError{Mode: ModePackedDigitPairs, Offset: off, Input: input, Err: err}
	}

	for i, c := range digits {
		if !isHexDigit(c) {
			return fail(i, ErrInvalidHexDigit)
		}
	}

	raw := make([]byte, len(digits)/2)
	if _, err := hex.Decode(raw, digits); err != nil {
		return fail(0, err)
	}

	tail := incompleteTail(raw)
	body := raw[:len(raw)-tail]
	if off := invalidUTF8Offset(body); off >= 0 {
		return fail(off*2, ErrInvalidUTF8)
	}

	var next []byte
	if tail > 0 {
		next = append(next, digits[len(digits)-tail*2:]...)
	}
	return string(body), next, len(buf) - usable, nil
}

// incompleteTail returns the length of a trailing UTF-8 sequence that is a
// valid prefix of a longer character, or 0 when the tail is complete.
func incompleteTail(b []byte) int {
	for k := 1; k < utf8.UTFMax && k <= len(b); k++ {
		tail := b[len(b)-k:]
		if !utf8.RuneStart(tail[0]) {
			continue
		}
		if tail[0] >= 0xC0 && !utf8.FullRune(tail) {
			return k
		}
		return 0
	}
	return 0
}

// invalidUTF8Offset returns the offset of the first invalid sequence, or -1
func invalidUTF8Offset(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
