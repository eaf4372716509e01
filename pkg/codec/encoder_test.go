// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Hex Parsing
// ============================================================

func TestParseHex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
	}{
		{"spaced", "01 03 01 89 00 02", []byte{0x01, 0x03, 0x01, 0x89, 0x00, 0x02}},
		{"packed", "010301890002", []byte{0x01, 0x03, 0x01, 0x89, 0x00, 0x02}},
		{"upper case", "DE AD BE EF", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"0x prefixes", "0x01 0X02,0x03", []byte{0x01, 0x02, 0x03}},
		{"surrounding whitespace", "  ff\n", []byte{0xFF}},
		{"empty", "", []byte{}},
		{"only separators", " , ", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if err != nil {
				t.Fatalf("ParseHex(%q) error: %v", tt.input, err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("ParseHex(%q) = % X, want % X", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseHex_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   error
		offset int
	}{
		{"bad digit", "01 0g", ErrInvalidHexDigit, 4},
		{"odd length", "01 2", ErrOddLength, 4},
		{"split byte", "0 1", ErrOddLength, 1},
		{"x inside token", "10x1", ErrInvalidHexDigit, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHex(tt.input)
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, decErr.Err)
			}
			if decErr.Offset != tt.offset {
				t.Errorf("expected offset %d, got %d", tt.offset, decErr.Offset)
			}
		})
	}
}

func TestFormatHex(t *testing.T) {
	if s := FormatHex([]byte{0x00, 0x0A, 0xFF}); s != "00 0a ff " {
		t.Errorf("FormatHex = %q", s)
	}
	if s := FormatHex(nil); s != "" {
		t.Errorf("FormatHex(nil) = %q", s)
	}
}

// ============================================================
// Outgoing Encoding
// ============================================================

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		mode     DisplayMode
		expected []byte
	}{
		{"hex", "01 03", ModeHex, []byte{0x01, 0x03}},
		{"text", "AT\r\n", ModeText, []byte("AT\r\n")},
		{"packed", "01", ModePackedDigitPairs, []byte("3031")},
		{"packed multibyte", "中!", ModePackedDigitPairs, []byte("e4b8ad21")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input, tt.mode)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Encode(%q, %s) = % X, want % X", tt.input, tt.mode, got, tt.expected)
			}
		})
	}
}

func TestEncode_PackedRoundTrip(t *testing.T) {
	// Encoding in packed mode and decoding the result must give back the text
	for _, s := range []string{"hello!", "温度 23.5°C", "😀!!"} {
		wire, err := Encode(s, ModePackedDigitPairs)
		if err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		d := NewDecoder(ModePackedDigitPairs)
		text, err := d.Decode(wire)
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if text != s {
			t.Errorf("round trip %q -> %q", s, text)
		}
		if len(d.Pending()) != 0 {
			t.Errorf("round trip %q left carry-over %q", s, d.Pending())
		}
	}
}

func TestEncode_PackedOddByteCount(t *testing.T) {
	// Five bytes spell ten digits, half a group would never be decoded
	for _, s := range []string{"hello", "中", "😀!"} {
		_, err := Encode(s, ModePackedDigitPairs)
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("Encode(%q): expected *DecodeError, got %v", s, err)
		}
		if !errors.Is(err, ErrPartialGroup) {
			t.Errorf("Encode(%q): expected ErrPartialGroup, got %v", s, decErr.Err)
		}
		if decErr.Offset != len(s) {
			t.Errorf("Encode(%q): expected offset %d, got %d", s, len(s), decErr.Offset)
		}
	}
}

func TestEncode_HexError(t *testing.T) {
	if _, err := Encode("zz", ModeHex); err == nil {
		t.Error("expected error for invalid hex input")
	}
	if _, err := Encode("x", DisplayMode(9)); err == nil {
		t.Error("expected error for unsupported mode")
	}
}

// ============================================================
// DisplayMode
// ============================================================

func TestParseDisplayMode(t *testing.T) {
	for _, label := range DisplayModeLabels() {
		m, err := ParseDisplayMode(label)
		if err != nil {
			t.Fatalf("ParseDisplayMode(%q) error: %v", label, err)
		}
		if m.String() != label {
			t.Errorf("round trip %q -> %q", label, m.String())
		}
	}

	if m, err := ParseDisplayMode(" HEX "); err != nil || m != ModeHex {
		t.Errorf("ParseDisplayMode(\" HEX \") = %v, %v", m, err)
	}
	if _, err := ParseDisplayMode("binary"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestDisplayMode_Next(t *testing.T) {
	if ModeHex.Next() != ModeText || ModeText.Next() != ModePackedDigitPairs || ModePackedDigitPairs.Next() != ModeHex {
		t.Error("Next should cycle hex -> text -> packed -> hex")
	}
	if DisplayMode(7).Valid() {
		t.Error("mode 7 should not be valid")
	}
}
