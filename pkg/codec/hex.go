// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import "encoding/hex"

const hexDigits = "0123456789abcdef"

// FormatHex renders bytes as lower-case hex pairs, each followed by one
// space: de ad be ef -> "de ad be ef ". Empty input renders as "".
func FormatHex(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for _, c := range b {
		out = append(out, hexDigits[c>>4], hexDigits[c&0x0F], ' ')
	}
	return string(out)
}

// ParseHex parses hand-entered hex text such as "01 03 0x01 89,00 02".
// Whitespace and commas may separate bytes but not split one; a "0x"
// prefix is accepted at the start of each token. Either case is accepted.
func ParseHex(s string) ([]byte, error) {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isSeparator(c):
			if len(digits)%2 != 0 {
				return nil, &DecodeError{Mode: ModeHex, Offset: i, Input: []byte(s), Err: ErrOddLength}
			}
		case c == '0' && i+1 < len(s) && (s[i+1] == 'x' || s[i+1] == 'X') && (i == 0 || isSeparator(s[i-1])):
			i++
		case isHexDigit(c):
			digits = append(digits, c)
		default:
			return nil, &DecodeError{Mode: ModeHex, Offset: i, Input: []byte(s), Err: ErrInvalidHexDigit}
		}
	}

	if len(digits)%2 != 0 {
		return nil, &DecodeError{Mode: ModeHex, Offset: len(s), Input: []byte(s), Err: ErrOddLength}
	}

	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, &DecodeError{Mode: ModeHex, Input: []byte(s), Err: err}
	}
	return out, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ','
}
