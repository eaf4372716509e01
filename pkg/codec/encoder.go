// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"encoding/hex"
	"fmt"
)

// Encode converts user input into the bytes to transmit under mode.
//
//   - ModeHex parses the input as hex text (see ParseHex)
//   - ModeText sends the UTF-8 bytes of the input verbatim
//   - ModePackedDigitPairs sends the input's UTF-8 bytes spelled out as
//     ASCII hex digits, the inverse of the PackedDigitPairs decoder. The
//     decoder only reads whole four-digit groups, so an odd byte count is
//     rejected with ErrPartialGroup rather than sent half a group short.
func Encode(input string, mode DisplayMode) ([]byte, error) {
	switch mode {
	case ModeHex:
		return ParseHex(input)
	case ModeText:
		return []byte(input), nil
	case ModePackedDigitPairs:
		if len(input)%2 != 0 {
			return nil, &DecodeError{Mode: mode, Offset: len(input), Input: []byte(input), Err: ErrPartialGroup}
		}
		out := make([]byte, hex.EncodedLen(len(input)))
		hex.Encode(out, []byte(input))
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported display mode %d", int(mode))
	}
}
