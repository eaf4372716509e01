// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHexDigit = errors.New("invalid hex digit")
	ErrOddLength       = errors.New("odd number of hex digits")
	ErrInvalidUTF8     = errors.New("invalid UTF-8 sequence")
	ErrPartialGroup    = errors.New("byte count does not fill whole digit groups")
)

// maxQuotedInput bounds how much of the offending input an error message shows
const maxQuotedInput = 16

// DecodeError reports input that cannot be interpreted under a DisplayMode.
// Input holds the bytes that were being decoded when the failure occurred.
type DecodeError struct {
	Mode   DisplayMode
	Offset int
	Input  []byte
	Err    error
}

func (e *DecodeError) Error() string {
	quoted := e.Input
	suffix := ""
	if len(quoted) > maxQuotedInput {
		quoted = quoted[:maxQuotedInput]
		suffix = " ..."
	}
	return fmt.Sprintf("%s decode: %v at offset %d (input % X%s)", e.Mode, e.Err, e.Offset, quoted, suffix)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
