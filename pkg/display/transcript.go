// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Transcript is the append-only text log of a session
type Transcript struct {
	mu sync.RWMutex
	sb strings.Builder
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds text to the end of the transcript
func (t *Transcript) Append(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sb.WriteString(text)
}

// String returns the full transcript
func (t *Transcript) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sb.String()
}

// Len returns the transcript length in bytes
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sb.Len()
}

// NonEmpty reports whether anything has been appended since the last Clear
func (t *Transcript) NonEmpty() bool {
	return t.Len() > 0
}

// Clear empties the transcript
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sb.Reset()
}

// SaveTo writes the transcript verbatim to path
func (t *Transcript) SaveTo(path string) error {
	if err := os.WriteFile(path, []byte(t.String()), 0o644); err != nil {
		return fmt.Errorf("failed to save transcript to %s: %w", path, err)
	}
	return nil
}
