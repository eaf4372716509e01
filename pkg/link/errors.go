// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
)

// ConfigError describes a missing or invalid link parameter
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigErrors collects every problem found by Config.Validate
type ConfigErrors []ConfigError

func (e ConfigErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid link configuration: " + strings.Join(msgs, "; ")
}

// Has reports whether a problem was recorded for field
func (e ConfigErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// LinkError wraps a transport failure
type LinkError struct {
	Op   string // "open", "read", "write", "close"
	Port string
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
