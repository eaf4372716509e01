// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "io"

// Link is an open byte transport.
//
// Read blocks for at most the configured read timeout and returns 0, nil
// when nothing arrived in that window. Read and Write may be called from
// different goroutines, but neither may be called concurrently with itself.
type Link interface {
	io.Reader
	io.Writer
	io.Closer

	// Describe returns a short human readable description of the link
	Describe() string
}

// Opener opens links from a configuration
type Opener interface {
	Open(cfg Config) (Link, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(cfg Config) (Link, error)

func (f OpenerFunc) Open(cfg Config) (Link, error) {
	return f(cfg)
}
