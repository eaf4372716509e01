// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Sercom - Serial port assistant
//
// A CLI tool for sending and receiving bytes over RS-232/RS-485 links in
// hex, text or packed digit-pair form, with Modbus CRC16 helpers.

package main

import (
	"os"

	"github.com/Thermoquad/sercom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
}
