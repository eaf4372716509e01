// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/modbus"
	"github.com/spf13/cobra"
)

var (
	crcVerify bool
	crcAppend bool
)

var crcCmd = &cobra.Command{
	Use:   "crc <hex>...",
	Short: "Compute the Modbus CRC16 of a hex frame",
	Long: `Compute the Modbus CRC16 of hand-entered hex bytes.

  sercom crc 01 03 01 89 00 02          prints 141D
  sercom crc --append 01 03 01 89 00 02 prints the frame with 14 1d appended
  sercom crc --verify 01 03 01 89 00 02 14 1D

With --verify the last two bytes are checked against the CRC of the rest;
the exit code is 1 when they do not match. No connection is needed.`,
	Args: cobra.MinimumNArgs(1),
	// No link settings are needed, skip the config file
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runCRC,
}

func init() {
	rootCmd.AddCommand(crcCmd)
	crcCmd.Flags().BoolVar(&crcVerify, "verify", false, "Check the CRC in the last two bytes")
	crcCmd.Flags().BoolVar(&crcAppend, "append", false, "Print the frame with the CRC appended")
}

func runCRC(cmd *cobra.Command, args []string) error {
	frame, err := codec.ParseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if crcVerify {
		if len(frame) < modbus.CRCSize {
			return fmt.Errorf("frame too short: need at least %d bytes", modbus.CRCSize)
		}
		body := frame[:len(frame)-modbus.CRCSize]
		want := modbus.FormatCRC(modbus.CRC16(body))
		if !modbus.CheckCRC(frame) {
			fmt.Fprintf(out, "MISMATCH: expected %s, got %02X%02X\n", want, frame[len(frame)-2], frame[len(frame)-1])
			os.Exit(1)
		}
		fmt.Fprintf(out, "OK: %s\n", want)
		return nil
	}

	if crcAppend {
		fmt.Fprintln(out, strings.TrimSpace(codec.FormatHex(modbus.AppendCRC(frame))))
		return nil
	}

	fmt.Fprintln(out, modbus.FormatCRC(modbus.CRC16(frame)))
	return nil
}
