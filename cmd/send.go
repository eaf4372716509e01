// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/sercom/pkg/session"
	"github.com/spf13/cobra"
)

var (
	sendCRC  bool
	sendWait time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <payload>...",
	Short: "Send one payload and print the reply",
	Long: `Send a single payload in the send mode (--tx-mode) and wait for a reply.

In hex mode the payload is parsed as hex pairs ("01 03 00 00 00 0A"); in text
mode it is sent verbatim; in packed mode every byte of the text is sent as
two ASCII hex digits. With --crc the Modbus CRC16 of the encoded payload is
appended before sending.

Exit codes:
  0 - Reply received before --wait elapsed
  1 - No reply received
  2 - Connection or input error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendCRC, "crc", false, "Append the Modbus CRC16 to the payload")
	sendCmd.Flags().DurationVarP(&sendWait, "wait", "w", time.Second, "How long to listen for a reply")
}

func runSend(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := openSession(context.Background(), logger, session.WithAppendCRC(sendCRC))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	out, err := s.Send(strings.Join(args, " "))
	if err != nil {
		s.Close()
		fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
		os.Exit(2)
	}
	fmt.Print(out)

	// Listen for the reply
	ctx, cancel := context.WithTimeout(context.Background(), sendWait)
	defer cancel()
	printEvents(ctx, s)

	s.Close()
	drainEvents(s)
	fmt.Println()

	if s.Stats().BytesReceived == 0 {
		fmt.Fprintf(os.Stderr, "TIMEOUT: No reply received within %s\n", sendWait)
		os.Exit(1)
	}
	return nil
}
