// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var termSaveDir string

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Interactive serial terminal",
	Long: `Interactive terminal UI for sending and receiving data.

The transcript view shows received (RX) and sent (TX) data, stamped with
the arrival time whenever the line was idle or the direction changed.
Below it are the send input and a Modbus CRC16 calculator that updates as
you type.

Keys:
  Enter      Send the input (send field)
  Tab        Switch between the send and CRC fields
  F2 / F3    Cycle the receive / send mode (hex, text, packed)
  Ctrl+R     Toggle appending the CRC16 to sent payloads
  Ctrl+S     Save the transcript to a file
  Ctrl+Y     Copy the transcript to the clipboard
  Ctrl+L     Clear the transcript
  PgUp/PgDn  Scroll the transcript
  Esc/Ctrl+C Quit

Supports both serial and WebSocket connections. Logs go to --log-file only.`,
	RunE: runTerm,
}

func init() {
	rootCmd.AddCommand(termCmd)
	termCmd.Flags().StringVar(&termSaveDir, "save-dir", ".", "Directory for transcripts saved with Ctrl+S")
}

func runTerm(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, only log to a file
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	m := initialTermModel(s, termSaveDir)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
