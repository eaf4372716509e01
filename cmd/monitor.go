// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/sercom/pkg/session"
	"github.com/spf13/cobra"
)

var (
	monitorOutput string
	monitorStats  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display received data until interrupted",
	Long: `Continuously decode and display received bytes as they arrive.

Output is rendered in the receive mode (--rx-mode) and stamped with the
arrival time whenever the line was idle for more than twice the poll
interval. Decode errors are reported on stderr and the offending bytes are
shown as hex.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorOutput, "output", "o", "", "Save the transcript to this file on exit")
	monitorCmd.Flags().BoolVar(&monitorStats, "stats", true, "Print statistics on exit")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Sercom - Monitor\n")
	fmt.Printf("Connection: %s\n", s.Describe())
	fmt.Printf("Receive mode: %s\n", s.RxMode())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	printed := printEvents(ctx, s)

	// Close flushes bytes still held back; print whatever the event
	// stream did not deliver
	s.Close()
	printed += drainEvents(s)
	if rest := s.Transcript().String(); printed < len(rest) {
		fmt.Print(rest[printed:])
	}
	fmt.Println()

	if monitorOutput != "" {
		if err := s.Transcript().SaveTo(monitorOutput); err != nil {
			return err
		}
		fmt.Printf("Transcript saved to %s\n", monitorOutput)
	}
	if monitorStats {
		fmt.Print(s.Statistics().String())
	}
	return nil
}

// printEvents writes session output to stdout until ctx is cancelled or
// the read loop stops. It returns the number of transcript bytes printed.
func printEvents(ctx context.Context, s *session.Session) int {
	printed := 0
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return printed
			}
			printed += printEvent(ev)
		case <-s.Done():
			return printed + drainEvents(s)
		case <-ctx.Done():
			return printed
		}
	}
}

// drainEvents prints events still buffered after the read loop exited
func drainEvents(s *session.Session) int {
	printed := 0
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return printed
			}
			printed += printEvent(ev)
		default:
			return printed
		}
	}
}

func printEvent(ev session.Event) int {
	switch ev.Kind {
	case session.EventOutput:
		fmt.Print(ev.Text)
		return len(ev.Text)
	case session.EventStatus:
		fmt.Fprintf(os.Stderr, "\n[ERROR] %v\n", ev.Err)
	}
	return 0
}
