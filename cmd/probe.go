// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/spf13/cobra"
)

var probeDuration time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test raw link stability",
	Long: `Open the link and listen without decoding or sending anything.

Every chunk is printed as hex together with its size, and a heartbeat line is
printed each second of silence. Useful for debugging cabling, baud rate and
bridge stability problems before looking at the data itself.

Exit codes:
  0 - Link stayed up for the whole duration
  1 - Link failed during the test
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().DurationVarP(&probeDuration, "duration", "d", 30*time.Second, "Test duration")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}
	opener, err := newOpener()
	if err != nil {
		return err
	}

	conn, err := opener.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Link Stability Probe\n")
	fmt.Printf("Connection: %s\n", conn.Describe())
	fmt.Printf("Duration: %s\n\n", probeDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case readChan <- data:
				case <-stop:
					return
				}
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(probeDuration)
	bytesReceived := 0
	chunksReceived := 0

	fmt.Printf("Listening for data...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			chunksReceived++
			fmt.Printf("[%s] Received %d bytes: %s\n",
				time.Now().Format("15:04:05.000"), len(data), codec.FormatHex(data))

		case err := <-errChan:
			fmt.Printf("\n[%s] Link error: %v\n", time.Now().Format("15:04:05.000"), err)
			printProbeResults(time.Since(start), chunksReceived, bytesReceived)
			fmt.Printf("Result: FAILED (link error)\n")
			conn.Close()
			os.Exit(1)

		case <-time.After(time.Second):
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), remaining)
		}
	}

	printProbeResults(probeDuration, chunksReceived, bytesReceived)
	fmt.Printf("Result: PASSED (link stable)\n")
	return nil
}

func printProbeResults(elapsed time.Duration, chunks, bytes int) {
	fmt.Printf("\n--- Probe Results ---\n")
	fmt.Printf("Duration: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Chunks received: %d\n", chunks)
	fmt.Printf("Bytes received: %d\n", bytes)
}
