// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/sercom/pkg/display"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings merges flags, SERCOM_* environment variables and the optional
// config file. Flags win over the environment, which wins over the file.
var settings *viper.Viper

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "sercom",
	Short: "Serial port assistant",
	Long: `Sercom - A CLI tool for talking to RS-232/RS-485 devices.

Sends and receives bytes in hex, text or packed digit-pair form, stamps the
transcript with arrival times and computes Modbus CRC16 checksums for
hand-entered frames.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600 --data-bits 8 --parity none --stop-bits 1]
  WebSocket: --url ws://host/path [--username user]

Every flag can also be set through a SERCOM_ environment variable
(SERCOM_PORT, SERCOM_BAUD, SERCOM_RX_MODE, ...), a dotenv file given with
--env-file, or a YAML file given with --config. For WebSocket authentication, the password is read from the
SERCOM_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 9600, "Baud rate")
	flags.String("data-bits", "8", "Data bits (5, 6, 7 or 8)")
	flags.String("parity", "none", "Parity (none, odd, even, mark or space)")
	flags.String("stop-bits", "1", "Stop bits (1, 1.5 or 2)")
	flags.Duration("poll-interval", display.DefaultPollInterval, "Read poll interval; gaps over twice this start a new line")

	// Display flags
	flags.String("rx-mode", "hex", "Receive display mode (hex, text or packed)")
	flags.String("tx-mode", "hex", "Send input mode (hex, text or packed)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging flags
	flags.String("log-file", "", "Write structured logs to a rotating file")
	flags.String("log-level", "info", "Log level (debug, info, warn or error)")

	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.StringVar(&envFile, "env-file", "", "Load SERCOM_* variables from a dotenv file")

	settings = newSettings()
}

// newSettings creates a settings store bound to the root persistent flags
func newSettings() *viper.Viper {
	v := viper.New()
	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("SERCOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings loads the dotenv and config files, if any. Variables
// already set in the environment are not overridden by the dotenv file.
func loadSettings(cmd *cobra.Command) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	if configFile == "" {
		return nil
	}

	settings.SetConfigFile(configFile)
	if err := settings.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("config file not found: %s", configFile)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
