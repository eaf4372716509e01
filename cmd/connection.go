// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/display"
	"github.com/Thermoquad/sercom/pkg/link"
	"github.com/Thermoquad/sercom/pkg/logging"
	"github.com/Thermoquad/sercom/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// linkConfig builds the link configuration from the merged settings. Enum
// labels are validated here; range checks are left to Config.Validate.
func linkConfig() (link.Config, error) {
	var errs link.ConfigErrors

	cfg := link.Config{
		PortName:    settings.GetString("port"),
		BaudRate:    settings.GetInt("baud"),
		ReadTimeout: settings.GetDuration("poll-interval"),
	}
	if url := settings.GetString("url"); url != "" {
		cfg.PortName = url
	}

	var err error
	if cfg.DataBits, err = link.ParseDataBits(settings.GetString("data-bits")); err != nil {
		errs = append(errs, err.(link.ConfigError))
	}
	if cfg.Parity, err = link.ParseParity(settings.GetString("parity")); err != nil {
		errs = append(errs, err.(link.ConfigError))
	}
	if cfg.StopBits, err = link.ParseStopBits(settings.GetString("stop-bits")); err != nil {
		errs = append(errs, err.(link.ConfigError))
	}
	if cfg.PortName == "" {
		errs = append(errs, link.ConfigError{Field: "port", Message: "either --port or --url must be specified"})
	}
	if len(errs) > 0 {
		return cfg, errs
	}
	return cfg, nil
}

// displayModes returns the receive and send modes from the settings
func displayModes() (rx, tx codec.DisplayMode, err error) {
	if rx, err = codec.ParseDisplayMode(settings.GetString("rx-mode")); err != nil {
		return rx, tx, fmt.Errorf("--rx-mode: %w", err)
	}
	if tx, err = codec.ParseDisplayMode(settings.GetString("tx-mode")); err != nil {
		return rx, tx, fmt.Errorf("--tx-mode: %w", err)
	}
	return rx, tx, nil
}

// newOpener picks the WebSocket bridge when --url is set, the serial
// driver otherwise
func newOpener() (link.Opener, error) {
	if settings.GetString("url") == "" {
		return link.SerialOpener{}, nil
	}

	username := settings.GetString("username")
	password := ""
	if username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}

	return link.WebSocketOpener{
		Username:      username,
		Password:      password,
		SkipSSLVerify: settings.GetBool("no-ssl-verify"),
	}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("SERCOM_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// newLogger builds the logger for a command. Commands that own the
// terminal pass console=false so records only go to --log-file.
func newLogger(console bool) (*zap.Logger, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = settings.GetString("log-level")
	cfg.File = settings.GetString("log-file")
	if !console {
		cfg.Console = nil
	}
	return logging.New(cfg)
}

// openSession resolves the settings and opens a session on the configured
// link. extra options are applied after the ones derived from flags.
func openSession(ctx context.Context, logger *zap.Logger, extra ...session.Option) (*session.Session, error) {
	cfg, err := linkConfig()
	if err != nil {
		return nil, err
	}
	rx, tx, err := displayModes()
	if err != nil {
		return nil, err
	}
	opener, err := newOpener()
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithRxMode(rx),
		session.WithTxMode(tx),
		session.WithFormatter(display.NewFormatter(cfg.ReadTimeout)),
	}
	return session.Open(ctx, opener, cfg, append(opts, extra...)...)
}
