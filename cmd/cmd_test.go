// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/link"
	"github.com/Thermoquad/sercom/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
)

// freshSettings gives the test its own settings store, so values set with
// Set never outlive the test
func freshSettings(t *testing.T) {
	t.Helper()
	previous := settings
	settings = newSettings()
	t.Cleanup(func() { settings = previous })
}

// withSettings overrides settings for one test
func withSettings(t *testing.T, values map[string]any) {
	t.Helper()
	freshSettings(t)
	for key, value := range values {
		settings.Set(key, value)
	}
}

// ============================================================
// Settings Tests
// ============================================================

func TestLinkConfig_Defaults(t *testing.T) {
	withSettings(t, map[string]any{"port": "/dev/ttyUSB0"})

	cfg, err := linkConfig()
	if err != nil {
		t.Fatalf("linkConfig error: %v", err)
	}
	if cfg.String() != "/dev/ttyUSB0 @ 9600 8N1" {
		t.Errorf("unexpected config %s", cfg)
	}
	if cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("ReadTimeout = %s", cfg.ReadTimeout)
	}
}

func TestLinkConfig_InvalidLabels(t *testing.T) {
	withSettings(t, map[string]any{
		"port":      "/dev/ttyUSB0",
		"data-bits": "9",
		"parity":    "sometimes",
	})

	_, err := linkConfig()
	var cfgErrs link.ConfigErrors
	if !errors.As(err, &cfgErrs) {
		t.Fatalf("expected ConfigErrors, got %v", err)
	}
	if !cfgErrs.Has("data_bits") || !cfgErrs.Has("parity") || cfgErrs.Has("stop_bits") {
		t.Errorf("unexpected fields in %v", cfgErrs)
	}
}

func TestLinkConfig_NoPort(t *testing.T) {
	withSettings(t, map[string]any{"port": "", "url": ""})

	_, err := linkConfig()
	var cfgErrs link.ConfigErrors
	if !errors.As(err, &cfgErrs) {
		t.Fatalf("expected ConfigErrors without --port or --url, got %v", err)
	}
	if !cfgErrs.Has("port") {
		t.Errorf("expected a port problem in %v", cfgErrs)
	}
}

func TestLinkConfig_NoPortWithInvalidLabels(t *testing.T) {
	withSettings(t, map[string]any{"port": "", "url": "", "stop-bits": "3"})

	_, err := linkConfig()
	var cfgErrs link.ConfigErrors
	if !errors.As(err, &cfgErrs) {
		t.Fatalf("expected ConfigErrors, got %v", err)
	}
	if !cfgErrs.Has("port") || !cfgErrs.Has("stop_bits") {
		t.Errorf("expected every problem reported together, got %v", cfgErrs)
	}
}

func TestLinkConfig_URLWins(t *testing.T) {
	withSettings(t, map[string]any{"port": "/dev/ttyUSB0", "url": "ws://bridge.local/serial"})

	cfg, err := linkConfig()
	if err != nil {
		t.Fatalf("linkConfig error: %v", err)
	}
	if cfg.PortName != "ws://bridge.local/serial" {
		t.Errorf("PortName = %s", cfg.PortName)
	}
	if _, ok := mustOpener(t).(link.WebSocketOpener); !ok {
		t.Error("expected WebSocket opener when --url is set")
	}
}

func TestDisplayModes(t *testing.T) {
	withSettings(t, map[string]any{"rx-mode": "Packed", "tx-mode": "text"})

	rx, tx, err := displayModes()
	if err != nil {
		t.Fatalf("displayModes error: %v", err)
	}
	if rx != codec.ModePackedDigitPairs || tx != codec.ModeText {
		t.Errorf("got rx=%s tx=%s", rx, tx)
	}

	settings.Set("tx-mode", "octal")
	if _, _, err := displayModes(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLoadSettings_Files(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "sercom.env")
	yamlPath := filepath.Join(dir, "sercom.yaml")
	if err := os.WriteFile(envPath, []byte("SERCOM_BAUD=19200\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte("rx-mode: text\n"), 0644); err != nil {
		t.Fatal(err)
	}
	freshSettings(t)
	t.Cleanup(func() {
		os.Unsetenv("SERCOM_BAUD")
		envFile, configFile = "", ""
	})

	envFile, configFile = envPath, yamlPath
	if err := loadSettings(rootCmd); err != nil {
		t.Fatalf("loadSettings error: %v", err)
	}

	if got := settings.GetInt("baud"); got != 19200 {
		t.Errorf("baud = %d, want 19200 from env file", got)
	}
	if got := settings.GetString("rx-mode"); got != "text" {
		t.Errorf("rx-mode = %q, want text from config file", got)
	}
}

func TestLoadSettings_OverridesDoNotLeak(t *testing.T) {
	freshSettings(t)
	t.Run("override", func(t *testing.T) {
		withSettings(t, map[string]any{"rx-mode": "packed"})
	})

	yamlPath := filepath.Join(t.TempDir(), "sercom.yaml")
	if err := os.WriteFile(yamlPath, []byte("rx-mode: text\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { configFile = "" })
	configFile = yamlPath

	if err := loadSettings(rootCmd); err != nil {
		t.Fatalf("loadSettings error: %v", err)
	}
	if got := settings.GetString("rx-mode"); got != "text" {
		t.Errorf("rx-mode = %q, an earlier test's override leaked past the config file", got)
	}
}

func TestLoadSettings_MissingConfig(t *testing.T) {
	freshSettings(t)
	t.Cleanup(func() { configFile = "" })
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := loadSettings(rootCmd); err == nil {
		t.Error("expected error for missing config file")
	}
}

func mustOpener(t *testing.T) link.Opener {
	t.Helper()
	opener, err := newOpener()
	if err != nil {
		t.Fatalf("newOpener error: %v", err)
	}
	return opener
}

// ============================================================
// CRC Command Tests
// ============================================================

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		crcAppend, crcVerify = false, false
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out.String()
}

func TestCRCCommand(t *testing.T) {
	if got := runCommand(t, "crc", "01", "03", "01", "89", "00", "02"); got != "141D\n" {
		t.Errorf("crc output = %q", got)
	}
}

func TestCRCCommand_Append(t *testing.T) {
	if got := runCommand(t, "crc", "--append", "010301890002"); got != "01 03 01 89 00 02 14 1d\n" {
		t.Errorf("crc --append output = %q", got)
	}
}

func TestCRCCommand_Verify(t *testing.T) {
	if got := runCommand(t, "crc", "--verify", "01 03 01 89 00 02 14 1D"); got != "OK: 141D\n" {
		t.Errorf("crc --verify output = %q", got)
	}
}

func TestCRCSummary(t *testing.T) {
	got, err := crcSummary("0x01 0x03 0x00 0x00 0x00 0x0A")
	if err != nil {
		t.Fatalf("crcSummary error: %v", err)
	}
	if got != "C5CD (wire: c5 cd)" {
		t.Errorf("crcSummary = %q", got)
	}

	var decErr *codec.DecodeError
	if _, err := crcSummary("01 3"); !errors.As(err, &decErr) {
		t.Errorf("expected DecodeError, got %v", err)
	}
}

// ============================================================
// Terminal Model Tests
// ============================================================

func newTestTermModel(t *testing.T) (termModel, *link.MockLink) {
	t.Helper()
	mock := link.NewMockLink("/dev/ttyTEST", 10*time.Millisecond)
	s, err := session.Open(context.Background(), &link.MockOpener{Link: mock}, link.DefaultConfig("/dev/ttyTEST"))
	if err != nil {
		t.Fatalf("session.Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	m := initialTermModel(s, t.TempDir())
	m.copyToClipboard = func(string) error { return nil }
	return m, mock
}

func press(m termModel, msgs ...tea.Msg) termModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(termModel)
	}
	return m
}

func typeText(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func TestTermModel_SendWithCRC(t *testing.T) {
	m, mock := newTestTermModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlR}, typeText("01 03 01 89 00 02"), tea.KeyMsg{Type: tea.KeyEnter})

	want := []byte{0x01, 0x03, 0x01, 0x89, 0x00, 0x02, 0x14, 0x1D}
	if !bytes.Equal(mock.Written(), want) {
		t.Errorf("written % X, want % X", mock.Written(), want)
	}
	if m.sendInput.Value() != "" {
		t.Error("send input should be cleared after sending")
	}
	if !strings.Contains(m.session.Transcript().String(), "TX 01 03 01 89 00 02 14 1d") {
		t.Errorf("transcript = %q", m.session.Transcript().String())
	}
}

func TestTermModel_SendErrorIsLogged(t *testing.T) {
	m, mock := newTestTermModel(t)

	m = press(m, typeText("zz"), tea.KeyMsg{Type: tea.KeyEnter})

	if len(mock.Writes()) != 0 {
		t.Error("invalid hex must not be written")
	}
	last := m.eventLog[len(m.eventLog)-1]
	if !last.isError || !strings.Contains(last.message, "Send failed") {
		t.Errorf("unexpected log entry %+v", last)
	}
	if m.sendInput.Value() != "zz" {
		t.Error("input should be kept after a failed send")
	}
}

func TestTermModel_ModeKeys(t *testing.T) {
	m, _ := newTestTermModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyF2}, tea.KeyMsg{Type: tea.KeyF3}, tea.KeyMsg{Type: tea.KeyF3})

	if m.session.RxMode() != codec.ModeText {
		t.Errorf("RxMode = %s", m.session.RxMode())
	}
	if m.session.TxMode() != codec.ModePackedDigitPairs {
		t.Errorf("TxMode = %s", m.session.TxMode())
	}
}

func TestTermModel_FocusAndCRCField(t *testing.T) {
	m, mock := newTestTermModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, typeText("01 03 01 89 00 02"), tea.KeyMsg{Type: tea.KeyEnter})

	if m.focused != focusCRCInput {
		t.Fatalf("focused = %d", m.focused)
	}
	if len(mock.Writes()) != 0 {
		t.Error("enter in the CRC field must not send")
	}
	if !strings.Contains(m.renderCRCResult(), "141D") {
		t.Errorf("CRC result = %q", m.renderCRCResult())
	}
}

func TestTermModel_SaveCopyClear(t *testing.T) {
	m, _ := newTestTermModel(t)
	var copied string
	m.copyToClipboard = func(s string) error {
		copied = s
		return nil
	}

	m = press(m, typeText("aa"), tea.KeyMsg{Type: tea.KeyEnter})
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlS}, tea.KeyMsg{Type: tea.KeyCtrlY})

	saved, _ := filepath.Glob(filepath.Join(m.saveDir, "sercom-*.txt"))
	if len(saved) != 1 {
		t.Errorf("expected one saved transcript, found %v", saved)
	}
	if !strings.Contains(copied, "TX aa") {
		t.Errorf("clipboard got %q", copied)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.session.Transcript().NonEmpty() {
		t.Error("ctrl+l should clear the transcript")
	}
}

func TestTermModel_StatusEvents(t *testing.T) {
	m, _ := newTestTermModel(t)

	decErr := &codec.DecodeError{Mode: codec.ModeText, Err: codec.ErrInvalidUTF8}
	m = press(m, sessionEventMsg(session.Event{Kind: session.EventStatus, Err: decErr}))
	if last := m.eventLog[len(m.eventLog)-1]; !strings.Contains(last.message, "DECODE ERROR") {
		t.Errorf("unexpected log entry %+v", last)
	}

	m = press(m, sessionDoneMsg{})
	if !m.linkDown || !strings.Contains(m.View(), "LINK DOWN") {
		t.Error("view should report the stopped read loop")
	}
}

func TestTermModel_Quit(t *testing.T) {
	m, _ := newTestTermModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(termModel).quitting || cmd == nil {
		t.Error("esc should quit")
	}
}
