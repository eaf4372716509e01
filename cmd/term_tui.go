// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thermoquad/sercom/pkg/codec"
	"github.com/Thermoquad/sercom/pkg/modbus"
	"github.com/Thermoquad/sercom/pkg/session"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// Focus states
const (
	focusSendInput = iota
	focusCRCInput
	focusCount
)

// Rows used by everything except the transcript viewport
const chromeHeight = 17

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// logEntry is a status line shown under the transcript
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// termModel is the Bubble Tea model for the interactive terminal
type termModel struct {
	session *session.Session
	saveDir string

	transcript viewport.Model
	sendInput  textinput.Model
	crcInput   textinput.Model
	focused    int

	eventLog []logEntry

	// copyToClipboard is replaced in tests
	copyToClipboard func(string) error

	width    int
	height   int
	linkDown bool
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type sessionEventMsg session.Event

type sessionDoneMsg struct{}

type termTickMsg time.Time

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialTermModel(s *session.Session, saveDir string) termModel {
	send := textinput.New()
	send.Prompt = "> "
	send.Placeholder = "01 03 00 00 00 0A"
	send.Focus()

	crc := textinput.New()
	crc.Prompt = "CRC16 of: "
	crc.Placeholder = "01 03 01 89 00 02"

	vp := viewport.New(76, 10)

	m := termModel{
		session:         s,
		saveDir:         saveDir,
		transcript:      vp,
		sendInput:       send,
		crcInput:        crc,
		focused:         focusSendInput,
		copyToClipboard: clipboard.WriteAll,
		width:           80,
		height:          24,
	}
	m.addLogEntry(fmt.Sprintf("Connected: %s", s.Describe()), false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m termModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForEvent(m.session),
		termTickCmd(),
	)
}

// waitForEvent delivers the next session event to the program
func waitForEvent(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return sessionDoneMsg{}
			}
			return sessionEventMsg(ev)
		case <-s.Done():
			// Events sent just before the loop stopped are still buffered
			select {
			case ev, ok := <-s.Events():
				if ok {
					return sessionEventMsg(ev)
				}
			default:
			}
			return sessionDoneMsg{}
		}
	}
}

func termTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return termTickMsg(t)
	})
}

func (m termModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case termTickMsg:
		// Keeps the statistics bar current
		return m, termTickCmd()

	case sessionEventMsg:
		ev := session.Event(msg)
		if ev.Kind == session.EventStatus {
			var decErr *codec.DecodeError
			if errors.As(ev.Err, &decErr) {
				m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v (shown as hex)", ev.Err), true)
			} else {
				m.addLogEntry(fmt.Sprintf("LINK ERROR: %v", ev.Err), true)
			}
		}
		m.refreshTranscript()
		return m, waitForEvent(m.session)

	case sessionDoneMsg:
		if !m.linkDown {
			m.linkDown = true
			m.addLogEntry("Read loop stopped: reopen sercom to reconnect", true)
		}
		m.refreshTranscript()
		return m, nil
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m termModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		m.cycleFocus()
		return m, nil

	case "enter":
		if m.focused == focusSendInput {
			m.sendPayload()
		}
		return m, nil

	case "f2":
		next := m.session.RxMode().Next()
		m.session.SetRxMode(next)
		m.addLogEntry(fmt.Sprintf("Receive mode: %s", next), false)
		m.refreshTranscript()
		return m, nil

	case "f3":
		next := m.session.TxMode().Next()
		m.session.SetTxMode(next)
		m.addLogEntry(fmt.Sprintf("Send mode: %s", next), false)
		return m, nil

	case "ctrl+r":
		enabled := !m.session.AppendCRC()
		m.session.SetAppendCRC(enabled)
		m.addLogEntry(fmt.Sprintf("Append CRC16: %s", onOff(enabled)), false)
		return m, nil

	case "ctrl+s":
		m.saveTranscript()
		return m, nil

	case "ctrl+y":
		if err := m.copyToClipboard(m.session.Transcript().String()); err != nil {
			m.addLogEntry(fmt.Sprintf("Clipboard copy failed: %v", err), true)
		} else {
			m.addLogEntry("Transcript copied to clipboard", false)
		}
		return m, nil

	case "ctrl+l":
		m.session.ClearTranscript()
		m.refreshTranscript()
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	// Pass through to focused input
	var cmd tea.Cmd
	if m.focused == focusSendInput {
		m.sendInput, cmd = m.sendInput.Update(msg)
	} else {
		m.crcInput, cmd = m.crcInput.Update(msg)
	}
	return m, cmd
}

func (m termModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Header
	s.WriteString(titleStyle.Render("SERCOM TERMINAL"))
	s.WriteString(" ")
	connStatus := m.session.Describe()
	if m.linkDown {
		connStatus = errorStyle.Render("LINK DOWN")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Esc to quit", connStatus)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s\n",
		labelStyle.Render("RX [F2]:"), valueStyle.Render(m.session.RxMode().String()),
		labelStyle.Render("TX [F3]:"), valueStyle.Render(m.session.TxMode().String()),
		labelStyle.Render("CRC [^R]:"), valueStyle.Render(onOff(m.session.AppendCRC())),
	))

	// Transcript
	s.WriteString(boxStyle.Width(m.width - 2).Render(m.transcript.View()))
	s.WriteString("\n")

	// Inputs
	s.WriteString(m.inputBox(focusSendInput).Render(m.sendInput.View()))
	s.WriteString("\n")
	s.WriteString(m.inputBox(focusCRCInput).Render(m.crcInput.View() + "\n" + m.renderCRCResult()))
	s.WriteString("\n")

	// Statistics bar
	stats := m.session.Stats()
	s.WriteString(headerStyle.Render(fmt.Sprintf("RX %d bytes (%.1f B/s) | TX %d bytes | decode errors %d | ^S save ^Y copy ^L clear",
		stats.BytesReceived, stats.ReceiveRate, stats.BytesSent, stats.DecodeErrors)))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog())
	return s.String()
}

func (m termModel) inputBox(field int) lipgloss.Style {
	if m.focused == field {
		return focusedBoxStyle.Width(m.width - 2)
	}
	return boxStyle.Width(m.width - 2)
}

func (m termModel) renderCRCResult() string {
	text := strings.TrimSpace(m.crcInput.Value())
	if text == "" {
		return headerStyle.Render("Enter hex bytes to compute the Modbus CRC16")
	}
	result, err := crcSummary(text)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return valueStyle.Render(result)
}

func (m termModel) renderEventLog() string {
	var s strings.Builder

	logHeight := 4
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		timestamp := entry.timestamp.Format("15:04:05")
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(timestamp),
			style.Render(icon),
			entry.message))
	}
	return s.String()
}

//////////////////////////////////////////////////////////////
// Actions
//////////////////////////////////////////////////////////////

func (m *termModel) sendPayload() {
	input := m.sendInput.Value()
	if strings.TrimSpace(input) == "" {
		return
	}

	if _, err := m.session.Send(input); err != nil {
		m.addLogEntry(fmt.Sprintf("Send failed: %v", err), true)
		return
	}
	m.sendInput.Reset()
	m.refreshTranscript()
}

func (m *termModel) saveTranscript() {
	name := fmt.Sprintf("sercom-%s.txt", time.Now().Format("20060102-150405"))
	path := filepath.Join(m.saveDir, name)
	if err := m.session.Transcript().SaveTo(path); err != nil {
		m.addLogEntry(fmt.Sprintf("Save failed: %v", err), true)
		return
	}
	m.addLogEntry(fmt.Sprintf("Transcript saved to %s", path), false)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// crcSummary renders the CRC of hand-entered hex as "141D (wire: 14 1d)"
func crcSummary(input string) (string, error) {
	frame, err := codec.ParseHex(input)
	if err != nil {
		return "", err
	}
	value := modbus.CRC16(frame)
	wire := strings.TrimSpace(codec.FormatHex(modbus.CRCBytes(frame)))
	return fmt.Sprintf("%s (wire: %s)", modbus.FormatCRC(value), wire), nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func (m *termModel) cycleFocus() {
	m.focused = (m.focused + 1) % focusCount
	if m.focused == focusSendInput {
		m.sendInput.Focus()
		m.crcInput.Blur()
	} else {
		m.crcInput.Focus()
		m.sendInput.Blur()
	}
}

func (m *termModel) refreshTranscript() {
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(m.session.Transcript().String())
	if atBottom {
		m.transcript.GotoBottom()
	}
}

func (m *termModel) resize() {
	height := m.height - chromeHeight
	if height < 3 {
		height = 3
	}
	m.transcript.Width = m.width - 6
	m.transcript.Height = height
	m.sendInput.Width = m.width - 10
	m.crcInput.Width = m.width - 20
	m.refreshTranscript()
}

func (m *termModel) addLogEntry(message string, isError bool) {
	entry := logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}
