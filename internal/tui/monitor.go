// SPDX-License-Identifier: MIT
package tui

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"audiomon/internal/analysis"
	"audiomon/internal/broadcast"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("#A0A0A0"))
)

const (
	defaultBarWidth = 40
	dialTimeout     = 2 * time.Second
)

var quitKeys = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))

type connectedMsg struct {
	conn   net.Conn
	reader *bufio.Reader
}

type recordMsg struct {
	result analysis.Result
}

// malformedMsg reports a line that did not parse; reading continues.
type malformedMsg struct {
	err error
}

type errMsg struct {
	err error
}

// MonitorModel is a Bubble Tea model that subscribes to the broadcast socket
// and draws one bar per record field.
type MonitorModel struct {
	path   string
	labels []string

	conn      net.Conn
	reader    *bufio.Reader
	result    analysis.Result
	records   uint64
	malformed uint64
	barWidth  int
	err       error
}

// NewMonitorModel creates a monitor for the socket at path. labels name the
// bands in record order; missing labels are numbered.
func NewMonitorModel(path string, labels []string) MonitorModel {
	return MonitorModel{
		path:     path,
		labels:   labels,
		barWidth: defaultBarWidth,
	}
}

// Init dials the socket.
func (m MonitorModel) Init() tea.Cmd {
	return dial(m.path)
}

func dial(path string) tea.Cmd {
	return func() tea.Msg {
		conn, err := net.DialTimeout("unix", path, dialTimeout)
		if err != nil {
			return errMsg{fmt.Errorf("connect to %s: %w", path, err)}
		}
		return connectedMsg{conn: conn, reader: bufio.NewReader(conn)}
	}
}

// readRecord blocks for the next line on r.
func readRecord(r *bufio.Reader) tea.Cmd {
	return func() tea.Msg {
		line, err := r.ReadString('\n')
		if err != nil {
			return errMsg{fmt.Errorf("stream closed: %w", err)}
		}
		res, err := broadcast.ParseRecord(line)
		if err != nil {
			return malformedMsg{err}
		}
		return recordMsg{res}
	}
}

// Update handles input and updates the model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.barWidth = max(msg.Width-labelStyle.GetWidth()-10, 10)

	case connectedMsg:
		m.conn = msg.conn
		m.reader = msg.reader
		return m, readRecord(m.reader)

	case recordMsg:
		m.result = msg.result
		m.records++
		return m, readRecord(m.reader)

	case malformedMsg:
		m.malformed++
		return m, readRecord(m.reader)

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			if m.conn != nil {
				m.conn.Close()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the UI
func (m MonitorModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.\n", m.err)
	}
	if m.conn == nil {
		return fmt.Sprintf("Connecting to %s...\n", m.path)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Audio Monitor"))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderBar("rms", m.result.RMS, true))
	for i, v := range m.result.Bands {
		sb.WriteString(m.renderBar(m.label(i), v, false))
	}

	status := fmt.Sprintf("\n%s • %d records", m.path, m.records)
	if m.malformed > 0 {
		status += fmt.Sprintf(" • %d malformed", m.malformed)
	}
	sb.WriteString(infoStyle.Render(status + " • q: Quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (m MonitorModel) label(i int) string {
	if i < len(m.labels) && m.labels[i] != "" {
		return m.labels[i]
	}
	return fmt.Sprintf("band_%d", i)
}

func (m MonitorModel) renderBar(name string, v float64, highlight bool) string {
	v = analysis.LinearClamp(v)
	filled := int(v*float64(m.barWidth) + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", m.barWidth-filled)
	if highlight {
		bar = highlightStyle.Render(bar)
	}
	return fmt.Sprintf("%s %s %5.1f%%\n", labelStyle.Render(name), bar, v*100)
}

// StartMonitorUI launches the Bubble Tea monitor for the socket at path.
func StartMonitorUI(path string, labels []string) error {
	p := tea.NewProgram(
		NewMonitorModel(path, labels),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
