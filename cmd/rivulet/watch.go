package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/rivulet-dev/rivulet/pkg/hub"
)

func watchCmd() *cobra.Command {
	var (
		addr      string
		maxFrames int
	)

	cmd := &cobra.Command{
		Use:   "watch <topic>",
		Short: "Live terminal viewer for a topic",
		Long: `Attach to a topic on a running hub and display its events live.

The viewer shows each frame as it arrives and stops when the topic
terminates. Similar to 'tail -f' but for a stream.

Examples:
  rivulet watch ticks
  rivulet watch ticks --addr localhost:9000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(addr, args[0], maxFrames)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8080", "Hub address")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 500, "Maximum frames to keep on screen")

	return cmd
}

func runWatch(addr, topic string, maxFrames int) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/" + topic}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}

	model := newWatchModel(topic, addr, maxFrames)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Reader goroutine feeds frames into the program. A read error
	// usually means the server went away.
	go func() {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				program.Send(watchErrMsg{err: err})
				return
			}
			frame, err := hub.DecodeFrame(data)
			if err != nil {
				continue
			}
			program.Send(frameMsg{frame: frame})
			if frame.IsTerminal() {
				return
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}

type frameMsg struct {
	frame hub.Frame
}

type watchErrMsg struct {
	err error
}

// watchModel holds the state for the Bubble Tea viewer.
type watchModel struct {
	topic        string
	addr         string
	maxFrames    int
	frames       []hub.Frame
	terminal     *hub.Frame
	paused       bool
	err          error
	windowWidth  int
	windowHeight int
	started      time.Time
}

func newWatchModel(topic, addr string, maxFrames int) watchModel {
	return watchModel{
		topic:     topic,
		addr:      addr,
		maxFrames: maxFrames,
		started:   time.Now(),
	}
}

// Init implements the Bubble Tea init method.
func (m watchModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			return m, nil
		}

	case frameMsg:
		if m.paused {
			return m, nil
		}
		if msg.frame.IsTerminal() {
			m.terminal = &msg.frame
			return m, nil
		}
		m.frames = append(m.frames, msg.frame)
		if len(m.frames) > m.maxFrames {
			m.frames = m.frames[len(m.frames)-m.maxFrames:]
		}
		return m, nil

	case watchErrMsg:
		if m.terminal == nil {
			m.err = msg.err
		}
		return m, nil
	}

	return m, nil
}

// View implements the Bubble Tea view method.
func (m watchModel) View() string {
	header := m.renderHeader()
	table := m.renderFrames()
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, header, table, footer)
}

func (m watchModel) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render("rivulet watch")

	status := "LIVE"
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	switch {
	case m.err != nil:
		status = "DISCONNECTED"
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	case m.terminal != nil:
		status = strings.ToUpper(string(m.terminal.Kind))
		statusStyle = statusStyle.Foreground(lipgloss.Color("208"))
	case m.paused:
		status = "PAUSED"
		statusStyle = statusStyle.Foreground(lipgloss.Color("226"))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		"  ",
		fmt.Sprintf("%s @ %s | frames: %d | up %s",
			m.topic, m.addr, len(m.frames),
			time.Since(m.started).Round(time.Second)),
		"  ",
		statusStyle.Render(status),
	)

	return lipgloss.JoinVertical(lipgloss.Left, line, "")
}

func (m watchModel) renderFrames() string {
	if len(m.frames) == 0 && m.terminal == nil && m.err == nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("\n  Waiting for events...\n")
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	maxRows := m.windowHeight - 6
	if maxRows < 1 {
		maxRows = len(m.frames)
	}
	start := 0
	if len(m.frames) > maxRows {
		start = len(m.frames) - maxRows
	}

	var rows []string
	for _, f := range m.frames[start:] {
		rows = append(rows, fmt.Sprintf("  %s  %s",
			dim.Render(f.Time.Format("15:04:05.000")),
			truncate(string(f.Data), m.windowWidth-16)))
	}

	if m.terminal != nil {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
		line := fmt.Sprintf("  %s  ── %s", m.terminal.Time.Format("15:04:05.000"), m.terminal.Kind)
		if m.terminal.Error != "" {
			line += ": " + m.terminal.Error
		}
		rows = append(rows, style.Render(line))
	}
	if m.err != nil {
		rows = append(rows, lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render(fmt.Sprintf("  connection lost: %v", m.err)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m watchModel) renderFooter() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("\nControls: [Space] Pause/Resume | [q] Quit")
}

// truncate shortens s to max display runes. Slicing runes, not bytes,
// so multi-byte payloads are never cut mid-character.
func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
