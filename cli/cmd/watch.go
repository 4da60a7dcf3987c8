package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"deadman/cli/style"
)

const maxWatchLines = 500

var watchCmd = &cobra.Command{
	Use:   "watch [check-id]",
	Short: "Stream live ping, state and alert events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}
	p := tea.NewProgram(newWatchModel(filter), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- Messages ---

type wsEvent struct {
	Type    string                 `json:"type"`
	CheckID string                 `json:"checkId"`
	Payload map[string]interface{} `json:"payload"`
}

type eventReceived struct {
	evt wsEvent
	at  time.Time
}

type watchConnected struct{ ch chan tea.Msg }
type watchClosed struct{ err error }

// --- Model ---

type watchModel struct {
	filter   string
	spinner  spinner.Model
	viewport viewport.Model
	lines    []string
	ready    bool
	status   string // "connecting" | "streaming" | "closed"
	err      error
	eventCh  chan tea.Msg
	counts   map[string]int
}

func newWatchModel(filter string) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)

	return watchModel{
		filter:  filter,
		spinner: s,
		status:  "connecting",
		counts:  map[string]int{},
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, connectEvents(m.filter))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 3
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case watchConnected:
		m.status = "streaming"
		m.eventCh = msg.ch
		return m, waitForWatchEvent(m.eventCh)

	case eventReceived:
		m.counts[msg.evt.Type]++
		m.appendLine(formatEvent(msg.evt, msg.at))
		return m, waitForWatchEvent(m.eventCh)

	case watchClosed:
		m.status = "closed"
		m.err = msg.err
		m.appendLine(style.DimText.Render("--- stream ended ---"))
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxWatchLines {
		m.lines = m.lines[len(m.lines)-maxWatchLines:]
	}
	if m.ready {
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m watchModel) View() string {
	title := "all checks"
	if m.filter != "" {
		title = m.filter
	}

	var state string
	switch m.status {
	case "connecting":
		state = m.spinner.View() + style.DimText.Render(" connecting")
	case "streaming":
		state = m.spinner.View() + style.DimText.Render(fmt.Sprintf(
			" %d pings, %d down, %d up",
			m.counts["ping.received"], m.counts["check.down"], m.counts["check.up"],
		))
	default:
		state = style.DimText.Render("disconnected")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		style.Banner.Render("☠ WATCH"),
		"  ",
		style.Bold.Render(title),
		"  ",
		state,
		"  ",
		style.DimText.Render("q to quit • ↑↓ to scroll"),
	)

	if m.err != nil {
		header += "\n" + style.ErrorBox.Render(fmt.Sprintf("Error: %s", m.err))
	}
	if !m.ready {
		return header
	}
	return header + "\n" + m.viewport.View()
}

// --- Commands ---

func connectEvents(filter string) tea.Cmd {
	return func() tea.Msg {
		header := map[string][]string{}
		if apiToken != "" {
			header["Authorization"] = []string{"Bearer " + apiToken}
		}
		conn, _, err := websocket.DefaultDialer.Dial(client.WebSocketURL(), header)
		if err != nil {
			return watchClosed{err: fmt.Errorf("websocket connect: %w", err)}
		}

		ch := make(chan tea.Msg, 64)
		go func() {
			defer conn.Close()
			defer close(ch)

			for {
				_, message, err := conn.ReadMessage()
				if err != nil {
					ch <- watchClosed{err: fmt.Errorf("websocket read: %w", err)}
					return
				}

				var evt wsEvent
				if err := json.Unmarshal(message, &evt); err != nil {
					continue
				}
				if filter != "" && evt.CheckID != filter {
					continue
				}
				ch <- eventReceived{evt: evt, at: time.Now()}
			}
		}()

		return watchConnected{ch: ch}
	}
}

func waitForWatchEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return watchClosed{}
		}
		return msg
	}
}

// formatEvent renders one hub event as a log line.
func formatEvent(evt wsEvent, at time.Time) string {
	ts := style.DimText.Render(at.Format("15:04:05"))
	field := func(k string) string {
		s, _ := evt.Payload[k].(string)
		return s
	}

	var label, detail string
	switch evt.Type {
	case "ping.received":
		label = style.Accent.Render(padRight("ping", 7))
		detail = fmt.Sprintf("%s from %s", orDefault(field("type"), "success"), orDefault(field("sourceIp"), "?"))
	case "check.down":
		label = style.Unhealthy.Render(padRight("DOWN", 7))
		detail = orDefault(field("name"), "check") + " missed its deadline"
	case "check.up":
		label = style.Healthy.Render(padRight("UP", 7))
		detail = orDefault(field("name"), "check") + " recovered"
	case "alert.sent":
		label = style.Healthy.Render(padRight("alert", 7))
		detail = fmt.Sprintf("%s %s sent to %s", field("type"), field("kind"), field("target"))
	case "alert.failed":
		label = style.Warning.Render(padRight("alert", 7))
		detail = fmt.Sprintf("%s %s to %s failed: %s", field("type"), field("kind"), field("target"), field("error"))
	default:
		label = style.DimText.Render(padRight(evt.Type, 7))
	}

	return fmt.Sprintf("%s  %s  %s  %s", ts, label, style.DimText.Render(evt.CheckID), detail)
}
