package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vininsight/internal/logtail"
)

const activityLines = 500

var activityLevels = []string{"", "INFO", "WARN", "ERROR"}

// activityState backs the overlay that tails the application log.
type activityState struct {
	lines    []string
	err      error
	level    int // index into activityLevels
	view     viewport.Model
	follow   bool
	received bool
}

func (a *activityState) apply(msg activityMsg) {
	a.received = true
	a.err = msg.err
	if msg.err == nil {
		a.lines = msg.lines
	}
}

func (a activityState) minLevel() string {
	return activityLevels[a.level]
}

func loadActivityCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, activityLines)
		return activityMsg{lines: lines, err: err}
	}
}

func (m *Model) layoutActivity() {
	if m.activity.view.Width == 0 {
		m.activity.view = viewport.New(0, 0)
		m.activity.follow = true
	}
	m.activity.view.Width = max(m.width-4, 10)
	m.activity.view.Height = max(m.height-4, 3)
}

// updateActivityViewport re-renders the filtered log tail.
func (m *Model) updateActivityViewport() {
	if m.activity.view.Width == 0 {
		return
	}
	styles := m.theme.Styles()
	var b strings.Builder
	switch {
	case m.activity.err != nil:
		b.WriteString(styles.DangerText.Render("Cannot read log: " + m.activity.err.Error()))
	case !m.activity.received:
		b.WriteString(styles.MutedText.Render("Loading..."))
	case len(m.activity.lines) == 0:
		b.WriteString(styles.MutedText.Render("No activity logged yet"))
	default:
		for i, e := range logtail.Filter(m.activity.lines, m.activity.minLevel()) {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.formatEntry(e, styles))
		}
	}
	m.activity.view.SetContent(b.String())
	if m.activity.follow {
		m.activity.view.GotoBottom()
	}
}

func (m Model) formatEntry(e logtail.Entry, styles Styles) string {
	if e.Level == "" {
		return styles.Text.Render(e.Raw)
	}
	ts := e.Time
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		ts = ts[i+1 : i+9]
	}
	parts := []string{
		styles.FaintText.Render(ts),
		styles.LevelStyle(e.Level).Bold(true).Render(padLevel(e.Level)),
	}
	if e.Logger != "" {
		parts = append(parts, styles.AccentText.Render(e.Logger))
	}
	parts = append(parts, styles.Text.Render(e.Message))
	if e.Fields != "" {
		parts = append(parts, styles.MutedText.Render(e.Fields))
	}
	return strings.Join(parts, " ")
}

func padLevel(level string) string {
	if len(level) >= 5 {
		return level
	}
	return level + strings.Repeat(" ", 5-len(level))
}

// handleActivityKey processes keyboard input while the overlay is open.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "L", "q":
		m.showActivity = false
		return m, nil
	case "f":
		m.activity.level = (m.activity.level + 1) % len(activityLevels)
		m.updateActivityViewport()
		return m, nil
	case " ":
		m.activity.follow = !m.activity.follow
		if m.activity.follow {
			m.activity.view.GotoBottom()
		}
		return m, nil
	case "g", "home":
		m.activity.follow = false
		m.activity.view.GotoTop()
		return m, nil
	case "G", "end":
		m.activity.follow = true
		m.activity.view.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.activity.view, cmd = m.activity.view.Update(msg)
	if m.activity.view.AtBottom() {
		m.activity.follow = true
	} else if msg.Type == tea.KeyUp || msg.Type == tea.KeyPgUp || msg.String() == "k" {
		m.activity.follow = false
	}
	return m, cmd
}

func (m Model) renderActivity() string {
	styles := m.theme.Styles()

	level := m.activity.minLevel()
	if level == "" {
		level = "ALL"
	}
	follow := "paused"
	if m.activity.follow {
		follow = "following"
	}
	title := styles.Text.Bold(true).Render("Activity") + "  " +
		styles.FaintText.Render(truncateMiddle(m.logPath, 50)) + "  " +
		styles.AccentText.Render("f") + styles.MutedText.Render(":"+level) + "  " +
		styles.AccentText.Render("space") + styles.MutedText.Render(":"+follow) + "  " +
		styles.AccentText.Render("esc") + styles.MutedText.Render(":close")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Width(max(m.width-2, 10))

	return title + "\n" + box.Render(m.activity.view.View())
}
