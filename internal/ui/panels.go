package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vininsight/internal/view"
)

const (
	minListWidth = 28
	maxListWidth = 56
)

// markdownRenderer caches a glamour renderer for one width and style.
type markdownRenderer struct {
	term  *glamour.TermRenderer
	width int
	style string
}

// render returns md as terminal output, or md itself when glamour fails.
func (r *markdownRenderer) render(md string, width int, style string) string {
	if width <= 0 {
		return md
	}
	if style == "" {
		style = "dark"
	}
	if r.term == nil || r.width != width || r.style != style {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(max(width-4, 20)),
		)
		if err != nil {
			return md
		}
		r.term, r.width, r.style = term, width, style
	}
	out, err := r.term.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// layout sizes every component to the current window.
func (m *Model) layout() {
	listWidth := min(max(m.width*2/5, minListWidth), maxListWidth)
	if listWidth > m.width/2 {
		listWidth = m.width / 2
	}
	bodyHeight := max(m.height-2, 3) // header + command bar

	m.vehicles.SetSize(max(listWidth-1, 1), bodyHeight)
	m.panelView.Width = max(m.width-listWidth, 1)
	m.panelView.Height = m.panelHeight()
	m.keyInput.Width = max(m.panelView.Width-len(m.keyInput.Prompt)-4, 10)
	m.layoutActivity()

	m.updatePanelViewport()
	m.updateActivityViewport()
}

func (m Model) listWidth() int {
	return max(m.width-m.panelView.Width, 0)
}

// panelHeight leaves room for the tab bar and, while editing, the key input.
func (m Model) panelHeight() int {
	h := max(m.height-2, 3) - 1
	if m.editingKey {
		h -= 2
	}
	return max(h, 1)
}

// updatePanelViewport re-renders the active panel into the viewport.
func (m *Model) updatePanelViewport() {
	content := m.host.Panels().Get(m.panel)
	m.panelView.SetContent(m.markdown.render(content, m.panelView.Width, m.theme.Markdown))
}

func (m Model) renderPanels() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.panelView.View())
	if m.editingKey {
		styles := m.theme.Styles()
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
			Width(m.panelView.Width).
			Render(m.keyInput.View() + "  " + styles.FaintText.Render("enter save · esc done")))
	}
	return b.String()
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	active := lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.FocusBg)).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true).
		Padding(0, 1)

	tabs := make([]string, 0, len(view.AllPanels))
	for i, p := range view.AllPanels {
		label := string(rune('1'+i)) + " " + p.String()
		if p == m.panel {
			tabs = append(tabs, active.Render(label))
			continue
		}
		tabs = append(tabs, bg.Render(" "+label+" ", styles.MutedText))
	}
	return bg.FillLine(bg.Join(tabs, " "), m.panelView.Width)
}

func newKeyInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "API key: "
	ti.Placeholder = "auto.dev API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	return ti
}

func (m *Model) beginKeyEdit() tea.Cmd {
	m.editingKey = true
	m.keyInput.SetValue(m.controller.APIKey())
	m.keyInput.CursorEnd()
	m.panelView.Height = m.panelHeight()
	return m.keyInput.Focus()
}

func (m *Model) endKeyEdit() {
	m.editingKey = false
	m.keyInput.Blur()
	m.panelView.Height = m.panelHeight()
}

// handleKeyInput routes keys to the API key field. Every edit is written
// through to the credential store; enter confirms the final value.
func (m Model) handleKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.endKeyEdit()
		return m, nil
	case "enter":
		value := m.keyInput.Value()
		m.endKeyEdit()
		_ = m.controller.SaveKey(m.ctx, value)
		m.drainHost()
		return m, nil
	}

	before := m.keyInput.Value()
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	if after := m.keyInput.Value(); after != before {
		_ = m.controller.UpdateKey(m.ctx, after)
		m.drainHost()
	}
	return m, cmd
}
