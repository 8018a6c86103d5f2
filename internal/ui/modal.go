package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vininsight/internal/view"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// noticeModal shows one notification until dismissed.
type noticeModal struct {
	notice view.Notification
}

func (n noticeModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return n, nil, false
	}
	if key.Matches(k, keys.Confirm, keys.Escape) || k.String() == " " {
		return n, nil, true
	}
	if key.Matches(k, keys.Quit) && k.String() == "ctrl+c" {
		return n, tea.Quit, true
	}
	return n, nil, false
}

func (n noticeModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	border := theme.Accent
	switch n.notice.Level {
	case view.LevelSuccess:
		border = theme.Success
	case view.LevelWarn:
		border = theme.Warning
	case view.LevelError:
		border = theme.Danger
	}

	var b strings.Builder
	b.WriteString(styles.LevelStyle(string(n.notice.Level)).Bold(true).Render(n.notice.Title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(n.notice.Message))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("enter/esc to close"))

	modalWidth := min(60, max(width-4, 20))
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
