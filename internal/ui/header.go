package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vininsight/internal/view"
)

// renderMain renders the header, command bar and the list beside the panels.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	bodyHeight := max(m.height-2, 3)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderVehicles(max(m.listWidth()-1, 1), bodyHeight),
		m.renderPanels(),
	))
	return b.String()
}

// renderHeader renders the status bar with feed and decode state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("vininsight", styles.Logo)}
	parts = append(parts, m.feedStatus(styles, bg)...)

	if v, ok := m.controller.Selected(); ok {
		label := v.DecodeStatus.Label("")
		if v.DecodeStatus == view.StatusError {
			label = "Error"
		}
		parts = append(parts,
			bg.Render(truncate(v.Name, 24), styles.Text)+bg.Space()+
				styles.StatusStyle(v.DecodeStatus).Render(label))
	}

	if m.busy() {
		activity := "Decoding"
		if m.testing {
			activity = "Testing API"
		}
		parts = append(parts,
			bg.Render(m.spinner.View(), styles.InfoText)+bg.Space()+bg.Render(activity, styles.InfoText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// feedStatus describes the vehicle source: loading, healthy or failing.
func (m Model) feedStatus(styles Styles, bg BgStyle) []string {
	snap := m.snapshot
	if !snap.HasVehicles {
		if snap.LastError != nil {
			return []string{
				bg.Render("FEED "+classifyFeedError(snap.LastError), styles.DangerText),
				bg.Render("Retrying...", styles.WarningText.Bold(true)),
			}
		}
		return []string{bg.Render("Loading vehicles...", styles.WarningText.Bold(true))}
	}

	var parts []string
	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case snap.LastError != nil:
		parts = append(parts, bg.Render("● STALE", styles.WarningText))
	default:
		parts = append(parts, bg.Render("● FEED", styles.SuccessText))
	}
	parts = append(parts,
		bg.Render("Vehicles:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(snap.Vehicles)), styles.Text))

	if m.width >= 100 {
		if snap.Source != "" {
			parts = append(parts, bg.Render(truncateMiddle(snap.Source, 40), styles.FaintText))
		}
		if !snap.LastUpdated.IsZero() {
			parts = append(parts, bg.Render(snap.LastUpdated.Format("15:04:05"), styles.MutedText))
		}
	}
	return parts
}

// classifyFeedError shortens common load failures for the header.
func classifyFeedError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such file"):
		return "NOT FOUND"
	case strings.Contains(msg, "connection refused"):
		return "UNREACHABLE"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	case strings.Contains(msg, "nested deeper"):
		return "TOO DEEP"
	default:
		return "ERROR"
	}
}

func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"j/k", "Navigate"},
		{"/", "Filter"},
	}

	switch m.panel {
	case view.PanelSettings:
		commands = append(commands,
			cmd{"e", "Edit key"},
			cmd{"x", "Clear"},
			cmd{"t", "Test"},
		)
	case view.PanelRaw:
		commands = append(commands,
			cmd{"enter", "Decode"},
			cmd{"y", "Copy"},
		)
	default:
		commands = append(commands, cmd{"enter", "Decode"})
	}
	commands = append(commands,
		cmd{"tab", "Panel"},
		cmd{"r", "Reload"},
		cmd{"L", "Activity"},
		cmd{"?", "More"},
	)

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.status != "" {
		segments = append(segments, bg.Render(truncate(m.status, 48), styles.WarningText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}
