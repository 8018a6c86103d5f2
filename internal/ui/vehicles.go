package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/state"
)

// vehicleItem adapts a flattened vehicle to the bubbles list.
type vehicleItem struct {
	fleet.FlatVehicle
}

func (i vehicleItem) Title() string {
	if i.Name == "" {
		return i.VehicleID
	}
	return i.Name
}

func (i vehicleItem) Description() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{i.VIN, i.Model, i.Year} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "no VIN"
	}
	return strings.Join(parts, " · ")
}

func (i vehicleItem) FilterValue() string {
	return strings.Join([]string{i.Name, i.VIN, i.Model, i.Year}, " ")
}

func newVehicleList(theme Theme) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Vehicles"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetStatusBarItemName("vehicle", "vehicles")
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)
	applyListTheme(&l, theme)
	return l
}

func applyListTheme(l *list.Model, theme Theme) {
	delegate := list.NewDefaultDelegate()
	selected := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(theme.BorderFocus)).
		Foreground(lipgloss.Color(theme.SelectionText)).
		Padding(0, 0, 0, 1)
	normal := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Text)).
		Padding(0, 0, 0, 2)
	delegate.Styles.SelectedTitle = selected.Bold(true)
	delegate.Styles.SelectedDesc = selected.Foreground(lipgloss.Color(theme.Accent))
	delegate.Styles.NormalTitle = normal
	delegate.Styles.NormalDesc = normal.Foreground(lipgloss.Color(theme.Muted))
	delegate.Styles.DimmedTitle = normal.Foreground(lipgloss.Color(theme.Faint))
	delegate.Styles.DimmedDesc = normal.Foreground(lipgloss.Color(theme.Faint))
	l.SetDelegate(delegate)

	l.Styles.Title = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.Accent)).
		Foreground(lipgloss.Color(theme.Background)).
		Padding(0, 1)
	l.Styles.NoItems = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted)).
		Padding(0, 2)
}

// applySnapshot stores the latest feed state and rebuilds the list when a new
// load has landed.
func (m *Model) applySnapshot(snap state.Snapshot) tea.Cmd {
	m.snapshot = snap
	m.lastUpdated = time.Now()
	if snap.Loads == m.lastLoads {
		return nil
	}
	first := m.lastLoads == 0
	m.lastLoads = snap.Loads

	items := make([]list.Item, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		items = append(items, vehicleItem{v})
	}
	cmd := m.vehicles.SetItems(items)

	if current, ok := m.controller.Selected(); ok && m.vehicles.FilterState() == list.Unfiltered {
		for i, v := range snap.Vehicles {
			if v.VehicleID == current.VehicleID {
				m.vehicles.Select(i)
				break
			}
		}
	}

	// The first load puts the cursor on a vehicle without taking over the
	// panel restored from preferences.
	panel := m.panel
	m.syncSelection()
	if first {
		m.panel = panel
		m.updatePanelViewport()
	}
	return cmd
}

// syncSelection tells the controller about the vehicle under the cursor when
// it differs from the active selection.
func (m *Model) syncSelection() {
	item, ok := m.vehicles.SelectedItem().(vehicleItem)
	if !ok {
		return
	}
	if current, ok := m.controller.Selected(); ok && current.VehicleID == item.VehicleID {
		return
	}
	m.controller.Select(item.FlatVehicle)
	m.drainHost()
}

func (m Model) renderVehicles(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(m.theme.BorderMuted)).
		Render(m.vehicles.View())
}
