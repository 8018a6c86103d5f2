package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Activity   key.Binding
	Refresh    key.Binding
	Escape     key.Binding

	// Panels
	NextPanel key.Binding
	PrevPanel key.Binding
	Overview  key.Binding
	Raw       key.Binding
	Settings  key.Binding
	PageUp    key.Binding
	PageDown  key.Binding

	// Vehicle actions; Navigate and Filter are handled by the list itself
	Navigate key.Binding
	Filter   key.Binding
	Decode   key.Binding
	Copy     key.Binding

	// Settings actions
	EditKey        key.Binding
	ClearKey       key.Binding
	TestConnection key.Binding

	// Input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Activity: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Activity log"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload vehicles"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close overlay"),
		),

		NextPanel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next panel"),
		),
		PrevPanel: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous panel"),
		),
		Overview: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Overview"),
		),
		Raw: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Raw Decode"),
		),
		Settings: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Settings"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Scroll panel up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Scroll panel down"),
		),

		Navigate: key.NewBinding(
			key.WithKeys("j", "k", "up", "down"),
			key.WithHelp("j/k", "Move up/down"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filter vehicles"),
		),
		Decode: key.NewBinding(
			key.WithKeys("enter", "d"),
			key.WithHelp("enter/d", "Decode VIN"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy raw decode"),
		),

		EditKey: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit API key"),
		),
		ClearKey: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear API key"),
		),
		TestConnection: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Test API connection"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Save"),
		),
	}
}

// FullHelp returns key bindings grouped as in the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Navigate, k.Filter, k.Decode, k.Copy, k.Refresh},
		{k.NextPanel, k.PrevPanel, k.Overview, k.Raw, k.Settings, k.PageDown, k.PageUp},
		{k.EditKey, k.ClearKey, k.TestConnection},
		{k.Activity, k.CycleTheme, k.Help, k.Quit},
	}
}
