package view

import (
	"strings"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/fleet"
)

// DecodeStatus is the decode lifecycle of the selected vehicle.
type DecodeStatus string

const (
	StatusNone    DecodeStatus = "none"
	StatusPending DecodeStatus = "pending"
	StatusSuccess DecodeStatus = "success"
	StatusError   DecodeStatus = "error"
)

// Label is the inline status text shown on the Overview panel.
func (s DecodeStatus) Label(detail string) string {
	switch s {
	case StatusPending:
		return "Decoding..."
	case StatusSuccess:
		return "Decoded"
	case StatusError:
		if detail == "" {
			return "Error"
		}
		return "Error: " + detail
	default:
		return "Not decoded"
	}
}

// Panel identifies one of the three panels.
type Panel int

const (
	PanelOverview Panel = iota
	PanelRaw
	PanelSettings
)

// AllPanels lists every panel in display order.
var AllPanels = []Panel{PanelOverview, PanelRaw, PanelSettings}

func (p Panel) String() string {
	switch p {
	case PanelRaw:
		return "Raw Decode"
	case PanelSettings:
		return "Settings"
	default:
		return "Overview"
	}
}

// Next cycles to the following panel.
func (p Panel) Next() Panel { return (p + 1) % 3 }

// Prev cycles to the previous panel.
func (p Panel) Prev() Panel { return (p + 2) % 3 }

// MarshalText stores the panel by its tab label.
func (p Panel) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts a tab label; unknown labels select the Overview.
func (p *Panel) UnmarshalText(text []byte) error {
	*p = ParsePanel(strings.TrimSpace(string(text)))
	return nil
}

// ParsePanel maps a stored panel name back to a Panel.
func ParsePanel(name string) Panel {
	for _, p := range AllPanels {
		if p.String() == name {
			return p
		}
	}
	return PanelOverview
}

// SettingsState is what the Settings panel shows about the credential.
type SettingsState struct {
	APIKey  string
	Backend string
	Testing bool
}

// State is the input to Render.
type State struct {
	Vehicle  *fleet.FlatVehicle
	Status   DecodeStatus
	Detail   string
	Result   *autodev.Result
	Settings SettingsState
}

// Panels holds rendered panel bodies as Markdown.
type Panels struct {
	Overview string
	Raw      string
	Settings string
}

// Get returns the body for p.
func (p Panels) Get(panel Panel) string {
	switch panel {
	case PanelRaw:
		return p.Raw
	case PanelSettings:
		return p.Settings
	default:
		return p.Overview
	}
}
