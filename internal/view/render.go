package view

import (
	"fmt"
	"strings"

	"github.com/five82/vininsight/internal/autodev"
)

const (
	// KeyDocsURL is where users obtain an auto.dev API key.
	KeyDocsURL = "https://docs.auto.dev/v2/products/vin-decode"

	EmptyOverview  = "Select a vehicle to see details"
	RawPlaceholder = "No VIN decode data available"
)

// Renderer maps State to Panels. The hint fields describe the controls the
// host shell binds; blank hints are omitted.
type Renderer struct {
	DecodeHint   string
	SettingsHint string
}

// Render produces all three panels.
func (r Renderer) Render(s State) Panels {
	return Panels{
		Overview: r.Overview(s),
		Raw:      r.Raw(s),
		Settings: r.Settings(s.Settings),
	}
}

// Overview renders the identity, status and decoded fields of the selection.
func (r Renderer) Overview(s State) string {
	if s.Vehicle == nil {
		return EmptyOverview
	}
	v := s.Vehicle
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(v.Name))
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| **VIN** | %s |\n", orDash(v.VIN))
	fmt.Fprintf(&b, "| **Model** | %s |\n", orDash(v.Model))
	fmt.Fprintf(&b, "| **Year** | %s |\n", orDash(v.Year))
	fmt.Fprintf(&b, "| **Vehicle ID** | %s |\n\n", orDash(v.VehicleID))

	fmt.Fprintf(&b, "**Decode Status:** %s\n", s.Status.Label(s.Detail))
	if r.DecodeHint != "" && s.Status != StatusPending {
		fmt.Fprintf(&b, "\n_%s_\n", r.DecodeHint)
	}

	if res := r.current(s); res != nil && s.Status == StatusSuccess {
		b.WriteString("\n## Decoded fields\n\n")
		if len(res.Fields) == 0 {
			b.WriteString("_The response contained no scalar fields._\n")
		} else {
			b.WriteString("| Field | Value |\n|---|---|\n")
			for _, f := range res.Fields {
				fmt.Fprintf(&b, "| **%s** | %s |\n", escape(f.Key), escape(f.Value))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Raw renders the pretty-printed payload for the selected VIN.
func (r Renderer) Raw(s State) string {
	res := r.current(s)
	if res == nil {
		return RawPlaceholder
	}
	return "```json\n" + res.Pretty() + "\n```"
}

// Settings renders the credential panel.
func (r Renderer) Settings(s SettingsState) string {
	var b strings.Builder
	b.WriteString("# Settings\n\n")
	key := "_not set_"
	if masked := Mask(s.APIKey); masked != "" {
		key = "`" + masked + "`"
	}
	fmt.Fprintf(&b, "**auto.dev API Key:** %s\n\n", key)
	if s.Backend != "" {
		fmt.Fprintf(&b, "**Stored in:** %s\n\n", s.Backend)
	}
	fmt.Fprintf(&b, "[Get API key from auto.dev](%s)\n\n", KeyDocsURL)
	fmt.Fprintf(&b, "Uses test VIN: %s\n", autodev.TestVIN)
	if s.Testing {
		b.WriteString("\n_Testing API connection with sample VIN..._\n")
	}
	if r.SettingsHint != "" {
		fmt.Fprintf(&b, "\n_%s_\n", r.SettingsHint)
	}
	return strings.TrimRight(b.String(), "\n")
}

// current returns the result only when it belongs to the selected VIN.
func (r Renderer) current(s State) *autodev.Result {
	if s.Vehicle == nil || s.Result == nil {
		return nil
	}
	if strings.TrimSpace(s.Result.VIN) != strings.TrimSpace(s.Vehicle.VIN) {
		return nil
	}
	return s.Result
}

// Mask hides all but the edges of a secret.
func Mask(secret string) string {
	secret = strings.TrimSpace(secret)
	n := len([]rune(secret))
	switch {
	case n == 0:
		return ""
	case n <= 8:
		return strings.Repeat("•", n)
	default:
		runes := []rune(secret)
		return string(runes[:4]) + strings.Repeat("•", n-8) + string(runes[n-4:])
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return escape(s)
}

var mdEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

func escape(s string) string { return mdEscaper.Replace(s) }
