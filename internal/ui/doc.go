// Package ui provides the Bubble Tea terminal interface for VIN Insight.
//
// # Layout
//
//	┌ header: feed health, vehicle count, selected vehicle status, spinner ┐
//	├ command bar: context keys, transient status, theme                   ┤
//	│ vehicle list (bubbles/list) │ tabs: Overview | Raw Decode | Settings │
//	│                             │ glamour-rendered panel (viewport)      │
//	└─────────────────────────────┴────────────────────────────────────────┘
//
// # Controller wiring
//
// The Model owns a selection.Controller and passes it a host that implements
// both selection.NavigationHost and selection.ViewHost. Controller calls are
// made from Update; whatever the controller pushed (panels, panel switches,
// notifications) is drained into the Model right after each call.
// Notifications queue up and are shown one at a time as modals.
//
// The decode network call and the connection test run inside tea.Cmd
// functions and report back as messages. FinishDecode decides whether a
// returned result is still current; stale ones are dropped there.
//
// # Data flow
//
// The background poller writes feed loads into state.Store. A tick reads a
// snapshot every second and rebuilds the list only when a new load landed,
// keeping the cursor on the selected vehicle.
//
// # Keys
//
// See DefaultKeyMap. Moving the cursor selects the vehicle under it, enter
// decodes it, and the Settings panel edits the API key in a password
// textinput whose edits are written through to the credential store.
package ui
