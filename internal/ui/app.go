package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/logging"
	"github.com/five82/vininsight/internal/prefs"
	"github.com/five82/vininsight/internal/selection"
	"github.com/five82/vininsight/internal/state"
	"github.com/five82/vininsight/internal/view"
)

// Options configures the UI.
type Options struct {
	Context     context.Context
	Decoder     autodev.Decoder
	Credentials credential.Store
	Backend     string
	Store       *state.Store
	// Refresh reloads the vehicle feed on demand; nil disables the r key.
	Refresh   func(context.Context) error
	PollTick  time.Duration
	ThemeName string
	Panel     view.Panel
	PrefsPath string
	// LogPath is tailed by the activity overlay.
	LogPath string
	Logger  logging.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	store      *state.Store
	refresh    func(context.Context) error
	prefsPath  string
	logPath    string
	pollTick   time.Duration
	log        logging.Logger
	controller *selection.Controller
	host       *host
	keys       keyMap

	// UI state
	theme  Theme
	width  int
	height int
	ready  bool
	status string // transient command bar message

	// Data state
	snapshot    state.Snapshot
	lastLoads   int
	lastUpdated time.Time

	// Vehicles and panels
	vehicles  list.Model
	panel     view.Panel
	panelView viewport.Model
	markdown  *markdownRenderer

	// Settings
	keyInput   textinput.Model
	editingKey bool
	testing    bool
	spinner    spinner.Model

	// Overlays
	showHelp     bool
	modal        Modal
	pending      []view.Notification
	showActivity bool
	activity     activityState
}

// New creates a new Bubble Tea model with its selection controller.
func New(opts Options) (Model, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = defaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	h := &host{}
	controller, err := selection.New(selection.Config{
		Decoder:    opts.Decoder,
		Store:      opts.Credentials,
		Navigation: h,
		View:       h,
		Renderer: view.Renderer{
			DecodeHint:   "Press enter to decode this VIN.",
			SettingsHint: "Press e to edit the key, x to clear it, t to test the connection.",
		},
		Logger:  log,
		Backend: opts.Backend,
	})
	if err != nil {
		return Model{}, fmt.Errorf("init selection controller: %w", err)
	}
	_ = controller.RefreshSettings(ctx)
	h.ShowPanels(controller.Panels())

	theme := GetTheme(themeName)
	m := Model{
		ctx:        ctx,
		store:      opts.Store,
		refresh:    opts.Refresh,
		prefsPath:  prefsPath,
		logPath:    opts.LogPath,
		pollTick:   pollTick,
		log:        log.WithName("ui"),
		controller: controller,
		host:       h,
		keys:       DefaultKeyMap(),
		theme:      theme,
		panel:      opts.Panel,
		vehicles:   newVehicleList(theme),
		panelView:  viewport.New(0, 0),
		markdown:   &markdownRenderer{},
		keyInput:   newKeyInput(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.drainHost()
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		return m, m.applySnapshot(state.Snapshot(msg))

	case decodeDoneMsg:
		if !m.controller.FinishDecode(m.ctx, msg.req, msg.res, msg.err) {
			m.log.Debug("ignored stale decode result", "request_id", msg.req.ID)
		}
		m.drainHost()
		return m, nil

	case testDoneMsg:
		m.testing = false
		m.controller.SetTesting(false)
		m.host.Notify(msg.notice)
		m.drainHost()
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.status = "Reload failed: " + msg.err.Error()
		} else {
			m.status = "Vehicles reloaded"
		}
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "Clipboard unavailable: " + msg.err.Error()
		} else {
			m.status = "Copied raw decode to clipboard"
		}
		return m, nil

	case activityMsg:
		m.activity.apply(msg)
		m.updateActivityViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Let the list process its own internal messages (filter matches etc.).
	var cmd tea.Cmd
	m.vehicles, cmd = m.vehicles.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showActivity {
		return m.renderActivity()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
			m.showNextNotice()
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.showActivity {
		return m.handleActivityKey(msg)
	}

	if m.editingKey {
		return m.handleKeyInput(msg)
	}

	// The list owns the keyboard while its filter prompt is open.
	if m.vehicles.SettingFilter() {
		var cmd tea.Cmd
		m.vehicles, cmd = m.vehicles.Update(msg)
		m.syncSelection()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.setTheme(GetTheme(NextTheme(m.theme.Name)))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Activity):
		m.showActivity = true
		m.updateActivityViewport()
		return m, loadActivityCmd(m.logPath)

	case key.Matches(msg, m.keys.Refresh):
		if m.refresh == nil {
			return m, nil
		}
		m.status = "Reloading vehicles..."
		return m, refreshCmd(m.ctx, m.refresh)

	case key.Matches(msg, m.keys.NextPanel):
		m.setPanel(m.panel.Next())
		return m, nil

	case key.Matches(msg, m.keys.PrevPanel):
		m.setPanel(m.panel.Prev())
		return m, nil

	case key.Matches(msg, m.keys.Overview):
		m.setPanel(view.PanelOverview)
		return m, nil

	case key.Matches(msg, m.keys.Raw):
		m.setPanel(view.PanelRaw)
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.setPanel(view.PanelSettings)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.panelView.PageUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.panelView.PageDown()
		return m, nil

	case key.Matches(msg, m.keys.Decode):
		return m.startDecode()

	case key.Matches(msg, m.keys.Copy):
		res := m.controller.Result()
		if res == nil {
			m.status = "No decode data to copy"
			return m, nil
		}
		return m, copyCmd(res.Pretty())
	}

	if m.panel == view.PanelSettings {
		switch {
		case key.Matches(msg, m.keys.EditKey):
			return m, m.beginKeyEdit()
		case key.Matches(msg, m.keys.ClearKey):
			_ = m.controller.ClearKey(m.ctx)
			m.drainHost()
			return m, nil
		case key.Matches(msg, m.keys.TestConnection):
			return m.startConnectionTest()
		}
	}

	var cmd tea.Cmd
	m.vehicles, cmd = m.vehicles.Update(msg)
	m.syncSelection()
	return m, cmd
}

// startDecode begins a decode of the vehicle under the cursor.
func (m Model) startDecode() (tea.Model, tea.Cmd) {
	m.syncSelection()
	req, err := m.controller.StartDecode(m.ctx)
	m.drainHost()
	switch {
	case errors.Is(err, selection.ErrNoSelection):
		m.status = "Select a vehicle first"
		return m, nil
	case errors.Is(err, selection.ErrDecodeInFlight):
		m.status = "Decode already in progress"
		return m, nil
	case err != nil:
		return m, nil
	}
	m.status = ""
	return m, tea.Batch(decodeCmd(m.ctx, m.controller, req), m.spinner.Tick)
}

// startConnectionTest decodes the test VIN in the background.
func (m Model) startConnectionTest() (tea.Model, tea.Cmd) {
	if m.testing {
		return m, nil
	}
	m.testing = true
	m.controller.SetTesting(true)
	m.drainHost()
	return m, tea.Batch(testConnectionCmd(m.ctx, m.controller), m.spinner.Tick)
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.showActivity {
		cmds = append(cmds, loadActivityCmd(m.logPath))
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// drainHost applies whatever the controller pushed to the host.
func (m *Model) drainHost() {
	if p, ok := m.host.takeActivation(); ok {
		m.panel = p
	}
	m.pending = append(m.pending, m.host.takeNotices()...)
	if m.modal == nil {
		m.showNextNotice()
	}
	m.updatePanelViewport()
}

func (m *Model) showNextNotice() {
	if len(m.pending) == 0 {
		return
	}
	m.modal = noticeModal{notice: m.pending[0]}
	m.pending = m.pending[1:]
}

func (m *Model) setTheme(t Theme) {
	m.theme = t
	applyListTheme(&m.vehicles, t)
	m.updatePanelViewport()
	m.updateActivityViewport()
}

func (m *Model) setPanel(p view.Panel) {
	if p == m.panel {
		return
	}
	m.panel = p
	m.panelView.GotoTop()
	m.updatePanelViewport()
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Panel: m.panel}); err != nil {
		m.log.Warn("save prefs failed", "path", m.prefsPath, "error", err)
	}
}

func (m Model) busy() bool {
	return m.testing || m.controller.InFlight()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type decodeDoneMsg struct {
	req selection.Request
	res *autodev.Result
	err error
}

type testDoneMsg struct {
	notice view.Notification
}

type refreshDoneMsg struct {
	err error
}

type clipboardMsg struct {
	err error
}

type activityMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func decodeCmd(ctx context.Context, c *selection.Controller, req selection.Request) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Execute(ctx, req)
		return decodeDoneMsg{req: req, res: res, err: err}
	}
}

func testConnectionCmd(ctx context.Context, c *selection.Controller) tea.Cmd {
	return func() tea.Msg {
		return testDoneMsg{notice: c.TestConnection(ctx)}
	}
}

func refreshCmd(ctx context.Context, refresh func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: refresh(ctx)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(text)}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
