package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/prefs"
	"github.com/five82/vininsight/internal/state"
	"github.com/five82/vininsight/internal/view"
)

const silveradoBody = `{"vin":"3GCUDHEL3NG668790","make":"Chevrolet","model":"Silverado","year":2022,"specs":{"engine":"6.2L V8"}}`

type fakeDecoder struct {
	result *autodev.Result
	err    error
	calls  int
}

func (f *fakeDecoder) Decode(_ context.Context, vin, apiKey string) (*autodev.Result, error) {
	f.calls++
	if err := autodev.Validate(vin, apiKey); err != nil {
		return nil, err
	}
	return f.result, f.err
}

func (f *fakeDecoder) TestConnection(ctx context.Context, apiKey string) (autodev.ConnectionReport, error) {
	res, err := f.Decode(ctx, autodev.TestVIN, apiKey)
	if err != nil {
		return autodev.ConnectionReport{VIN: autodev.TestVIN}, err
	}
	brand, _ := res.Lookup("make")
	model, _ := res.Lookup("model")
	return autodev.ConnectionReport{VIN: autodev.TestVIN, Make: brand, Model: model, Result: res}, nil
}

type fixture struct {
	decoder   *fakeDecoder
	creds     credential.Store
	store     *state.Store
	prefsPath string
	refreshes int
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	res, err := autodev.ParseResult("3GCUDHEL3NG668790", []byte(silveradoBody), time.Now())
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	f := &fixture{
		decoder:   &fakeDecoder{result: res},
		creds:     credential.NewMemoryStore(),
		store:     &state.Store{},
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	if apiKey != "" {
		if err := f.creds.Set(context.Background(), credential.APIKeyName, apiKey); err != nil {
			t.Fatalf("seed api key: %v", err)
		}
	}
	f.store.Update("fleet.json", []fleet.FlatVehicle{
		{Name: "Truck 1", VIN: "3GCUDHEL3NG668790", Model: "Silverado", Year: "2022", VehicleID: "v1"},
		{Name: "Van 2", VIN: "1FTBW3XM5HKA12345", Model: "Transit", Year: "2017", VehicleID: "v2"},
	}, nil)
	return f
}

func (f *fixture) model(t *testing.T, opts Options) Model {
	t.Helper()
	opts.Decoder = f.decoder
	opts.Credentials = f.creds
	opts.Backend = credential.BackendMemory
	opts.Store = f.store
	opts.PrefsPath = f.prefsPath
	if opts.Refresh == nil {
		opts.Refresh = func(context.Context) error {
			f.refreshes++
			return nil
		}
	}
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(t, m, snapshotMsg(f.store.Snapshot()))
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd and any batched commands it expands to.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	for _, msg := range collect(cmd) {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T produced", zero)
	return zero
}

func noticeTitle(m Model) string {
	if n, ok := m.modal.(noticeModal); ok {
		return n.notice.Title
	}
	return ""
}

func TestFirstSnapshotSelectsCursorVehicle(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{Panel: view.PanelSettings})

	v, ok := m.controller.Selected()
	if !ok || v.VehicleID != "v1" {
		t.Fatalf("selected = %+v, %v; want v1", v, ok)
	}
	if m.panel != view.PanelSettings {
		t.Fatalf("panel = %v, want restored Settings", m.panel)
	}
	if len(m.vehicles.Items()) != 2 {
		t.Fatalf("list has %d items, want 2", len(m.vehicles.Items()))
	}
}

func TestCursorMoveSelectsVehicleAndShowsOverview(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{Panel: view.PanelRaw})

	m, _ = press(t, m, "j")

	v, ok := m.controller.Selected()
	if !ok || v.VehicleID != "v2" {
		t.Fatalf("selected = %+v, want v2", v)
	}
	if m.panel != view.PanelOverview {
		t.Fatalf("panel = %v, want Overview after selection", m.panel)
	}
}

func TestDecodeSuccess(t *testing.T) {
	f := newFixture(t, "secret-key")
	m := f.model(t, Options{})

	m, cmd := press(t, m, "enter")
	if m.controller.Status() != view.StatusPending {
		t.Fatalf("status = %q, want pending", m.controller.Status())
	}
	done := find[decodeDoneMsg](t, cmd)
	m = update(t, m, done)

	if m.controller.Status() != view.StatusSuccess {
		t.Fatalf("status = %q, want success", m.controller.Status())
	}
	if !strings.Contains(m.host.Panels().Raw, "specs") {
		t.Fatalf("raw panel missing payload: %q", m.host.Panels().Raw)
	}
	if m.modal != nil {
		t.Fatalf("unexpected notification %q", noticeTitle(m))
	}
}

func TestDecodeWithoutKeyNotifies(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m, cmd := press(t, m, "d")
	if cmd != nil {
		t.Fatal("no decode command expected without a key")
	}
	if got := noticeTitle(m); got != "API Key Required" {
		t.Fatalf("notification = %q, want API Key Required", got)
	}
	if m.controller.Status() != view.StatusNone {
		t.Fatalf("status = %q, want none", m.controller.Status())
	}
	if f.decoder.calls != 0 {
		t.Fatalf("decoder called %d times", f.decoder.calls)
	}

	m, _ = press(t, m, "esc")
	if m.modal != nil {
		t.Fatal("modal should close on esc")
	}
}

func TestDecodeErrorNotifies(t *testing.T) {
	f := newFixture(t, "secret-key")
	f.decoder.result = nil
	f.decoder.err = &autodev.NetworkError{StatusCode: 401, Status: "Unauthorized"}
	m := f.model(t, Options{})

	m, cmd := press(t, m, "enter")
	m = update(t, m, find[decodeDoneMsg](t, cmd))

	if m.controller.Status() != view.StatusError {
		t.Fatalf("status = %q, want error", m.controller.Status())
	}
	if got := noticeTitle(m); got != "Decode Error" {
		t.Fatalf("notification = %q, want Decode Error", got)
	}
}

func TestStaleDecodeIsDiscarded(t *testing.T) {
	f := newFixture(t, "secret-key")
	m := f.model(t, Options{})

	m, cmd := press(t, m, "enter")
	done := find[decodeDoneMsg](t, cmd)

	m, _ = press(t, m, "j")
	m = update(t, m, done)

	v, _ := m.controller.Selected()
	if v.VehicleID != "v2" {
		t.Fatalf("selected = %q, want v2", v.VehicleID)
	}
	if m.controller.Result() != nil {
		t.Fatal("stale result must not be applied")
	}
	if m.controller.Status() != view.StatusNone {
		t.Fatalf("status = %q, want none", m.controller.Status())
	}
}

func TestSettingsKeyEditWritesThrough(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})
	ctx := context.Background()

	m, _ = press(t, m, "3")
	m, _ = press(t, m, "e")
	if !m.editingKey {
		t.Fatal("expected key editing mode")
	}
	m, _ = press(t, m, "abc")

	got, ok, err := f.creds.Get(ctx, credential.APIKeyName)
	if err != nil || !ok || got != "abc" {
		t.Fatalf("stored key = %q, %v, %v; want abc", got, ok, err)
	}

	m, _ = press(t, m, "enter")
	if m.editingKey {
		t.Fatal("enter should leave editing mode")
	}
	if got := noticeTitle(m); got != "Success" {
		t.Fatalf("notification = %q, want Success", got)
	}
}

func TestSettingsClearKey(t *testing.T) {
	f := newFixture(t, "secret-key")
	m := f.model(t, Options{})

	m, _ = press(t, m, "3")
	m, _ = press(t, m, "x")

	if _, ok, _ := f.creds.Get(context.Background(), credential.APIKeyName); ok {
		t.Fatal("key should be removed")
	}
	if got := noticeTitle(m); got != "Cleared" {
		t.Fatalf("notification = %q, want Cleared", got)
	}
}

func TestConnectionTest(t *testing.T) {
	f := newFixture(t, "secret-key")
	m := f.model(t, Options{Panel: view.PanelSettings})
	selected, _ := m.controller.Selected()

	m, cmd := press(t, m, "t")
	if !m.testing {
		t.Fatal("expected testing indicator")
	}
	m = update(t, m, find[testDoneMsg](t, cmd))

	if m.testing {
		t.Fatal("testing indicator should clear")
	}
	n, ok := m.modal.(noticeModal)
	if !ok || n.notice.Title != "API Test Successful" {
		t.Fatalf("notification = %+v", m.modal)
	}
	if !strings.Contains(n.notice.Message, "Chevrolet") || !strings.Contains(n.notice.Message, "Silverado") {
		t.Fatalf("message = %q", n.notice.Message)
	}
	after, _ := m.controller.Selected()
	if after.VehicleID != selected.VehicleID || m.controller.Result() != nil {
		t.Fatal("connection test must not change selection or result")
	}
}

func TestNotificationsQueue(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m.host.Notify(view.KeySaved())
	m.host.Notify(view.KeyCleared())
	m.drainHost()

	if got := noticeTitle(m); got != "Success" {
		t.Fatalf("first notification = %q", got)
	}
	m, _ = press(t, m, "enter")
	if got := noticeTitle(m); got != "Cleared" {
		t.Fatalf("second notification = %q", got)
	}
	m, _ = press(t, m, "enter")
	if m.modal != nil {
		t.Fatal("queue should be empty")
	}
}

func TestThemeCycleSavesPrefs(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{ThemeName: "Dracula"})

	m, _ = press(t, m, "T")
	if m.theme.Name != "Nightfox" {
		t.Fatalf("theme = %q, want Nightfox", m.theme.Name)
	}
	p, _ := prefs.Load(f.prefsPath)
	if p.Theme != "Nightfox" {
		t.Fatalf("saved theme = %q, want Nightfox", p.Theme)
	}
}

func TestPanelSwitchSavesPrefs(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m, _ = press(t, m, "tab")
	if m.panel != view.PanelRaw {
		t.Fatalf("panel = %v, want Raw", m.panel)
	}
	p, _ := prefs.Load(f.prefsPath)
	if p.Panel != view.PanelRaw {
		t.Fatalf("saved panel = %v", p.Panel)
	}
}

func TestCopyWithoutResult(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m, cmd := press(t, m, "y")
	if cmd != nil {
		t.Fatal("nothing to copy, expected no command")
	}
	if m.status != "No decode data to copy" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestRefreshKey(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m, cmd := press(t, m, "r")
	done := find[refreshDoneMsg](t, cmd)
	if f.refreshes != 1 {
		t.Fatalf("refresh called %d times", f.refreshes)
	}
	m = update(t, m, done)
	if m.status != "Vehicles reloaded" {
		t.Fatalf("status = %q", m.status)
	}

	m = update(t, m, refreshDoneMsg{err: errors.New("boom")})
	if !strings.Contains(m.status, "boom") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestHelpOverlay(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help overlay not rendered")
	}
	m, _ = press(t, m, "x")
	if m.showHelp {
		t.Fatal("any key should close help")
	}
}

func TestActivityOverlay(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vininsight.log")
	lines := "2026-10-19T10:00:00.000Z\tINFO\tvininsight.selection\tdecode started\t{\"vin\": \"3GCUDHEL3NG668790\"}\n" +
		"2026-10-19T10:00:01.000Z\tDEBUG\tvininsight.poller\tfeed loaded\n"
	if err := os.WriteFile(logPath, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	f := newFixture(t, "")
	m := f.model(t, Options{LogPath: logPath})

	m, cmd := press(t, m, "L")
	m = update(t, m, find[activityMsg](t, cmd))
	out := m.View()
	if !strings.Contains(out, "decode started") || !strings.Contains(out, "feed loaded") {
		t.Fatalf("activity view missing entries:\n%s", out)
	}

	m, _ = press(t, m, "f") // INFO and above
	if strings.Contains(m.View(), "feed loaded") {
		t.Fatal("debug entry should be filtered out")
	}

	m, _ = press(t, m, "esc")
	if m.showActivity {
		t.Fatal("esc should close the activity overlay")
	}
}

func TestMainViewRenders(t *testing.T) {
	f := newFixture(t, "")
	m := f.model(t, Options{})

	out := m.View()
	for _, want := range []string{"vininsight", "Truck 1", "Overview", "Raw Decode", "Settings"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestHostTakeActivationResets(t *testing.T) {
	h := &host{}
	h.ActivatePanel(view.PanelRaw)
	if p, ok := h.takeActivation(); !ok || p != view.PanelRaw {
		t.Fatalf("takeActivation = %v, %v", p, ok)
	}
	if _, ok := h.takeActivation(); ok {
		t.Fatal("activation should reset after take")
	}
}
