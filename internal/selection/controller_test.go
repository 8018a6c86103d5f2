package selection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/view"
)

const silverado = `{"make":"Chevrolet","model":"Silverado","year":2022,"specs":{"trim":"LT"}}`

type recordingHost struct {
	mu       sync.Mutex
	panels   []view.Panels
	notices  []view.Notification
	activate []view.Panel
}

func (h *recordingHost) ShowPanels(p view.Panels) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panels = append(h.panels, p)
}

func (h *recordingHost) Notify(n view.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
}

func (h *recordingHost) ActivatePanel(p view.Panel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activate = append(h.activate, p)
}

func (h *recordingHost) last() view.Panels {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.panels) == 0 {
		return view.Panels{}
	}
	return h.panels[len(h.panels)-1]
}

type fixture struct {
	ctrl  *Controller
	host  *recordingHost
	store credential.Store
	hits  *atomic.Int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := autodev.NewClient(server.URL)
	require.NoError(t, err)

	host := &recordingHost{}
	store := credential.NewMemoryStore()
	ctrl, err := New(Config{
		Decoder:    client,
		Store:      store,
		Navigation: host,
		View:       host,
		Backend:    credential.BackendMemory,
	})
	require.NoError(t, err)
	return &fixture{ctrl: ctrl, host: host, store: store, hits: &hits}
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func vehicle(id, vin string) fleet.FlatVehicle {
	return fleet.FlatVehicle{Name: "Vehicle " + id, VIN: vin, Model: "Silverado", Year: "2022", VehicleID: id}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	host := &recordingHost{}
	_, err := New(Config{Store: credential.NewMemoryStore(), Navigation: host, View: host})
	assert.Error(t, err)
	_, err = New(Config{Decoder: &autodev.Client{}, Navigation: host, View: host})
	assert.Error(t, err)
}

func TestSelect_IgnoresEntriesWithoutVehicleID(t *testing.T) {
	f := newFixture(t, respond(silverado))

	assert.False(t, f.ctrl.Select(fleet.FlatVehicle{Name: "Group", VIN: "X"}))
	_, ok := f.ctrl.Selected()
	assert.False(t, ok)
	assert.Empty(t, f.host.panels)
}

func TestSelect_ShowsBlankOverviewAndActivatesIt(t *testing.T) {
	f := newFixture(t, respond(silverado))

	require.True(t, f.ctrl.Select(vehicle("1", "VIN1")))
	sel, ok := f.ctrl.Selected()
	require.True(t, ok)
	assert.Equal(t, view.StatusNone, sel.DecodeStatus)
	assert.Equal(t, []view.Panel{view.PanelOverview}, f.host.activate)
	assert.Contains(t, f.host.last().Overview, "Not decoded")
	assert.Equal(t, view.RawPlaceholder, f.host.last().Raw)
}

func TestSelectingAnotherVehicleDiscardsResult(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("a", "VINA"))
	require.NoError(t, f.ctrl.Decode(ctx))
	require.NotNil(t, f.ctrl.Result())
	assert.Equal(t, view.StatusSuccess, f.ctrl.Status())
	assert.Contains(t, f.host.last().Raw, `"specs"`)

	f.ctrl.Select(vehicle("b", "VINB"))
	assert.Nil(t, f.ctrl.Result())
	assert.Equal(t, view.StatusNone, f.ctrl.Status())
	assert.Equal(t, view.RawPlaceholder, f.host.last().Raw)
	assert.NotContains(t, f.host.last().Overview, "Chevrolet")
}

func TestDecode_ValidationIssuesNoRequest(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()

	// empty key
	f.ctrl.Select(vehicle("1", "VIN1"))
	err := f.ctrl.Decode(ctx)
	var verr *autodev.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, autodev.FieldAPIKey, verr.Field)
	assert.Equal(t, view.StatusNone, f.ctrl.Status())

	// empty VIN
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "validKey"))
	f.ctrl.Select(vehicle("2", "  "))
	err = f.ctrl.Decode(ctx)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, autodev.FieldVIN, verr.Field)

	assert.Equal(t, int32(0), f.hits.Load())
	require.Len(t, f.host.notices, 2)
	assert.Equal(t, "API Key Required", f.host.notices[0].Title)
	assert.Equal(t, "VIN not specified", f.host.notices[1].Message)
}

func TestDecode_NoSelection(t *testing.T) {
	f := newFixture(t, respond(silverado))
	assert.ErrorIs(t, f.ctrl.Decode(context.Background()), ErrNoSelection)
}

func TestDecode_MalformedBodySetsErrorAndClearsResult(t *testing.T) {
	var body atomic.Value
	body.Store(silverado)
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body.Load().(string)))
	})
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("1", "VIN1"))
	require.NoError(t, f.ctrl.Decode(ctx))
	require.NotNil(t, f.ctrl.Result())

	body.Store("<html>oops</html>")
	err := f.ctrl.Decode(ctx)
	var perr *autodev.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, view.StatusError, f.ctrl.Status())
	assert.Nil(t, f.ctrl.Result())
	assert.Equal(t, view.RawPlaceholder, f.host.last().Raw)
	assert.Contains(t, f.host.last().Overview, "Error: Failed to parse API response")

	last := f.host.notices[len(f.host.notices)-1]
	assert.Equal(t, "Decode Error", last.Title)
}

func TestDecode_SuccessSummaryExcludesNestedFields(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("1", "VIN1"))
	require.NoError(t, f.ctrl.Decode(ctx))

	res := f.ctrl.Result()
	require.NotNil(t, res)
	keys := make([]string, 0, len(res.Fields))
	for _, field := range res.Fields {
		keys = append(keys, field.Key)
	}
	assert.Equal(t, []string{"make", "model", "year"}, keys)

	panels := f.host.last()
	for _, key := range []string{"make", "model", "year", "specs"} {
		assert.Contains(t, panels.Raw, `"`+key+`"`)
	}
	assert.Contains(t, panels.Overview, "Decoded")
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestDecode_NetworkErrorSetsErrorStatus(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("1", "VIN1"))
	err := f.ctrl.Decode(ctx)
	var nerr *autodev.NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, view.StatusError, f.ctrl.Status())
	assert.Contains(t, f.host.last().Overview, "Error: API request failed: Forbidden")
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("a", "VINA"))
	req, err := f.ctrl.StartDecode(ctx)
	require.NoError(t, err)
	assert.Equal(t, view.StatusPending, f.ctrl.Status())
	assert.NotEmpty(t, req.ID)

	res, err := f.ctrl.Execute(ctx, req)
	require.NoError(t, err)

	f.ctrl.Select(vehicle("b", "VINB"))
	before := f.host.last()

	assert.False(t, f.ctrl.FinishDecode(ctx, req, res, nil))
	assert.Equal(t, before, f.host.last())
	assert.Nil(t, f.ctrl.Result())
	assert.Equal(t, view.StatusNone, f.ctrl.Status())
	sel, _ := f.ctrl.Selected()
	assert.Equal(t, "b", sel.VehicleID)
}

func TestStaleResponseForReselectedVehicleIsDiscarded(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("a", "VINA"))
	req, err := f.ctrl.StartDecode(ctx)
	require.NoError(t, err)

	// Same vehicle selected again: the old request belongs to an older generation.
	f.ctrl.Select(vehicle("a", "VINA"))
	assert.False(t, f.ctrl.FinishDecode(ctx, req, nil, errors.New("late failure")))
	assert.Equal(t, view.StatusNone, f.ctrl.Status())
	assert.Empty(t, f.host.notices)
}

func TestStartDecode_RejectsSecondInFlight(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("a", "VINA"))
	req, err := f.ctrl.StartDecode(ctx)
	require.NoError(t, err)
	assert.True(t, f.ctrl.InFlight())

	_, err = f.ctrl.StartDecode(ctx)
	assert.ErrorIs(t, err, ErrDecodeInFlight)

	res, err := f.ctrl.Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, f.ctrl.FinishDecode(ctx, req, res, nil))
	assert.False(t, f.ctrl.InFlight())
	assert.False(t, f.ctrl.FinishDecode(ctx, req, res, nil), "a finished request cannot be applied twice")
}

func TestTestConnection_LeavesStateUntouched(t *testing.T) {
	var path atomic.Value
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		_, _ = w.Write([]byte(silverado))
	})
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, credential.APIKeyName, "key"))

	f.ctrl.Select(vehicle("a", "VINA"))
	panelsBefore := f.ctrl.Panels()

	n := f.ctrl.TestConnection(ctx)
	assert.Equal(t, "API Test Successful", n.Title)
	assert.Contains(t, n.Message, "Chevrolet")
	assert.Contains(t, n.Message, "Silverado")
	assert.Equal(t, "/vin/"+autodev.TestVIN, path.Load())

	assert.Nil(t, f.ctrl.Result())
	assert.Equal(t, view.StatusNone, f.ctrl.Status())
	assert.Equal(t, panelsBefore, f.ctrl.Panels())
	sel, _ := f.ctrl.Selected()
	assert.Equal(t, "a", sel.VehicleID)
}

func TestTestConnection_MissingKey(t *testing.T) {
	f := newFixture(t, respond(silverado))
	n := f.ctrl.TestConnection(context.Background())
	assert.Equal(t, "API Key Required", n.Title)
	assert.Equal(t, int32(0), f.hits.Load())
}

func TestKeyLifecycle(t *testing.T) {
	f := newFixture(t, respond(silverado))
	ctx := context.Background()

	require.NoError(t, f.ctrl.RefreshSettings(ctx))
	assert.Contains(t, f.host.last().Settings, "_not set_")

	require.NoError(t, f.ctrl.UpdateKey(ctx, "abcdefghijkl"))
	v, ok, err := f.store.Get(ctx, credential.APIKeyName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abcdefghijkl", v)
	assert.Empty(t, f.host.notices)

	require.NoError(t, f.ctrl.SaveKey(ctx, "  mnopqrstuvwx  "))
	v, _, _ = f.store.Get(ctx, credential.APIKeyName)
	assert.Equal(t, "mnopqrstuvwx", v)
	assert.Contains(t, f.host.last().Settings, "mnop")
	assert.Equal(t, "API key saved", f.host.notices[len(f.host.notices)-1].Message)

	require.NoError(t, f.ctrl.ClearKey(ctx))
	_, ok, _ = f.store.Get(ctx, credential.APIKeyName)
	assert.False(t, ok)
	assert.Equal(t, "API key removed", f.host.notices[len(f.host.notices)-1].Message)
	assert.True(t, strings.Contains(f.host.last().Settings, "_not set_"))
}

type failingStore struct{ credential.Store }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk on fire") }

func TestStoreErrorsAreNotified(t *testing.T) {
	host := &recordingHost{}
	ctrl, err := New(Config{Decoder: &autodev.Client{}, Store: failingStore{}, Navigation: host, View: host})
	require.NoError(t, err)
	ctx := context.Background()

	ctrl.Select(vehicle("a", "VINA"))
	assert.Error(t, ctrl.Decode(ctx))
	assert.Error(t, ctrl.SaveKey(ctx, "k"))
	require.Len(t, host.notices, 2)
	assert.Equal(t, "Credential Error", host.notices[0].Title)
	assert.Equal(t, view.StatusNone, ctrl.Status())
}
