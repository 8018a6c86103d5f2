package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/logging"
	"github.com/five82/vininsight/internal/view"
)

var (
	// ErrNoSelection is returned by decode operations when no vehicle is active.
	ErrNoSelection = errors.New("no vehicle selected")
	// ErrDecodeInFlight is returned when a decode is already pending.
	ErrDecodeInFlight = errors.New("decode already in progress")
)

// NavigationHost switches the visible panel.
type NavigationHost interface {
	ActivatePanel(p view.Panel)
}

// ViewHost displays rendered panels and one-shot notifications.
type ViewHost interface {
	ShowPanels(p view.Panels)
	Notify(n view.Notification)
}

// Vehicle is the active selection with its decode status.
type Vehicle struct {
	fleet.FlatVehicle
	DecodeStatus view.DecodeStatus
}

// Request identifies one decode attempt.
type Request struct {
	ID         string
	Generation uint64
	VehicleID  string
	VIN        string
	APIKey     string
}

// Config wires a Controller. Decoder, Store, Navigation and View are
// required.
type Config struct {
	Decoder    autodev.Decoder
	Store      credential.Store
	Navigation NavigationHost
	View       ViewHost
	Renderer   view.Renderer
	Logger     logging.Logger
	// Backend labels the credential store on the Settings panel.
	Backend string
	// KeyName overrides credential.APIKeyName.
	KeyName string
}

// Controller tracks the single active vehicle and its decode result.
type Controller struct {
	decoder  autodev.Decoder
	store    credential.Store
	nav      NavigationHost
	host     ViewHost
	renderer view.Renderer
	log      logging.Logger
	keyName  string

	mu         sync.Mutex
	status     *fsm.FSM
	vehicle    *fleet.FlatVehicle
	result     *autodev.Result
	detail     string
	generation uint64
	inflight   *Request
	settings   view.SettingsState
}

// New validates cfg and returns a Controller with nothing selected.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Decoder == nil:
		return nil, fmt.Errorf("selection: decoder is required")
	case cfg.Store == nil:
		return nil, fmt.Errorf("selection: credential store is required")
	case cfg.Navigation == nil:
		return nil, fmt.Errorf("selection: navigation host is required")
	case cfg.View == nil:
		return nil, fmt.Errorf("selection: view host is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithName("selection")
	keyName := cfg.KeyName
	if keyName == "" {
		keyName = credential.APIKeyName
	}
	return &Controller{
		decoder:  cfg.Decoder,
		store:    cfg.Store,
		nav:      cfg.Navigation,
		host:     cfg.View,
		renderer: cfg.Renderer,
		log:      log,
		keyName:  keyName,
		status:   newStatusMachine(log),
		settings: view.SettingsState{Backend: cfg.Backend},
	}, nil
}

// Select makes v the active vehicle. Entries without a vehicle id are
// ignored and false is returned. Any previous result is discarded and any
// in-flight decode becomes stale.
func (c *Controller) Select(v fleet.FlatVehicle) bool {
	if strings.TrimSpace(v.VehicleID) == "" {
		return false
	}

	c.mu.Lock()
	selected := v
	c.vehicle = &selected
	c.result = nil
	c.detail = ""
	c.generation++
	c.inflight = nil
	c.transition(eventReset)
	panels := c.renderLocked()
	c.mu.Unlock()

	c.log.Debug("vehicle selected", "vehicle_id", v.VehicleID, "vin", v.VIN)
	c.host.ShowPanels(panels)
	c.nav.ActivatePanel(view.PanelOverview)
	return true
}

// StartDecode validates the active selection and stored key and moves the
// status to pending. Validation failures are reported through the ViewHost
// and leave the state untouched.
func (c *Controller) StartDecode(ctx context.Context) (Request, error) {
	c.mu.Lock()
	if c.vehicle == nil {
		c.mu.Unlock()
		return Request{}, ErrNoSelection
	}
	if c.inflight != nil {
		c.mu.Unlock()
		return Request{}, ErrDecodeInFlight
	}
	vehicle := *c.vehicle
	c.mu.Unlock()

	key, err := c.readKey(ctx)
	if err != nil {
		c.host.Notify(view.StoreFailed("read", err))
		return Request{}, err
	}
	if err := autodev.Validate(vehicle.VIN, key); err != nil {
		c.log.Info("decode rejected", "vehicle_id", vehicle.VehicleID, "reason", err.Error())
		c.host.Notify(view.DecodeFailed(err))
		return Request{}, err
	}

	c.mu.Lock()
	if c.vehicle == nil || c.vehicle.VehicleID != vehicle.VehicleID {
		c.mu.Unlock()
		return Request{}, ErrNoSelection
	}
	if c.inflight != nil {
		c.mu.Unlock()
		return Request{}, ErrDecodeInFlight
	}
	c.generation++
	req := Request{
		ID:         uuid.NewString(),
		Generation: c.generation,
		VehicleID:  vehicle.VehicleID,
		VIN:        strings.TrimSpace(vehicle.VIN),
		APIKey:     strings.TrimSpace(key),
	}
	c.inflight = &req
	c.result = nil
	c.detail = ""
	c.transition(eventStart)
	panels := c.renderLocked()
	c.mu.Unlock()

	c.log.Info("decode started", "request_id", req.ID, "vehicle_id", req.VehicleID, "vin", req.VIN)
	c.host.ShowPanels(panels)
	return req, nil
}

// Execute performs the network call for req. It touches no controller state
// and may run off the UI goroutine.
func (c *Controller) Execute(ctx context.Context, req Request) (*autodev.Result, error) {
	return c.decoder.Decode(ctx, req.VIN, req.APIKey)
}

// FinishDecode applies the outcome of req. It returns false when req no
// longer belongs to the active selection, in which case nothing changes.
func (c *Controller) FinishDecode(_ context.Context, req Request, res *autodev.Result, err error) bool {
	c.mu.Lock()
	if !c.currentLocked(req) {
		c.mu.Unlock()
		c.log.Debug("discarding stale decode response", "request_id", req.ID, "vehicle_id", req.VehicleID)
		return false
	}
	c.inflight = nil
	if err == nil && res == nil {
		err = &autodev.ParseError{Err: errors.New("empty decode result")}
	}
	if err != nil {
		c.result = nil
		c.detail = err.Error()
		c.transition(eventFail)
	} else {
		c.result = res
		c.detail = ""
		c.transition(eventSucceed)
	}
	panels := c.renderLocked()
	c.mu.Unlock()

	c.host.ShowPanels(panels)
	if err != nil {
		c.log.Error(err, "decode failed", "request_id", req.ID, "vehicle_id", req.VehicleID, "outcome", autodev.Classify(err))
		c.host.Notify(view.DecodeFailed(err))
		return true
	}
	c.log.Info("decode succeeded", "request_id", req.ID, "vehicle_id", req.VehicleID, "fields", len(res.Fields))
	return true
}

// Decode runs a full decode synchronously.
func (c *Controller) Decode(ctx context.Context) error {
	req, err := c.StartDecode(ctx)
	if err != nil {
		return err
	}
	res, err := c.Execute(ctx, req)
	c.FinishDecode(ctx, req, res, err)
	return err
}

// TestConnection decodes the canonical test VIN with the stored key and
// returns the notification describing the outcome. Selection and result
// state are never touched.
func (c *Controller) TestConnection(ctx context.Context) view.Notification {
	key, err := c.readKey(ctx)
	if err != nil {
		return view.StoreFailed("read", err)
	}
	report, err := c.decoder.TestConnection(ctx, key)
	if err != nil {
		c.log.Warn("connection test failed", "outcome", autodev.Classify(err), "error", err)
	} else {
		c.log.Info("connection test succeeded", "make", report.Make, "model", report.Model)
	}
	return view.ConnectionTested(report, err)
}

// SetTesting toggles the connection-test indicator on the Settings panel.
func (c *Controller) SetTesting(testing bool) {
	c.mu.Lock()
	c.settings.Testing = testing
	panels := c.renderLocked()
	c.mu.Unlock()
	c.host.ShowPanels(panels)
}

// RefreshSettings reloads the stored key into the Settings panel.
func (c *Controller) RefreshSettings(ctx context.Context) error {
	key, err := c.readKey(ctx)
	if err != nil {
		c.host.Notify(view.StoreFailed("read", err))
		return err
	}
	c.setKeyState(key)
	return nil
}

// UpdateKey writes an edited key through to the store.
func (c *Controller) UpdateKey(ctx context.Context, value string) error {
	if err := c.store.Set(ctx, c.keyName, value); err != nil {
		c.host.Notify(view.StoreFailed("save", err))
		return err
	}
	c.setKeyState(value)
	return nil
}

// SaveKey stores value and confirms it.
func (c *Controller) SaveKey(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if err := c.UpdateKey(ctx, value); err != nil {
		return err
	}
	c.log.Info("api key saved", "backend", c.settings.Backend)
	c.host.Notify(view.KeySaved())
	return nil
}

// ClearKey removes the stored key and confirms it.
func (c *Controller) ClearKey(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.keyName); err != nil {
		c.host.Notify(view.StoreFailed("remove", err))
		return err
	}
	c.setKeyState("")
	c.log.Info("api key removed", "backend", c.settings.Backend)
	c.host.Notify(view.KeyCleared())
	return nil
}

// Selected returns the active vehicle.
func (c *Controller) Selected() (Vehicle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vehicle == nil {
		return Vehicle{}, false
	}
	return Vehicle{FlatVehicle: *c.vehicle, DecodeStatus: c.currentStatus()}, true
}

// APIKey returns the key currently shown on the Settings panel.
func (c *Controller) APIKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.APIKey
}

// Result returns the decode result of the active vehicle, if any.
func (c *Controller) Result() *autodev.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Status returns the decode status of the active vehicle.
func (c *Controller) Status() view.DecodeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStatus()
}

// InFlight reports whether a decode is pending.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Panels renders the current state.
func (c *Controller) Panels() view.Panels {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked()
}

func (c *Controller) readKey(ctx context.Context) (string, error) {
	key, ok, err := c.store.Get(ctx, c.keyName)
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	if !ok {
		return "", nil
	}
	return key, nil
}

func (c *Controller) setKeyState(key string) {
	c.mu.Lock()
	c.settings.APIKey = key
	panels := c.renderLocked()
	c.mu.Unlock()
	c.host.ShowPanels(panels)
}

func (c *Controller) currentLocked(req Request) bool {
	return c.inflight != nil &&
		c.inflight.ID == req.ID &&
		req.Generation == c.generation &&
		c.vehicle != nil &&
		c.vehicle.VehicleID == req.VehicleID
}

func (c *Controller) transition(event string) {
	if err := fire(context.Background(), c.status, event); err != nil {
		c.log.Error(err, "invalid decode status transition", "event", event, "status", c.status.Current())
	}
}

func (c *Controller) currentStatus() view.DecodeStatus {
	return view.DecodeStatus(c.status.Current())
}

func (c *Controller) renderLocked() view.Panels {
	return c.renderer.Render(view.State{
		Vehicle:  c.vehicle,
		Status:   c.currentStatus(),
		Detail:   c.detail,
		Result:   c.result,
		Settings: c.settings,
	})
}
