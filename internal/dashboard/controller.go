// Package dashboard drives the weather dashboard: it resolves the location,
// fetches the report, records history and decides whether to raise a rain
// alert. Operations may overlap; only the most recently started one may
// publish its result.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vaichover/internal/alerts"
	"vaichover/internal/external"
	"vaichover/internal/types"
)

// DefaultGeoTimeout bounds a single Locate call.
const DefaultGeoTimeout = 10 * time.Second

// Status is the lifecycle of the current dashboard request.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the published view. Report is set only on success and Error only
// on error.
type State struct {
	Status Status
	Report *types.WeatherReport
	Error  *types.AppError
}

// WeatherSource is the subset of weather.Gateway the controller uses.
type WeatherSource interface {
	FetchReport(ctx context.Context, lat, lon float64, label string) (types.WeatherReport, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) string
	SearchCities(ctx context.Context, query string) ([]types.CitySuggestion, error)
}

// Preferences is the alert preference store.
type Preferences interface {
	Get() types.AlertPreferences
	Update(ctx context.Context, patch types.PreferencesPatch) (types.AlertPreferences, error)
	StampNotified(ctx context.Context, t time.Time) types.AlertPreferences
}

// History is the saved-location store.
type History interface {
	List() []types.SavedLocation
	Add(ctx context.Context, entry types.SavedLocation) []types.SavedLocation
}

// PermissionSource samples the platform notification permission.
type PermissionSource interface {
	Permission() types.NotificationPermission
}

// Messages shown for search and fetch failures.
const (
	msgEmptyQuery   = "Digite o nome de uma cidade para pesquisar."
	msgCityNotFound = "Não encontramos essa cidade. Tente outro nome."
	msgFetchFailed  = "Não foi possível buscar o clima agora."
	msgSearchFailed = "Não foi possível buscar essa cidade agora."
)

// Deps wires a Controller. Locator, Notifier and Permission are optional: a
// nil Locator behaves like a device without geolocation, a nil Notifier
// drops alerts and a nil Permission reads as "default".
type Deps struct {
	Weather     WeatherSource
	Locator     Locator
	Preferences Preferences
	History     History
	Notifier    Notifier
	Permission  PermissionSource
	Clock       types.Clock
	Logger      types.Logger
	GeoTimeout  time.Duration
}

// Controller owns State.
type Controller struct {
	weather    WeatherSource
	locator    Locator
	prefs      Preferences
	history    History
	notifier   Notifier
	permission PermissionSource
	clock      types.Clock
	logger     types.Logger
	geoTimeout time.Duration

	mu    sync.RWMutex
	seq   uint64
	state State
}

// NewController creates a Controller in the idle state.
func NewController(d Deps) *Controller {
	c := &Controller{
		weather:    d.Weather,
		locator:    d.Locator,
		prefs:      d.Preferences,
		history:    d.History,
		notifier:   d.Notifier,
		permission: d.Permission,
		clock:      d.Clock,
		logger:     d.Logger,
		geoTimeout: d.GeoTimeout,
		state:      State{Status: StatusIdle},
	}
	if c.clock == nil {
		c.clock = types.RealClock{}
	}
	if c.logger == nil {
		c.logger = types.NopLogger{}
	}
	if c.geoTimeout <= 0 {
		c.geoTimeout = DefaultGeoTimeout
	}
	return c
}

// State returns the current published state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Preferences returns the current alert preferences.
func (c *Controller) Preferences() types.AlertPreferences { return c.prefs.Get() }

// History returns the saved locations, newest first.
func (c *Controller) History() []types.SavedLocation { return c.history.List() }

// UpdatePreferences merges patch into the stored preferences.
func (c *Controller) UpdatePreferences(ctx context.Context, patch types.PreferencesPatch) (types.AlertPreferences, error) {
	return c.prefs.Update(ctx, patch)
}

// Refresh locates the device and loads the report for that position. The
// reverse geocode and the forecast run concurrently; a geocoding failure
// only costs the label.
func (c *Controller) Refresh(ctx context.Context) State {
	if c.locator == nil {
		seq := c.next(nil)
		c.publish(seq, errorState(types.NewAppError(types.ErrCodeGeoUnavailable, msgNoGeolocation, nil)))
		return c.State()
	}

	seq := c.begin()

	locCtx, cancel := context.WithTimeout(ctx, c.geoTimeout)
	point, err := c.locator.Locate(locCtx)
	cancel()
	if err != nil {
		c.publish(seq, errorState(mapLocateError(err)))
		return c.State()
	}

	var (
		label  string
		report types.WeatherReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		label = c.weather.ReverseGeocode(gctx, point.Latitude, point.Longitude)
		return nil
	})
	g.Go(func() error {
		var err error
		report, err = c.weather.FetchReport(gctx, point.Latitude, point.Longitude, point.Label)
		return err
	})
	if err := g.Wait(); err != nil {
		c.publish(seq, errorState(userError(err, msgFetchFailed)))
		return c.State()
	}

	c.succeed(ctx, seq, report.WithLabel(label))
	return c.State()
}

// Search loads the report for the best match of query.
func (c *Controller) Search(ctx context.Context, query string) State {
	query = strings.TrimSpace(query)
	if query == "" {
		seq := c.next(nil)
		c.publish(seq, errorState(types.NewAppError(types.ErrCodeUnknown, msgEmptyQuery, nil)))
		return c.State()
	}

	seq := c.begin()

	matches, err := c.weather.SearchCities(ctx, query)
	if err != nil {
		c.publish(seq, errorState(userError(err, msgSearchFailed)))
		return c.State()
	}
	if len(matches) == 0 {
		c.publish(seq, errorState(types.NewAppErrorWithDetails(types.ErrCodeNetwork, msgCityNotFound, nil,
			map[string]any{"query": query})))
		return c.State()
	}

	target := matches[0]
	label := external.FormatCitySuggestionLabel(target)
	report, err := c.weather.FetchReport(ctx, target.Latitude, target.Longitude, label)
	if err != nil {
		c.publish(seq, errorState(userError(err, msgSearchFailed)))
		return c.State()
	}

	c.succeed(ctx, seq, report.WithLabel(label))
	return c.State()
}

// SelectSaved reloads a history entry.
func (c *Controller) SelectSaved(ctx context.Context, entry types.SavedLocation) State {
	seq := c.begin()

	report, err := c.weather.FetchReport(ctx, entry.Latitude, entry.Longitude, entry.Label)
	if err != nil {
		c.publish(seq, errorState(userError(err, msgSearchFailed)))
		return c.State()
	}

	c.succeed(ctx, seq, report)
	return c.State()
}

// begin issues a sequence number and publishes the loading state.
func (c *Controller) begin() uint64 {
	return c.next(&State{Status: StatusLoading})
}

func (c *Controller) next(initial *State) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if initial != nil {
		c.state = *initial
	}
	return c.seq
}

// publish writes st if seq is still the latest issued. It reports whether
// the write happened.
func (c *Controller) publish(seq uint64, st State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	c.state = st
	return true
}

// succeed publishes report and runs the success side effects. A superseded
// request records nothing.
func (c *Controller) succeed(ctx context.Context, seq uint64, report types.WeatherReport) {
	if !c.publish(seq, State{Status: StatusSuccess, Report: &report}) {
		c.logger.Info("dropped superseded weather result", "seq", seq)
		return
	}

	if label := report.Location.Label; label != "" {
		c.history.Add(ctx, types.SavedLocation{
			Label:     label,
			Latitude:  report.Location.Latitude,
			Longitude: report.Location.Longitude,
		})
	}

	c.maybeNotify(ctx, report)
}

func (c *Controller) maybeNotify(ctx context.Context, report types.WeatherReport) {
	permission := types.PermissionDefault
	if c.permission != nil {
		permission = c.permission.Permission()
	}
	now := c.clock.Now()

	decision := alerts.Evaluate(alerts.Input{
		Report:     report,
		Prefs:      c.prefs.Get(),
		Now:        now,
		Permission: permission,
	})
	c.logger.Info("alert evaluated",
		"decision", decision.String(),
		"rain_probability", report.RainProbability,
	)
	if !decision.Emit || c.notifier == nil {
		return
	}

	res := types.Attempt("notification_display", func() error {
		return c.notifier.Notify(ctx, decision.Notification)
	}).Log(c.logger)
	if res.OK() {
		c.prefs.StampNotified(ctx, now)
	}
}

func errorState(err *types.AppError) State {
	return State{Status: StatusError, Error: err}
}

// userError keeps an error that already carries a dashboard code and folds
// anything else into one with fallback as its message.
func userError(err error, fallback string) *types.AppError {
	var appErr *types.AppError
	if errors.As(err, &appErr) && types.WeatherErrorCode(appErr) == appErr.Code {
		return appErr
	}
	return types.NewAppError(types.WeatherErrorCode(err), fallback, err)
}
