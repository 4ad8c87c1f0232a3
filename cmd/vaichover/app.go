package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"vaichover/internal/dashboard"
	"vaichover/internal/push"
	"vaichover/internal/store"
	"vaichover/internal/types"
)

// errReported marks a failure whose message was already written to the
// output, so main only needs to set the exit status.
var errReported = errors.New("command failed")

// appDeps are the collaborators of one CLI invocation.
type appDeps struct {
	Weather     dashboard.WeatherSource
	Point       *types.GeoPoint // nil means no location fix
	KV          store.KV
	Prompt      io.Reader // answers to the permission prompt
	Notify      bool      // grant notifications for this run without asking
	DeviceToken string
	Directory   push.Directory
	PushCaps    push.Capabilities
	GeoTimeout  time.Duration
	Clock       types.Clock
	Logger      types.Logger
	Out         io.Writer
	RestorePush bool
}

type app struct {
	dash *dashboard.Controller
	push *push.Manager
	out  io.Writer
}

func newApp(ctx context.Context, d appDeps) *app {
	if d.Logger == nil {
		d.Logger = types.NopLogger{}
	}
	if d.Prompt == nil {
		d.Prompt = strings.NewReader("")
	}

	var locator dashboard.Locator
	if d.Point != nil {
		locator = dashboard.StaticLocator{Point: d.Point}
	}

	device := store.NewDeviceStore(ctx, d.KV, d.Logger)
	initial := types.PermissionDefault
	if d.Notify {
		initial = types.PermissionGranted
	}
	permission := push.NewTerminalPermission(d.Prompt, d.Out, initial, device)

	a := &app{
		dash: dashboard.NewController(dashboard.Deps{
			Weather:     d.Weather,
			Locator:     locator,
			Preferences: store.NewPreferenceStore(ctx, d.KV, d.Logger),
			History:     store.NewHistoryStore(ctx, d.KV, d.Logger),
			Notifier:    dashboard.WriterNotifier{Out: d.Out},
			Permission:  permission,
			Clock:       d.Clock,
			Logger:      d.Logger,
			GeoTimeout:  d.GeoTimeout,
		}),
		push: push.NewManager(d.PushCaps, permission, push.ImmediateWorker{Scope: "vaichover-cli"},
			push.NewStaticTokenProvider(d.DeviceToken, device), d.Directory, d.Logger),
		out: d.Out,
	}
	if d.RestorePush {
		a.push.RestoreExistingToken(ctx)
	}
	return a
}

// dispatch runs the command named by args[0].
func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("nenhum comando informado")
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "refresh":
		return a.report(a.dash.Refresh(ctx))
	case "search":
		return a.report(a.dash.Search(ctx, strings.Join(rest, " ")))
	case "history":
		return a.history(ctx, rest)
	case "prefs":
		return a.prefs(ctx, rest)
	case "subscribe":
		return a.subscribe(ctx)
	case "unsubscribe":
		return a.unsubscribe(ctx)
	case "status":
		renderPushState(a.out, a.push.State(), a.push.Available())
		return nil
	default:
		return fmt.Errorf("comando desconhecido: %q", cmd)
	}
}

func (a *app) report(st dashboard.State) error {
	if st.Status == dashboard.StatusError {
		renderError(a.out, st.Error)
		return errReported
	}
	if st.Report != nil {
		renderReport(a.out, *st.Report, a.dash.Preferences().Unit)
	}
	return nil
}

// history lists saved locations, or reloads entry n (1-based) when given.
func (a *app) history(ctx context.Context, args []string) error {
	entries := a.dash.History()
	if len(args) == 0 {
		renderHistory(a.out, entries)
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(entries) {
		return fmt.Errorf("entrada de histórico inválida: %q", args[0])
	}
	return a.report(a.dash.SelectSaved(ctx, entries[n-1]))
}

// prefs applies the flags that were set and prints the resulting settings.
func (a *app) prefs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prefs", flag.ContinueOnError)
	fs.SetOutput(a.out)
	enabled := fs.Bool("enabled", false, "enable rain alerts")
	threshold := fs.Int("threshold", 0, "alert threshold in percent (20-100)")
	unit := fs.String("unit", "", "temperature unit (celsius or fahrenheit)")
	quiet := fs.Bool("quiet", false, "enable quiet hours")
	quietStart := fs.String("quiet-start", "", "quiet hours start (HH:MM)")
	quietEnd := fs.String("quiet-end", "", "quiet hours end (HH:MM)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch types.PreferencesPatch
	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "enabled":
			patch.Enabled = enabled
		case "threshold":
			patch.Threshold = threshold
		case "unit":
			u := types.TemperatureUnit(strings.ToLower(*unit))
			patch.Unit = &u
		case "quiet":
			patch.QuietHoursEnabled = quiet
		case "quiet-start":
			patch.QuietHoursStart = quietStart
		case "quiet-end":
			patch.QuietHoursEnd = quietEnd
		}
	})

	prefs := a.dash.Preferences()
	if changed {
		var err error
		prefs, err = a.dash.UpdatePreferences(ctx, patch)
		if err != nil {
			renderError(a.out, err)
			return errReported
		}
	}
	renderPreferences(a.out, prefs)
	return nil
}

func (a *app) subscribe(ctx context.Context) error {
	if _, err := a.push.Subscribe(ctx); err != nil {
		renderError(a.out, err)
		return errReported
	}
	renderPushState(a.out, a.push.State(), a.push.Available())
	return nil
}

func (a *app) unsubscribe(ctx context.Context) error {
	err := a.push.Unsubscribe(ctx)
	renderPushState(a.out, a.push.State(), a.push.Available())
	if err != nil {
		renderError(a.out, err)
		return errReported
	}
	return nil
}
