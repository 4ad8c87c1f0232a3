// Package main implements the vaichover terminal dashboard.
//
// It resolves the device location (from flags or configuration), shows the
// current rain outlook, evaluates the rain alert against the stored
// preferences and manages the push subscription with the token directory.
//
// Usage:
//
//	vaichover [flags] refresh
//	vaichover [flags] search <cidade>
//	vaichover [flags] history [n]
//	vaichover [flags] prefs [-enabled] [-threshold=N] [-unit=celsius|fahrenheit]
//	                        [-quiet] [-quiet-start=HH:MM] [-quiet-end=HH:MM]
//	vaichover [flags] subscribe | unsubscribe | status
//
// State (preferences and history) lives in a SQLite file at
// CLIENT_STATE_PATH, overridable with -state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"vaichover/internal/config"
	"vaichover/internal/external"
	"vaichover/internal/push"
	"vaichover/internal/store"
	"vaichover/internal/types"
	"vaichover/internal/weather"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "erro: %v\n", err)
		}
		os.Exit(1)
	}
}

// run parses global flags, wires the dashboard over the configured stack and
// executes one command.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("vaichover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.Float64("lat", 0, "device latitude (overrides DEVICE_LATITUDE)")
	lon := fs.Float64("lon", 0, "device longitude (overrides DEVICE_LONGITUDE)")
	statePath := fs.String("state", "", "SQLite state file (overrides CLIENT_STATE_PATH)")
	notify := fs.Bool("notify", false, "grant notification permission without prompting")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Será que vai chover?\n\n")
		fmt.Fprintf(stderr, "Usage:\n  vaichover [flags] <refresh|search|history|prefs|subscribe|unsubscribe|status> [args]\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("nenhum comando informado")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	typed := types.NewSlogAdapter(logger)
	typed.Info("vaichover starting", "build", cfg.Build.String())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := cfg.Client.StatePath
	if *statePath != "" {
		path = *statePath
	}
	kv, err := store.OpenSQLiteKV(ctx, path)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	defer kv.Close()

	var point *types.GeoPoint
	if cfg.Client.Latitude != nil && cfg.Client.Longitude != nil {
		point = &types.GeoPoint{Latitude: *cfg.Client.Latitude, Longitude: *cfg.Client.Longitude}
	}
	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	if visited["lat"] && visited["lon"] {
		point = &types.GeoPoint{Latitude: *lat, Longitude: *lon}
	}

	registry := external.NewClientRegistry(cfg, logger)

	a := newApp(ctx, appDeps{
		Weather:     weather.NewGateway(registry.Forecast, registry.Cities, registry.Reverse, nil, typed),
		Point:       point,
		KV:          kv,
		Prompt:      stdin,
		Notify:      *notify,
		DeviceToken: cfg.Push.DeviceToken.Unmask(),
		Directory:   registry.Directory,
		PushCaps:    push.Capabilities{Supported: true, Configured: cfg.Push.Configured(), PublicKey: cfg.Push.PublicKey},
		GeoTimeout:  cfg.Client.GeoTimeout,
		Logger:      typed,
		Out:         stdout,
		RestorePush: true,
	})
	return a.dispatch(ctx, fs.Args())
}
